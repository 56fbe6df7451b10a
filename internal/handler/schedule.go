// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/internal/metrics"
	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler"
	"github.com/shiftplan/shiftplan/pkg/scheduler/extractor"
	"github.com/shiftplan/shiftplan/pkg/scheduler/optimizer"
	"github.com/shiftplan/shiftplan/pkg/scheduler/solver"
	"github.com/shiftplan/shiftplan/pkg/validator"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	engine  *scheduler.Engine
	metrics *metrics.Metrics
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(engine *scheduler.Engine, m *metrics.Metrics) *ScheduleHandler {
	return &ScheduleHandler{engine: engine, metrics: m}
}

// AssignmentInput 排班分配输入
type AssignmentInput struct {
	ID         string `json:"id,omitempty"`
	EmployeeID string `json:"employee_id"`
	ShiftID    string `json:"shift_id"`
	Date       string `json:"date"`       // YYYY-MM-DD
	StartTime  string `json:"start_time"` // HH:MM
	EndTime    string `json:"end_time"`   // HH:MM
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	StartDate        string                 `json:"start_date"`
	EndDate          string                 `json:"end_date"`
	Name             string                 `json:"name,omitempty"`
	Constraints      map[string]interface{} `json:"constraints,omitempty"`
	TimeoutSeconds   int                    `json:"timeout_seconds,omitempty"`
	SeedAssignments  []AssignmentInput      `json:"seed_assignments,omitempty"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success              bool                  `json:"success"`
	Status               solver.Status         `json:"status"`
	Message              string                `json:"message,omitempty"`
	ScheduleID           string                `json:"schedule_id"`
	Extraction           *extractor.Extraction `json:"result"`
	Conflicts            []validator.Conflict  `json:"conflicts"`
	Statistics           *solver.Statistics    `json:"statistics"`
	Objective            int                   `json:"objective"`
	PersistedAssignments int                   `json:"persisted_assignments"`
	Suggestions          []string              `json:"suggestions,omitempty"`
	Duration             string                `json:"duration"`
}

// Generate 生成排班
// infeasible/timeout 属于正常求解结果，返回 200 并在 status 字段表达。
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	engineReq := &scheduler.GenerateRequest{
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Name:             req.Name,
		ConstraintConfig: req.Constraints,
	}
	if req.TimeoutSeconds > 0 {
		engineReq.TimeBudget = time.Duration(req.TimeoutSeconds) * time.Second
	}
	if len(req.SeedAssignments) > 0 {
		seed, err := parseAssignments(req.SeedAssignments)
		if err != nil {
			respondError(w, err)
			return
		}
		engineReq.Seed = seed
	}

	result, err := h.engine.Generate(r.Context(), engineReq)
	if err != nil {
		respondAppError(w, err)
		return
	}

	h.metrics.ObserveSolve(
		string(result.Schedule.Status),
		result.Schedule.Duration,
		int64(result.Schedule.Statistics.NodesExplored),
		result.Schedule.Objective,
	)
	h.metrics.SetCoverageRate(result.Extraction.CoveragePercent)
	for _, c := range result.Conflicts {
		h.metrics.AddConflicts(string(c.Type), 1)
	}

	resp := GenerateResponse{
		Success:              result.Schedule.Status == solver.StatusOptimal || result.Schedule.Status == solver.StatusFeasible,
		Status:               result.Schedule.Status,
		Message:              result.Schedule.Message,
		ScheduleID:           result.ScheduleID.String(),
		Extraction:           result.Extraction,
		Conflicts:            result.Conflicts,
		Statistics:           result.Schedule.Statistics,
		Objective:            result.Schedule.Objective,
		PersistedAssignments: result.PersistedAssignments,
		Suggestions:          result.Schedule.Suggestions,
		Duration:             result.Schedule.Duration.String(),
	}

	respondJSON(w, http.StatusOK, resp)
}

// OptimizeRequest 排班优化请求
type OptimizeRequest struct {
	StartDate      string                 `json:"start_date"`
	EndDate        string                 `json:"end_date"`
	Assignments    []AssignmentInput      `json:"assignments,omitempty"`
	Goals          []string               `json:"goals,omitempty"`
	Constraints    map[string]interface{} `json:"constraints,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds,omitempty"`
}

// OptimizeResponse 排班优化响应
type OptimizeResponse struct {
	Success     bool                   `json:"success"`
	Status      solver.Status          `json:"status"`
	Assignments []*model.Assignment    `json:"assignments"`
	Objective   int                    `json:"objective"`
	Diff        *optimizer.DiffSummary `json:"diff"`
	Duration    string                 `json:"duration"`
}

// Optimize 优化既有排班
func (h *ScheduleHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	engineReq := &scheduler.OptimizeRequest{
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Goals:            req.Goals,
		ConstraintConfig: req.Constraints,
	}
	if req.TimeoutSeconds > 0 {
		engineReq.TimeBudget = time.Duration(req.TimeoutSeconds) * time.Second
	}
	if len(req.Assignments) > 0 {
		assignments, err := parseAssignments(req.Assignments)
		if err != nil {
			respondError(w, err)
			return
		}
		engineReq.Assignments = assignments
	}

	result, err := h.engine.Optimize(r.Context(), engineReq)
	if err != nil {
		respondAppError(w, err)
		return
	}

	h.metrics.ObserveOptimize(string(result.Status), result.Duration)

	resp := OptimizeResponse{
		Success:     result.Status == solver.StatusOptimal,
		Status:      result.Status,
		Assignments: result.Assignments,
		Objective:   result.Objective,
		Diff:        result.Diff,
		Duration:    result.Duration.String(),
	}

	respondJSON(w, http.StatusOK, resp)
}

// CheckConflictsRequest 冲突检查请求
type CheckConflictsRequest struct {
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Assignments []AssignmentInput `json:"assignments,omitempty"`
}

// CheckConflictsResponse 冲突检查响应
type CheckConflictsResponse struct {
	Success   bool                 `json:"success"`
	Conflicts []validator.Conflict `json:"conflicts"`
	Count     int                  `json:"count"`
}

// CheckConflicts 检查排班冲突
func (h *ScheduleHandler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req CheckConflictsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	engineReq := &scheduler.CheckConflictsRequest{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if len(req.Assignments) > 0 {
		assignments, err := parseAssignments(req.Assignments)
		if err != nil {
			respondError(w, err)
			return
		}
		engineReq.Assignments = assignments
	}

	result, err := h.engine.CheckConflicts(r.Context(), engineReq)
	if err != nil {
		respondAppError(w, err)
		return
	}

	for _, c := range result.Conflicts {
		h.metrics.AddConflicts(string(c.Type), 1)
	}

	respondJSON(w, http.StatusOK, CheckConflictsResponse{
		Success:   true,
		Conflicts: result.Conflicts,
		Count:     result.Count,
	})
}

// ValidateRequest 单个分配的校验请求（人工编辑后的快速通道）
type ValidateRequest struct {
	Assignment AssignmentInput      `json:"assignment"`
	Existing   []AssignmentInput    `json:"existing,omitempty"`
	Employee   *model.Employee      `json:"employee"`
	Shift      *model.ShiftInstance `json:"shift,omitempty"`
	MinRest    float64              `json:"min_rest_hours,omitempty"`
}

// Validate 校验单个分配是否与既有排班冲突
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if req.Employee == nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "缺少员工信息"))
		return
	}

	parsed, appErr := parseAssignments(append([]AssignmentInput{req.Assignment}, req.Existing...))
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	newAssignment, existing := parsed[0], parsed[1:]

	config := validator.DefaultDetectorConfig()
	if req.MinRest > 0 {
		config.MinRestHours = req.MinRest
	}
	detector := validator.NewConflictDetector(config)
	conflicts := detector.DetectForAssignment(newAssignment, existing, req.Employee, req.Shift)

	for _, c := range conflicts {
		h.metrics.AddConflicts(string(c.Type), 1)
	}

	respondJSON(w, http.StatusOK, CheckConflictsResponse{
		Success:   true,
		Conflicts: conflicts,
		Count:     len(conflicts),
	})
}

// parseAssignments 把输入转换为分配模型
func parseAssignments(inputs []AssignmentInput) ([]*model.Assignment, *errors.AppError) {
	assignments := make([]*model.Assignment, 0, len(inputs))
	for _, in := range inputs {
		empID, err := uuid.Parse(in.EmployeeID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的员工ID格式: "+in.EmployeeID)
		}
		shiftID, err := uuid.Parse(in.ShiftID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的班次ID格式: "+in.ShiftID)
		}
		startTime, err := time.Parse("2006-01-02 15:04", in.Date+" "+in.StartTime)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的开始时间: "+in.StartTime)
		}
		endTime, err := time.Parse("2006-01-02 15:04", in.Date+" "+in.EndTime)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的结束时间: "+in.EndTime)
		}
		if !endTime.After(startTime) {
			// 跨午夜班次，结束时间落到次日
			endTime = endTime.Add(24 * time.Hour)
		}

		id := uuid.New()
		if in.ID != "" {
			parsed, err := uuid.Parse(in.ID)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的分配ID格式: "+in.ID)
			}
			id = parsed
		}

		assignments = append(assignments, &model.Assignment{
			BaseModel:  model.BaseModel{ID: id},
			EmployeeID: empID,
			ShiftID:    shiftID,
			Date:       in.Date,
			StartTime:  startTime,
			EndTime:    endTime,
			Status:     model.AssignmentConfirmed,
		})
	}
	return assignments, nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	})
}

// respondAppError 按错误码映射HTTP状态
func respondAppError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.GetHTTPStatus(err))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"code":    errors.GetCode(err),
		"message": err.Error(),
	})
}

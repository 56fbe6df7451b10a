package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/internal/metrics"
	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/stats"
)

// StatsHandler 排班统计处理器
type StatsHandler struct {
	coverage *stats.CoverageAnalyzer
	fairness *stats.FairnessAnalyzer
	metrics  *metrics.Metrics
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(m *metrics.Metrics) *StatsHandler {
	return &StatsHandler{
		coverage: stats.NewCoverageAnalyzer(),
		fairness: stats.NewFairnessAnalyzer(),
		metrics:  m,
	}
}

// ShiftInput 班次实例输入
type ShiftInput struct {
	ID                     string   `json:"id"`
	TemplateID             string   `json:"template_id,omitempty"`
	Date                   string   `json:"date"`       // YYYY-MM-DD
	StartTime              string   `json:"start_time"` // HH:MM
	EndTime                string   `json:"end_time"`   // HH:MM
	ShiftType              string   `json:"shift_type,omitempty"`
	RequiredQualifications []string `json:"required_qualifications,omitempty"`
	MinHeadcount           int      `json:"min_headcount"`
	MaxHeadcount           int      `json:"max_headcount"`
}

// StatsRequest 统计分析请求
type StatsRequest struct {
	Shifts      []ShiftInput      `json:"shifts"`
	Assignments []AssignmentInput `json:"assignments"`
	Employees   []*model.Employee `json:"employees,omitempty"`
	StartDate   string            `json:"start_date,omitempty"`
	EndDate     string            `json:"end_date,omitempty"`
}

// Coverage 分析班次覆盖情况
func (h *StatsHandler) Coverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	shifts, appErr := parseShifts(req.Shifts)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	assignments, appErr := parseAssignments(req.Assignments)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	var result *stats.CoverageMetrics
	if req.StartDate != "" && req.EndDate != "" {
		result = h.coverage.AnalyzeDateRange(shifts, assignments, req.StartDate, req.EndDate)
	} else {
		result = h.coverage.Analyze(shifts, assignments)
	}

	h.metrics.SetCoverageRate(result.OverallCoverage)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"coverage": result,
	})
}

// Fairness 分析工时与班次分布的公平性
func (h *StatsHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	if len(req.Employees) == 0 {
		respondError(w, errors.New(errors.CodeEmptyEmployeeSet, "缺少员工列表"))
		return
	}

	shifts, appErr := parseShifts(req.Shifts)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	assignments, appErr := parseAssignments(req.Assignments)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	result := h.fairness.Analyze(assignments, req.Employees, shifts)

	h.metrics.SetFairnessGini("workload", result.WorkloadGini)
	h.metrics.SetFairnessGini("night_shift", result.NightShiftGini)
	h.metrics.SetFairnessGini("weekend_shift", result.WeekendShiftGini)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"fairness": result,
	})
}

// parseShifts 把输入转换为班次实例模型
func parseShifts(inputs []ShiftInput) ([]*model.ShiftInstance, *errors.AppError) {
	shifts := make([]*model.ShiftInstance, 0, len(inputs))
	for _, in := range inputs {
		id, err := uuid.Parse(in.ID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的班次ID格式: "+in.ID)
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
			endTime = endTime.Add(24 * time.Hour)
		}

		shift := &model.ShiftInstance{
			ID:                     id,
			Date:                   in.Date,
			StartTime:              startTime,
			EndTime:                endTime,
			ShiftType:              in.ShiftType,
			RequiredQualifications: in.RequiredQualifications,
			MinHeadcount:           in.MinHeadcount,
			MaxHeadcount:           in.MaxHeadcount,
		}
		if in.TemplateID != "" {
			templateID, err := uuid.Parse(in.TemplateID)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的模板ID格式: "+in.TemplateID)
			}
			shift.TemplateID = templateID
		}
		shifts = append(shifts, shift)
	}
	return shifts, nil
}

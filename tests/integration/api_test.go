// Package integration 通过HTTP层验证排班API
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/internal/handler"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler"
)

type memoryStore struct {
	employees []*model.Employee
	templates []*model.ShiftTemplate
}

func (s *memoryStore) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	return s.employees, nil
}

func (s *memoryStore) ListShiftTemplates(ctx context.Context) ([]*model.ShiftTemplate, error) {
	return s.templates, nil
}

type memoryWriter struct {
	assignments []*model.Assignment
}

func (w *memoryWriter) SaveSchedule(ctx context.Context, schedule *model.Schedule, assignments []*model.Assignment) error {
	w.assignments = append(w.assignments, assignments...)
	return nil
}

func (w *memoryWriter) ListAssignments(ctx context.Context, startDate, endDate string) ([]*model.Assignment, error) {
	var out []*model.Assignment
	for _, a := range w.assignments {
		if a.Date >= startDate && a.Date <= endDate {
			out = append(out, a)
		}
	}
	return out, nil
}

func apiEmployee(name string) *model.Employee {
	availability := make(map[time.Weekday][]model.TimeWindow)
	for d := time.Sunday; d <= time.Saturday; d++ {
		availability[d] = []model.TimeWindow{{Start: "00:00", End: "24:00"}}
	}
	return &model.Employee{
		BaseModel:    model.BaseModel{ID: uuid.New()},
		Name:         name,
		Status:       "active",
		Availability: availability,
		MaxHours:     44,
	}
}

func newTestServer() (*httptest.Server, *memoryStore) {
	store := &memoryStore{
		employees: []*model.Employee{apiEmployee("张三"), apiEmployee("李四")},
		templates: []*model.ShiftTemplate{
			{
				BaseModel:    model.BaseModel{ID: uuid.New()},
				Name:         "早班",
				Code:         "M",
				StartTime:    "09:00",
				EndTime:      "17:00",
				ShiftType:    "morning",
				MinHeadcount: 1,
				MaxHeadcount: 1,
				IsActive:     true,
			},
		},
	}

	writer := &memoryWriter{}
	engine := scheduler.New(store, writer, writer, nil)
	scheduleHandler := handler.NewScheduleHandler(engine, nil)
	statsHandler := handler.NewStatsHandler(nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/schedule/generate", scheduleHandler.Generate)
	mux.HandleFunc("/api/v1/schedule/conflicts", scheduleHandler.CheckConflicts)
	mux.HandleFunc("/api/v1/schedule/validate", scheduleHandler.Validate)
	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)
	mux.HandleFunc("/api/v1/stats/fairness", statsHandler.Fairness)

	return httptest.NewServer(mux), store
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("序列化请求失败: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	return resp
}

func TestScheduleAPI_Generate(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/schedule/generate", map[string]interface{}{
		"start_date": "2026-01-12",
		"end_date":   "2026-01-14",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("生成排班应返回200, got %d", resp.StatusCode)
	}

	var body struct {
		Success              bool   `json:"success"`
		Status               string `json:"status"`
		ScheduleID           string `json:"schedule_id"`
		Objective            *int   `json:"objective"`
		PersistedAssignments *int   `json:"persisted_assignments"`
		Result               struct {
			Assignments     []json.RawMessage `json:"assignments"`
			CoveragePercent float64           `json:"coverage_percent"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	if !body.Success {
		t.Errorf("排班应成功, status=%s", body.Status)
	}
	if len(body.Result.Assignments) != 3 {
		t.Errorf("三天各一个班, got %d", len(body.Result.Assignments))
	}
	if body.Result.CoveragePercent != 100 {
		t.Errorf("应全覆盖, got %.1f", body.Result.CoveragePercent)
	}
	if _, err := uuid.Parse(body.ScheduleID); err != nil {
		t.Errorf("schedule_id 应是合法UUID: %v", err)
	}
	if body.Objective == nil {
		t.Error("响应应携带目标值")
	}
	if body.PersistedAssignments == nil || *body.PersistedAssignments != 3 {
		t.Errorf("持久化分配数应为3, got %v", body.PersistedAssignments)
	}
}

func TestScheduleAPI_GenerateInvalidRange(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	resp := postJSON(t, server.URL+"/api/v1/schedule/generate", map[string]interface{}{
		"start_date": "2026-01-14",
		"end_date":   "2026-01-12",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("倒置的日期范围应返回400, got %d", resp.StatusCode)
	}

	var body struct {
		Error bool   `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !body.Error || body.Code == "" {
		t.Errorf("错误响应应携带错误码, got %+v", body)
	}
}

func TestScheduleAPI_CheckConflicts(t *testing.T) {
	server, store := newTestServer()
	defer server.Close()

	emp := store.employees[0]
	shiftID := uuid.New().String()

	resp := postJSON(t, server.URL+"/api/v1/schedule/conflicts", map[string]interface{}{
		"start_date": "2026-01-12",
		"end_date":   "2026-01-12",
		"assignments": []map[string]interface{}{
			{
				"employee_id": emp.ID.String(),
				"shift_id":    shiftID,
				"date":        "2026-01-12",
				"start_time":  "09:00",
				"end_time":    "17:00",
			},
			{
				"employee_id": emp.ID.String(),
				"shift_id":    uuid.New().String(),
				"date":        "2026-01-12",
				"start_time":  "12:00",
				"end_time":    "20:00",
			},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("冲突检查应返回200, got %d", resp.StatusCode)
	}

	var body struct {
		Success   bool `json:"success"`
		Count     int  `json:"count"`
		Conflicts []struct {
			Type string `json:"type"`
		} `json:"conflicts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	if body.Count == 0 {
		t.Fatal("时间重叠应检出冲突")
	}
	found := false
	for _, c := range body.Conflicts {
		if c.Type == "double_booking" {
			found = true
		}
	}
	if !found {
		t.Errorf("应包含重复排班冲突, got %+v", body.Conflicts)
	}
}

func TestScheduleAPI_ValidateSingleEdit(t *testing.T) {
	server, store := newTestServer()
	defer server.Close()

	emp := store.employees[0]

	resp := postJSON(t, server.URL+"/api/v1/schedule/validate", map[string]interface{}{
		"assignment": map[string]interface{}{
			"employee_id": emp.ID.String(),
			"shift_id":    uuid.New().String(),
			"date":        "2026-01-12",
			"start_time":  "18:00",
			"end_time":    "23:00",
		},
		"existing": []map[string]interface{}{
			{
				"employee_id": emp.ID.String(),
				"shift_id":    uuid.New().String(),
				"date":        "2026-01-12",
				"start_time":  "09:00",
				"end_time":    "17:00",
			},
		},
		"employee": emp,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("校验应返回200, got %d", resp.StatusCode)
	}

	var body struct {
		Count     int `json:"count"`
		Conflicts []struct {
			Type string `json:"type"`
		} `json:"conflicts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	// 17:00下班18:00再上班，休息1小时不足8小时
	found := false
	for _, c := range body.Conflicts {
		if c.Type == "insufficient_rest" {
			found = true
		}
	}
	if !found {
		t.Errorf("应检出休息不足, got %+v", body.Conflicts)
	}
}

func TestStatsAPI_Coverage(t *testing.T) {
	server, store := newTestServer()
	defer server.Close()

	emp := store.employees[0]
	shiftID := uuid.New().String()

	resp := postJSON(t, server.URL+"/api/v1/stats/coverage", map[string]interface{}{
		"shifts": []map[string]interface{}{
			{
				"id":            shiftID,
				"date":          "2026-01-12",
				"start_time":    "09:00",
				"end_time":      "17:00",
				"shift_type":    "morning",
				"min_headcount": 1,
				"max_headcount": 1,
			},
		},
		"assignments": []map[string]interface{}{
			{
				"employee_id": emp.ID.String(),
				"shift_id":    shiftID,
				"date":        "2026-01-12",
				"start_time":  "09:00",
				"end_time":    "17:00",
			},
		},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("覆盖分析应返回200, got %d", resp.StatusCode)
	}

	var body struct {
		Success  bool `json:"success"`
		Coverage struct {
			TotalShifts     int     `json:"total_shifts"`
			CoveredShifts   int     `json:"covered_shifts"`
			OverallCoverage float64 `json:"overall_coverage"`
		} `json:"coverage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	if !body.Success {
		t.Error("覆盖分析应成功")
	}
	if body.Coverage.TotalShifts != 1 || body.Coverage.CoveredShifts != 1 {
		t.Errorf("1个班次应全部覆盖, got %+v", body.Coverage)
	}
	if body.Coverage.OverallCoverage != 100 {
		t.Errorf("整体覆盖率应为100, got %.1f", body.Coverage.OverallCoverage)
	}
}

func TestScheduleAPI_MethodNotAllowed(t *testing.T) {
	server, _ := newTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/schedule/generate")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("GET 请求应被拒绝, got %d", resp.StatusCode)
	}
}

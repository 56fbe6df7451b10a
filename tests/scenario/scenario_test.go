// Package scenario 按行业场景对排班引擎做端到端验证
package scenario

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
)

// memoryStore 内存数据源
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

// fullWeekAvailability 全周全天可用
func fullWeekAvailability() map[time.Weekday][]model.TimeWindow {
	availability := make(map[time.Weekday][]model.TimeWindow)
	for d := time.Sunday; d <= time.Saturday; d++ {
		availability[d] = []model.TimeWindow{{Start: "00:00", End: "24:00"}}
	}
	return availability
}

func newEmployee(name string, qualifications []string, maxHours float64) *model.Employee {
	return &model.Employee{
		BaseModel:      model.BaseModel{ID: uuid.New()},
		Name:           name,
		Status:         "active",
		Qualifications: qualifications,
		Availability:   fullWeekAvailability(),
		MaxHours:       maxHours,
	}
}

func newTemplate(name, code, start, end, shiftType string, minHC, maxHC int) *model.ShiftTemplate {
	return &model.ShiftTemplate{
		BaseModel:    model.BaseModel{ID: uuid.New()},
		Name:         name,
		Code:         code,
		StartTime:    start,
		EndTime:      end,
		ShiftType:    shiftType,
		MinHeadcount: minHC,
		MaxHeadcount: maxHC,
		IsActive:     true,
	}
}

// hoursByEmployee 按员工汇总工时
func hoursByEmployee(assignments []*model.Assignment) map[uuid.UUID]float64 {
	hours := make(map[uuid.UUID]float64)
	for _, a := range assignments {
		hours[a.EmployeeID] += a.WorkingHours()
	}
	return hours
}

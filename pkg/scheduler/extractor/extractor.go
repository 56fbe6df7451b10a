// Package extractor 将求解结果转换为可持久化的排班记录与汇总
package extractor

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
	"github.com/shiftplan/shiftplan/pkg/scheduler/solver"
)

// EmployeeHours 员工工时汇总
type EmployeeHours struct {
	EmployeeID   uuid.UUID `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	Hours        float64   `json:"hours"`
	ShiftCount   int       `json:"shift_count"`
}

// Extraction 提取结果
// 只产出记录，不触碰外部存储；持久化由调用方负责。
type Extraction struct {
	Assignments []*model.Assignment    `json:"assignments"`
	Coverage    []*model.ShiftCoverage `json:"coverage"`
	Hours       []*EmployeeHours       `json:"hours"`

	// CoveragePercent 实际人数/要求人数的总体覆盖率
	CoveragePercent float64 `json:"coverage_percent"`
}

// Extract 从求解结果提取排班记录和汇总
// scheduleID 写入每条分配，作为持久化时的归属标识。
func Extract(schedCtx *constraint.Context, result *solver.Result, scheduleID uuid.UUID) *Extraction {
	ext := &Extraction{
		Assignments: make([]*model.Assignment, 0, len(result.Assignments)),
		Coverage:    make([]*model.ShiftCoverage, 0, len(schedCtx.Shifts)),
		Hours:       make([]*EmployeeHours, 0, len(schedCtx.Employees)),
	}

	byShift := make(map[uuid.UUID]int)
	byEmployee := make(map[uuid.UUID]*EmployeeHours)

	for _, a := range result.Assignments {
		record := *a
		record.ScheduleID = scheduleID
		ext.Assignments = append(ext.Assignments, &record)

		byShift[a.ShiftID]++
		eh := byEmployee[a.EmployeeID]
		if eh == nil {
			eh = &EmployeeHours{EmployeeID: a.EmployeeID}
			if emp := schedCtx.GetEmployee(a.EmployeeID); emp != nil {
				eh.EmployeeName = emp.Name
			}
			byEmployee[a.EmployeeID] = eh
		}
		eh.Hours += a.WorkingHours()
		eh.ShiftCount++
	}

	// 逐班次覆盖统计（班次列表已稳定排序）
	totalRequired := 0
	totalRealized := 0
	for _, s := range schedCtx.Shifts {
		assigned := byShift[s.ID]
		ext.Coverage = append(ext.Coverage, &model.ShiftCoverage{
			ShiftID:  s.ID,
			Date:     s.Date,
			Required: s.MinHeadcount,
			Maximum:  s.MaxHeadcount,
			Assigned: assigned,
		})

		totalRequired += s.MinHeadcount
		realized := assigned
		if realized > s.MinHeadcount {
			realized = s.MinHeadcount
		}
		totalRealized += realized
	}
	if totalRequired > 0 {
		ext.CoveragePercent = float64(totalRealized) / float64(totalRequired) * 100
	}

	// 员工工时按ID稳定排序
	for _, eh := range byEmployee {
		ext.Hours = append(ext.Hours, eh)
	}
	sort.Slice(ext.Hours, func(i, j int) bool {
		return ext.Hours[i].EmployeeID.String() < ext.Hours[j].EmployeeID.String()
	})

	return ext
}

// Shortfalls 返回覆盖不足的班次
func (e *Extraction) Shortfalls() []*model.ShiftCoverage {
	var short []*model.ShiftCoverage
	for _, c := range e.Coverage {
		if c.Shortfall() > 0 {
			short = append(short, c)
		}
	}
	return short
}

// Package validator 提供排班验证功能
package validator

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictDoubleBooking         ConflictType = "double_booking"         // 时间重叠
	ConflictQualificationMismatch ConflictType = "qualification_mismatch" // 资质不匹配
	ConflictInsufficientRest      ConflictType = "insufficient_rest"      // 休息时间不足
	ConflictHourLimitExceeded     ConflictType = "hour_limit_exceeded"    // 超过工时上限
	ConflictCoverageShortfall     ConflictType = "coverage_shortfall"     // 班次人数不足
)

// Conflict 冲突记录
type Conflict struct {
	Type        ConflictType `json:"type"`
	Severity    string       `json:"severity"` // error/warning
	EmployeeID  uuid.UUID    `json:"employee_id,omitempty"`
	Date        string       `json:"date"`
	Message     string       `json:"message"`
	Assignments []uuid.UUID  `json:"assignments,omitempty"` // 相关分配ID
	ShiftIDs    []uuid.UUID  `json:"shift_ids,omitempty"`   // 相关班次实例ID
}

// DetectorConfig 检测器配置
type DetectorConfig struct {
	MinRestHours float64 // 班次间最小休息时间（小时）

	// CheckCoverage 是否检测班次人数缺口（需要提供班次实例）
	CheckCoverage bool
}

// DefaultDetectorConfig 返回默认配置
func DefaultDetectorConfig() *DetectorConfig {
	return &DetectorConfig{
		MinRestHours:  8,
		CheckCoverage: true,
	}
}

// ConflictDetector 冲突检测器
// 对既有分配做一次线性扫描，只报告不修改；可在每次人工编辑后同步调用。
type ConflictDetector struct {
	config *DetectorConfig
}

// NewConflictDetector 创建冲突检测器
func NewConflictDetector(config *DetectorConfig) *ConflictDetector {
	if config == nil {
		config = DefaultDetectorConfig()
	}
	return &ConflictDetector{config: config}
}

// DetectAll 检测全部冲突
// 输入集合不会被修改；相同输入的两次检测产生相同的冲突列表。
func (d *ConflictDetector) DetectAll(
	assignments []*model.Assignment,
	employees map[uuid.UUID]*model.Employee,
	shifts map[uuid.UUID]*model.ShiftInstance,
) []Conflict {
	var conflicts []Conflict

	byEmployee := groupByEmployee(assignments)

	// 员工维度按ID稳定排序遍历
	empIDs := make([]uuid.UUID, 0, len(byEmployee))
	for id := range byEmployee {
		empIDs = append(empIDs, id)
	}
	sort.Slice(empIDs, func(i, j int) bool {
		return empIDs[i].String() < empIDs[j].String()
	})

	for _, empID := range empIDs {
		empAssignments := byEmployee[empID]
		emp := employees[empID]
		if emp == nil {
			continue
		}

		conflicts = append(conflicts, d.detectDoubleBookings(emp, empAssignments)...)
		conflicts = append(conflicts, d.detectRestViolations(emp, empAssignments)...)
		conflicts = append(conflicts, d.detectHourLimitViolations(emp, empAssignments)...)
		conflicts = append(conflicts, d.detectQualificationMismatches(emp, empAssignments, shifts)...)
	}

	if d.config.CheckCoverage && len(shifts) > 0 {
		conflicts = append(conflicts, d.detectCoverageShortfalls(assignments, shifts)...)
	}

	return conflicts
}

// DetectForAssignment 检测单个分配引入的冲突（人工编辑时的快速通道）
func (d *ConflictDetector) DetectForAssignment(
	newAssignment *model.Assignment,
	existing []*model.Assignment,
	employee *model.Employee,
	shift *model.ShiftInstance,
) []Conflict {
	var conflicts []Conflict

	for _, a := range existing {
		if a.EmployeeID != newAssignment.EmployeeID || a.ID == newAssignment.ID {
			continue
		}

		if newAssignment.Overlaps(a) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDoubleBooking,
				Severity:    "error",
				EmployeeID:  newAssignment.EmployeeID,
				Date:        newAssignment.Date,
				Message:     "与现有排班时间重叠",
				Assignments: []uuid.UUID{newAssignment.ID, a.ID},
				ShiftIDs:    []uuid.UUID{newAssignment.ShiftID, a.ShiftID},
			})
			continue
		}

		restHours := restBetween(newAssignment, a)
		if restHours >= 0 && restHours < d.config.MinRestHours {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictInsufficientRest,
				Severity:   "error",
				EmployeeID: newAssignment.EmployeeID,
				Date:       newAssignment.Date,
				Message: fmt.Sprintf(
					"休息时间仅 %.1f 小时，少于要求的 %.1f 小时",
					restHours, d.config.MinRestHours,
				),
				Assignments: []uuid.UUID{newAssignment.ID, a.ID},
				ShiftIDs:    []uuid.UUID{newAssignment.ShiftID, a.ShiftID},
			})
		}
	}

	if employee != nil {
		if employee.MaxHours > 0 {
			total := newAssignment.WorkingHours()
			for _, a := range existing {
				if a.EmployeeID == newAssignment.EmployeeID && a.ID != newAssignment.ID {
					total += a.WorkingHours()
				}
			}
			if total > employee.MaxHours {
				conflicts = append(conflicts, Conflict{
					Type:       ConflictHourLimitExceeded,
					Severity:   "error",
					EmployeeID: newAssignment.EmployeeID,
					Date:       newAssignment.Date,
					Message: fmt.Sprintf(
						"周期工时 %.1f 小时，超过上限 %.1f 小时",
						total, employee.MaxHours,
					),
					Assignments: []uuid.UUID{newAssignment.ID},
				})
			}
		}

		if shift != nil && !employee.HasAllQualifications(shift.RequiredQualifications) {
			conflicts = append(conflicts, Conflict{
				Type:        ConflictQualificationMismatch,
				Severity:    "error",
				EmployeeID:  newAssignment.EmployeeID,
				Date:        newAssignment.Date,
				Message:     fmt.Sprintf("员工 %s 不具备班次要求的全部资质", employee.Name),
				Assignments: []uuid.UUID{newAssignment.ID},
				ShiftIDs:    []uuid.UUID{shift.ID},
			})
		}
	}

	return conflicts
}

// detectDoubleBookings 检测时间重叠
func (d *ConflictDetector) detectDoubleBookings(emp *model.Employee, assignments []*model.Assignment) []Conflict {
	var conflicts []Conflict

	sorted := sortByStart(assignments)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			// 后续分配开始时间不早于当前结束时间后不再可能重叠
			if !sorted[j].StartTime.Before(sorted[i].EndTime) {
				break
			}
			conflicts = append(conflicts, Conflict{
				Type:        ConflictDoubleBooking,
				Severity:    "error",
				EmployeeID:  emp.ID,
				Date:        sorted[i].Date,
				Message:     fmt.Sprintf("员工 %s 在 %s 存在时间重叠的排班", emp.Name, sorted[i].Date),
				Assignments: []uuid.UUID{sorted[i].ID, sorted[j].ID},
				ShiftIDs:    []uuid.UUID{sorted[i].ShiftID, sorted[j].ShiftID},
			})
		}
	}

	return conflicts
}

// detectRestViolations 检测休息时间不足
func (d *ConflictDetector) detectRestViolations(emp *model.Employee, assignments []*model.Assignment) []Conflict {
	var conflicts []Conflict
	if len(assignments) < 2 || d.config.MinRestHours <= 0 {
		return conflicts
	}

	sorted := make([]*model.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].EndTime.Equal(sorted[j].EndTime) {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	for i := 0; i < len(sorted)-1; i++ {
		restHours := sorted[i+1].StartTime.Sub(sorted[i].EndTime).Hours()
		if restHours >= 0 && restHours < d.config.MinRestHours {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictInsufficientRest,
				Severity:   "error",
				EmployeeID: emp.ID,
				Date:       sorted[i+1].Date,
				Message: fmt.Sprintf(
					"员工 %s 班次间休息仅 %.1f 小时，少于要求的 %.1f 小时",
					emp.Name, restHours, d.config.MinRestHours,
				),
				Assignments: []uuid.UUID{sorted[i].ID, sorted[i+1].ID},
				ShiftIDs:    []uuid.UUID{sorted[i].ShiftID, sorted[i+1].ShiftID},
			})
		}
	}

	return conflicts
}

// detectHourLimitViolations 检测周期工时超限
func (d *ConflictDetector) detectHourLimitViolations(emp *model.Employee, assignments []*model.Assignment) []Conflict {
	if emp.MaxHours <= 0 {
		return nil
	}

	var total float64
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		total += a.WorkingHours()
		ids = append(ids, a.ID)
	}

	if total <= emp.MaxHours {
		return nil
	}

	return []Conflict{{
		Type:       ConflictHourLimitExceeded,
		Severity:   "error",
		EmployeeID: emp.ID,
		Message: fmt.Sprintf(
			"员工 %s 周期工时 %.1f 小时，超过上限 %.1f 小时",
			emp.Name, total, emp.MaxHours,
		),
		Assignments: ids,
	}}
}

// detectQualificationMismatches 检测资质不匹配
func (d *ConflictDetector) detectQualificationMismatches(
	emp *model.Employee,
	assignments []*model.Assignment,
	shifts map[uuid.UUID]*model.ShiftInstance,
) []Conflict {
	var conflicts []Conflict

	for _, a := range assignments {
		shift := shifts[a.ShiftID]
		if shift == nil || len(shift.RequiredQualifications) == 0 {
			continue
		}
		if emp.HasAllQualifications(shift.RequiredQualifications) {
			continue
		}

		conflicts = append(conflicts, Conflict{
			Type:        ConflictQualificationMismatch,
			Severity:    "error",
			EmployeeID:  emp.ID,
			Date:        a.Date,
			Message:     fmt.Sprintf("员工 %s 不具备班次 %s 要求的全部资质", emp.Name, a.Date),
			Assignments: []uuid.UUID{a.ID},
			ShiftIDs:    []uuid.UUID{shift.ID},
		})
	}

	return conflicts
}

// detectCoverageShortfalls 检测班次人数缺口
func (d *ConflictDetector) detectCoverageShortfalls(
	assignments []*model.Assignment,
	shifts map[uuid.UUID]*model.ShiftInstance,
) []Conflict {
	byShift := make(map[uuid.UUID]int)
	for _, a := range assignments {
		byShift[a.ShiftID]++
	}

	// 班次按 (日期, ID) 稳定排序
	sorted := make([]*model.ShiftInstance, 0, len(shifts))
	for _, s := range shifts {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	var conflicts []Conflict
	for _, s := range sorted {
		assigned := byShift[s.ID]
		if assigned >= s.MinHeadcount {
			continue
		}

		conflicts = append(conflicts, Conflict{
			Type:     ConflictCoverageShortfall,
			Severity: "warning",
			Date:     s.Date,
			Message: fmt.Sprintf(
				"班次 %s (%s) 仅分配 %d 人，少于最少要求 %d 人",
				s.ShiftType, s.Date, assigned, s.MinHeadcount,
			),
			ShiftIDs: []uuid.UUID{s.ID},
		})
	}

	return conflicts
}

// restBetween 计算两个分配之间的休息时间，重叠返回 -1
func restBetween(a1, a2 *model.Assignment) float64 {
	if !a2.StartTime.Before(a1.EndTime) {
		return a2.StartTime.Sub(a1.EndTime).Hours()
	}
	if !a1.StartTime.Before(a2.EndTime) {
		return a1.StartTime.Sub(a2.EndTime).Hours()
	}
	return -1
}

// sortByStart 复制并按 (开始时间, ID) 排序
func sortByStart(assignments []*model.Assignment) []*model.Assignment {
	sorted := make([]*model.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}

// groupByEmployee 按员工分组
func groupByEmployee(assignments []*model.Assignment) map[uuid.UUID][]*model.Assignment {
	result := make(map[uuid.UUID][]*model.Assignment)
	for _, a := range assignments {
		result[a.EmployeeID] = append(result[a.EmployeeID], a)
	}
	return result
}

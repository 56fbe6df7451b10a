// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// ShiftTypePreferenceConstraint 班次类型偏好约束（软约束）
// 员工声明了偏好班次类型但被分配到其他类型时产生惩罚。
type ShiftTypePreferenceConstraint struct {
	*BaseConstraint
}

// NewShiftTypePreferenceConstraint 创建班次类型偏好约束
func NewShiftTypePreferenceConstraint(weight int) *ShiftTypePreferenceConstraint {
	return &ShiftTypePreferenceConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次类型偏好",
			constraint.TypeShiftTypePreference,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *ShiftTypePreferenceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, a := range ctx.Assignments {
		emp := ctx.GetEmployee(a.EmployeeID)
		shift := ctx.GetShift(a.ShiftID)
		if emp == nil || shift == nil {
			continue
		}

		preferred, stated := emp.PrefersShiftType(shift.ShiftType)
		if stated && !preferred {
			penalty := c.Weight()
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				ShiftID:        shift.ID,
				Date:           a.Date,
				Message: fmt.Sprintf(
					"员工 %s 被分配到非偏好班次类型 %s",
					emp.Name, shift.ShiftType,
				),
				Severity: "warning",
				Penalty:  penalty,
			})
		}
	}

	return totalPenalty == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *ShiftTypePreferenceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	shift := ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return true, 0
	}

	preferred, stated := emp.PrefersShiftType(shift.ShiftType)
	if stated && !preferred {
		return true, c.Weight()
	}

	return true, 0
}

// DayPreferenceConstraint 工作日偏好约束（软约束）
// 员工声明了偏好工作日但被分配到其他日期时产生惩罚。
type DayPreferenceConstraint struct {
	*BaseConstraint
}

// NewDayPreferenceConstraint 创建工作日偏好约束
func NewDayPreferenceConstraint(weight int) *DayPreferenceConstraint {
	return &DayPreferenceConstraint{
		BaseConstraint: NewBaseConstraint(
			"工作日偏好",
			constraint.TypeDayPreference,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *DayPreferenceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0

	for _, a := range ctx.Assignments {
		emp := ctx.GetEmployee(a.EmployeeID)
		if emp == nil {
			continue
		}

		weekday, ok := model.WeekdayOf(a.Date)
		if !ok {
			continue
		}

		preferred, stated := emp.PrefersDay(weekday)
		if stated && !preferred {
			penalty := c.Weight()
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				ShiftID:        a.ShiftID,
				Date:           a.Date,
				Message: fmt.Sprintf(
					"员工 %s 被分配到非偏好工作日 %s",
					emp.Name, a.Date,
				),
				Severity: "warning",
				Penalty:  penalty,
			})
		}
	}

	return totalPenalty == 0, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *DayPreferenceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	if emp == nil {
		return true, 0
	}

	weekday, ok := model.WeekdayOf(a.Date)
	if !ok {
		return true, 0
	}

	preferred, stated := emp.PrefersDay(weekday)
	if stated && !preferred {
		return true, c.Weight()
	}

	return true, 0
}

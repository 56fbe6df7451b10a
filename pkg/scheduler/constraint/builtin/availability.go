// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// AvailabilityConstraint 可用时间约束
// 班次的时间窗必须完整落在员工当天声明的可用时间窗之一内。
type AvailabilityConstraint struct {
	*BaseConstraint
}

// NewAvailabilityConstraint 创建可用时间约束
func NewAvailabilityConstraint() *AvailabilityConstraint {
	return &AvailabilityConstraint{
		BaseConstraint: NewBaseConstraint(
			"可用时间",
			constraint.TypeAvailability,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *AvailabilityConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, a := range ctx.Assignments {
		emp := ctx.GetEmployee(a.EmployeeID)
		if emp == nil {
			continue
		}

		if !emp.AvailableFor(a.Date, a.StartTime.Format("15:04"), a.EndTime.Format("15:04")) {
			isValid = false
			penalty := c.Weight()
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				ShiftID:        a.ShiftID,
				Date:           a.Date,
				Message: fmt.Sprintf(
					"员工 %s 在 %s %s-%s 不在可用时间内",
					emp.Name, a.Date,
					a.StartTime.Format("15:04"), a.EndTime.Format("15:04"),
				),
				Severity: "error",
				Penalty:  penalty,
			})
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *AvailabilityConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	if emp == nil {
		return false, c.Weight()
	}

	if !emp.AvailableFor(a.Date, a.StartTime.Format("15:04"), a.EndTime.Format("15:04")) {
		return false, c.Weight()
	}

	return true, 0
}

// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// NoDoubleBookingConstraint 禁止重复排班约束
// 同一员工不能持有两个时间重叠的分配。
type NoDoubleBookingConstraint struct {
	*BaseConstraint
}

// NewNoDoubleBookingConstraint 创建禁止重复排班约束
func NewNoDoubleBookingConstraint() *NoDoubleBookingConstraint {
	return &NoDoubleBookingConstraint{
		BaseConstraint: NewBaseConstraint(
			"禁止重复排班",
			constraint.TypeNoDoubleBooking,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *NoDoubleBookingConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, emp := range ctx.Employees {
		assignments := ctx.GetEmployeeAssignments(emp.ID)
		if len(assignments) < 2 {
			continue
		}

		for i := 0; i < len(assignments); i++ {
			for j := i + 1; j < len(assignments); j++ {
				if assignments[i].Overlaps(assignments[j]) {
					isValid = false
					penalty := c.Weight()
					totalPenalty += penalty

					violations = append(violations, constraint.ViolationDetail{
						ConstraintType: c.Type(),
						ConstraintName: c.Name(),
						EmployeeID:     emp.ID,
						ShiftID:        assignments[j].ShiftID,
						Date:           assignments[j].Date,
						Message: fmt.Sprintf(
							"员工 %s 在 %s 持有两个时间重叠的班次",
							emp.Name, assignments[j].Date,
						),
						Severity: "error",
						Penalty:  penalty,
					})
				}
			}
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *NoDoubleBookingConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	for _, existing := range ctx.GetEmployeeAssignments(a.EmployeeID) {
		if existing.ID == a.ID {
			continue
		}
		if existing.Overlaps(a) {
			return false, c.Weight()
		}
	}

	return true, 0
}

// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// HourBoundsConstraint 周期工时上下限约束
// 每个员工在排班周期内的总工时必须落在 [最少工时, 最多工时] 区间内。
// 最少工时为 0 表示不限制下限。
type HourBoundsConstraint struct {
	*BaseConstraint
}

// NewHourBoundsConstraint 创建周期工时约束
func NewHourBoundsConstraint() *HourBoundsConstraint {
	return &HourBoundsConstraint{
		BaseConstraint: NewBaseConstraint(
			"周期工时上下限",
			constraint.TypeHourBounds,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *HourBoundsConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, emp := range ctx.Employees {
		hours := ctx.GetEmployeeHours(emp.ID)

		if emp.MaxHours > 0 && hours > emp.MaxHours {
			isValid = false
			penalty := c.Weight() * (int(hours-emp.MaxHours) + 1)
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				Message: fmt.Sprintf(
					"员工 %s 周期内工作 %.1f 小时，超过上限 %.1f 小时",
					emp.Name, hours, emp.MaxHours,
				),
				Severity: "error",
				Penalty:  penalty,
			})
		}

		if emp.MinHours > 0 && hours < emp.MinHours {
			isValid = false
			penalty := c.Weight() * (int(emp.MinHours-hours) + 1)
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				Message: fmt.Sprintf(
					"员工 %s 周期内仅工作 %.1f 小时，少于下限 %.1f 小时",
					emp.Name, hours, emp.MinHours,
				),
				Severity: "error",
				Penalty:  penalty,
			})
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
// 追加分配只可能突破上限；最少工时在整体评估中检查。
func (c *HourBoundsConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	if emp == nil {
		return false, c.Weight()
	}
	if emp.MaxHours <= 0 {
		return true, 0
	}

	totalHours := ctx.GetEmployeeHours(emp.ID) + a.WorkingHours()
	if totalHours > emp.MaxHours {
		penalty := c.Weight() * (int(totalHours-emp.MaxHours) + 1)
		return false, penalty
	}

	return true, 0
}

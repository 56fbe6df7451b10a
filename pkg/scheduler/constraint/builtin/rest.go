// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"sort"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// MinRestConstraint 班次间最小休息时间约束
// 休息小时数来自求解配置，不在约束内部写死。
type MinRestConstraint struct {
	*BaseConstraint
	minHours float64
}

// NewMinRestConstraint 创建班次间最小休息约束
func NewMinRestConstraint(minHours float64) *MinRestConstraint {
	return &MinRestConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次间最小休息",
			constraint.TypeMinRest,
			constraint.CategoryHard,
			100,
		),
		minHours: minHours,
	}
}

// Evaluate 评估整个排班
func (c *MinRestConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, emp := range ctx.Employees {
		assignments := ctx.GetEmployeeAssignments(emp.ID)
		if len(assignments) < 2 {
			continue
		}

		// 按结束时间排序
		sorted := make([]*model.Assignment, len(assignments))
		copy(sorted, assignments)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].EndTime.Before(sorted[j].EndTime)
		})

		// 检查相邻班次间隔
		for i := 0; i < len(sorted)-1; i++ {
			restHours := sorted[i+1].StartTime.Sub(sorted[i].EndTime).Hours()
			if restHours < 0 {
				// 重叠由禁止重复排班约束处理
				continue
			}

			if restHours < c.minHours {
				isValid = false
				penalty := c.Weight() * (int(c.minHours-restHours) + 1)
				totalPenalty += penalty

				violations = append(violations, constraint.ViolationDetail{
					ConstraintType: c.Type(),
					ConstraintName: c.Name(),
					EmployeeID:     emp.ID,
					ShiftID:        sorted[i+1].ShiftID,
					Date:           sorted[i+1].Date,
					Message: fmt.Sprintf(
						"员工 %s 班次间隔仅 %.1f 小时，少于要求的 %.1f 小时",
						emp.Name, restHours, c.minHours,
					),
					Severity: "error",
					Penalty:  penalty,
				})
			}
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *MinRestConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	for _, existing := range ctx.GetEmployeeAssignments(a.EmployeeID) {
		if existing.ID == a.ID {
			continue
		}

		var restHours float64
		if !a.StartTime.Before(existing.EndTime) {
			restHours = a.StartTime.Sub(existing.EndTime).Hours()
		} else if !existing.StartTime.Before(a.EndTime) {
			restHours = existing.StartTime.Sub(a.EndTime).Hours()
		} else {
			// 班次重叠
			return false, c.Weight() * int(c.minHours+1)
		}

		if restHours < c.minHours {
			penalty := c.Weight() * (int(c.minHours-restHours) + 1)
			return false, penalty
		}
	}

	return true, 0
}

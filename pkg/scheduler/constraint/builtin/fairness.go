// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"math"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// WorkloadBalanceConstraint 工时均衡约束（软约束）
// 惩罚值与员工工时的方差成正比，鼓励公平分配。
type WorkloadBalanceConstraint struct {
	*BaseConstraint
}

// NewWorkloadBalanceConstraint 创建工时均衡约束
func NewWorkloadBalanceConstraint(weight int) *WorkloadBalanceConstraint {
	return &WorkloadBalanceConstraint{
		BaseConstraint: NewBaseConstraint(
			"工时均衡",
			constraint.TypeWorkloadBalance,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *WorkloadBalanceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	if len(ctx.Employees) < 2 {
		return true, 0, nil
	}

	hours := make([]float64, 0, len(ctx.Employees))
	for _, emp := range ctx.Employees {
		hours = append(hours, ctx.GetEmployeeHours(emp.ID))
	}

	variance := calcVariance(hours)
	penalty := c.Weight() * int(math.Round(variance))
	if penalty == 0 {
		return true, 0, nil
	}

	detail := constraint.ViolationDetail{
		ConstraintType: c.Type(),
		ConstraintName: c.Name(),
		Message:        fmt.Sprintf("员工工时方差 %.2f，分配不够均衡", variance),
		Severity:       "warning",
		Penalty:        penalty,
	}

	return false, penalty, []constraint.ViolationDetail{detail}
}

// EvaluateAssignment 评估单个分配
// 方差是全局量，逐分配评估不产生增量惩罚，由整体评估统一计算。
func (c *WorkloadBalanceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	return true, 0
}

// WeekendBalanceConstraint 周末班次均衡约束（软约束）
// 惩罚值与员工周末班次数的方差成正比。
type WeekendBalanceConstraint struct {
	*BaseConstraint
}

// NewWeekendBalanceConstraint 创建周末班次均衡约束
func NewWeekendBalanceConstraint(weight int) *WeekendBalanceConstraint {
	return &WeekendBalanceConstraint{
		BaseConstraint: NewBaseConstraint(
			"周末班次均衡",
			constraint.TypeWeekendBalance,
			constraint.CategorySoft,
			weight,
		),
	}
}

// Evaluate 评估整个排班
func (c *WeekendBalanceConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	if len(ctx.Employees) < 2 {
		return true, 0, nil
	}

	counts := make([]float64, 0, len(ctx.Employees))
	for _, emp := range ctx.Employees {
		counts = append(counts, float64(ctx.GetEmployeeWeekendShifts(emp.ID)))
	}

	variance := calcVariance(counts)
	penalty := c.Weight() * int(math.Round(variance))
	if penalty == 0 {
		return true, 0, nil
	}

	detail := constraint.ViolationDetail{
		ConstraintType: c.Type(),
		ConstraintName: c.Name(),
		Message:        fmt.Sprintf("员工周末班次数方差 %.2f，分配不够均衡", variance),
		Severity:       "warning",
		Penalty:        penalty,
	}

	return false, penalty, []constraint.ViolationDetail{detail}
}

// EvaluateAssignment 评估单个分配
func (c *WeekendBalanceConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	return true, 0
}

// calcVariance 计算总体方差
func calcVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		diff := v - mean
		sq += diff * diff
	}

	return sq / float64(len(values))
}

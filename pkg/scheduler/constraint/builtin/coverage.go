// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// CoverageBoundsConstraint 班次人数上下限约束
// 每个班次实例的已分配人数必须落在 [最少人数, 最多人数] 区间内。
type CoverageBoundsConstraint struct {
	*BaseConstraint
}

// NewCoverageBoundsConstraint 创建班次人数约束
func NewCoverageBoundsConstraint() *CoverageBoundsConstraint {
	return &CoverageBoundsConstraint{
		BaseConstraint: NewBaseConstraint(
			"班次人数上下限",
			constraint.TypeCoverageBounds,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *CoverageBoundsConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, shift := range ctx.Shifts {
		assigned := ctx.GetShiftHeadcount(shift.ID)

		if assigned < shift.MinHeadcount {
			isValid = false
			penalty := c.Weight() * (shift.MinHeadcount - assigned)
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				ShiftID:        shift.ID,
				Date:           shift.Date,
				Message: fmt.Sprintf(
					"班次 %s (%s) 仅分配 %d 人，少于最少要求 %d 人",
					shift.ShiftType, shift.Date, assigned, shift.MinHeadcount,
				),
				Severity: "error",
				Penalty:  penalty,
			})
		}

		if shift.MaxHeadcount > 0 && assigned > shift.MaxHeadcount {
			isValid = false
			penalty := c.Weight() * (assigned - shift.MaxHeadcount)
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				ShiftID:        shift.ID,
				Date:           shift.Date,
				Message: fmt.Sprintf(
					"班次 %s (%s) 分配 %d 人，超过上限 %d 人",
					shift.ShiftType, shift.Date, assigned, shift.MaxHeadcount,
				),
				Severity: "error",
				Penalty:  penalty,
			})
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
// 追加分配只可能触碰人数上限；最少人数在整体评估中检查。
func (c *CoverageBoundsConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	shift := ctx.GetShift(a.ShiftID)
	if shift == nil {
		return false, c.Weight()
	}

	assigned := ctx.GetShiftHeadcount(shift.ID)
	if shift.MaxHeadcount > 0 && assigned+1 > shift.MaxHeadcount {
		return false, c.Weight()
	}

	return true, 0
}

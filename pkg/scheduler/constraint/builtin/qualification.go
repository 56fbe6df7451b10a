// Package builtin 提供内置约束实现
package builtin

import (
	"fmt"
	"strings"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// QualificationConstraint 资质匹配约束
// 员工的资质集合必须覆盖班次要求的全部资质。
type QualificationConstraint struct {
	*BaseConstraint
}

// NewQualificationConstraint 创建资质匹配约束
func NewQualificationConstraint() *QualificationConstraint {
	return &QualificationConstraint{
		BaseConstraint: NewBaseConstraint(
			"资质匹配",
			constraint.TypeQualificationMatch,
			constraint.CategoryHard,
			100,
		),
	}
}

// Evaluate 评估整个排班
func (c *QualificationConstraint) Evaluate(ctx *constraint.Context) (bool, int, []constraint.ViolationDetail) {
	var violations []constraint.ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, a := range ctx.Assignments {
		emp := ctx.GetEmployee(a.EmployeeID)
		shift := ctx.GetShift(a.ShiftID)
		if emp == nil || shift == nil {
			continue
		}

		missing := missingQualifications(emp, shift.RequiredQualifications)
		if len(missing) > 0 {
			isValid = false
			penalty := c.Weight() * len(missing)
			totalPenalty += penalty

			violations = append(violations, constraint.ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     emp.ID,
				ShiftID:        shift.ID,
				Date:           a.Date,
				Message: fmt.Sprintf(
					"员工 %s 缺少班次要求的资质: %s",
					emp.Name, strings.Join(missing, ", "),
				),
				Severity: "error",
				Penalty:  penalty,
			})
		}
	}

	return isValid, totalPenalty, violations
}

// EvaluateAssignment 评估单个分配
func (c *QualificationConstraint) EvaluateAssignment(ctx *constraint.Context, a *model.Assignment) (bool, int) {
	emp := ctx.GetEmployee(a.EmployeeID)
	shift := ctx.GetShift(a.ShiftID)
	if emp == nil || shift == nil {
		return false, c.Weight()
	}

	missing := missingQualifications(emp, shift.RequiredQualifications)
	if len(missing) > 0 {
		return false, c.Weight() * len(missing)
	}

	return true, 0
}

// missingQualifications 返回员工缺少的资质列表
func missingQualifications(emp *model.Employee, required []string) []string {
	var missing []string
	for _, q := range required {
		if !emp.HasQualification(q) {
			missing = append(missing, q)
		}
	}
	return missing
}

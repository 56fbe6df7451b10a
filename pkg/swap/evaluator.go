// Package swap 提供换班评估与推荐
package swap

import (
	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
	"github.com/shiftplan/shiftplan/pkg/validator"
)

// Evaluator 换班评估器
// 在副本上模拟换班后重新评估约束，不修改传入的上下文。
type Evaluator struct {
	manager  *constraint.Manager
	detector *validator.ConflictDetector
}

// NewEvaluator 创建换班评估器
func NewEvaluator(cm *constraint.Manager) *Evaluator {
	return &Evaluator{
		manager:  cm,
		detector: validator.NewConflictDetector(nil),
	}
}

// Request 换班请求
type Request struct {
	SourceAssignment *model.Assignment `json:"source_assignment"`
	TargetEmployee   *model.Employee   `json:"target_employee"`
	TargetAssignment *model.Assignment `json:"target_assignment,omitempty"` // 互换时目标员工让出的班次
}

// Evaluation 换班评估结果
type Evaluation struct {
	Feasible       bool    `json:"feasible"`
	Score          float64 `json:"score"` // 0-100
	Issues         []Issue `json:"issues"`
	Impact         *Impact `json:"impact"`
	Recommendation string  `json:"recommendation"`
}

// Issue 换班问题
type Issue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // error/warning
	Message  string `json:"message"`
}

// Impact 换班影响
type Impact struct {
	SourceEmployeeImpact *EmployeeImpact `json:"source_employee_impact"`
	TargetEmployeeImpact *EmployeeImpact `json:"target_employee_impact"`

	// PenaltyChange 换班后软约束惩罚的变化，负值表示整体变好
	PenaltyChange int `json:"penalty_change"`
}

// EmployeeImpact 员工影响
type EmployeeImpact struct {
	HoursChange  float64 `json:"hours_change"`
	NewConflicts int     `json:"new_conflicts"`
}

// Evaluate 评估换班可行性
func (e *Evaluator) Evaluate(ctx *constraint.Context, request *Request) *Evaluation {
	result := &Evaluation{
		Feasible: true,
		Score:    100,
		Issues:   make([]Issue, 0),
		Impact: &Impact{
			SourceEmployeeImpact: &EmployeeImpact{},
			TargetEmployeeImpact: &EmployeeImpact{},
		},
	}

	source := request.SourceAssignment
	targetEmp := request.TargetEmployee

	if source == nil || targetEmp == nil {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "invalid_request",
			Severity: "error",
			Message:  "无效的换班请求",
		})
		return result
	}

	if !targetEmp.IsActive() {
		result.Feasible = false
		result.Issues = append(result.Issues, Issue{
			Type:     "employee_inactive",
			Severity: "error",
			Message:  "目标员工不在职",
		})
		return result
	}

	// 资质与可用时间检查
	shift := ctx.GetShift(source.ShiftID)
	if shift != nil {
		if !targetEmp.HasAllQualifications(shift.RequiredQualifications) {
			result.Feasible = false
			result.Issues = append(result.Issues, Issue{
				Type:     string(constraint.TypeQualificationMatch),
				Severity: "error",
				Message:  "目标员工缺少班次要求的资质",
			})
		}
		if !targetEmp.AvailableFor(shift.Date, shift.StartTime.Format("15:04"), shift.EndTime.Format("15:04")) {
			result.Feasible = false
			result.Issues = append(result.Issues, Issue{
				Type:     string(constraint.TypeAvailability),
				Severity: "error",
				Message:  "班次时段不在目标员工的可用时间内",
			})
		}
	}

	// 模拟换班后检测冲突
	simulated := e.simulate(ctx, request)
	employees := make(map[uuid.UUID]*model.Employee)
	for _, emp := range ctx.Employees {
		employees[emp.ID] = emp
	}
	shifts := make(map[uuid.UUID]*model.ShiftInstance)
	for _, s := range ctx.Shifts {
		shifts[s.ID] = s
	}

	conflicts := e.detector.DetectAll(simulated, employees, shifts)
	for _, conflict := range conflicts {
		if conflict.EmployeeID != targetEmp.ID {
			continue
		}
		result.Issues = append(result.Issues, Issue{
			Type:     string(conflict.Type),
			Severity: conflict.Severity,
			Message:  conflict.Message,
		})
		if conflict.Severity == "error" {
			result.Feasible = false
		}
		result.Impact.TargetEmployeeImpact.NewConflicts++
	}

	// 约束评估：硬违规否决，软惩罚变化折算得分
	if e.manager != nil {
		simCtx := e.simulatedContext(ctx, simulated)
		simResult := e.manager.Evaluate(simCtx)

		for _, v := range simResult.HardViolations {
			if v.EmployeeID != targetEmp.ID {
				continue
			}
			result.Feasible = false
			result.Issues = append(result.Issues, Issue{
				Type:     string(v.ConstraintType),
				Severity: "error",
				Message:  v.Message,
			})
		}

		basePenalty := e.manager.Evaluate(ctx).TotalPenalty
		result.Impact.PenaltyChange = simResult.TotalPenalty - basePenalty
		result.Score = scoreFromPenaltyChange(result.Impact.PenaltyChange)
	}

	e.calculateHours(ctx, request, result)
	result.Recommendation = recommendationFor(result)

	return result
}

// CanSwap 快速检查是否可换班
func (e *Evaluator) CanSwap(ctx *constraint.Context, request *Request) (bool, string) {
	result := e.Evaluate(ctx, request)
	if !result.Feasible {
		if len(result.Issues) > 0 {
			return false, result.Issues[0].Message
		}
		return false, "无法进行换班"
	}
	return true, ""
}

// simulate 生成换班后的分配集合，原集合不变
func (e *Evaluator) simulate(ctx *constraint.Context, request *Request) []*model.Assignment {
	simulated := make([]*model.Assignment, 0, len(ctx.Assignments))

	for _, a := range ctx.Assignments {
		switch {
		case a.ID == request.SourceAssignment.ID:
			swapped := *a
			swapped.EmployeeID = request.TargetEmployee.ID
			simulated = append(simulated, &swapped)
		case request.TargetAssignment != nil && a.ID == request.TargetAssignment.ID:
			// 互换场景：目标班次转给源员工
			swapped := *a
			swapped.EmployeeID = request.SourceAssignment.EmployeeID
			simulated = append(simulated, &swapped)
		default:
			simulated = append(simulated, a)
		}
	}

	return simulated
}

func (e *Evaluator) simulatedContext(ctx *constraint.Context, simulated []*model.Assignment) *constraint.Context {
	simCtx := constraint.NewContext(ctx.StartDate, ctx.EndDate)
	simCtx.SetEmployees(ctx.Employees)
	simCtx.SetShifts(ctx.Shifts)
	simCtx.SetAssignments(simulated)
	return simCtx
}

// calculateHours 计算双方工时变化
func (e *Evaluator) calculateHours(ctx *constraint.Context, request *Request, result *Evaluation) {
	source := request.SourceAssignment
	hours := source.WorkingHours()

	result.Impact.SourceEmployeeImpact.HoursChange = -hours
	result.Impact.TargetEmployeeImpact.HoursChange = hours

	if request.TargetAssignment != nil {
		exchanged := request.TargetAssignment.WorkingHours()
		result.Impact.SourceEmployeeImpact.HoursChange += exchanged
		result.Impact.TargetEmployeeImpact.HoursChange -= exchanged
	}
}

// scoreFromPenaltyChange 把惩罚变化折算为 0-100 的得分
// 惩罚不变为满分，每增加 10 点惩罚扣 1 分。
func scoreFromPenaltyChange(change int) float64 {
	if change <= 0 {
		return 100
	}
	score := 100 - float64(change)/10
	if score < 0 {
		return 0
	}
	return score
}

func recommendationFor(result *Evaluation) string {
	if !result.Feasible {
		return "不建议进行此换班，存在硬约束冲突"
	}

	switch {
	case result.Score >= 90:
		return "推荐，换班后整体质量基本不变"
	case result.Score >= 70:
		return "可以进行，但会增加一些软约束惩罚"
	case result.Score >= 50:
		return "谨慎进行，可能影响整体排班质量"
	default:
		return "不推荐，虽然可行但会显著降低排班质量"
	}
}

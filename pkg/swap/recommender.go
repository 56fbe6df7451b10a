package swap

import (
	"sort"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// Recommender 换班推荐器
type Recommender struct {
	evaluator *Evaluator
}

// NewRecommender 创建换班推荐器
func NewRecommender(cm *constraint.Manager) *Recommender {
	return &Recommender{
		evaluator: NewEvaluator(cm),
	}
}

// Recommendation 换班推荐
type Recommendation struct {
	TargetEmployee *model.Employee   `json:"target_employee"`
	Assignment     *model.Assignment `json:"assignment,omitempty"` // 互换时目标员工让出的班次
	Score          float64           `json:"score"`
	Reason         string            `json:"reason"`
	SwapType       string            `json:"swap_type"` // take_over/exchange
	ImpactSummary  string            `json:"impact_summary"`
	Rank           int               `json:"rank"`
}

// Options 推荐选项
type Options struct {
	MaxRecommendations int
	PreferredEmployees []uuid.UUID // 优先考虑的员工
	ExcludeEmployees   []uuid.UUID // 排除的员工
	AllowExchange      bool        // 是否允许互换
	MinScore           float64     // 最低得分
}

// DefaultOptions 返回默认推荐选项
func DefaultOptions() *Options {
	return &Options{
		MaxRecommendations: 5,
		AllowExchange:      true,
		MinScore:           60,
	}
}

// RecommendTargets 推荐换班目标员工
// 候选按得分降序排列，得分相同时按员工ID排序保证结果稳定。
func (r *Recommender) RecommendTargets(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
	options *Options,
) []Recommendation {
	if options == nil {
		options = DefaultOptions()
	}

	excludeSet := make(map[uuid.UUID]bool)
	excludeSet[sourceAssignment.EmployeeID] = true
	for _, id := range options.ExcludeEmployees {
		excludeSet[id] = true
	}

	preferredSet := make(map[uuid.UUID]bool)
	for _, id := range options.PreferredEmployees {
		preferredSet[id] = true
	}

	var candidates []Recommendation

	for _, emp := range ctx.Employees {
		if excludeSet[emp.ID] || !emp.IsActive() {
			continue
		}

		evaluation := r.evaluator.Evaluate(ctx, &Request{
			SourceAssignment: sourceAssignment,
			TargetEmployee:   emp,
		})

		if evaluation.Feasible && evaluation.Score >= options.MinScore {
			candidate := Recommendation{
				TargetEmployee: emp,
				Score:          evaluation.Score,
				SwapType:       "take_over",
				Reason:         reasonFor(evaluation),
				ImpactSummary:  impactSummaryFor(evaluation),
			}
			if preferredSet[emp.ID] {
				candidate.Score += 10
			}
			candidates = append(candidates, candidate)
		}

		if options.AllowExchange {
			candidates = append(candidates, r.findExchangeCandidates(ctx, sourceAssignment, emp, options)...)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].TargetEmployee.ID.String() < candidates[j].TargetEmployee.ID.String()
	})

	if len(candidates) > options.MaxRecommendations {
		candidates = candidates[:options.MaxRecommendations]
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	return candidates
}

// findExchangeCandidates 查找互换候选
func (r *Recommender) findExchangeCandidates(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
	targetEmp *model.Employee,
	options *Options,
) []Recommendation {
	var candidates []Recommendation

	for _, targetAss := range ctx.GetEmployeeAssignments(targetEmp.ID) {
		// 同一天互换没有意义
		if targetAss.Date == sourceAssignment.Date {
			continue
		}

		evaluation := r.evaluator.Evaluate(ctx, &Request{
			SourceAssignment: sourceAssignment,
			TargetEmployee:   targetEmp,
			TargetAssignment: targetAss,
		})

		if !evaluation.Feasible || evaluation.Score < options.MinScore {
			continue
		}

		candidates = append(candidates, Recommendation{
			TargetEmployee: targetEmp,
			Assignment:     targetAss,
			Score:          evaluation.Score,
			SwapType:       "exchange",
			Reason:         "互换班次，双方工时更平衡",
			ImpactSummary:  impactSummaryFor(evaluation),
		})
	}

	return candidates
}

// FindBestMatch 为指定日期需要替换的员工找到最佳人选
func (r *Recommender) FindBestMatch(
	ctx *constraint.Context,
	employeeID uuid.UUID,
	date string,
) *Recommendation {
	var sourceAssignment *model.Assignment
	for _, a := range ctx.GetEmployeeAssignments(employeeID) {
		if a.Date == date {
			sourceAssignment = a
			break
		}
	}
	if sourceAssignment == nil {
		return nil
	}

	recommendations := r.RecommendTargets(ctx, sourceAssignment, &Options{
		MaxRecommendations: 1,
		MinScore:           50,
	})
	if len(recommendations) == 0 {
		return nil
	}
	return &recommendations[0]
}

// AutoReassign 自动把班次转给最佳候选人
// 返回一条新的待确认分配；没有合格候选时返回 nil。
func (r *Recommender) AutoReassign(
	ctx *constraint.Context,
	sourceAssignment *model.Assignment,
) *model.Assignment {
	recommendations := r.RecommendTargets(ctx, sourceAssignment, &Options{
		MaxRecommendations: 1,
		MinScore:           70, // 自动转班要求更高得分
	})
	if len(recommendations) == 0 {
		return nil
	}

	reassigned := *sourceAssignment
	reassigned.ID = uuid.New()
	reassigned.EmployeeID = recommendations[0].TargetEmployee.ID
	reassigned.Status = model.AssignmentProposed

	return &reassigned
}

func reasonFor(evaluation *Evaluation) string {
	if len(evaluation.Issues) == 0 {
		return "无约束冲突，资质与时间均匹配"
	}

	warnings := 0
	for _, issue := range evaluation.Issues {
		if issue.Severity == "warning" {
			warnings++
		}
	}
	if warnings > 0 && warnings <= 2 {
		return "仅有少量软约束提醒"
	}
	return "可以接替此班次"
}

func impactSummaryFor(evaluation *Evaluation) string {
	if evaluation.Impact == nil || evaluation.Impact.TargetEmployeeImpact == nil {
		return "影响较小"
	}

	switch change := evaluation.Impact.TargetEmployeeImpact.HoursChange; {
	case change > 0:
		return "目标员工增加工时"
	case change < 0:
		return "目标员工减少工时"
	default:
		return "对双方工时影响均衡"
	}
}

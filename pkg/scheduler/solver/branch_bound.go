// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/logger"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// BranchBoundSolver 分支定界求解器
// 对每个班次名额枚举候选员工，硬约束剪枝，软约束惩罚做下界；
// 枚举顺序完全由稳定排序决定，相同输入产生相同结果。
type BranchBoundSolver struct {
	manager *constraint.Manager
	config  Config
	logger  *logger.SolverLogger
}

// NewBranchBoundSolver 创建分支定界求解器
func NewBranchBoundSolver(cm *constraint.Manager, config Config) *BranchBoundSolver {
	return &BranchBoundSolver{
		manager: cm,
		config:  config,
		logger:  logger.NewSolverLogger(),
	}
}

// Name 返回求解器名称
func (s *BranchBoundSolver) Name() string {
	return "BranchBoundSolver"
}

// slot 班次名额（搜索树的一层）
type slot struct {
	shift     *model.ShiftInstance
	optional  bool // 超出最少人数的名额可以留空
	nextShift int  // 留空时跳转到的下一班次首名额
}

// candidate 一个完整的可行方案
type candidate struct {
	assignments []*model.Assignment
	objective   int
	coverage    int
	overtime    float64
}

// search 单次求解的可变状态；求解器本身无跨调用状态
type search struct {
	ctx      context.Context
	schedCtx *constraint.Context
	manager  *constraint.Manager
	slots    []slot
	deadline time.Time
	hasLimit bool
	maxNodes int

	nodes       int
	pruned      map[constraint.Type]int
	best        *candidate
	bestPartial []*model.Assignment
	maxDepth    int
	stop        error
}

var (
	errBudgetExceeded = fmt.Errorf("时间预算耗尽")
	errNodeLimit      = fmt.Errorf("节点数达到上限")
)

// Solve 求解排班问题
func (s *BranchBoundSolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()
	s.logger.StartSolve(len(schedCtx.Employees), len(schedCtx.Shifts), s.config.TimeBudget)

	result := &Result{
		Status:      StatusError,
		Assignments: make([]*model.Assignment, 0),
		Statistics:  &Statistics{},
	}

	// 构建器保证非空；直接调用时快速失败
	if len(schedCtx.Employees) == 0 {
		result.Duration = time.Since(startTime)
		result.Message = "员工集合为空"
		return result, errors.ErrEmptyEmployeeSet
	}
	if len(schedCtx.Shifts) == 0 {
		result.Duration = time.Since(startTime)
		result.Message = "班次集合为空"
		return result, errors.ErrEmptyShiftSet
	}

	// 固定分配先行校验并注入上下文
	if err := s.applySeed(schedCtx); err != nil {
		result.Duration = time.Since(startTime)
		result.Message = err.Error()
		return result, err
	}

	st := &search{
		ctx:      ctx,
		schedCtx: schedCtx,
		manager:  s.manager,
		slots:    buildSlots(schedCtx),
		hasLimit: s.config.TimeBudget > 0,
		maxNodes: s.config.MaxNodes,
		pruned:   make(map[constraint.Type]int),
	}
	if st.hasLimit {
		st.deadline = startTime.Add(s.config.TimeBudget)
	}

	// 先做一次贪心下潜，尽早建立目标值上界
	st.dive(0, 0, 0)
	if st.stop == nil {
		st.dfs(0, 0, 0)
	}

	result.Duration = time.Since(startTime)
	result.Statistics.NodesExplored = st.nodes
	result.Statistics.PrunedByConstraint = st.pruned

	switch {
	case st.stop == context.Canceled || st.stop == context.DeadlineExceeded:
		result.Status = StatusError
		result.Message = "求解已取消"
		s.logger.SolveComplete(string(result.Status), result.Duration, 0, 0)
		return result, errors.ErrCancelled

	case st.stop == errBudgetExceeded:
		result.Status = StatusTimeout
		if st.best != nil {
			s.fillSolution(result, schedCtx, st.best)
			result.Message = "时间预算耗尽，返回当前最优方案"
		} else {
			result.Assignments = st.bestPartial
			*result.Statistics = *computeStatistics(schedCtx, st.bestPartial)
			result.Statistics.NodesExplored = st.nodes
			result.Statistics.PrunedByConstraint = st.pruned
			result.Message = "时间预算耗尽，返回不完整的部分方案"
		}
		s.logger.SolveTimeout(s.config.TimeBudget, int64(st.nodes))
		return result, nil

	case st.stop == errNodeLimit:
		if st.best != nil {
			result.Status = StatusFeasible
			s.fillSolution(result, schedCtx, st.best)
			result.Message = "搜索节点达到上限，返回已找到的可行方案"
		} else {
			result.Status = StatusInfeasible
			result.Suggestions = suggestRelaxations(st.pruned)
			result.Message = "搜索节点达到上限，未找到可行方案"
		}
		s.logger.SolveComplete(string(result.Status), result.Duration, result.Objective, len(result.Assignments))
		return result, nil

	default:
		if st.best != nil {
			result.Status = StatusOptimal
			s.fillSolution(result, schedCtx, st.best)
			result.Message = "搜索空间完整遍历，方案为最优"
		} else {
			result.Status = StatusInfeasible
			result.Suggestions = suggestRelaxations(st.pruned)
			result.Message = "不存在满足全部硬约束的方案"
		}
		s.logger.SolveComplete(string(result.Status), result.Duration, result.Objective, len(result.Assignments))
		return result, nil
	}
}

// applySeed 校验并注入固定分配
// 固定分配违反硬约束视为输入错误，不进入搜索。
func (s *BranchBoundSolver) applySeed(schedCtx *constraint.Context) error {
	for _, a := range s.config.Seed {
		if violated, found := s.manager.FirstHardViolation(schedCtx, a); found {
			return errors.MalformedConstraint(
				string(violated),
				fmt.Sprintf("固定分配违反硬约束（员工 %s，日期 %s）", a.EmployeeID, a.Date),
			)
		}
		schedCtx.AddAssignment(a)
	}
	return nil
}

// fillSolution 把候选方案写入结果
func (s *BranchBoundSolver) fillSolution(result *Result, schedCtx *constraint.Context, c *candidate) {
	result.Assignments = c.assignments
	result.Objective = c.objective
	nodes := result.Statistics.NodesExplored
	pruned := result.Statistics.PrunedByConstraint
	result.Statistics = computeStatistics(schedCtx, c.assignments)
	result.Statistics.NodesExplored = nodes
	result.Statistics.PrunedByConstraint = pruned
}

// buildSlots 把班次实例展开为名额序列
// 已被固定分配占用的名额不再生成；人数上限为 0 表示不超额分配。
func buildSlots(schedCtx *constraint.Context) []slot {
	var slots []slot
	for _, shift := range schedCtx.Shifts {
		capacity := shift.MaxHeadcount
		if capacity < shift.MinHeadcount {
			capacity = shift.MinHeadcount
		}
		seeded := schedCtx.GetShiftHeadcount(shift.ID)

		for k := seeded; k < capacity; k++ {
			slots = append(slots, slot{
				shift:    shift,
				optional: k >= shift.MinHeadcount,
			})
		}
	}

	// 预计算留空名额时跳转的位置
	for i := range slots {
		next := i + 1
		for next < len(slots) && slots[next].shift.ID == slots[i].shift.ID {
			next++
		}
		slots[i].nextShift = next
	}

	return slots
}

// checkStop 检查取消信号、时间预算和节点上限
func (st *search) checkStop() bool {
	if st.stop != nil {
		return true
	}
	if err := st.ctx.Err(); err != nil {
		st.stop = err
		return true
	}
	if st.hasLimit && time.Now().After(st.deadline) {
		st.stop = errBudgetExceeded
		return true
	}
	if st.maxNodes > 0 && st.nodes >= st.maxNodes {
		st.stop = errNodeLimit
		return true
	}
	return false
}

// dfs 深度优先搜索名额序列
// accPenalty 是已累计的逐分配软约束惩罚，作为目标值下界剪枝。
// minEmpIdx 保证同一班次内员工下标递增，消除等价排列。
func (st *search) dfs(depth, accPenalty, minEmpIdx int) {
	if st.checkStop() {
		return
	}
	st.nodes++

	// 记录最深的部分方案，时间预算耗尽时兜底返回
	if len(st.schedCtx.Assignments) > st.maxDepth {
		st.maxDepth = len(st.schedCtx.Assignments)
		st.bestPartial = snapshotAssignments(st.schedCtx.Assignments)
	}

	if depth == len(st.slots) {
		st.acceptLeaf()
		return
	}

	sl := st.slots[depth]

	for idx := minEmpIdx; idx < len(st.schedCtx.Employees); idx++ {
		if st.stop != nil {
			return
		}
		emp := st.schedCtx.Employees[idx]

		a := newAssignment(emp, sl.shift)
		if violated, found := st.manager.FirstHardViolation(st.schedCtx, a); found {
			st.pruned[violated]++
			continue
		}

		pen := st.manager.GetPenalty(st.schedCtx, a)
		if st.best != nil && accPenalty+pen > st.best.objective {
			continue
		}

		st.schedCtx.AddAssignment(a)
		sameShiftMin := 0
		if depth+1 < len(st.slots) && st.slots[depth+1].shift.ID == sl.shift.ID {
			sameShiftMin = idx + 1
		}
		st.dfs(depth+1, accPenalty+pen, sameShiftMin)
		st.schedCtx.RemoveLastAssignment()
	}

	// 可选名额留空：本班次剩余名额一并留空，跳到下一班次
	if sl.optional && st.stop == nil {
		st.dfs(sl.nextShift, accPenalty, 0)
	}
}

// dive 贪心下潜：每个名额只尝试工时最少的可行员工
// 用于在完整搜索前快速建立目标值上界。
func (st *search) dive(depth, accPenalty, minEmpIdx int) {
	if st.checkStop() {
		return
	}
	st.nodes++

	if depth == len(st.slots) {
		st.acceptLeaf()
		return
	}

	sl := st.slots[depth]

	bestIdx := -1
	var bestHours float64
	var bestAssignment *model.Assignment
	bestPen := 0

	for idx := minEmpIdx; idx < len(st.schedCtx.Employees); idx++ {
		emp := st.schedCtx.Employees[idx]
		a := newAssignment(emp, sl.shift)
		if _, found := st.manager.FirstHardViolation(st.schedCtx, a); found {
			continue
		}

		hours := st.schedCtx.GetEmployeeHours(emp.ID)
		if bestIdx == -1 || hours < bestHours {
			bestIdx = idx
			bestHours = hours
			bestAssignment = a
			bestPen = st.manager.GetPenalty(st.schedCtx, a)
		}
	}

	if bestIdx >= 0 {
		st.schedCtx.AddAssignment(bestAssignment)
		sameShiftMin := 0
		if depth+1 < len(st.slots) && st.slots[depth+1].shift.ID == sl.shift.ID {
			sameShiftMin = bestIdx + 1
		}
		st.dive(depth+1, accPenalty+bestPen, sameShiftMin)
		st.schedCtx.RemoveLastAssignment()
		return
	}

	if sl.optional {
		st.dive(sl.nextShift, accPenalty, 0)
	}
}

// acceptLeaf 到达叶结点：全量评估并按字典序优先级更新最优方案
func (st *search) acceptLeaf() {
	res := st.manager.Evaluate(st.schedCtx)
	if !res.IsValid {
		return
	}

	c := &candidate{
		assignments: snapshotAssignments(st.schedCtx.Assignments),
		objective:   res.TotalPenalty,
		coverage:    len(st.schedCtx.Assignments),
		overtime:    totalOvertime(st.schedCtx),
	}

	if st.best == nil || betterCandidate(c, st.best) {
		st.best = c
	}
}

// betterCandidate 平局裁决：目标值更低、覆盖更高、超时工时更低；仍平则保留先发现者
func betterCandidate(a, b *candidate) bool {
	if a.objective != b.objective {
		return a.objective < b.objective
	}
	if a.coverage != b.coverage {
		return a.coverage > b.coverage
	}
	return a.overtime < b.overtime
}

// totalOvertime 统计超出员工期望工时的部分
func totalOvertime(schedCtx *constraint.Context) float64 {
	var overtime float64
	for _, emp := range schedCtx.Employees {
		if emp.Preferences == nil || emp.Preferences.PreferredHours <= 0 {
			continue
		}
		hours := schedCtx.GetEmployeeHours(emp.ID)
		if hours > emp.Preferences.PreferredHours {
			overtime += hours - emp.Preferences.PreferredHours
		}
	}
	return overtime
}

// newAssignment 为候选 (员工, 班次) 对创建分配
func newAssignment(emp *model.Employee, shift *model.ShiftInstance) *model.Assignment {
	return &model.Assignment{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		EmployeeID: emp.ID,
		ShiftID:    shift.ID,
		Date:       shift.Date,
		StartTime:  shift.StartTime,
		EndTime:    shift.EndTime,
		Status:     model.AssignmentProposed,
	}
}

// snapshotAssignments 复制当前分配集合
func snapshotAssignments(assignments []*model.Assignment) []*model.Assignment {
	snap := make([]*model.Assignment, len(assignments))
	copy(snap, assignments)
	return snap
}

// Package optimizer 提供排班方案的确定性局部搜索优化
package optimizer

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/logger"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// OptimizationConfig 优化配置
type OptimizationConfig struct {
	MaxIterations   int           `json:"max_iterations"`   // 最大迭代次数
	MaxTime         time.Duration `json:"max_time"`         // 最大运行时间
	TabuSize        int           `json:"tabu_size"`        // 禁忌表大小
	ParallelWorkers int           `json:"parallel_workers"` // 邻域评估并行数
}

// DefaultOptConfig 默认优化配置
func DefaultOptConfig() *OptimizationConfig {
	return &OptimizationConfig{
		MaxIterations:   200,
		MaxTime:         30 * time.Second,
		TabuSize:        512,
		ParallelWorkers: 4,
	}
}

// Solution 表示一个排班方案
type Solution struct {
	Assignments    []*model.Assignment
	Objective      int
	HardViolations int
	Feasible       bool
}

// newSolution 从分配集合构造规范化的方案（深拷贝，不改动输入）
func newSolution(assignments []*model.Assignment) *Solution {
	s := &Solution{Assignments: make([]*model.Assignment, len(assignments))}
	for i, a := range assignments {
		copied := *a
		s.Assignments[i] = &copied
	}
	s.normalize()
	return s
}

// Clone 深拷贝方案
func (s *Solution) Clone() *Solution {
	clone := &Solution{
		Assignments:    make([]*model.Assignment, len(s.Assignments)),
		Objective:      s.Objective,
		HardViolations: s.HardViolations,
		Feasible:       s.Feasible,
	}
	for i, a := range s.Assignments {
		copied := *a
		clone.Assignments[i] = &copied
	}
	return clone
}

// normalize 将分配按日期、开始时间、班次、员工稳定排序
// 规范顺序使相同分配集合的哈希值一致，也保证邻域枚举顺序可复现。
func (s *Solution) normalize() {
	sort.Slice(s.Assignments, func(i, j int) bool {
		a, b := s.Assignments[i], s.Assignments[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		if a.ShiftID != b.ShiftID {
			return a.ShiftID.String() < b.ShiftID.String()
		}
		return a.EmployeeID.String() < b.EmployeeID.String()
	})
}

// Evaluator 方案评估接口
type Evaluator interface {
	// Evaluate 返回方案的目标值（惩罚总和）与硬约束违反数
	Evaluate(assignments []*model.Assignment) (objective int, hardViolations int)
}

// ManagerEvaluator 基于约束管理器的评估器，可并发调用
type ManagerEvaluator struct {
	manager *constraint.Manager
	pool    sync.Pool
}

// NewManagerEvaluator 创建评估器
// base 提供员工、班次与日期范围；每个并发评估使用独立的上下文副本。
func NewManagerEvaluator(manager *constraint.Manager, base *constraint.Context) *ManagerEvaluator {
	employees := make([]*model.Employee, len(base.Employees))
	copy(employees, base.Employees)
	shifts := make([]*model.ShiftInstance, len(base.Shifts))
	copy(shifts, base.Shifts)
	startDate, endDate := base.StartDate, base.EndDate

	return &ManagerEvaluator{
		manager: manager,
		pool: sync.Pool{
			New: func() interface{} {
				c := constraint.NewContext(startDate, endDate)
				c.SetEmployees(employees)
				c.SetShifts(shifts)
				return c
			},
		},
	}
}

// Evaluate 评估一组分配
func (e *ManagerEvaluator) Evaluate(assignments []*model.Assignment) (int, int) {
	c := e.pool.Get().(*constraint.Context)
	defer e.pool.Put(c)

	c.SetAssignments(assignments)
	result := e.manager.Evaluate(c)
	return result.TotalPenalty, len(result.HardViolations)
}

// LocalSearchOptimizer 确定性局部搜索优化器
// 每轮按固定顺序枚举全部邻域移动，只接受严格改进的移动；
// 没有改进移动（达到局部最优）即停止。相同输入总是得到相同结果。
type LocalSearchOptimizer struct {
	config    *OptimizationConfig
	evaluator Evaluator
	neighbors *NeighborhoodGenerator
	tabu      *TabuList
	parallel  *ParallelEvaluator
	logger    *logger.SolverLogger
}

// NewLocalSearchOptimizer 创建局部搜索优化器
func NewLocalSearchOptimizer(config *OptimizationConfig, evaluator Evaluator) *LocalSearchOptimizer {
	if config == nil {
		config = DefaultOptConfig()
	}
	return &LocalSearchOptimizer{
		config:    config,
		evaluator: evaluator,
		neighbors: NewNeighborhoodGenerator(),
		tabu:      NewTabuList(config.TabuSize),
		parallel:  NewParallelEvaluator(config.ParallelWorkers, evaluator),
		logger:    logger.NewSolverLogger(),
	}
}

// Optimize 以现有分配为起点优化排班方案
// 返回的方案不与输入共享分配记录；取消时返回当前最优解与取消错误。
func (o *LocalSearchOptimizer) Optimize(ctx context.Context, schedCtx *constraint.Context, initial []*model.Assignment) (*Solution, error) {
	start := time.Now()

	current := newSolution(initial)
	current.Objective, current.HardViolations = o.evaluator.Evaluate(current.Assignments)
	current.Feasible = current.HardViolations == 0

	best := current.Clone()
	o.tabu.Clear()
	o.tabu.Add(hashAssignments(current.Assignments))

	o.logger.StartSolve(len(schedCtx.Employees), len(schedCtx.Shifts), o.config.MaxTime)

	for iter := 0; iter < o.config.MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			o.logger.SolveComplete("cancelled", time.Since(start), best.Objective, len(best.Assignments))
			return best, errors.ErrCancelled
		default:
		}
		if time.Since(start) > o.config.MaxTime {
			o.logger.SolveTimeout(o.config.MaxTime, int64(iter))
			break
		}

		moves := o.neighbors.Enumerate(current, schedCtx)
		if len(moves) == 0 {
			break
		}

		candidates := make([]*Solution, len(moves))
		for i, m := range moves {
			candidates[i] = o.neighbors.Apply(current, m, schedCtx)
		}

		results := o.parallel.EvaluateBatch(ctx, candidates)

		// 在严格改进的非禁忌邻域解中选最优者，并列时取枚举序靠前的
		pick := -1
		for i := range results {
			sol := results[i].Solution
			if sol == nil || o.tabu.Contains(results[i].Key) {
				continue
			}
			if !betterSolution(sol, current) {
				continue
			}
			if pick < 0 || betterSolution(sol, results[pick].Solution) {
				pick = i
			}
		}
		if pick < 0 {
			// 局部最优，停止搜索
			break
		}

		current = results[pick].Solution
		o.tabu.Add(results[pick].Key)
		if betterSolution(current, best) {
			best = current.Clone()
		}
	}

	status := "optimal"
	if !best.Feasible {
		status = "infeasible"
	}
	o.logger.SolveComplete(status, time.Since(start), best.Objective, len(best.Assignments))

	return best, nil
}

// betterSolution 比较两个方案：先看硬约束违反数，再看目标值
func betterSolution(a, b *Solution) bool {
	if a.HardViolations != b.HardViolations {
		return a.HardViolations < b.HardViolations
	}
	return a.Objective < b.Objective
}

// hashAssignments 计算分配集合的哈希（FNV-1a）
// 方案已规范排序，相同的分配集合得到相同的哈希值。
func hashAssignments(assignments []*model.Assignment) uint64 {
	h := fnv.New64a()
	for _, a := range assignments {
		h.Write(a.EmployeeID[:])
		h.Write(a.ShiftID[:])
		h.Write([]byte(a.Date))
	}
	return h.Sum64()
}

// TabuList 禁忌表（以uint64哈希作为键）
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
	mu      sync.RWMutex
}

// NewTabuList 创建禁忌表
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add 添加到禁忌表
func (t *TabuList) Add(key uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.items[key]; exists {
		return
	}

	// 超出容量时移除最旧的
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}

	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains 检查是否在禁忌表中
func (t *TabuList) Contains(key uint64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.items[key]
	return exists
}

// Clear 清空禁忌表
func (t *TabuList) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[uint64]struct{})
	t.order = t.order[:0]
}

// Package solver 提供排班求解器
package solver

import (
	"context"
	"time"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// Status 求解结果状态
type Status string

const (
	// StatusOptimal 搜索空间完整遍历，返回目标值最优的可行方案
	StatusOptimal Status = "optimal"
	// StatusFeasible 搜索提前截断（节点上限），返回已找到的可行方案
	StatusFeasible Status = "feasible"
	// StatusInfeasible 不存在满足全部硬约束的方案
	StatusInfeasible Status = "infeasible"
	// StatusTimeout 时间预算耗尽，返回当前最优（可能不完整）的方案
	StatusTimeout Status = "timeout_with_best_effort"
	// StatusError 求解被取消或输入异常
	StatusError Status = "error"
)

// Config 求解配置
// 所有运行参数显式传入，算法内部不读环境默认值。
type Config struct {
	// TimeBudget 墙钟时间预算
	TimeBudget time.Duration `json:"time_budget"`

	// MaxNodes 搜索节点上限，0 表示不限制
	MaxNodes int `json:"max_nodes"`

	// Seed 固定的既有分配（增量重排时使用）
	Seed []*model.Assignment `json:"seed,omitempty"`
}

// DefaultConfig 返回默认求解配置
func DefaultConfig() Config {
	return Config{
		TimeBudget: 60 * time.Second,
		MaxNodes:   500000,
	}
}

// Result 求解结果
type Result struct {
	Status      Status              `json:"status"`
	Assignments []*model.Assignment `json:"assignments"`
	Objective   int                 `json:"objective"` // 软约束惩罚加权和，越小越好
	Statistics  *Statistics         `json:"statistics"`
	Duration    time.Duration       `json:"duration"`
	Message     string              `json:"message,omitempty"`

	// Suggestions 不可行时的放宽建议
	Suggestions []string `json:"suggestions,omitempty"`
}

// Statistics 求解统计
type Statistics struct {
	TotalAssignments int     `json:"total_assignments"`
	FilledShifts     int     `json:"filled_shifts"`
	TotalShifts      int     `json:"total_shifts"`
	FillRate         float64 `json:"fill_rate"`
	TotalHours       float64 `json:"total_hours"`
	NodesExplored    int     `json:"nodes_explored"`

	// PrunedByConstraint 各硬约束类型剪掉的候选分配数
	PrunedByConstraint map[constraint.Type]int `json:"pruned_by_constraint,omitempty"`
}

// Solver 求解器接口
type Solver interface {
	// Solve 生成排班方案
	Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// computeStatistics 汇总方案统计
func computeStatistics(schedCtx *constraint.Context, assignments []*model.Assignment) *Statistics {
	stats := &Statistics{
		TotalAssignments: len(assignments),
		TotalShifts:      len(schedCtx.Shifts),
	}

	byShift := make(map[string]int)
	var totalHours float64
	for _, a := range assignments {
		byShift[a.ShiftID.String()]++
		totalHours += a.WorkingHours()
	}
	stats.TotalHours = totalHours

	for _, s := range schedCtx.Shifts {
		if byShift[s.ID.String()] >= s.MinHeadcount {
			stats.FilledShifts++
		}
	}
	if stats.TotalShifts > 0 {
		stats.FillRate = float64(stats.FilledShifts) / float64(stats.TotalShifts) * 100
	}

	return stats
}

// Package solver 提供排班求解器
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/logger"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// GreedySolver 贪心求解器
// 按班次顺序为每个名额选择当前工时最少的可行员工，单遍完成。
// 不保证最优，适合大规模问题的快速初始方案。
type GreedySolver struct {
	manager *constraint.Manager
	logger  *logger.SolverLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver(cm *constraint.Manager) *GreedySolver {
	return &GreedySolver{
		manager: cm,
		logger:  logger.NewSolverLogger(),
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 使用贪心策略生成排班
func (s *GreedySolver) Solve(ctx context.Context, schedCtx *constraint.Context) (*Result, error) {
	startTime := time.Now()
	s.logger.StartSolve(len(schedCtx.Employees), len(schedCtx.Shifts), 0)

	result := &Result{
		Status:      StatusError,
		Assignments: make([]*model.Assignment, 0),
		Statistics:  &Statistics{},
	}

	if len(schedCtx.Employees) == 0 {
		result.Duration = time.Since(startTime)
		return result, errors.ErrEmptyEmployeeSet
	}
	if len(schedCtx.Shifts) == 0 {
		result.Duration = time.Since(startTime)
		return result, errors.ErrEmptyShiftSet
	}

	slots := buildSlots(schedCtx)

	for i := 0; i < len(slots); {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(startTime)
			result.Message = "求解已取消"
			return result, errors.ErrCancelled
		}

		sl := slots[i]

		bestIdx := -1
		var bestHours float64
		var bestAssignment *model.Assignment
		for idx, emp := range schedCtx.Employees {
			a := newAssignment(emp, sl.shift)
			if _, found := s.manager.FirstHardViolation(schedCtx, a); found {
				continue
			}
			hours := schedCtx.GetEmployeeHours(emp.ID)
			if bestIdx == -1 || hours < bestHours {
				bestIdx = idx
				bestHours = hours
				bestAssignment = a
			}
		}

		if bestIdx >= 0 {
			schedCtx.AddAssignment(bestAssignment)
			result.Assignments = append(result.Assignments, bestAssignment)
			i++
			continue
		}

		// 没有可行员工：可选名额留空，必填名额记为缺口
		i = sl.nextShift
	}

	evalRes := s.manager.Evaluate(schedCtx)
	result.Duration = time.Since(startTime)
	result.Objective = evalRes.TotalPenalty
	result.Statistics = computeStatistics(schedCtx, schedCtx.Assignments)
	result.Assignments = snapshotAssignments(schedCtx.Assignments)

	if evalRes.IsValid {
		result.Status = StatusFeasible
		result.Message = fmt.Sprintf("贪心排班完成，满足率 %.1f%%", result.Statistics.FillRate)
	} else {
		result.Status = StatusInfeasible
		result.Message = fmt.Sprintf("贪心排班存在 %d 个硬约束违反", len(evalRes.HardViolations))
	}

	s.logger.SolveComplete(string(result.Status), result.Duration, result.Objective, len(result.Assignments))
	return result, nil
}

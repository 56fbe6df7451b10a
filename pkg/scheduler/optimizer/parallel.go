// Package optimizer 提供排班方案的确定性局部搜索优化
package optimizer

import (
	"context"
	"sync"
)

// ParallelEvaluator 并行评估器
// 评估顺序不影响结果：每个邻域解按下标写回固定位置，
// 选择阶段按下标遍历，从而保持与串行评估一致的确定性。
type ParallelEvaluator struct {
	workers   int
	evaluator Evaluator
}

// NewParallelEvaluator 创建并行评估器
func NewParallelEvaluator(workers int, evaluator Evaluator) *ParallelEvaluator {
	if workers <= 0 {
		workers = 4
	}
	return &ParallelEvaluator{
		workers:   workers,
		evaluator: evaluator,
	}
}

// EvaluationResult 评估结果
type EvaluationResult struct {
	Index    int
	Solution *Solution
	Key      uint64
}

// EvaluateBatch 并行评估一批邻域解
// 取消时未评估的位置保持零值（Solution为nil），调用方需跳过。
func (p *ParallelEvaluator) EvaluateBatch(ctx context.Context, candidates []*Solution) []EvaluationResult {
	if len(candidates) == 0 {
		return nil
	}

	resultChan := make(chan EvaluationResult, len(candidates))
	jobChan := make(chan int, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
					resultChan <- p.evaluateSingle(idx, candidates[idx])
				}
			}
		}()
	}

	for i := range candidates {
		jobChan <- i
	}
	close(jobChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]EvaluationResult, len(candidates))
	for result := range resultChan {
		results[result.Index] = result
	}

	return results
}

// evaluateSingle 评估单个邻域解
func (p *ParallelEvaluator) evaluateSingle(idx int, sol *Solution) EvaluationResult {
	sol.Objective, sol.HardViolations = p.evaluator.Evaluate(sol.Assignments)
	sol.Feasible = sol.HardViolations == 0

	return EvaluationResult{
		Index:    idx,
		Solution: sol,
		Key:      hashAssignments(sol.Assignments),
	}
}

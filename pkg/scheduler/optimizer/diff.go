// Package optimizer 提供排班方案的确定性局部搜索优化
package optimizer

import (
	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
)

// DiffSummary 优化前后方案的差异摘要
type DiffSummary struct {
	Added             int     `json:"added"`              // 新增分配数
	Removed           int     `json:"removed"`            // 移除分配数
	Changed           int     `json:"changed"`            // 同一班次换人数
	ConflictsBefore   int     `json:"conflicts_before"`   // 优化前冲突数
	ConflictsAfter    int     `json:"conflicts_after"`    // 优化后冲突数
	ConflictsResolved int     `json:"conflicts_resolved"` // 解决的冲突数
	CoverageBefore    float64 `json:"coverage_before"`    // 优化前覆盖率（百分比）
	CoverageAfter     float64 `json:"coverage_after"`     // 优化后覆盖率（百分比）
}

// IsZero 检查方案是否无任何变化
func (d *DiffSummary) IsZero() bool {
	return d.Added == 0 && d.Removed == 0 && d.Changed == 0
}

// SetConflictCounts 填入优化前后的冲突数
func (d *DiffSummary) SetConflictCounts(before, after int) {
	d.ConflictsBefore = before
	d.ConflictsAfter = after
	if before > after {
		d.ConflictsResolved = before - after
	} else {
		d.ConflictsResolved = 0
	}
}

// Diff 比较优化前后的分配集合
// 同一班次上一边少一个员工、另一边多一个员工计为一次换人，
// 其余计为新增或移除。冲突数由调用方通过 SetConflictCounts 填入。
func Diff(before, after []*model.Assignment, shifts []*model.ShiftInstance) *DiffSummary {
	beforePairs := pairsByShift(before)
	afterPairs := pairsByShift(after)

	summary := &DiffSummary{
		CoverageBefore: coveragePercent(before, shifts),
		CoverageAfter:  coveragePercent(after, shifts),
	}

	seen := make(map[uuid.UUID]bool)
	diffShift := func(shiftID uuid.UUID) {
		if seen[shiftID] {
			return
		}
		seen[shiftID] = true

		removed := 0
		for emp := range beforePairs[shiftID] {
			if !afterPairs[shiftID][emp] {
				removed++
			}
		}
		added := 0
		for emp := range afterPairs[shiftID] {
			if !beforePairs[shiftID][emp] {
				added++
			}
		}

		changed := removed
		if added < changed {
			changed = added
		}
		summary.Changed += changed
		summary.Added += added - changed
		summary.Removed += removed - changed
	}

	for shiftID := range beforePairs {
		diffShift(shiftID)
	}
	for shiftID := range afterPairs {
		diffShift(shiftID)
	}

	return summary
}

// pairsByShift 按班次索引分配的员工集合
func pairsByShift(assignments []*model.Assignment) map[uuid.UUID]map[uuid.UUID]bool {
	pairs := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, a := range assignments {
		if pairs[a.ShiftID] == nil {
			pairs[a.ShiftID] = make(map[uuid.UUID]bool)
		}
		pairs[a.ShiftID][a.EmployeeID] = true
	}
	return pairs
}

// coveragePercent 计算覆盖率：满足下限人数占总需求人数的百分比
func coveragePercent(assignments []*model.Assignment, shifts []*model.ShiftInstance) float64 {
	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.ShiftID]++
	}

	required := 0
	realized := 0
	for _, s := range shifts {
		required += s.MinHeadcount
		assigned := counts[s.ID]
		if assigned > s.MinHeadcount {
			assigned = s.MinHeadcount
		}
		realized += assigned
	}

	if required == 0 {
		return 100.0
	}
	return float64(realized) / float64(required) * 100.0
}

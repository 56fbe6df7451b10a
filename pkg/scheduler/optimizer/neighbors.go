// Package optimizer 提供排班方案的确定性局部搜索优化
package optimizer

import (
	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// MoveType 邻域移动类型
type MoveType int

const (
	MoveReassign MoveType = iota // 换人：替换某个分配的员工
	MoveSwap                     // 交换：两个分配互换员工
	MoveInsert                   // 插入：为未满班次补充分配
	MoveRemove                   // 移除：删除一个分配
)

// Move 邻域移动操作
// Index1/Index2 指向当前方案规范排序后的分配下标。
type Move struct {
	Type       MoveType
	Index1     int
	Index2     int
	EmployeeID uuid.UUID // 换人/插入的目标员工
	ShiftID    uuid.UUID // 插入的目标班次实例
}

// NeighborhoodGenerator 邻域生成器
// 移动按固定顺序完整枚举：员工与班次在上下文中已稳定排序，
// 方案分配已规范排序，因此同一方案的邻域序列总是相同。
type NeighborhoodGenerator struct{}

// NewNeighborhoodGenerator 创建邻域生成器
func NewNeighborhoodGenerator() *NeighborhoodGenerator {
	return &NeighborhoodGenerator{}
}

// Enumerate 枚举当前方案的全部邻域移动
// 顺序固定为：换人、交换、插入、移除。
func (n *NeighborhoodGenerator) Enumerate(current *Solution, schedCtx *constraint.Context) []Move {
	assigned := make(map[uuid.UUID]map[uuid.UUID]bool) // 班次 -> 已分配员工
	headcount := make(map[uuid.UUID]int)
	for _, a := range current.Assignments {
		if assigned[a.ShiftID] == nil {
			assigned[a.ShiftID] = make(map[uuid.UUID]bool)
		}
		assigned[a.ShiftID][a.EmployeeID] = true
		headcount[a.ShiftID]++
	}

	var moves []Move

	// 换人：把某个分配换给其他员工
	for i, a := range current.Assignments {
		for _, emp := range schedCtx.Employees {
			if emp.ID == a.EmployeeID || assigned[a.ShiftID][emp.ID] {
				continue
			}
			moves = append(moves, Move{Type: MoveReassign, Index1: i, EmployeeID: emp.ID})
		}
	}

	// 交换：两个不同班次上的分配互换员工
	for i := 0; i < len(current.Assignments); i++ {
		for j := i + 1; j < len(current.Assignments); j++ {
			ai, aj := current.Assignments[i], current.Assignments[j]
			if ai.ShiftID == aj.ShiftID || ai.EmployeeID == aj.EmployeeID {
				continue
			}
			if assigned[ai.ShiftID][aj.EmployeeID] || assigned[aj.ShiftID][ai.EmployeeID] {
				continue
			}
			moves = append(moves, Move{Type: MoveSwap, Index1: i, Index2: j})
		}
	}

	// 插入：为人数未达上限的班次补充员工
	for _, shift := range schedCtx.Shifts {
		if headcount[shift.ID] >= shift.MaxHeadcount {
			continue
		}
		for _, emp := range schedCtx.Employees {
			if assigned[shift.ID][emp.ID] {
				continue
			}
			moves = append(moves, Move{Type: MoveInsert, ShiftID: shift.ID, EmployeeID: emp.ID})
		}
	}

	// 移除：人数高于下限的班次可以裁掉一个分配
	for i, a := range current.Assignments {
		shift := schedCtx.GetShift(a.ShiftID)
		if shift == nil || headcount[a.ShiftID] <= shift.MinHeadcount {
			continue
		}
		moves = append(moves, Move{Type: MoveRemove, Index1: i})
	}

	return moves
}

// Apply 在当前方案上应用移动，返回新方案（不改动当前方案）
func (n *NeighborhoodGenerator) Apply(current *Solution, m Move, schedCtx *constraint.Context) *Solution {
	neighbor := current.Clone()

	switch m.Type {
	case MoveReassign:
		neighbor.Assignments[m.Index1].EmployeeID = m.EmployeeID
	case MoveSwap:
		ai, aj := neighbor.Assignments[m.Index1], neighbor.Assignments[m.Index2]
		ai.EmployeeID, aj.EmployeeID = aj.EmployeeID, ai.EmployeeID
	case MoveInsert:
		shift := schedCtx.GetShift(m.ShiftID)
		if shift == nil {
			return neighbor
		}
		neighbor.Assignments = append(neighbor.Assignments, &model.Assignment{
			BaseModel:  model.BaseModel{ID: uuid.New()},
			EmployeeID: m.EmployeeID,
			ShiftID:    shift.ID,
			Date:       shift.Date,
			StartTime:  shift.StartTime,
			EndTime:    shift.EndTime,
			Status:     model.AssignmentProposed,
		})
	case MoveRemove:
		neighbor.Assignments = append(
			neighbor.Assignments[:m.Index1], neighbor.Assignments[m.Index1+1:]...)
	}

	neighbor.normalize()
	return neighbor
}

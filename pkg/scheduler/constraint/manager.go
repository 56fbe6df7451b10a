// Package constraint 定义约束接口和管理器
package constraint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shiftplan/shiftplan/pkg/logger"
	"github.com/shiftplan/shiftplan/pkg/model"
)

// Manager 约束管理器
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.SolverLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewSolverLogger(),
	}
}

// Register 注册约束
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 检查是否已存在同类型约束
	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c // 替换
			return
		}
	}

	m.constraints = append(m.constraints, c)

	// 按类别和权重排序：硬约束在前，权重高的在前
	sort.Slice(m.constraints, func(i, j int) bool {
		ci, cj := m.constraints[i], m.constraints[j]
		if ci.Category() != cj.Category() {
			return ci.Category() == CategoryHard
		}
		if ci.Weight() != cj.Weight() {
			return ci.Weight() > cj.Weight()
		}
		return ci.Type() < cj.Type()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// GetByCategory 按类别获取约束
func (m *Manager) GetByCategory(cat Category) []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Constraint
	for _, c := range m.constraints {
		if c.Category() == cat {
			result = append(result, c)
		}
	}
	return result
}

// Evaluate 评估所有约束
func (m *Manager) Evaluate(ctx *Context) *Result {
	m.mu.RLock()
	constraints := make([]Constraint, len(m.constraints))
	copy(constraints, m.constraints)
	m.mu.RUnlock()

	result := &Result{
		IsValid:        true,
		TotalPenalty:   0,
		HardViolations: make([]ViolationDetail, 0),
		SoftViolations: make([]ViolationDetail, 0),
	}

	for _, c := range constraints {
		valid, penalty, details := c.Evaluate(ctx)

		if !valid || penalty > 0 {
			result.TotalPenalty += penalty

			for _, d := range details {
				if c.Category() == CategoryHard {
					result.IsValid = false
					result.HardViolations = append(result.HardViolations, d)
					m.logger.ConstraintViolation(c.Name(), d.Message)
				} else {
					result.SoftViolations = append(result.SoftViolations, d)
				}
			}
		}
	}

	return result
}

// EvaluateAssignment 评估单个分配
func (m *Manager) EvaluateAssignment(ctx *Context, assignment *model.Assignment) (bool, int, []ViolationDetail) {
	m.mu.RLock()
	constraints := make([]Constraint, len(m.constraints))
	copy(constraints, m.constraints)
	m.mu.RUnlock()

	var violations []ViolationDetail
	totalPenalty := 0
	isValid := true

	for _, c := range constraints {
		valid, penalty := c.EvaluateAssignment(ctx, assignment)
		if !valid {
			totalPenalty += penalty
			violations = append(violations, ViolationDetail{
				ConstraintType: c.Type(),
				ConstraintName: c.Name(),
				EmployeeID:     assignment.EmployeeID,
				ShiftID:        assignment.ShiftID,
				Date:           assignment.Date,
				Message:        fmt.Sprintf("违反约束: %s", c.Name()),
				Severity:       string(c.Category()),
				Penalty:        penalty,
			})

			if c.Category() == CategoryHard {
				isValid = false
			}
		} else if penalty > 0 {
			// 软约束可能在不判违反的情况下产生惩罚
			totalPenalty += penalty
		}
	}

	return isValid, totalPenalty, violations
}

// CanAssign 检查是否可以进行某个分配
func (m *Manager) CanAssign(ctx *Context, assignment *model.Assignment) (bool, string) {
	// 只检查硬约束
	hardConstraints := m.GetByCategory(CategoryHard)

	for _, c := range hardConstraints {
		valid, _ := c.EvaluateAssignment(ctx, assignment)
		if !valid {
			return false, fmt.Sprintf("违反硬约束: %s", c.Name())
		}
	}

	return true, ""
}

// FirstHardViolation 返回分配违反的第一个硬约束类型
// 求解器用它统计剪枝原因，生成不可行方案的诊断建议。
func (m *Manager) FirstHardViolation(ctx *Context, assignment *model.Assignment) (Type, bool) {
	hardConstraints := m.GetByCategory(CategoryHard)

	for _, c := range hardConstraints {
		valid, _ := c.EvaluateAssignment(ctx, assignment)
		if !valid {
			return c.Type(), true
		}
	}

	return "", false
}

// GetPenalty 计算分配的软约束惩罚值
func (m *Manager) GetPenalty(ctx *Context, assignment *model.Assignment) int {
	softConstraints := m.GetByCategory(CategorySoft)

	penalty := 0
	for _, c := range softConstraints {
		_, p := c.EvaluateAssignment(ctx, assignment)
		penalty += p
	}
	return penalty
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	for _, c := range m.constraints {
		if c.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}

	return map[string]interface{}{
		"total": len(m.constraints),
		"hard":  hard,
		"soft":  soft,
	}
}

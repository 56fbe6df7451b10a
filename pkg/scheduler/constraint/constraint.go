// Package constraint 定义约束接口和管理器
package constraint

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeCoverageBounds     Type = "coverage_bounds"
	TypeQualificationMatch Type = "qualification_match"
	TypeAvailability       Type = "availability"
	TypeNoDoubleBooking    Type = "no_double_booking"
	TypeMinRest            Type = "min_rest"
	TypeHourBounds         Type = "hour_bounds"

	// 软约束类型
	TypeShiftTypePreference Type = "shift_type_preference"
	TypeDayPreference       Type = "day_preference"
	TypeWorkloadBalance     Type = "workload_balance"
	TypeWeekendBalance      Type = "weekend_balance"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称（用于诊断信息）
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重 (1-100)，软约束的惩罚乘数
	Weight() int

	// Evaluate 评估整个排班方案
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, details []ViolationDetail)

	// EvaluateAssignment 评估在当前方案上追加单个分配
	// 返回：是否满足、惩罚值
	EvaluateAssignment(ctx *Context, assignment *model.Assignment) (valid bool, penalty int)
}

// ViolationDetail 约束违反详情
type ViolationDetail struct {
	ConstraintType Type      `json:"constraint_type"`
	ConstraintName string    `json:"constraint_name"`
	EmployeeID     uuid.UUID `json:"employee_id,omitempty"`
	ShiftID        uuid.UUID `json:"shift_id,omitempty"`
	Date           string    `json:"date,omitempty"`
	Message        string    `json:"message"`
	Severity       string    `json:"severity"` // error/warning
	Penalty        int       `json:"penalty"`
}

// Context 排班上下文
// 员工与班次实例在一次求解期间只读；分配集合随搜索增减。
type Context struct {
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	Employees []*model.Employee      `json:"employees"`
	Shifts    []*model.ShiftInstance `json:"shifts"`

	// 当前排班结果
	Assignments []*model.Assignment `json:"assignments"`

	// 索引缓存
	employeeMap        map[uuid.UUID]*model.Employee
	shiftMap           map[uuid.UUID]*model.ShiftInstance
	assignmentsByEmp   map[uuid.UUID][]*model.Assignment
	assignmentsByShift map[uuid.UUID][]*model.Assignment
}

// NewContext 创建新的排班上下文
func NewContext(startDate, endDate string) *Context {
	return &Context{
		StartDate:          startDate,
		EndDate:            endDate,
		Employees:          make([]*model.Employee, 0),
		Shifts:             make([]*model.ShiftInstance, 0),
		Assignments:        make([]*model.Assignment, 0),
		employeeMap:        make(map[uuid.UUID]*model.Employee),
		shiftMap:           make(map[uuid.UUID]*model.ShiftInstance),
		assignmentsByEmp:   make(map[uuid.UUID][]*model.Assignment),
		assignmentsByShift: make(map[uuid.UUID][]*model.Assignment),
	}
}

// SetEmployees 设置员工列表（按ID稳定排序，保证求解结果可复现）
func (c *Context) SetEmployees(employees []*model.Employee) {
	sorted := make([]*model.Employee, len(employees))
	copy(sorted, employees)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	c.Employees = sorted
	c.employeeMap = make(map[uuid.UUID]*model.Employee, len(sorted))
	for _, e := range sorted {
		c.employeeMap[e.ID] = e
	}
}

// SetShifts 设置班次实例列表（按日期、开始时间、ID稳定排序）
func (c *Context) SetShifts(shifts []*model.ShiftInstance) {
	sorted := make([]*model.ShiftInstance, len(shifts))
	copy(sorted, shifts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	c.Shifts = sorted
	c.shiftMap = make(map[uuid.UUID]*model.ShiftInstance, len(sorted))
	for _, s := range sorted {
		c.shiftMap[s.ID] = s
	}
}

// SetAssignments 设置排班分配
func (c *Context) SetAssignments(assignments []*model.Assignment) {
	c.Assignments = assignments
	c.rebuildAssignmentIndexes()
}

// AddAssignment 添加排班分配
func (c *Context) AddAssignment(a *model.Assignment) {
	c.Assignments = append(c.Assignments, a)
	c.assignmentsByEmp[a.EmployeeID] = append(c.assignmentsByEmp[a.EmployeeID], a)
	c.assignmentsByShift[a.ShiftID] = append(c.assignmentsByShift[a.ShiftID], a)
}

// RemoveLastAssignment 移除最近添加的分配（搜索回溯使用）
func (c *Context) RemoveLastAssignment() *model.Assignment {
	if len(c.Assignments) == 0 {
		return nil
	}
	a := c.Assignments[len(c.Assignments)-1]
	c.Assignments = c.Assignments[:len(c.Assignments)-1]

	byEmp := c.assignmentsByEmp[a.EmployeeID]
	c.assignmentsByEmp[a.EmployeeID] = byEmp[:len(byEmp)-1]
	byShift := c.assignmentsByShift[a.ShiftID]
	c.assignmentsByShift[a.ShiftID] = byShift[:len(byShift)-1]

	return a
}

// rebuildAssignmentIndexes 重建分配索引
func (c *Context) rebuildAssignmentIndexes() {
	c.assignmentsByEmp = make(map[uuid.UUID][]*model.Assignment)
	c.assignmentsByShift = make(map[uuid.UUID][]*model.Assignment)
	for _, a := range c.Assignments {
		c.assignmentsByEmp[a.EmployeeID] = append(c.assignmentsByEmp[a.EmployeeID], a)
		c.assignmentsByShift[a.ShiftID] = append(c.assignmentsByShift[a.ShiftID], a)
	}
}

// GetEmployee 获取员工
func (c *Context) GetEmployee(id uuid.UUID) *model.Employee {
	return c.employeeMap[id]
}

// GetShift 获取班次实例
func (c *Context) GetShift(id uuid.UUID) *model.ShiftInstance {
	return c.shiftMap[id]
}

// GetEmployeeAssignments 获取员工的所有排班
func (c *Context) GetEmployeeAssignments(empID uuid.UUID) []*model.Assignment {
	return c.assignmentsByEmp[empID]
}

// GetShiftAssignments 获取某班次实例的所有排班
func (c *Context) GetShiftAssignments(shiftID uuid.UUID) []*model.Assignment {
	return c.assignmentsByShift[shiftID]
}

// GetShiftHeadcount 获取某班次实例的已分配人数
func (c *Context) GetShiftHeadcount(shiftID uuid.UUID) int {
	return len(c.assignmentsByShift[shiftID])
}

// GetEmployeeHours 获取员工在整个排班周期内的工作时长
func (c *Context) GetEmployeeHours(empID uuid.UUID) float64 {
	var hours float64
	for _, a := range c.assignmentsByEmp[empID] {
		hours += a.WorkingHours()
	}
	return hours
}

// GetEmployeeWeekendShifts 获取员工的周末班次数
func (c *Context) GetEmployeeWeekendShifts(empID uuid.UUID) int {
	count := 0
	for _, a := range c.assignmentsByEmp[empID] {
		if model.IsWeekend(a.Date) {
			count++
		}
	}
	return count
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
}

package builtin

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

func TestHourBoundsConstraint_Evaluate(t *testing.T) {
	tests := []struct {
		name        string
		maxHours    float64
		minHours    float64
		assignments []*model.Assignment
		wantValid   bool
	}{
		{
			name:        "无分配且无下限，应通过",
			maxHours:    40,
			assignments: nil,
			wantValid:   true,
		},
		{
			name:     "工时未超限，应通过",
			maxHours: 40,
			assignments: []*model.Assignment{
				createAssignmentWithTime("2026-03-02", "09:00", "17:00"),
			},
			wantValid: true,
		},
		{
			name:     "工时超上限，应失败",
			maxHours: 8,
			assignments: []*model.Assignment{
				createAssignmentWithTime("2026-03-02", "08:00", "14:00"),
				createAssignmentWithTime("2026-03-02", "16:00", "22:00"),
			},
			wantValid: false,
		},
		{
			name:     "工时低于下限，应失败",
			maxHours: 40,
			minHours: 20,
			assignments: []*model.Assignment{
				createAssignmentWithTime("2026-03-02", "09:00", "13:00"),
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewHourBoundsConstraint()
			ctx := createTestContext(tt.assignments)
			ctx.Employees[0].MaxHours = tt.maxHours
			ctx.Employees[0].MinHours = tt.minHours

			valid, penalty, _ := c.Evaluate(ctx)

			if valid != tt.wantValid {
				t.Errorf("Evaluate() valid = %v, want %v", valid, tt.wantValid)
			}
			if !tt.wantValid && penalty == 0 {
				t.Error("违反时应有惩罚值")
			}
		})
	}
}

func TestHourBoundsConstraint_EvaluateAssignment(t *testing.T) {
	c := NewHourBoundsConstraint()

	// 已有6小时分配，上限10小时
	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-03-02", "08:00", "14:00"),
	})
	emp := ctx.Employees[0]
	emp.MaxHours = 10

	// 新增4小时（总10小时）应通过
	ok4 := createAssignmentWithTime("2026-03-03", "16:00", "20:00")
	ok4.EmployeeID = emp.ID
	valid, penalty := c.EvaluateAssignment(ctx, ok4)
	if !valid || penalty != 0 {
		t.Errorf("10小时未超限应通过，got valid=%v, penalty=%d", valid, penalty)
	}

	// 新增6小时（总12小时）应失败
	over6 := createAssignmentWithTime("2026-03-03", "16:00", "22:00")
	over6.EmployeeID = emp.ID
	valid, penalty = c.EvaluateAssignment(ctx, over6)
	if valid || penalty == 0 {
		t.Errorf("12小时超限应失败，got valid=%v, penalty=%d", valid, penalty)
	}
}

func TestMinRestConstraint(t *testing.T) {
	c := NewMinRestConstraint(8)

	// 两个班次仅隔2小时
	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-03-02", "08:00", "16:00"),
		createAssignmentWithTime("2026-03-02", "18:00", "22:00"),
	})

	valid, penalty, violations := c.Evaluate(ctx)
	if valid {
		t.Error("2小时间隔少于8小时，应失败")
	}
	if penalty == 0 {
		t.Error("应有惩罚值")
	}
	if len(violations) != 1 {
		t.Errorf("应有1条违反详情，got %d", len(violations))
	}

	// 间隔充足的排班应通过
	ctx2 := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-03-02", "08:00", "16:00"),
		createAssignmentWithTime("2026-03-03", "08:00", "16:00"),
	})
	valid, _, _ = c.Evaluate(ctx2)
	if !valid {
		t.Error("16小时间隔应通过")
	}
}

func TestMinRestConstraint_EvaluateAssignment(t *testing.T) {
	c := NewMinRestConstraint(8)

	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-03-02", "08:00", "16:00"),
	})
	empID := ctx.Employees[0].ID

	// 间隔2小时应失败
	tooClose := createAssignmentWithTime("2026-03-02", "18:00", "22:00")
	tooClose.EmployeeID = empID
	if valid, _ := c.EvaluateAssignment(ctx, tooClose); valid {
		t.Error("间隔2小时应失败")
	}

	// 次日同时段间隔16小时应通过
	nextDay := createAssignmentWithTime("2026-03-03", "08:00", "16:00")
	nextDay.EmployeeID = empID
	if valid, _ := c.EvaluateAssignment(ctx, nextDay); !valid {
		t.Error("间隔16小时应通过")
	}
}

func TestNoDoubleBookingConstraint(t *testing.T) {
	c := NewNoDoubleBookingConstraint()

	ctx := createTestContext([]*model.Assignment{
		createAssignmentWithTime("2026-03-02", "08:00", "16:00"),
		createAssignmentWithTime("2026-03-02", "12:00", "20:00"),
	})

	valid, _, violations := c.Evaluate(ctx)
	if valid {
		t.Error("重叠班次应失败")
	}
	if len(violations) == 0 {
		t.Error("应有违反详情")
	}

	empID := ctx.Employees[0].ID
	overlap := createAssignmentWithTime("2026-03-02", "10:00", "14:00")
	overlap.EmployeeID = empID
	if valid, _ := c.EvaluateAssignment(ctx, overlap); valid {
		t.Error("与现有班次重叠应失败")
	}
}

func TestQualificationConstraint(t *testing.T) {
	c := NewQualificationConstraint()

	ctx := createTestContext(nil)
	emp := ctx.Employees[0]
	emp.Qualifications = []string{"first_aid"}

	shift := createShift("2026-03-02", "09:00", "17:00")
	shift.RequiredQualifications = []string{"first_aid", "forklift"}
	ctx.SetShifts([]*model.ShiftInstance{shift})

	a := createAssignmentWithTime("2026-03-02", "09:00", "17:00")
	a.EmployeeID = emp.ID
	a.ShiftID = shift.ID

	valid, penalty := c.EvaluateAssignment(ctx, a)
	if valid {
		t.Error("缺少 forklift 资质应失败")
	}
	if penalty != c.Weight() {
		t.Errorf("缺1项资质惩罚应为 %d，got %d", c.Weight(), penalty)
	}

	// 补齐资质后应通过
	emp.Qualifications = []string{"first_aid", "forklift"}
	if valid, _ := c.EvaluateAssignment(ctx, a); !valid {
		t.Error("资质齐全应通过")
	}
}

func TestAvailabilityConstraint(t *testing.T) {
	c := NewAvailabilityConstraint()

	ctx := createTestContext(nil)
	emp := ctx.Employees[0]
	// 仅周一 09:00-17:00 可用（2026-03-02 是周一）
	emp.Availability = map[time.Weekday][]model.TimeWindow{
		time.Monday: {{Start: "09:00", End: "17:00"}},
	}

	inside := createAssignmentWithTime("2026-03-02", "10:00", "14:00")
	inside.EmployeeID = emp.ID
	if valid, _ := c.EvaluateAssignment(ctx, inside); !valid {
		t.Error("班次在可用窗口内应通过")
	}

	outside := createAssignmentWithTime("2026-03-02", "18:00", "22:00")
	outside.EmployeeID = emp.ID
	if valid, _ := c.EvaluateAssignment(ctx, outside); valid {
		t.Error("班次在可用窗口外应失败")
	}

	// 周二无可用窗口
	tuesday := createAssignmentWithTime("2026-03-03", "10:00", "14:00")
	tuesday.EmployeeID = emp.ID
	if valid, _ := c.EvaluateAssignment(ctx, tuesday); valid {
		t.Error("当天无可用窗口应失败")
	}
}

func TestCoverageBoundsConstraint(t *testing.T) {
	c := NewCoverageBoundsConstraint()

	ctx := createTestContext(nil)
	emp := ctx.Employees[0]

	shift := createShift("2026-03-02", "09:00", "17:00")
	shift.MinHeadcount = 2
	shift.MaxHeadcount = 3
	ctx.SetShifts([]*model.ShiftInstance{shift})

	// 仅1人分配，低于最少2人
	a := createAssignmentWithTime("2026-03-02", "09:00", "17:00")
	a.EmployeeID = emp.ID
	a.ShiftID = shift.ID
	ctx.SetAssignments([]*model.Assignment{a})

	valid, _, violations := c.Evaluate(ctx)
	if valid {
		t.Error("人数不足应失败")
	}
	if len(violations) != 1 {
		t.Errorf("应有1条违反详情，got %d", len(violations))
	}

	// 上限检查：已满员时追加分配应失败
	shift.MaxHeadcount = 1
	extra := createAssignmentWithTime("2026-03-02", "09:00", "17:00")
	extra.ShiftID = shift.ID
	if valid, _ := c.EvaluateAssignment(ctx, extra); valid {
		t.Error("超过人数上限应失败")
	}
}

func TestShiftTypePreferenceConstraint(t *testing.T) {
	c := NewShiftTypePreferenceConstraint(50)

	ctx := createTestContext(nil)
	emp := ctx.Employees[0]
	emp.Preferences = &model.EmployeePreferences{
		PreferredShiftTypes: []string{"morning"},
	}

	shift := createShift("2026-03-02", "18:00", "22:00")
	shift.ShiftType = "evening"
	ctx.SetShifts([]*model.ShiftInstance{shift})

	a := createAssignmentWithTime("2026-03-02", "18:00", "22:00")
	a.EmployeeID = emp.ID
	a.ShiftID = shift.ID

	// 非偏好类型不判违反，但产生惩罚
	valid, penalty := c.EvaluateAssignment(ctx, a)
	if !valid {
		t.Error("软约束不应判违反")
	}
	if penalty != 50 {
		t.Errorf("惩罚应为50，got %d", penalty)
	}

	// 未声明偏好的员工无惩罚
	emp.Preferences = nil
	if _, penalty := c.EvaluateAssignment(ctx, a); penalty != 0 {
		t.Errorf("无偏好声明应无惩罚，got %d", penalty)
	}
}

func TestWorkloadBalanceConstraint(t *testing.T) {
	c := NewWorkloadBalanceConstraint(10)

	ctx := constraint.NewContext("2026-03-02", "2026-03-08")
	emp1 := createEmployee("员工甲")
	emp2 := createEmployee("员工乙")
	ctx.SetEmployees([]*model.Employee{emp1, emp2})

	// 甲16小时，乙0小时，不均衡
	a1 := createAssignmentWithTime("2026-03-02", "08:00", "16:00")
	a1.EmployeeID = emp1.ID
	a2 := createAssignmentWithTime("2026-03-03", "08:00", "16:00")
	a2.EmployeeID = emp1.ID
	ctx.SetAssignments([]*model.Assignment{a1, a2})

	_, penalty, _ := c.Evaluate(ctx)
	if penalty == 0 {
		t.Error("不均衡分配应有惩罚")
	}

	// 各8小时，完全均衡
	a2.EmployeeID = emp2.ID
	ctx.SetAssignments([]*model.Assignment{a1, a2})
	valid, penalty, _ := c.Evaluate(ctx)
	if !valid || penalty != 0 {
		t.Errorf("均衡分配应无惩罚，got valid=%v, penalty=%d", valid, penalty)
	}
}

func TestWeekendBalanceConstraint(t *testing.T) {
	c := NewWeekendBalanceConstraint(10)

	ctx := constraint.NewContext("2026-03-02", "2026-03-08")
	emp1 := createEmployee("员工甲")
	emp2 := createEmployee("员工乙")
	ctx.SetEmployees([]*model.Employee{emp1, emp2})

	// 甲承担两个周末班（2026-03-07 周六、2026-03-08 周日）
	a1 := createAssignmentWithTime("2026-03-07", "08:00", "16:00")
	a1.EmployeeID = emp1.ID
	a2 := createAssignmentWithTime("2026-03-08", "08:00", "16:00")
	a2.EmployeeID = emp1.ID
	ctx.SetAssignments([]*model.Assignment{a1, a2})

	_, penalty, _ := c.Evaluate(ctx)
	if penalty == 0 {
		t.Error("周末班次集中在一人应有惩罚")
	}
}

// 辅助函数

func createTestContext(assignments []*model.Assignment) *constraint.Context {
	ctx := constraint.NewContext("2026-03-02", "2026-03-08")

	emp := createEmployee("测试员工")
	ctx.SetEmployees([]*model.Employee{emp})

	for _, a := range assignments {
		a.EmployeeID = emp.ID
	}

	ctx.SetAssignments(assignments)
	return ctx
}

func createEmployee(name string) *model.Employee {
	return &model.Employee{
		BaseModel: model.BaseModel{ID: uuid.New()},
		Name:      name,
		Status:    "active",
	}
}

func createShift(date, start, end string) *model.ShiftInstance {
	startTime, _ := time.Parse("2006-01-02 15:04", date+" "+start)
	endTime, _ := time.Parse("2006-01-02 15:04", date+" "+end)

	return &model.ShiftInstance{
		ID:           uuid.New(),
		Date:         date,
		StartTime:    startTime,
		EndTime:      endTime,
		ShiftType:    "morning",
		MinHeadcount: 1,
		MaxHeadcount: 1,
	}
}

func createAssignmentWithTime(date, start, end string) *model.Assignment {
	startTime, _ := time.Parse("2006-01-02 15:04", date+" "+start)
	endTime, _ := time.Parse("2006-01-02 15:04", date+" "+end)

	return &model.Assignment{
		BaseModel: model.BaseModel{ID: uuid.New()},
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    "proposed",
	}
}

package constraint

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
)

func TestManager_Register(t *testing.T) {
	manager := NewManager()

	c := &MockConstraint{
		name:     "test",
		typ:      Type("test_type"),
		category: CategoryHard,
	}
	manager.Register(c)

	constraints := manager.GetAll()
	if len(constraints) != 1 {
		t.Errorf("Expected 1 constraint, got %d", len(constraints))
	}
}

func TestManager_Register_ReplacesSameType(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "old", typ: Type("dup"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "new", typ: Type("dup"), category: CategoryHard})

	if manager.Count() != 1 {
		t.Fatalf("Expected replacement, got %d constraints", manager.Count())
	}
	if manager.GetConstraint(Type("dup")).Name() != "new" {
		t.Error("Expected the newer constraint to win")
	}
}

func TestManager_Register_Ordering(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "soft_low", typ: Type("s1"), category: CategorySoft, weight: 10})
	manager.Register(&MockConstraint{name: "hard", typ: Type("h1"), category: CategoryHard, weight: 50})
	manager.Register(&MockConstraint{name: "soft_high", typ: Type("s2"), category: CategorySoft, weight: 90})

	all := manager.GetAll()
	if all[0].Name() != "hard" {
		t.Errorf("Expected hard constraint first, got %s", all[0].Name())
	}
	if all[1].Name() != "soft_high" || all[2].Name() != "soft_low" {
		t.Error("Expected soft constraints ordered by weight desc")
	}
}

func TestManager_GetByCategory(t *testing.T) {
	manager := NewManager()

	hard := &MockConstraint{name: "hard1", typ: Type("hard1"), category: CategoryHard}
	soft := &MockConstraint{name: "soft1", typ: Type("soft1"), category: CategorySoft}
	manager.Register(hard)
	manager.Register(soft)

	hardConstraints := manager.GetByCategory(CategoryHard)
	if len(hardConstraints) != 1 {
		t.Errorf("Expected 1 hard constraint, got %d", len(hardConstraints))
	}

	softConstraints := manager.GetByCategory(CategorySoft)
	if len(softConstraints) != 1 {
		t.Errorf("Expected 1 soft constraint, got %d", len(softConstraints))
	}
}

func TestManager_Evaluate(t *testing.T) {
	manager := NewManager()

	// 注册一个通过的约束
	pass := &MockConstraint{
		name:     "pass",
		typ:      Type("pass_type"),
		category: CategoryHard,
		pass:     true,
	}
	manager.Register(pass)

	ctx := NewContext("2026-01-11", "2026-01-17")

	result := manager.Evaluate(ctx)

	if !result.IsValid {
		t.Error("Expected valid result")
	}
	if result.TotalPenalty != 0 {
		t.Errorf("Expected 0 penalty, got %d", result.TotalPenalty)
	}
}

func TestManager_Evaluate_HardViolationInvalidates(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "hard_fail", typ: Type("hf"), category: CategoryHard, penalty: 1000})
	manager.Register(&MockConstraint{name: "soft_fail", typ: Type("sf"), category: CategorySoft, penalty: 30})

	result := manager.Evaluate(NewContext("2026-01-11", "2026-01-17"))

	if result.IsValid {
		t.Error("Expected invalid result on hard violation")
	}
	if len(result.HardViolations) != 1 || len(result.SoftViolations) != 1 {
		t.Errorf("Expected 1 hard + 1 soft violation, got %d/%d",
			len(result.HardViolations), len(result.SoftViolations))
	}
	if result.TotalPenalty != 1030 {
		t.Errorf("Expected accumulated penalty 1030, got %d", result.TotalPenalty)
	}
}

func TestManager_FirstHardViolation(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "blocking", typ: Type("blocking"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft, pass: true})

	ctx := NewContext("2026-01-11", "2026-01-17")
	a := &model.Assignment{EmployeeID: uuid.New(), ShiftID: uuid.New(), Date: "2026-01-12"}

	typ, violated := manager.FirstHardViolation(ctx, a)
	if !violated {
		t.Fatal("Expected a hard violation")
	}
	if typ != Type("blocking") {
		t.Errorf("Expected blocking type, got %s", typ)
	}

	manager.Clear()
	manager.Register(&MockConstraint{name: "ok", typ: Type("ok"), category: CategoryHard, pass: true})
	if _, violated := manager.FirstHardViolation(ctx, a); violated {
		t.Error("Expected no violation when all hard constraints pass")
	}
}

func TestManager_CanAssign(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "reject", typ: Type("reject"), category: CategoryHard})

	ctx := NewContext("2026-01-11", "2026-01-17")
	ok, reason := manager.CanAssign(ctx, &model.Assignment{})
	if ok {
		t.Error("Expected assignment to be rejected")
	}
	if reason == "" {
		t.Error("Expected a rejection reason")
	}
}

func TestManager_GetPenalty(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "s1", typ: Type("s1"), category: CategorySoft, pass: true, penalty: 15})
	manager.Register(&MockConstraint{name: "h1", typ: Type("h1"), category: CategoryHard, penalty: 999})

	// 只累计软约束的惩罚
	ctx := NewContext("2026-01-11", "2026-01-17")
	if p := manager.GetPenalty(ctx, &model.Assignment{}); p != 15 {
		t.Errorf("Expected soft penalty 15, got %d", p)
	}
}

func TestManager_Clear(t *testing.T) {
	manager := NewManager()

	manager.Register(&MockConstraint{name: "test", typ: Type("test"), category: CategoryHard})
	manager.Clear()

	if len(manager.GetAll()) != 0 {
		t.Error("Expected 0 constraints after clear")
	}
}

func TestManager_Count(t *testing.T) {
	manager := NewManager()

	if manager.Count() != 0 {
		t.Error("Expected 0 count for empty manager")
	}

	manager.Register(&MockConstraint{name: "c1", typ: Type("c1"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "c2", typ: Type("c2"), category: CategorySoft})

	if manager.Count() != 2 {
		t.Errorf("Expected 2 count, got %d", manager.Count())
	}
}

func TestContext_SortedInputs(t *testing.T) {
	ctx := NewContext("2026-01-11", "2026-01-17")

	s1 := &model.ShiftInstance{ID: uuid.New(), Date: "2026-01-13"}
	s2 := &model.ShiftInstance{ID: uuid.New(), Date: "2026-01-11"}
	s3 := &model.ShiftInstance{ID: uuid.New(), Date: "2026-01-12"}
	ctx.SetShifts([]*model.ShiftInstance{s1, s2, s3})

	dates := []string{ctx.Shifts[0].Date, ctx.Shifts[1].Date, ctx.Shifts[2].Date}
	if dates[0] != "2026-01-11" || dates[1] != "2026-01-12" || dates[2] != "2026-01-13" {
		t.Errorf("Expected shifts sorted by date, got %v", dates)
	}
}

func TestContext_AssignmentIndexes(t *testing.T) {
	ctx := NewContext("2026-01-11", "2026-01-17")

	empID := uuid.New()
	shiftID := uuid.New()
	start, _ := time.Parse("2006-01-02 15:04", "2026-01-12 09:00")
	end, _ := time.Parse("2006-01-02 15:04", "2026-01-12 17:00")
	a := &model.Assignment{
		EmployeeID: empID,
		ShiftID:    shiftID,
		Date:       "2026-01-12",
		StartTime:  start,
		EndTime:    end,
	}

	ctx.AddAssignment(a)

	if len(ctx.GetEmployeeAssignments(empID)) != 1 {
		t.Error("Expected 1 assignment for employee")
	}
	if ctx.GetShiftHeadcount(shiftID) != 1 {
		t.Error("Expected headcount 1")
	}
	if hours := ctx.GetEmployeeHours(empID); hours != 8.0 {
		t.Errorf("Expected 8 hours, got %f", hours)
	}

	removed := ctx.RemoveLastAssignment()
	if removed != a {
		t.Error("Expected the same assignment back")
	}
	if ctx.GetShiftHeadcount(shiftID) != 0 {
		t.Error("Expected headcount 0 after backtrack")
	}
}

func TestContext_WeekendShifts(t *testing.T) {
	ctx := NewContext("2026-01-05", "2026-01-11")

	empID := uuid.New()
	// 2026-01-10 周六, 2026-01-07 周三
	ctx.AddAssignment(&model.Assignment{EmployeeID: empID, ShiftID: uuid.New(), Date: "2026-01-10"})
	ctx.AddAssignment(&model.Assignment{EmployeeID: empID, ShiftID: uuid.New(), Date: "2026-01-07"})

	if n := ctx.GetEmployeeWeekendShifts(empID); n != 1 {
		t.Errorf("Expected 1 weekend shift, got %d", n)
	}
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	weight   int
	pass     bool
	penalty  int
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Weight() int {
	if m.weight == 0 {
		return 100
	}
	return m.weight
}

func (m *MockConstraint) Evaluate(ctx *Context) (bool, int, []ViolationDetail) {
	if m.pass {
		return true, 0, nil
	}
	return false, m.penalty, []ViolationDetail{
		{ConstraintName: m.name, Message: "违反约束", Penalty: m.penalty},
	}
}

func (m *MockConstraint) EvaluateAssignment(ctx *Context, assignment *model.Assignment) (bool, int) {
	return m.pass, m.penalty
}

package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint/builtin"
)

// TestOptimize_ResolvesDoubleBooking 重复排班的方案应被换人修复
func TestOptimize_ResolvesDoubleBooking(t *testing.T) {
	empA := newOptEmployee("张三", 40)
	empB := newOptEmployee("李四", 40)
	shift1 := newOptShift("2026-03-02", "09:00", "17:00", 1, 1)
	shift2 := newOptShift("2026-03-02", "09:00", "17:00", 1, 1)

	// 两个同时段班次都排给了张三
	initial := []*model.Assignment{
		newOptAssignment(empA, shift1),
		newOptAssignment(empA, shift2),
	}

	schedCtx := newOptContext(
		[]*model.Employee{empA, empB},
		[]*model.ShiftInstance{shift1, shift2},
	)
	opt := newOptOptimizer(schedCtx, nil)

	result, err := opt.Optimize(context.Background(), schedCtx, initial)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}
	if !result.Feasible {
		t.Errorf("优化后应消除硬约束违反, hard_violations=%d", result.HardViolations)
	}
	if len(result.Assignments) != 2 {
		t.Fatalf("期望 2 个分配, got %d", len(result.Assignments))
	}
	if result.Assignments[0].EmployeeID == result.Assignments[1].EmployeeID {
		t.Error("两个同时段班次不应分给同一员工")
	}

	diff := Diff(initial, result.Assignments, schedCtx.Shifts)
	if diff.Changed != 1 || diff.Added != 0 || diff.Removed != 0 {
		t.Errorf("期望恰好一次换人, got added=%d removed=%d changed=%d",
			diff.Added, diff.Removed, diff.Changed)
	}
}

// TestOptimize_CleanScheduleZeroDiff 无冲突方案重新优化应零变化
func TestOptimize_CleanScheduleZeroDiff(t *testing.T) {
	empA := newOptEmployee("张三", 40)
	empB := newOptEmployee("李四", 40)
	shift := newOptShift("2026-03-02", "09:00", "17:00", 1, 1)

	initial := []*model.Assignment{newOptAssignment(empA, shift)}

	schedCtx := newOptContext(
		[]*model.Employee{empA, empB},
		[]*model.ShiftInstance{shift},
	)
	opt := newOptOptimizer(schedCtx, nil)

	result, err := opt.Optimize(context.Background(), schedCtx, initial)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}
	if !result.Feasible {
		t.Error("无冲突方案优化后应依然可行")
	}

	diff := Diff(initial, result.Assignments, schedCtx.Shifts)
	if !diff.IsZero() {
		t.Errorf("无冲突方案不应产生变化, got added=%d removed=%d changed=%d",
			diff.Added, diff.Removed, diff.Changed)
	}
	if diff.CoverageBefore != 100.0 || diff.CoverageAfter != 100.0 {
		t.Errorf("覆盖率应保持 100%%, got before=%.1f after=%.1f",
			diff.CoverageBefore, diff.CoverageAfter)
	}
}

// TestOptimize_InsertFillsShortfall 欠员班次应通过插入补足
func TestOptimize_InsertFillsShortfall(t *testing.T) {
	empA := newOptEmployee("张三", 40)
	empB := newOptEmployee("李四", 40)
	shift := newOptShift("2026-03-02", "09:00", "17:00", 2, 2)

	// 需要两人的班次只排了一人
	initial := []*model.Assignment{newOptAssignment(empA, shift)}

	schedCtx := newOptContext(
		[]*model.Employee{empA, empB},
		[]*model.ShiftInstance{shift},
	)
	opt := newOptOptimizer(schedCtx, nil)

	result, err := opt.Optimize(context.Background(), schedCtx, initial)
	if err != nil {
		t.Fatalf("优化失败: %v", err)
	}
	if !result.Feasible {
		t.Errorf("补足人数后应可行, hard_violations=%d", result.HardViolations)
	}
	if len(result.Assignments) != 2 {
		t.Fatalf("期望补足到 2 个分配, got %d", len(result.Assignments))
	}

	diff := Diff(initial, result.Assignments, schedCtx.Shifts)
	if diff.Added != 1 || diff.Removed != 0 || diff.Changed != 0 {
		t.Errorf("期望恰好新增一个分配, got added=%d removed=%d changed=%d",
			diff.Added, diff.Removed, diff.Changed)
	}
	if diff.CoverageBefore != 50.0 || diff.CoverageAfter != 100.0 {
		t.Errorf("覆盖率应从 50%% 提升到 100%%, got before=%.1f after=%.1f",
			diff.CoverageBefore, diff.CoverageAfter)
	}
}

// TestOptimize_Deterministic 相同输入两次优化应得到相同方案
func TestOptimize_Deterministic(t *testing.T) {
	empA := newOptEmployee("张三", 40)
	empB := newOptEmployee("李四", 40)
	shift1 := newOptShift("2026-03-02", "09:00", "17:00", 1, 1)
	shift2 := newOptShift("2026-03-02", "09:00", "17:00", 1, 1)

	initial := []*model.Assignment{
		newOptAssignment(empA, shift1),
		newOptAssignment(empA, shift2),
	}

	schedCtx := newOptContext(
		[]*model.Employee{empA, empB},
		[]*model.ShiftInstance{shift1, shift2},
	)

	first, err := newOptOptimizer(schedCtx, nil).Optimize(context.Background(), schedCtx, initial)
	if err != nil {
		t.Fatalf("第一次优化失败: %v", err)
	}
	second, err := newOptOptimizer(schedCtx, nil).Optimize(context.Background(), schedCtx, initial)
	if err != nil {
		t.Fatalf("第二次优化失败: %v", err)
	}

	if hashAssignments(first.Assignments) != hashAssignments(second.Assignments) {
		t.Error("两次优化的分配集合应完全一致")
	}
	if first.Objective != second.Objective {
		t.Errorf("两次优化的目标值应一致: %d vs %d", first.Objective, second.Objective)
	}
}

// TestOptimize_Cancelled 取消的上下文应返回取消错误
func TestOptimize_Cancelled(t *testing.T) {
	empA := newOptEmployee("张三", 40)
	shift := newOptShift("2026-03-02", "09:00", "17:00", 1, 1)
	initial := []*model.Assignment{newOptAssignment(empA, shift)}

	schedCtx := newOptContext([]*model.Employee{empA}, []*model.ShiftInstance{shift})
	opt := newOptOptimizer(schedCtx, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := opt.Optimize(ctx, schedCtx, initial)
	if errors.GetCode(err) != errors.CodeCancelled {
		t.Errorf("期望取消错误, got %v", err)
	}
	if result == nil {
		t.Error("取消时应返回当前最优方案")
	}
}

// TestDiff 差异摘要的计数
func TestDiff(t *testing.T) {
	empA := newOptEmployee("张三", 40)
	empB := newOptEmployee("李四", 40)
	empC := newOptEmployee("王五", 40)
	shift1 := newOptShift("2026-03-02", "09:00", "17:00", 1, 2)
	shift2 := newOptShift("2026-03-03", "09:00", "17:00", 1, 2)

	tests := []struct {
		name    string
		before  []*model.Assignment
		after   []*model.Assignment
		added   int
		removed int
		changed int
	}{
		{
			name:   "完全相同",
			before: []*model.Assignment{newOptAssignment(empA, shift1)},
			after:  []*model.Assignment{newOptAssignment(empA, shift1)},
		},
		{
			name:    "同班次换人",
			before:  []*model.Assignment{newOptAssignment(empA, shift1)},
			after:   []*model.Assignment{newOptAssignment(empB, shift1)},
			changed: 1,
		},
		{
			name:   "新增分配",
			before: []*model.Assignment{newOptAssignment(empA, shift1)},
			after: []*model.Assignment{
				newOptAssignment(empA, shift1),
				newOptAssignment(empB, shift2),
			},
			added: 1,
		},
		{
			name: "移除分配",
			before: []*model.Assignment{
				newOptAssignment(empA, shift1),
				newOptAssignment(empB, shift1),
			},
			after:   []*model.Assignment{newOptAssignment(empA, shift1)},
			removed: 1,
		},
		{
			name: "换人与新增并存",
			before: []*model.Assignment{
				newOptAssignment(empA, shift1),
			},
			after: []*model.Assignment{
				newOptAssignment(empC, shift1),
				newOptAssignment(empB, shift2),
			},
			added:   1,
			changed: 1,
		},
	}

	shifts := []*model.ShiftInstance{shift1, shift2}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := Diff(tt.before, tt.after, shifts)
			if diff.Added != tt.added || diff.Removed != tt.removed || diff.Changed != tt.changed {
				t.Errorf("期望 added=%d removed=%d changed=%d, got added=%d removed=%d changed=%d",
					tt.added, tt.removed, tt.changed, diff.Added, diff.Removed, diff.Changed)
			}
		})
	}
}

// TestDiff_SetConflictCounts 冲突计数的填充
func TestDiff_SetConflictCounts(t *testing.T) {
	d := &DiffSummary{}
	d.SetConflictCounts(3, 1)
	if d.ConflictsBefore != 3 || d.ConflictsAfter != 1 || d.ConflictsResolved != 2 {
		t.Errorf("期望 before=3 after=1 resolved=2, got before=%d after=%d resolved=%d",
			d.ConflictsBefore, d.ConflictsAfter, d.ConflictsResolved)
	}

	d.SetConflictCounts(1, 2)
	if d.ConflictsResolved != 0 {
		t.Errorf("冲突数上升时 resolved 应为 0, got %d", d.ConflictsResolved)
	}
}

// TestTabuList 禁忌表的基本行为
func TestTabuList(t *testing.T) {
	tabu := NewTabuList(2)

	tabu.Add(1)
	tabu.Add(2)
	if !tabu.Contains(1) || !tabu.Contains(2) {
		t.Error("加入的键应能查到")
	}

	// 超出容量时最旧的键被淘汰
	tabu.Add(3)
	if tabu.Contains(1) {
		t.Error("超出容量后最旧的键应被淘汰")
	}
	if !tabu.Contains(2) || !tabu.Contains(3) {
		t.Error("较新的键不应被淘汰")
	}

	tabu.Clear()
	if tabu.Contains(2) || tabu.Contains(3) {
		t.Error("清空后不应查到任何键")
	}
}

// ---- 测试辅助 ----

func newOptOptimizer(schedCtx *constraint.Context, constraintConfig map[string]interface{}) *LocalSearchOptimizer {
	manager := constraint.NewManager()
	builtin.RegisterDefaultConstraints(manager, constraintConfig)
	return NewLocalSearchOptimizer(DefaultOptConfig(), NewManagerEvaluator(manager, schedCtx))
}

func newOptContext(employees []*model.Employee, shifts []*model.ShiftInstance) *constraint.Context {
	c := constraint.NewContext("2026-03-02", "2026-03-08")
	c.SetEmployees(employees)
	c.SetShifts(shifts)
	return c
}

func newOptEmployee(name string, maxHours float64) *model.Employee {
	return &model.Employee{
		BaseModel:    model.BaseModel{ID: uuid.New()},
		Name:         name,
		Status:       "active",
		Availability: optWeeklyWindows("00:00", "24:00"),
		MaxHours:     maxHours,
	}
}

func optWeeklyWindows(start, end string) map[time.Weekday][]model.TimeWindow {
	windows := make(map[time.Weekday][]model.TimeWindow)
	for d := time.Sunday; d <= time.Saturday; d++ {
		windows[d] = []model.TimeWindow{{Start: start, End: end}}
	}
	return windows
}

func newOptShift(date, start, end string, minHC, maxHC int) *model.ShiftInstance {
	startTime, _ := time.Parse("2006-01-02 15:04", date+" "+start)
	endTime, _ := time.Parse("2006-01-02 15:04", date+" "+end)

	return &model.ShiftInstance{
		ID:           uuid.New(),
		Date:         date,
		StartTime:    startTime,
		EndTime:      endTime,
		ShiftType:    "morning",
		MinHeadcount: minHC,
		MaxHeadcount: maxHC,
	}
}

func newOptAssignment(emp *model.Employee, shift *model.ShiftInstance) *model.Assignment {
	return &model.Assignment{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		EmployeeID: emp.ID,
		ShiftID:    shift.ID,
		Date:       shift.Date,
		StartTime:  shift.StartTime,
		EndTime:    shift.EndTime,
		Status:     model.AssignmentProposed,
	}
}

package scenario

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler"
	"github.com/shiftplan/shiftplan/pkg/scheduler/solver"
	"github.com/shiftplan/shiftplan/pkg/validator"
)

// TestNursingQualifiedCoverage 护理排班要求资质匹配
// 夜班必须持证护士承担，未持证的护工不得出现在夜班上。
func TestNursingQualifiedCoverage(t *testing.T) {
	nurseA := newEmployee("陈静", []string{"护士证", "给药资格"}, 40)
	nurseB := newEmployee("刘敏", []string{"护士证"}, 40)
	aide := newEmployee("孙倩", nil, 40)

	nightShift := newTemplate("夜班", "N", "22:00", "06:00", "night", 1, 1)
	nightShift.RequiredQualifications = []string{"护士证"}
	dayShift := newTemplate("日班", "D", "08:00", "16:00", "morning", 1, 2)

	store := &memoryStore{
		employees: []*model.Employee{nurseA, nurseB, aide},
		templates: []*model.ShiftTemplate{dayShift, nightShift},
	}

	engine := scheduler.New(store, nil, nil, nil)
	result, err := engine.Generate(context.Background(), &scheduler.GenerateRequest{
		StartDate: "2026-02-02",
		EndDate:   "2026-02-04",
	})
	if err != nil {
		t.Fatalf("排班执行失败: %v", err)
	}
	if result.Schedule.Status != solver.StatusOptimal && result.Schedule.Status != solver.StatusFeasible {
		t.Fatalf("应有可行解, status=%s", result.Schedule.Status)
	}

	nurses := map[uuid.UUID]bool{nurseA.ID: true, nurseB.ID: true}
	nightID := map[uuid.UUID]bool{}
	for _, day := range []string{"2026-02-02", "2026-02-03", "2026-02-04"} {
		nightID[model.InstanceID(nightShift.ID, day)] = true
	}

	for _, a := range result.Extraction.Assignments {
		if nightID[a.ShiftID] && !nurses[a.EmployeeID] {
			t.Errorf("夜班分配给了未持证员工: %s", a.EmployeeID)
		}
	}
}

// TestNursingMinRestBetweenShifts 班次间必须保证最小休息
func TestNursingMinRestBetweenShifts(t *testing.T) {
	nightShift := newTemplate("夜班", "N", "22:00", "06:00", "night", 1, 1)
	nightShift.RequiredQualifications = []string{"护士证"}
	dayShift := newTemplate("日班", "D", "08:00", "16:00", "morning", 1, 1)
	dayShift.RequiredQualifications = []string{"护士证"}

	store := &memoryStore{
		employees: []*model.Employee{
			newEmployee("陈静", []string{"护士证"}, 60),
			newEmployee("刘敏", []string{"护士证"}, 60),
		},
		templates: []*model.ShiftTemplate{dayShift, nightShift},
	}

	engine := scheduler.New(store, nil, nil, nil)
	result, err := engine.Generate(context.Background(), &scheduler.GenerateRequest{
		StartDate: "2026-02-02",
		EndDate:   "2026-02-05",
	})
	if err != nil {
		t.Fatalf("排班执行失败: %v", err)
	}

	byEmp := make(map[uuid.UUID][]*model.Assignment)
	for _, a := range result.Extraction.Assignments {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}
	for empID, assignments := range byEmp {
		for i := 0; i < len(assignments); i++ {
			for j := i + 1; j < len(assignments); j++ {
				a, b := assignments[i], assignments[j]
				if b.StartTime.Before(a.StartTime) {
					a, b = b, a
				}
				rest := b.StartTime.Sub(a.EndTime).Hours()
				if rest >= 0 && rest < 8 {
					t.Errorf("员工 %s 班次间休息不足: %.1f小时", empID, rest)
				}
			}
		}
	}
}

// TestNursingManualEditConflict 人工改班后的快速冲突检查
// 把夜班硬塞给已上日班的护士，应报休息不足。
func TestNursingManualEditConflict(t *testing.T) {
	nurse := newEmployee("陈静", []string{"护士证"}, 60)

	dayShift := newTemplate("日班", "D", "08:00", "16:00", "morning", 1, 1)
	nightShift := newTemplate("夜班", "N", "18:00", "02:00", "night", 1, 1)

	dayInstance, err := dayShift.Instantiate("2026-02-02")
	if err != nil {
		t.Fatalf("生成日班实例失败: %v", err)
	}
	nightInstance, err := nightShift.Instantiate("2026-02-02")
	if err != nil {
		t.Fatalf("生成夜班实例失败: %v", err)
	}

	existing := &model.Assignment{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		EmployeeID: nurse.ID,
		ShiftID:    dayInstance.ID,
		Date:       dayInstance.Date,
		StartTime:  dayInstance.StartTime,
		EndTime:    dayInstance.EndTime,
		Status:     model.AssignmentConfirmed,
	}
	edited := &model.Assignment{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		EmployeeID: nurse.ID,
		ShiftID:    nightInstance.ID,
		Date:       nightInstance.Date,
		StartTime:  nightInstance.StartTime,
		EndTime:    nightInstance.EndTime,
		Status:     model.AssignmentProposed,
	}

	detector := validator.NewConflictDetector(nil)
	conflicts := detector.DetectForAssignment(edited, []*model.Assignment{existing}, nurse, nightInstance)

	found := false
	for _, c := range conflicts {
		if c.Type == validator.ConflictInsufficientRest {
			found = true
		}
	}
	if !found {
		t.Errorf("16:00下班18:00又上夜班应报休息不足, got %v", conflicts)
	}
}

package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestShiftTemplateAppliesTo(t *testing.T) {
	tpl := &ShiftTemplate{
		BaseModel: NewBaseModel(),
		Name:      "早班",
		StartTime: "08:00",
		EndTime:   "16:00",
		IsActive:  true,
	}

	// 空 Weekdays 表示每天适用
	if !tpl.AppliesTo("2026-01-12") || !tpl.AppliesTo("2026-01-17") {
		t.Error("未限定星期的模板应每天适用")
	}

	tpl.Weekdays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if !tpl.AppliesTo("2026-01-12") { // 周一
		t.Error("周一应适用")
	}
	if tpl.AppliesTo("2026-01-13") { // 周二
		t.Error("周二不应适用")
	}

	tpl.IsActive = false
	if tpl.AppliesTo("2026-01-12") {
		t.Error("停用的模板不应适用")
	}
}

func TestShiftTemplateInstantiate(t *testing.T) {
	tpl := &ShiftTemplate{
		BaseModel:    NewBaseModel(),
		Name:         "早班",
		StartTime:    "08:00",
		EndTime:      "16:00",
		ShiftType:    "morning",
		MinHeadcount: 1,
		MaxHeadcount: 2,
		IsActive:     true,
	}

	instance, err := tpl.Instantiate("2026-01-12")
	if err != nil {
		t.Fatalf("生成班次实例失败: %v", err)
	}
	if instance.Date != "2026-01-12" {
		t.Errorf("日期应为 2026-01-12, got %s", instance.Date)
	}
	if got := instance.DurationHours(); got != 8 {
		t.Errorf("时长应为 8 小时, got %v", got)
	}
	if instance.TemplateID != tpl.ID {
		t.Error("实例应记录模板ID")
	}
	if instance.MinHeadcount != 1 || instance.MaxHeadcount != 2 {
		t.Error("人数上下限应从模板继承")
	}

	if _, err := tpl.Instantiate("2026/01/12"); err == nil {
		t.Error("非法日期应返回错误")
	}
}

// TestShiftTemplateInstantiateOvernight 结束不晚于开始的班次视为跨夜班
func TestShiftTemplateInstantiateOvernight(t *testing.T) {
	tpl := &ShiftTemplate{
		BaseModel: NewBaseModel(),
		Name:      "夜班",
		StartTime: "22:00",
		EndTime:   "06:00",
		ShiftType: "night",
		IsActive:  true,
	}

	instance, err := tpl.Instantiate("2026-01-12")
	if err != nil {
		t.Fatalf("生成班次实例失败: %v", err)
	}
	if !instance.EndTime.After(instance.StartTime) {
		t.Error("跨夜班的结束时间应落到次日")
	}
	if got := instance.DurationHours(); got != 8 {
		t.Errorf("22:00-06:00 时长应为 8 小时, got %v", got)
	}
	if instance.EndTime.Day() == instance.StartTime.Day() {
		t.Error("跨夜班的结束日期应为次日")
	}
}

func TestInstanceIDStable(t *testing.T) {
	templateID := uuid.New()

	a := InstanceID(templateID, "2026-01-12")
	b := InstanceID(templateID, "2026-01-12")
	if a != b {
		t.Error("同一模板+日期应派生相同的实例ID")
	}
	if a == InstanceID(templateID, "2026-01-13") {
		t.Error("不同日期应派生不同的实例ID")
	}
	if a == InstanceID(uuid.New(), "2026-01-12") {
		t.Error("不同模板应派生不同的实例ID")
	}
}

func TestShiftInstanceFlags(t *testing.T) {
	night := &ShiftInstance{Date: "2026-01-17", ShiftType: "night"} // 周六
	if !night.IsNightShift() {
		t.Error("应判为夜班")
	}
	if !night.IsWeekendShift() {
		t.Error("周六应判为周末班")
	}
	if night.Weekday() != time.Saturday {
		t.Errorf("应为周六, got %v", night.Weekday())
	}

	day := &ShiftInstance{Date: "2026-01-12", ShiftType: "morning"}
	if day.IsNightShift() || day.IsWeekendShift() {
		t.Error("周一早班既非夜班也非周末班")
	}
}

func TestAssignmentOverlaps(t *testing.T) {
	at := func(hhmm string) time.Time {
		tm, _ := time.Parse("2006-01-02 15:04", "2026-01-12 "+hhmm)
		return tm
	}
	mk := func(start, end string) *Assignment {
		return &Assignment{
			BaseModel: NewBaseModel(),
			Date:      "2026-01-12",
			StartTime: at(start),
			EndTime:   at(end),
		}
	}

	a := mk("09:00", "17:00")
	if !a.Overlaps(mk("16:00", "20:00")) {
		t.Error("时段交叠的分配应判为重叠")
	}
	if a.Overlaps(mk("17:00", "23:00")) {
		t.Error("边界相接的分配不应判为重叠")
	}
	if got := a.WorkingHours(); got != 8 {
		t.Errorf("工时应为 8, got %v", got)
	}
}

func TestShiftCoverageShortfall(t *testing.T) {
	tests := []struct {
		name     string
		required int
		assigned int
		want     int
	}{
		{"满足下限", 2, 2, 0},
		{"超出下限", 2, 3, 0},
		{"缺一人", 3, 2, 1},
		{"空班次", 2, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ShiftCoverage{Required: tt.required, Assigned: tt.assigned}
			if got := c.Shortfall(); got != tt.want {
				t.Errorf("Shortfall() = %d, want %d", got, tt.want)
			}
		})
	}
}

// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"
)

// Employee 员工（求解器视图，单次求解期间不可变）
type Employee struct {
	BaseModel
	Name   string `json:"name" db:"name"`
	Code   string `json:"code" db:"code"`
	Status string `json:"status" db:"status"` // active/inactive/leave

	// 资质集合（班次的必需资质必须是其子集）
	Qualifications []string `json:"qualifications" db:"qualifications"`

	// 按星期的可用时间窗口；缺失的星期表示当天不可用
	Availability map[time.Weekday][]TimeWindow `json:"availability" db:"availability"`

	// 排班周期内的工时上下限（小时）；MinHours 为 0 表示无下限
	MaxHours float64 `json:"max_hours" db:"max_hours"`
	MinHours float64 `json:"min_hours,omitempty" db:"min_hours"`

	// 工作偏好
	Preferences *EmployeePreferences `json:"preferences,omitempty" db:"preferences"`
}

// EmployeePreferences 员工偏好（软约束输入）
type EmployeePreferences struct {
	PreferredShiftTypes []string       `json:"preferred_shift_types,omitempty"` // 偏好班次类型
	PreferredDays       []time.Weekday `json:"preferred_days,omitempty"`        // 偏好工作日
	PreferredHours      float64        `json:"preferred_hours,omitempty"`       // 期望周期工时
}

// IsActive 检查员工是否在职
func (e *Employee) IsActive() bool {
	return e.Status == "active"
}

// HasQualification 检查员工是否具备某资质
func (e *Employee) HasQualification(q string) bool {
	for _, have := range e.Qualifications {
		if have == q {
			return true
		}
	}
	return false
}

// HasAllQualifications 检查员工资质是否覆盖全部需求
func (e *Employee) HasAllQualifications(required []string) bool {
	for _, q := range required {
		if !e.HasQualification(q) {
			return false
		}
	}
	return true
}

// AvailableFor 检查员工在指定日期是否可以承担 [start, end) 时段的班次
// 跨午夜班次拆成当日与次日两段，分别检查对应星期的时间窗口。
func (e *Employee) AvailableFor(date, start, end string) bool {
	weekday, ok := WeekdayOf(date)
	if !ok {
		return false
	}
	if coveredBy(e.Availability[weekday], start, end) {
		return true
	}

	s, ok1 := minuteOfDay(start)
	t, ok2 := minuteOfDay(end)
	if !ok1 || !ok2 || t > s {
		return false
	}
	if !coveredBy(e.Availability[weekday], start, "24:00") {
		return false
	}
	if t == 0 {
		// 班次恰好在午夜结束，不占用次日时段
		return true
	}
	next := (weekday + 1) % 7
	return coveredBy(e.Availability[next], "00:00", end)
}

// coveredBy 检查任一时间窗口是否完整包含 [start, end) 时段
func coveredBy(windows []TimeWindow, start, end string) bool {
	for _, w := range windows {
		if w.Covers(start, end) {
			return true
		}
	}
	return false
}

// PrefersShiftType 检查员工是否声明了对某班次类型的偏好
// 第二个返回值表示员工是否声明过任何班次类型偏好
func (e *Employee) PrefersShiftType(shiftType string) (bool, bool) {
	if e.Preferences == nil || len(e.Preferences.PreferredShiftTypes) == 0 {
		return false, false
	}
	for _, t := range e.Preferences.PreferredShiftTypes {
		if t == shiftType {
			return true, true
		}
	}
	return false, true
}

// PrefersDay 检查员工是否偏好某工作日
// 第二个返回值表示员工是否声明过任何工作日偏好
func (e *Employee) PrefersDay(day time.Weekday) (bool, bool) {
	if e.Preferences == nil || len(e.Preferences.PreferredDays) == 0 {
		return false, false
	}
	for _, d := range e.Preferences.PreferredDays {
		if d == day {
			return true, true
		}
	}
	return false, true
}

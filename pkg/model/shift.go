// Package model 定义排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ShiftTemplate 班次模板（周期性定义）
type ShiftTemplate struct {
	BaseModel
	Name      string `json:"name" db:"name"`
	Code      string `json:"code" db:"code"`
	StartTime string `json:"start_time" db:"start_time"` // HH:MM
	EndTime   string `json:"end_time" db:"end_time"`     // HH:MM
	ShiftType string `json:"shift_type" db:"shift_type"` // morning/afternoon/evening/night

	// 适用星期；为空表示每天适用
	Weekdays []time.Weekday `json:"weekdays,omitempty" db:"weekdays"`

	// 必需资质
	RequiredQualifications []string `json:"required_qualifications,omitempty" db:"required_qualifications"`

	// 人数上下限
	MinHeadcount int `json:"min_headcount" db:"min_headcount"`
	MaxHeadcount int `json:"max_headcount" db:"max_headcount"`

	IsActive bool `json:"is_active" db:"is_active"`
}

// AppliesTo 检查模板在指定日期是否适用
func (t *ShiftTemplate) AppliesTo(date string) bool {
	if !t.IsActive {
		return false
	}
	if len(t.Weekdays) == 0 {
		return true
	}
	weekday, ok := WeekdayOf(date)
	if !ok {
		return false
	}
	for _, wd := range t.Weekdays {
		if wd == weekday {
			return true
		}
	}
	return false
}

// Instantiate 在指定日期生成班次实例
// 结束时间不晚于开始时间的班次视为跨夜班，结束时间落到次日。
func (t *ShiftTemplate) Instantiate(date string) (*ShiftInstance, error) {
	start, err := time.Parse("2006-01-02 15:04", date+" "+t.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse("2006-01-02 15:04", date+" "+t.EndTime)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	return &ShiftInstance{
		ID:                     InstanceID(t.ID, date),
		TemplateID:             t.ID,
		Date:                   date,
		StartTime:              start,
		EndTime:                end,
		ShiftType:              t.ShiftType,
		RequiredQualifications: t.RequiredQualifications,
		MinHeadcount:           t.MinHeadcount,
		MaxHeadcount:           t.MaxHeadcount,
	}, nil
}

// instanceNamespace 班次实例ID的命名空间，保证同一模板+日期生成稳定的ID
var instanceNamespace = uuid.MustParse("5f0a1f64-9e12-4c7a-8f3d-2b6f08a4c901")

// ShiftInstance 班次实例（模板在某个具体日期的一次出现）
type ShiftInstance struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TemplateID uuid.UUID `json:"template_id" db:"template_id"`
	Date       string    `json:"date" db:"date"` // YYYY-MM-DD
	StartTime  time.Time `json:"start_time" db:"start_time"`
	EndTime    time.Time `json:"end_time" db:"end_time"`
	ShiftType  string    `json:"shift_type" db:"shift_type"`

	RequiredQualifications []string `json:"required_qualifications,omitempty" db:"required_qualifications"`
	MinHeadcount           int      `json:"min_headcount" db:"min_headcount"`
	MaxHeadcount           int      `json:"max_headcount" db:"max_headcount"`
}

// InstanceID 根据模板和日期派生稳定的实例ID
func InstanceID(templateID uuid.UUID, date string) uuid.UUID {
	return uuid.NewSHA1(instanceNamespace, []byte(templateID.String()+"/"+date))
}

// DurationHours 返回班次时长（小时）
func (s *ShiftInstance) DurationHours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// Range 返回班次的时间范围
func (s *ShiftInstance) Range() TimeRange {
	return TimeRange{Start: s.StartTime, End: s.EndTime}
}

// Weekday 返回班次所在的星期
func (s *ShiftInstance) Weekday() time.Weekday {
	wd, _ := WeekdayOf(s.Date)
	return wd
}

// IsNightShift 检查是否为夜班
func (s *ShiftInstance) IsNightShift() bool {
	return s.ShiftType == "night"
}

// IsWeekendShift 检查是否为周末班
func (s *ShiftInstance) IsWeekendShift() bool {
	return IsWeekend(s.Date)
}

// Assignment 排班分配
type Assignment struct {
	BaseModel
	ScheduleID uuid.UUID        `json:"schedule_id" db:"schedule_id"`
	EmployeeID uuid.UUID        `json:"employee_id" db:"employee_id"`
	ShiftID    uuid.UUID        `json:"shift_id" db:"shift_id"` // 班次实例ID
	Date       string           `json:"date" db:"date"`
	StartTime  time.Time        `json:"start_time" db:"start_time"`
	EndTime    time.Time        `json:"end_time" db:"end_time"`
	Status     AssignmentStatus `json:"status" db:"status"`
}

// WorkingHours 计算工作时长（小时）
func (a *Assignment) WorkingHours() float64 {
	return a.EndTime.Sub(a.StartTime).Hours()
}

// Overlaps 检查两个分配的时间是否重叠
func (a *Assignment) Overlaps(other *Assignment) bool {
	return a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime)
}

// Schedule 排班计划
type Schedule struct {
	BaseModel
	Name        string        `json:"name" db:"name"`
	StartDate   string        `json:"start_date" db:"start_date"`
	EndDate     string        `json:"end_date" db:"end_date"`
	Status      string        `json:"status" db:"status"` // draft/published/archived
	Version     int           `json:"version" db:"version"`
	PublishedAt *time.Time    `json:"published_at,omitempty" db:"published_at"`
	Assignments []*Assignment `json:"assignments,omitempty" db:"-"`
}

// ShiftCoverage 单个班次实例的覆盖情况
type ShiftCoverage struct {
	ShiftID  uuid.UUID `json:"shift_id"`
	Date     string    `json:"date"`
	Required int       `json:"required"` // 最低人数
	Maximum  int       `json:"maximum"`
	Assigned int       `json:"assigned"`
}

// Shortfall 返回缺口人数（达到下限时为 0）
func (c ShiftCoverage) Shortfall() int {
	if c.Assigned >= c.Required {
		return 0
	}
	return c.Required - c.Assigned
}

// Package model 定义排班引擎的核心数据模型
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConstraintCategory 约束类别
type ConstraintCategory string

const (
	ConstraintHard ConstraintCategory = "hard" // 硬约束（必须满足）
	ConstraintSoft ConstraintCategory = "soft" // 软约束（尽量满足）
)

// AssignmentStatus 排班分配状态
type AssignmentStatus string

const (
	AssignmentProposed  AssignmentStatus = "proposed"  // 求解器产出，待确认
	AssignmentConfirmed AssignmentStatus = "confirmed" // 已确认
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TimeRange 时间范围
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration 返回时间范围的持续时间
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// Overlaps 检查两个时间范围是否重叠
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return tr.Start.Before(other.End) && other.Start.Before(tr.End)
}

// Contains 检查时间范围是否包含某个时间点
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// DateRange 日期范围
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Validate 检查日期范围是否合法
func (dr DateRange) Validate() error {
	start, err := time.Parse("2006-01-02", dr.StartDate)
	if err != nil {
		return fmt.Errorf("起始日期格式无效: %s", dr.StartDate)
	}
	end, err := time.Parse("2006-01-02", dr.EndDate)
	if err != nil {
		return fmt.Errorf("结束日期格式无效: %s", dr.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("结束日期 %s 早于起始日期 %s", dr.EndDate, dr.StartDate)
	}
	return nil
}

// Days 返回日期范围内的全部日期（含两端）
func (dr DateRange) Days() []string {
	start, err1 := time.Parse("2006-01-02", dr.StartDate)
	end, err2 := time.Parse("2006-01-02", dr.EndDate)
	if err1 != nil || err2 != nil {
		return nil
	}

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

// TimeWindow 当日时间窗口（HH:MM 格式，End 为 24:00 表示到当日结束）
type TimeWindow struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

// minuteOfDay 将 HH:MM 转换为当日分钟数
func minuteOfDay(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		if hhmm == "24:00" {
			return 24 * 60, true
		}
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// Covers 检查时间窗口是否完整包含 [start, end) 时段
func (w TimeWindow) Covers(start, end string) bool {
	ws, ok1 := minuteOfDay(w.Start)
	we, ok2 := minuteOfDay(w.End)
	s, ok3 := minuteOfDay(start)
	e, ok4 := minuteOfDay(end)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	// 跨日窗口与班次（如 22:00-06:00）按到次日计算
	if we <= ws {
		we += 24 * 60
	}
	if e <= s {
		e += 24 * 60
	}
	return ws <= s && e <= we
}

// IsWeekend 判断日期是否为周末
func IsWeekend(date string) bool {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// WeekdayOf 返回日期对应的星期
func WeekdayOf(date string) (time.Weekday, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Sunday, false
	}
	return t.Weekday(), true
}

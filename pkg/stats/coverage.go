// Package stats 提供排班统计分析功能
package stats

import (
	"sort"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalShifts     int     `json:"total_shifts"`     // 总班次实例数
	CoveredShifts   int     `json:"covered_shifts"`   // 达到人数下限的班次数
	RequiredSlots   int     `json:"required_slots"`   // 总需求人数（下限之和）
	FilledSlots     int     `json:"filled_slots"`     // 计入覆盖的已分配人数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)

	DailyCoverage     map[string]DayCoverage `json:"daily_coverage"`      // 每日覆盖情况
	ShiftTypeCoverage map[string]float64     `json:"shift_type_coverage"` // 按班次类型覆盖率 (%)
	// 按必需资质覆盖率 (%)：要求该资质的班次中达到人数下限的比例
	QualificationCoverage map[string]float64 `json:"qualification_coverage"`

	UncoveredShifts []UncoveredShift     `json:"uncovered_shifts"` // 未达下限的班次
	Understaffed    []UnderstaffedPeriod `json:"understaffed"`     // 人手不足时段
}

// DayCoverage 每日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalShifts  int     `json:"total_shifts"`
	Covered      int     `json:"covered"`
	CoverageRate float64 `json:"coverage_rate"`
	TotalHours   float64 `json:"total_hours"` // 当日分配的总工时
}

// UncoveredShift 未达到人数下限的班次
type UncoveredShift struct {
	ShiftID   uuid.UUID `json:"shift_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	ShiftType string    `json:"shift_type"`
	Required  int       `json:"required"`
	Assigned  int       `json:"assigned"`
	Shortage  int       `json:"shortage"`
}

// UnderstaffedPeriod 人手不足时段（按日期与小时聚合）
type UnderstaffedPeriod struct {
	Date      string `json:"date"`
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	Required  int    `json:"required"`
	Assigned  int    `json:"assigned"`
	Shortage  int    `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 分析分配集合对班次需求的覆盖情况
// 输出中的切片按日期、时间稳定排序，相同输入总是得到相同结果。
func (c *CoverageAnalyzer) Analyze(shifts []*model.ShiftInstance, assignments []*model.Assignment) *CoverageMetrics {
	metrics := &CoverageMetrics{
		DailyCoverage:         make(map[string]DayCoverage),
		ShiftTypeCoverage:     make(map[string]float64),
		QualificationCoverage: make(map[string]float64),
		OverallCoverage:       100,
	}
	if len(shifts) == 0 {
		return metrics
	}

	counts := make(map[uuid.UUID]int)
	for _, a := range assignments {
		counts[a.ShiftID]++
	}

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

	daily := make(map[string]*DayCoverage)
	typeTotals := make(map[string]int)
	typeCovered := make(map[string]int)
	qualTotals := make(map[string]int)
	qualCovered := make(map[string]int)

	for _, shift := range sorted {
		assigned := counts[shift.ID]
		covered := assigned >= shift.MinHeadcount

		metrics.TotalShifts++
		metrics.RequiredSlots += shift.MinHeadcount
		filled := assigned
		if filled > shift.MinHeadcount {
			filled = shift.MinHeadcount
		}
		metrics.FilledSlots += filled

		if covered {
			metrics.CoveredShifts++
		} else {
			metrics.UncoveredShifts = append(metrics.UncoveredShifts, UncoveredShift{
				ShiftID:   shift.ID,
				Date:      shift.Date,
				StartTime: shift.StartTime.Format("15:04"),
				EndTime:   shift.EndTime.Format("15:04"),
				ShiftType: shift.ShiftType,
				Required:  shift.MinHeadcount,
				Assigned:  assigned,
				Shortage:  shift.MinHeadcount - assigned,
			})
		}

		day, exists := daily[shift.Date]
		if !exists {
			day = &DayCoverage{Date: shift.Date}
			daily[shift.Date] = day
		}
		day.TotalShifts++
		if covered {
			day.Covered++
		}
		day.TotalHours += float64(assigned) * shift.DurationHours()

		typeTotals[shift.ShiftType]++
		if covered {
			typeCovered[shift.ShiftType]++
		}
		for _, q := range shift.RequiredQualifications {
			qualTotals[q]++
			if covered {
				qualCovered[q]++
			}
		}
	}

	if metrics.RequiredSlots > 0 {
		metrics.OverallCoverage = float64(metrics.FilledSlots) / float64(metrics.RequiredSlots) * 100
	}

	for date, day := range daily {
		if day.TotalShifts > 0 {
			day.CoverageRate = float64(day.Covered) / float64(day.TotalShifts) * 100
		}
		metrics.DailyCoverage[date] = *day
	}

	for shiftType, total := range typeTotals {
		metrics.ShiftTypeCoverage[shiftType] = float64(typeCovered[shiftType]) / float64(total) * 100
	}
	for q, total := range qualTotals {
		metrics.QualificationCoverage[q] = float64(qualCovered[q]) / float64(total) * 100
	}

	metrics.Understaffed = c.identifyUnderstaffed(sorted, counts)

	return metrics
}

// identifyUnderstaffed 按日期-小时识别人手不足的时段
func (c *CoverageAnalyzer) identifyUnderstaffed(shifts []*model.ShiftInstance, counts map[uuid.UUID]int) []UnderstaffedPeriod {
	type hourKey struct {
		date string
		hour int
	}
	required := make(map[hourKey]int)
	staffed := make(map[hourKey]int)

	for _, shift := range shifts {
		startHour := shift.StartTime.Hour()
		endHour := startHour + int(shift.DurationHours()+0.5)

		for h := startHour; h < endHour; h++ {
			key := hourKey{date: shift.Date, hour: h % 24}
			required[key] += shift.MinHeadcount
			staffed[key] += counts[shift.ID]
		}
	}

	keys := make([]hourKey, 0, len(required))
	for key := range required {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].date != keys[j].date {
			return keys[i].date < keys[j].date
		}
		return keys[i].hour < keys[j].hour
	})

	var understaffed []UnderstaffedPeriod
	for _, key := range keys {
		req := required[key]
		got := staffed[key]
		if got >= req {
			continue
		}
		understaffed = append(understaffed, UnderstaffedPeriod{
			Date:      key.date,
			StartHour: key.hour,
			EndHour:   (key.hour + 1) % 24,
			Required:  req,
			Assigned:  got,
			Shortage:  req - got,
		})
	}

	return understaffed
}

// AnalyzeDateRange 分析指定日期范围内的覆盖率
func (c *CoverageAnalyzer) AnalyzeDateRange(shifts []*model.ShiftInstance, assignments []*model.Assignment, startDate, endDate string) *CoverageMetrics {
	var filteredShifts []*model.ShiftInstance
	for _, s := range shifts {
		if s.Date >= startDate && s.Date <= endDate {
			filteredShifts = append(filteredShifts, s)
		}
	}

	var filteredAssignments []*model.Assignment
	for _, a := range assignments {
		if a.Date >= startDate && a.Date <= endDate {
			filteredAssignments = append(filteredAssignments, a)
		}
	}

	return c.Analyze(filteredShifts, filteredAssignments)
}

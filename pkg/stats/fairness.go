// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/model"
)

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 工时公平性
	WorkloadGini        float64 `json:"workload_gini"`          // 工时基尼系数 (0=完全公平)
	WorkloadVariance    float64 `json:"workload_variance"`      // 工时方差
	WorkloadStdDev      float64 `json:"workload_std_dev"`       // 工时标准差
	AvgHoursPerEmployee float64 `json:"avg_hours_per_employee"` // 人均工时
	MaxHours            float64 `json:"max_hours"`              // 最大工时
	MinHours            float64 `json:"min_hours"`              // 最小工时
	HoursRange          float64 `json:"hours_range"`            // 工时极差

	// 夜班与周末班分布
	NightShiftGini   float64 `json:"night_shift_gini"`
	WeekendShiftGini float64 `json:"weekend_shift_gini"`

	// 员工级别统计（按工时降序）
	EmployeeStats []EmployeeStat `json:"employee_stats"`

	// 综合评分 (0-100)
	OverallFairnessScore float64 `json:"overall_fairness_score"`
}

// EmployeeStat 单个员工的排班统计
type EmployeeStat struct {
	EmployeeID    uuid.UUID `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	TotalHours    float64   `json:"total_hours"`
	ShiftCount    int       `json:"shift_count"`
	NightShifts   int       `json:"night_shifts"`
	WeekendShifts int       `json:"weekend_shifts"`
	OvertimeHours float64   `json:"overtime_hours"` // 超出期望工时的部分
	Deviation     float64   `json:"deviation"`      // 与人均工时的偏差百分比
}

// FairnessAnalyzer 公平性分析器
// 纳入统计的是全部在册员工：没有排班的员工计为零工时，
// 否则把活都压给少数人反而显得“公平”。
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析排班公平性
// shifts 提供班次类型信息（夜班判断）；输出按工时降序，员工ID为次序键。
func (f *FairnessAnalyzer) Analyze(assignments []*model.Assignment, employees []*model.Employee, shifts []*model.ShiftInstance) *FairnessMetrics {
	if len(employees) == 0 {
		return &FairnessMetrics{OverallFairnessScore: 100}
	}

	shiftMap := make(map[uuid.UUID]*model.ShiftInstance, len(shifts))
	for _, s := range shifts {
		shiftMap[s.ID] = s
	}

	statMap := make(map[uuid.UUID]*EmployeeStat, len(employees))
	for _, e := range employees {
		statMap[e.ID] = &EmployeeStat{EmployeeID: e.ID, EmployeeName: e.Name}
	}

	for _, a := range assignments {
		stat, known := statMap[a.EmployeeID]
		if !known {
			continue
		}
		stat.TotalHours += a.WorkingHours()
		stat.ShiftCount++
		if s, ok := shiftMap[a.ShiftID]; ok && s.IsNightShift() {
			stat.NightShifts++
		}
		if model.IsWeekend(a.Date) {
			stat.WeekendShifts++
		}
	}

	stats := make([]EmployeeStat, 0, len(employees))
	hours := make([]float64, 0, len(employees))
	nightShifts := make([]float64, 0, len(employees))
	weekendShifts := make([]float64, 0, len(employees))
	for _, e := range employees {
		stat := statMap[e.ID]
		if e.Preferences != nil && e.Preferences.PreferredHours > 0 && stat.TotalHours > e.Preferences.PreferredHours {
			stat.OvertimeHours = stat.TotalHours - e.Preferences.PreferredHours
		}
		stats = append(stats, *stat)
		hours = append(hours, stat.TotalHours)
		nightShifts = append(nightShifts, float64(stat.NightShifts))
		weekendShifts = append(weekendShifts, float64(stat.WeekendShifts))
	}

	avgHours := mean(hours)
	variance := varianceOf(hours, avgHours)
	stdDev := math.Sqrt(variance)
	maxHours, minHours := rangeOf(hours)

	for i := range stats {
		if avgHours > 0 {
			stats[i].Deviation = (stats[i].TotalHours - avgHours) / avgHours * 100
		}
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalHours != stats[j].TotalHours {
			return stats[i].TotalHours > stats[j].TotalHours
		}
		return stats[i].EmployeeID.String() < stats[j].EmployeeID.String()
	})

	workloadGini := gini(hours)
	nightGini := gini(nightShifts)
	weekendGini := gini(weekendShifts)

	return &FairnessMetrics{
		WorkloadGini:         workloadGini,
		WorkloadVariance:     variance,
		WorkloadStdDev:       stdDev,
		AvgHoursPerEmployee:  avgHours,
		MaxHours:             maxHours,
		MinHours:             minHours,
		HoursRange:           maxHours - minHours,
		NightShiftGini:       nightGini,
		WeekendShiftGini:     weekendGini,
		EmployeeStats:        stats,
		OverallFairnessScore: overallScore(workloadGini, nightGini, weekendGini, stdDev, avgHours),
	}
}

// CompareSchedules 比较两个排班方案的公平性
func (f *FairnessAnalyzer) CompareSchedules(before, after []*model.Assignment, employees []*model.Employee, shifts []*model.ShiftInstance) map[string]float64 {
	m1 := f.Analyze(before, employees, shifts)
	m2 := f.Analyze(after, employees, shifts)

	return map[string]float64{
		"workload_gini_diff": m2.WorkloadGini - m1.WorkloadGini,
		"night_gini_diff":    m2.NightShiftGini - m1.NightShiftGini,
		"weekend_gini_diff":  m2.WeekendShiftGini - m1.WeekendShiftGini,
		"overall_score_diff": m2.OverallFairnessScore - m1.OverallFairnessScore,
		"before_score":       m1.OverallFairnessScore,
		"after_score":        m2.OverallFairnessScore,
	}
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 计算总体方差
func varianceOf(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - m
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// rangeOf 计算极值
func rangeOf(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	g := 0.0
	for i, v := range sorted {
		g += (2*float64(i+1) - float64(n) - 1) * v
	}
	g = g / (float64(n) * sum)
	return math.Max(0, math.Min(1, g))
}

// overallScore 计算综合公平性评分
func overallScore(workloadGini, nightGini, weekendGini, stdDev, avgHours float64) float64 {
	const (
		workloadWeight = 0.4
		nightWeight    = 0.25
		weekendWeight  = 0.25
		stdDevWeight   = 0.1
	)

	workloadScore := (1 - workloadGini) * 100
	nightScore := (1 - nightGini) * 100
	weekendScore := (1 - weekendGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avgHours > 0 {
		cv := stdDev / avgHours
		cvScore = math.Max(0, 100-cv*200)
	}

	score := workloadWeight*workloadScore +
		nightWeight*nightScore +
		weekendWeight*weekendScore +
		stdDevWeight*cvScore

	return math.Max(0, math.Min(100, score))
}

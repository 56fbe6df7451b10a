// Package builtin 提供内置约束实现
package builtin

import (
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// RegisterDefaultConstraints 注册默认约束到管理器
// 所有运行参数都来自配置 map，缺省时使用默认策略值。
func RegisterDefaultConstraints(manager *constraint.Manager, config map[string]interface{}) {
	minRestHours := getConfigFloat(config, "min_rest_hours", 8.0)
	shiftTypeWeight := getConfigInt(config, "shift_type_preference_weight", 50)
	dayWeight := getConfigInt(config, "day_preference_weight", 40)
	workloadWeight := getConfigInt(config, "workload_balance_weight", 60)
	weekendWeight := getConfigInt(config, "weekend_balance_weight", 30)

	// 注册硬约束
	manager.Register(NewCoverageBoundsConstraint())
	manager.Register(NewQualificationConstraint())
	manager.Register(NewAvailabilityConstraint())
	manager.Register(NewNoDoubleBookingConstraint())
	manager.Register(NewMinRestConstraint(minRestHours))
	manager.Register(NewHourBoundsConstraint())

	// 注册软约束
	manager.Register(NewShiftTypePreferenceConstraint(shiftTypeWeight))
	manager.Register(NewDayPreferenceConstraint(dayWeight))
	manager.Register(NewWorkloadBalanceConstraint(workloadWeight))
	manager.Register(NewWeekendBalanceConstraint(weekendWeight))
}

// getConfigInt 从配置中获取整数
func getConfigInt(config map[string]interface{}, key string, defaultVal int) int {
	if config == nil {
		return defaultVal
	}
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case int64:
			return int(v)
		}
	}
	return defaultVal
}

// getConfigFloat 从配置中获取浮点数
func getConfigFloat(config map[string]interface{}, key string, defaultVal float64) float64 {
	if config == nil {
		return defaultVal
	}
	if val, ok := config[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return defaultVal
}

// Package constraints 提供约束库的对外描述
// 参数名与排班请求 constraints 字段中的键一致。
package constraints

// Param 约束参数定义
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, bool
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// Definition 约束定义
type Definition struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"` // hard 硬约束, soft 软约束
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []Definition `json:"library"`
}

// GetLibrary 获取引擎支持的完整约束库
func GetLibrary() []Definition {
	return []Definition{
		// =====================================================
		// 硬约束
		// =====================================================
		{
			Name:        "coverage_bounds",
			DisplayName: "班次人数上下限",
			Category:    "hard",
			Description: "每个班次的分配人数不低于最小人数、不高于最大人数。人数缺口会在求解结果中报告。",
		},
		{
			Name:        "qualification_match",
			DisplayName: "资质匹配",
			Category:    "hard",
			Description: "员工必须具备班次要求的全部资质才能被分配。",
		},
		{
			Name:        "availability",
			DisplayName: "可用时间",
			Category:    "hard",
			Description: "班次时段必须完整落在员工声明的可用时间窗口内。",
		},
		{
			Name:        "no_double_booking",
			DisplayName: "禁止重复排班",
			Category:    "hard",
			Description: "同一员工不能被分配到时间上重叠的班次。",
		},
		{
			Name:        "min_rest",
			DisplayName: "班次间最小休息",
			Category:    "hard",
			Description: "同一员工相邻班次之间的休息时间不得低于下限，防止过度疲劳。",
			Params: []Param{
				{Name: "min_rest_hours", Type: "float", Description: "最小休息时间(小时)", Default: "8", Min: "0", Max: "24"},
			},
		},
		{
			Name:        "hour_bounds",
			DisplayName: "周期工时上下限",
			Category:    "hard",
			Description: "排班周期内员工总工时不得超过其最大工时；最小工时不足记为软性缺口。",
		},

		// =====================================================
		// 软约束
		// =====================================================
		{
			Name:        "shift_type_preference",
			DisplayName: "班次类型偏好",
			Category:    "soft",
			Description: "尽量把员工排到其偏好的班次类型，违背偏好计入惩罚。",
			Params: []Param{
				{Name: "shift_type_preference_weight", Type: "int", Description: "惩罚权重", Default: "50", Min: "0"},
			},
		},
		{
			Name:        "day_preference",
			DisplayName: "工作日偏好",
			Category:    "soft",
			Description: "尽量避开员工不愿意工作的日期。",
			Params: []Param{
				{Name: "day_preference_weight", Type: "int", Description: "惩罚权重", Default: "40", Min: "0"},
			},
		},
		{
			Name:        "workload_balance",
			DisplayName: "工时均衡",
			Category:    "soft",
			Description: "各员工的总工时尽量接近，偏离均值越多惩罚越大。",
			Params: []Param{
				{Name: "workload_balance_weight", Type: "int", Description: "惩罚权重", Default: "60", Min: "0"},
			},
		},
		{
			Name:        "weekend_balance",
			DisplayName: "周末班次均衡",
			Category:    "soft",
			Description: "周末班次在员工间尽量均匀分布。",
			Params: []Param{
				{Name: "weekend_balance_weight", Type: "int", Description: "惩罚权重", Default: "30", Min: "0"},
			},
		},
	}
}

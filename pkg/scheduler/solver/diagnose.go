// Package solver 提供排班求解器
package solver

import (
	"sort"

	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
)

// suggestRelaxations 根据剪枝计数生成放宽建议
// 剪掉候选最多的硬约束类别排在前面；建议是启发式文案，不构成契约。
func suggestRelaxations(pruned map[constraint.Type]int) []string {
	if len(pruned) == 0 {
		return []string{"增加在职员工数量，或减少需要覆盖的班次"}
	}

	type entry struct {
		typ   constraint.Type
		count int
	}
	entries := make([]entry, 0, len(pruned))
	for t, n := range pruned {
		entries = append(entries, entry{typ: t, count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].typ < entries[j].typ
	})

	var suggestions []string
	for _, e := range entries {
		if msg, ok := relaxationHints[e.typ]; ok {
			suggestions = append(suggestions, msg)
		}
	}
	if len(suggestions) == 0 {
		suggestions = []string{"增加在职员工数量，或减少需要覆盖的班次"}
	}
	return suggestions
}

// relaxationHints 各硬约束类别对应的放宽建议
var relaxationHints = map[constraint.Type]string{
	constraint.TypeQualificationMatch: "增加具备所需资质的员工，或降低班次的资质要求",
	constraint.TypeAvailability:       "扩大员工的可用时间，或调整班次的起止时间",
	constraint.TypeMinRest:            "降低班次间最小休息时间要求，或减少班次密度",
	constraint.TypeNoDoubleBooking:    "错开时间重叠的班次，或增加员工",
	constraint.TypeHourBounds:         "提高员工的周期工时上限，或增加员工分担工时",
	constraint.TypeCoverageBounds:     "降低班次的最少人数要求，或增加员工",
}

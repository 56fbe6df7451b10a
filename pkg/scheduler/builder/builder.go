// Package builder 将实体存储记录转换为求解器的内部表示
package builder

import (
	"context"
	"time"

	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/model"
)

// Store 构建器依赖的实体读取接口
type Store interface {
	// ListEmployees 返回全部员工记录（含非在职员工，由构建器过滤）
	ListEmployees(ctx context.Context) ([]*model.Employee, error)

	// ListShiftTemplates 返回全部班次模板
	ListShiftTemplates(ctx context.Context) ([]*model.ShiftTemplate, error)
}

// Problem 求解器的输入问题
type Problem struct {
	StartDate string                 `json:"start_date"`
	EndDate   string                 `json:"end_date"`
	Employees []*model.Employee      `json:"employees"`
	Shifts    []*model.ShiftInstance `json:"shifts"`
}

// Builder 领域模型构建器
// 纯转换，不含业务逻辑，对实体存储只读。
type Builder struct {
	store Store
}

// New 创建构建器
func New(store Store) *Builder {
	return &Builder{store: store}
}

// Build 为指定日期范围构建求解问题
// 员工或班次实例为空时返回输入错误，调用方不得继续调用求解器。
func (b *Builder) Build(ctx context.Context, startDate, endDate string) (*Problem, error) {
	if err := ValidateDateRange(startDate, endDate); err != nil {
		return nil, err
	}

	employees, err := b.store.ListEmployees(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取员工记录失败")
	}

	active := filterActive(employees)
	if len(active) == 0 {
		return nil, errors.ErrEmptyEmployeeSet
	}

	templates, err := b.store.ListShiftTemplates(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取班次模板失败")
	}

	shifts, err := ExpandTemplates(templates, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, errors.ErrEmptyShiftSet
	}

	return &Problem{
		StartDate: startDate,
		EndDate:   endDate,
		Employees: active,
		Shifts:    shifts,
	}, nil
}

// BuildFromRecords 直接从内存记录构建求解问题（不经过实体存储）
func BuildFromRecords(employees []*model.Employee, templates []*model.ShiftTemplate, startDate, endDate string) (*Problem, error) {
	if err := ValidateDateRange(startDate, endDate); err != nil {
		return nil, err
	}

	active := filterActive(employees)
	if len(active) == 0 {
		return nil, errors.ErrEmptyEmployeeSet
	}

	shifts, err := ExpandTemplates(templates, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, errors.ErrEmptyShiftSet
	}

	return &Problem{
		StartDate: startDate,
		EndDate:   endDate,
		Employees: active,
		Shifts:    shifts,
	}, nil
}

// Employees 返回全部员工记录（冲突检查需要包含非在职员工）
func (b *Builder) Employees(ctx context.Context) ([]*model.Employee, error) {
	employees, err := b.store.ListEmployees(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取员工记录失败")
	}
	return employees, nil
}

// Shifts 返回日期范围内展开的班次实例
func (b *Builder) Shifts(ctx context.Context, startDate, endDate string) ([]*model.ShiftInstance, error) {
	templates, err := b.store.ListShiftTemplates(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取班次模板失败")
	}
	return ExpandTemplates(templates, startDate, endDate)
}

// ExpandTemplates 将班次模板按日期范围展开为班次实例
// 每个模板在其适用的每个日历日生成一个实例。
func ExpandTemplates(templates []*model.ShiftTemplate, startDate, endDate string) ([]*model.ShiftInstance, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, errors.InvalidDateRange("开始日期格式错误: " + startDate)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, errors.InvalidDateRange("结束日期格式错误: " + endDate)
	}

	var instances []*model.ShiftInstance
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		for _, tpl := range templates {
			if !tpl.IsActive || !tpl.AppliesTo(date) {
				continue
			}

			inst, err := tpl.Instantiate(date)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "展开班次模板失败: "+tpl.Name)
			}
			instances = append(instances, inst)
		}
	}

	return instances, nil
}

// ValidateDateRange 校验日期范围
func ValidateDateRange(startDate, endDate string) error {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return errors.InvalidDateRange("开始日期格式错误: " + startDate)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return errors.InvalidDateRange("结束日期格式错误: " + endDate)
	}
	if end.Before(start) {
		return errors.InvalidDateRange("结束日期早于开始日期")
	}
	return nil
}

// filterActive 过滤出在职员工
func filterActive(employees []*model.Employee) []*model.Employee {
	var active []*model.Employee
	for _, e := range employees {
		if e.IsActive() {
			active = append(active, e)
		}
	}
	return active
}

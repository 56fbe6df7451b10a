// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
)

// ScheduleRepository 排班计划仓储
// SaveSchedule 需要事务支持，因此依赖 TxDB 而非只读的 DB 接口。
type ScheduleRepository struct {
	db TxDB
}

// NewScheduleRepository 创建排班计划仓储
func NewScheduleRepository(db TxDB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, name, start_date, end_date, status, version, published_at, created_at, updated_at`

const assignmentColumns = `id, schedule_id, employee_id, shift_id, date, start_time, end_time, status, created_at, updated_at`

// SaveSchedule 在单个事务内保存排班计划及其全部分配
// 要么全部写入，要么全部回滚，不会产生半持久化的方案。
func (r *ScheduleRepository) SaveSchedule(ctx context.Context, schedule *model.Schedule, assignments []*model.Assignment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	insertSchedule := `
		INSERT INTO schedules (
			id, name, start_date, end_date, status, version, published_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := tx.ExecContext(ctx, insertSchedule,
		schedule.ID, schedule.Name, schedule.StartDate, schedule.EndDate,
		schedule.Status, schedule.Version, schedule.PublishedAt,
		schedule.CreatedAt, schedule.UpdatedAt,
	); err != nil {
		return fmt.Errorf("保存排班计划失败: %w", err)
	}

	insertAssignment := `
		INSERT INTO assignments (
			id, schedule_id, employee_id, shift_id, date, start_time, end_time, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		a.ScheduleID = schedule.ID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, insertAssignment,
			a.ID, a.ScheduleID, a.EmployeeID, a.ShiftID, a.Date,
			a.StartTime, a.EndTime, a.Status, a.CreatedAt, a.UpdatedAt,
		); err != nil {
			return fmt.Errorf("保存排班分配失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取排班计划（含分配）
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)

	s := &model.Schedule{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Status,
		&s.Version, &s.PublishedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描排班计划失败: %w", err)
	}

	assignments, err := r.GetAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Assignments = assignments

	return s, nil
}

// List 列出排班计划
func (r *ScheduleRepository) List(ctx context.Context, filter ListFilter) ([]*model.Schedule, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.StartDate != "" {
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", argIndex))
		args = append(args, filter.StartDate)
		argIndex++
	}

	if filter.EndDate != "" {
		conditions = append(conditions, fmt.Sprintf("end_date <= $%d", argIndex))
		args = append(args, filter.EndDate)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM schedules %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("统计排班数量失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM schedules %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, scheduleColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询排班列表失败: %w", err)
	}
	defer rows.Close()

	var schedules []*model.Schedule
	for rows.Next() {
		s := &model.Schedule{}
		if err := rows.Scan(
			&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Status,
			&s.Version, &s.PublishedAt, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("扫描排班计划失败: %w", err)
		}
		schedules = append(schedules, s)
	}

	return schedules, total, nil
}

// Publish 发布排班计划
func (r *ScheduleRepository) Publish(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE schedules SET status = 'published', published_at = $2, version = version + 1, updated_at = $2
		WHERE id = $1 AND status = 'draft'
	`

	result, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("发布排班计划失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班计划不存在或不是草稿状态")
	}

	return nil
}

// Archive 归档排班计划
func (r *ScheduleRepository) Archive(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE schedules SET status = 'archived', updated_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("归档排班计划失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班计划不存在")
	}

	return nil
}

// Delete 删除排班计划及其分配
func (r *ScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE schedule_id = $1", id); err != nil {
		return fmt.Errorf("删除排班分配失败: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id); err != nil {
		return fmt.Errorf("删除排班计划失败: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// GetAssignments 获取某排班计划的全部分配
func (r *ScheduleRepository) GetAssignments(ctx context.Context, scheduleID uuid.UUID) ([]*model.Assignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assignments
		WHERE schedule_id = $1
		ORDER BY date, start_time, id
	`, assignmentColumns)

	return r.queryAssignments(ctx, query, scheduleID)
}

// ListAssignments 按日期范围获取已确认或待确认的分配
// 优化和冲突检查按日期范围加载时使用。
func (r *ScheduleRepository) ListAssignments(ctx context.Context, startDate, endDate string) ([]*model.Assignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assignments
		WHERE date >= $1 AND date <= $2 AND status != 'cancelled'
		ORDER BY date, start_time, id
	`, assignmentColumns)

	return r.queryAssignments(ctx, query, startDate, endDate)
}

// GetAssignmentsByEmployee 获取员工在日期范围内的分配
func (r *ScheduleRepository) GetAssignmentsByEmployee(ctx context.Context, employeeID uuid.UUID, startDate, endDate string) ([]*model.Assignment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM assignments
		WHERE employee_id = $1 AND date >= $2 AND date <= $3 AND status != 'cancelled'
		ORDER BY date, start_time, id
	`, assignmentColumns)

	return r.queryAssignments(ctx, query, employeeID, startDate, endDate)
}

// UpdateAssignmentStatus 更新单个分配的状态
func (r *ScheduleRepository) UpdateAssignmentStatus(ctx context.Context, id uuid.UUID, status model.AssignmentStatus) error {
	query := `UPDATE assignments SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新分配状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班分配不存在")
	}

	return nil
}

// queryAssignments 执行分配查询并扫描结果
func (r *ScheduleRepository) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]*model.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}
	defer rows.Close()

	var assignments []*model.Assignment
	for rows.Next() {
		a := &model.Assignment{}
		if err := rows.Scan(
			&a.ID, &a.ScheduleID, &a.EmployeeID, &a.ShiftID, &a.Date,
			&a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描排班分配失败: %w", err)
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

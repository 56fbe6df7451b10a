// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shiftplan/shiftplan/pkg/model"
)

// ShiftTemplateRepository 班次模板仓储
type ShiftTemplateRepository struct {
	db DB
}

// NewShiftTemplateRepository 创建班次模板仓储
func NewShiftTemplateRepository(db DB) *ShiftTemplateRepository {
	return &ShiftTemplateRepository{db: db}
}

const templateColumns = `id, name, code, start_time, end_time, shift_type, weekdays,
		required_qualifications, min_headcount, max_headcount, is_active, created_at, updated_at`

// Create 创建班次模板
func (r *ShiftTemplateRepository) Create(ctx context.Context, tpl *model.ShiftTemplate) error {
	if tpl.ID == uuid.Nil {
		tpl.ID = uuid.New()
	}
	now := time.Now()
	tpl.CreatedAt = now
	tpl.UpdatedAt = now

	weekdaysJSON, _ := json.Marshal(tpl.Weekdays)
	qualsJSON, _ := json.Marshal(tpl.RequiredQualifications)

	query := `
		INSERT INTO shift_templates (
			id, name, code, start_time, end_time, shift_type, weekdays,
			required_qualifications, min_headcount, max_headcount, is_active,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.Code, tpl.StartTime, tpl.EndTime, tpl.ShiftType, weekdaysJSON,
		qualsJSON, tpl.MinHeadcount, tpl.MaxHeadcount, tpl.IsActive,
		tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建班次模板失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取班次模板
func (r *ShiftTemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShiftTemplate, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM shift_templates
		WHERE id = $1 AND deleted_at IS NULL
	`, templateColumns)

	return r.scanTemplate(r.db.QueryRowContext(ctx, query, id))
}

// Update 更新班次模板
func (r *ShiftTemplateRepository) Update(ctx context.Context, tpl *model.ShiftTemplate) error {
	tpl.UpdatedAt = time.Now()

	weekdaysJSON, _ := json.Marshal(tpl.Weekdays)
	qualsJSON, _ := json.Marshal(tpl.RequiredQualifications)

	query := `
		UPDATE shift_templates SET
			name = $2, code = $3, start_time = $4, end_time = $5, shift_type = $6,
			weekdays = $7, required_qualifications = $8, min_headcount = $9,
			max_headcount = $10, is_active = $11, updated_at = $12
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		tpl.ID, tpl.Name, tpl.Code, tpl.StartTime, tpl.EndTime, tpl.ShiftType,
		weekdaysJSON, qualsJSON, tpl.MinHeadcount,
		tpl.MaxHeadcount, tpl.IsActive, tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新班次模板失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次模板不存在")
	}

	return nil
}

// Delete 软删除班次模板
func (r *ShiftTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE shift_templates SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除班次模板失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("班次模板不存在")
	}

	return nil
}

// List 查询班次模板列表
func (r *ShiftTemplateRepository) List(ctx context.Context, filter ListFilter) ([]*model.ShiftTemplate, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	if shiftType, ok := filter.Extra["shift_type"].(string); ok && shiftType != "" {
		conditions = append(conditions, fmt.Sprintf("shift_type = $%d", argIndex))
		args = append(args, shiftType)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM shift_templates WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
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
		SELECT %s FROM shift_templates
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, templateColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var templates []*model.ShiftTemplate
	for rows.Next() {
		tpl, err := r.scanTemplateRow(rows)
		if err != nil {
			return nil, 0, err
		}
		templates = append(templates, tpl)
	}

	return templates, total, nil
}

// ListShiftTemplates 返回全部未删除的班次模板
// 模板是否参与展开由 is_active 决定，展开逻辑在构建器内处理。
func (r *ShiftTemplateRepository) ListShiftTemplates(ctx context.Context) ([]*model.ShiftTemplate, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM shift_templates
		WHERE deleted_at IS NULL
		ORDER BY start_time, created_at
	`, templateColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询班次模板失败: %w", err)
	}
	defer rows.Close()

	var templates []*model.ShiftTemplate
	for rows.Next() {
		tpl, err := r.scanTemplateRow(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}

	return templates, nil
}

// scanTemplate 扫描单行班次模板
func (r *ShiftTemplateRepository) scanTemplate(row *sql.Row) (*model.ShiftTemplate, error) {
	tpl := &model.ShiftTemplate{}
	var weekdaysJSON, qualsJSON []byte

	err := row.Scan(
		&tpl.ID, &tpl.Name, &tpl.Code, &tpl.StartTime, &tpl.EndTime, &tpl.ShiftType, &weekdaysJSON,
		&qualsJSON, &tpl.MinHeadcount, &tpl.MaxHeadcount, &tpl.IsActive,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描班次模板失败: %w", err)
	}

	json.Unmarshal(weekdaysJSON, &tpl.Weekdays)
	json.Unmarshal(qualsJSON, &tpl.RequiredQualifications)
	return tpl, nil
}

// scanTemplateRow 扫描Rows中的班次模板
func (r *ShiftTemplateRepository) scanTemplateRow(rows *sql.Rows) (*model.ShiftTemplate, error) {
	tpl := &model.ShiftTemplate{}
	var weekdaysJSON, qualsJSON []byte

	err := rows.Scan(
		&tpl.ID, &tpl.Name, &tpl.Code, &tpl.StartTime, &tpl.EndTime, &tpl.ShiftType, &weekdaysJSON,
		&qualsJSON, &tpl.MinHeadcount, &tpl.MaxHeadcount, &tpl.IsActive,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描班次模板失败: %w", err)
	}

	json.Unmarshal(weekdaysJSON, &tpl.Weekdays)
	json.Unmarshal(qualsJSON, &tpl.RequiredQualifications)
	return tpl, nil
}

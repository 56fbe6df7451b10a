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

// EmployeeRepository 员工仓储
type EmployeeRepository struct {
	db DB
}

// NewEmployeeRepository 创建员工仓储
func NewEmployeeRepository(db DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, name, code, status, qualifications, availability,
		max_hours, min_hours, preferences, created_at, updated_at`

// Create 创建员工
func (r *EmployeeRepository) Create(ctx context.Context, emp *model.Employee) error {
	if emp.ID == uuid.Nil {
		emp.ID = uuid.New()
	}
	now := time.Now()
	emp.CreatedAt = now
	emp.UpdatedAt = now

	qualsJSON, _ := json.Marshal(emp.Qualifications)
	availJSON, _ := json.Marshal(emp.Availability)
	prefsJSON, _ := json.Marshal(emp.Preferences)

	query := `
		INSERT INTO employees (
			id, name, code, status, qualifications, availability,
			max_hours, min_hours, preferences, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Code, emp.Status, qualsJSON, availJSON,
		emp.MaxHours, emp.MinHours, prefsJSON, emp.CreatedAt, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建员工失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取员工
func (r *EmployeeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM employees
		WHERE id = $1 AND deleted_at IS NULL
	`, employeeColumns)

	return r.scanEmployee(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode 根据工号获取员工
func (r *EmployeeRepository) GetByCode(ctx context.Context, code string) (*model.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM employees
		WHERE code = $1 AND deleted_at IS NULL
	`, employeeColumns)

	return r.scanEmployee(r.db.QueryRowContext(ctx, query, code))
}

// Update 更新员工
func (r *EmployeeRepository) Update(ctx context.Context, emp *model.Employee) error {
	emp.UpdatedAt = time.Now()

	qualsJSON, _ := json.Marshal(emp.Qualifications)
	availJSON, _ := json.Marshal(emp.Availability)
	prefsJSON, _ := json.Marshal(emp.Preferences)

	query := `
		UPDATE employees SET
			name = $2, code = $3, status = $4, qualifications = $5,
			availability = $6, max_hours = $7, min_hours = $8,
			preferences = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Code, emp.Status, qualsJSON,
		availJSON, emp.MaxHours, emp.MinHours, prefsJSON, emp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新员工失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}

	return nil
}

// Delete 软删除员工
func (r *EmployeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE employees SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除员工失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("员工不存在")
	}

	return nil
}

// List 查询员工列表
func (r *EmployeeRepository) List(ctx context.Context, filter ListFilter) ([]*model.Employee, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// 查询总数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM employees WHERE %s", whereClause)
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
		SELECT %s FROM employees
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, employeeColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployeeRow(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, emp)
	}

	return employees, total, nil
}

// ListEmployees 返回全部未删除员工
// 求解器构建排班问题时使用；冲突检查也依赖非在职员工的记录。
func (r *EmployeeRepository) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM employees
		WHERE deleted_at IS NULL
		ORDER BY created_at
	`, employeeColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployeeRow(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}

	return employees, nil
}

// ListByIDs 根据ID列表获取员工
func (r *EmployeeRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT %s FROM employees
		WHERE id IN (%s) AND deleted_at IS NULL
	`, employeeColumns, strings.Join(placeholders, ","))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	defer rows.Close()

	var employees []*model.Employee
	for rows.Next() {
		emp, err := r.scanEmployeeRow(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}

	return employees, nil
}

// scanEmployee 扫描单行员工数据
func (r *EmployeeRepository) scanEmployee(row *sql.Row) (*model.Employee, error) {
	emp := &model.Employee{}
	var qualsJSON, availJSON, prefsJSON []byte

	err := row.Scan(
		&emp.ID, &emp.Name, &emp.Code, &emp.Status, &qualsJSON, &availJSON,
		&emp.MaxHours, &emp.MinHours, &prefsJSON, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("扫描员工数据失败: %w", err)
	}

	unmarshalEmployeeFields(emp, qualsJSON, availJSON, prefsJSON)
	return emp, nil
}

// scanEmployeeRow 扫描Rows中的员工数据
func (r *EmployeeRepository) scanEmployeeRow(rows *sql.Rows) (*model.Employee, error) {
	emp := &model.Employee{}
	var qualsJSON, availJSON, prefsJSON []byte

	err := rows.Scan(
		&emp.ID, &emp.Name, &emp.Code, &emp.Status, &qualsJSON, &availJSON,
		&emp.MaxHours, &emp.MinHours, &prefsJSON, &emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("扫描员工数据失败: %w", err)
	}

	unmarshalEmployeeFields(emp, qualsJSON, availJSON, prefsJSON)
	return emp, nil
}

func unmarshalEmployeeFields(emp *model.Employee, qualsJSON, availJSON, prefsJSON []byte) {
	json.Unmarshal(qualsJSON, &emp.Qualifications)
	json.Unmarshal(availJSON, &emp.Availability)
	if len(prefsJSON) > 0 && string(prefsJSON) != "null" {
		emp.Preferences = &model.EmployeePreferences{}
		json.Unmarshal(prefsJSON, emp.Preferences)
	}
}

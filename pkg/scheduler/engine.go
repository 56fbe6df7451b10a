// Package scheduler 排班引擎门面
// 将构建器、约束、求解器、提取器与冲突检测器组合成三个对外操作：
// Generate（生成排班）、Optimize（优化既有方案）、CheckConflicts（冲突检查）。
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shiftplan/shiftplan/pkg/errors"
	"github.com/shiftplan/shiftplan/pkg/logger"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler/builder"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint"
	"github.com/shiftplan/shiftplan/pkg/scheduler/constraint/builtin"
	"github.com/shiftplan/shiftplan/pkg/scheduler/extractor"
	"github.com/shiftplan/shiftplan/pkg/scheduler/optimizer"
	"github.com/shiftplan/shiftplan/pkg/scheduler/solver"
	"github.com/shiftplan/shiftplan/pkg/validator"
)

// AssignmentReader 既有分配的读取接口
type AssignmentReader interface {
	// ListAssignments 返回日期范围内的全部分配
	ListAssignments(ctx context.Context, startDate, endDate string) ([]*model.Assignment, error)
}

// ScheduleWriter 排班结果的持久化接口
// 一次求解的全部分配在单个事务中写入。
type ScheduleWriter interface {
	SaveSchedule(ctx context.Context, schedule *model.Schedule, assignments []*model.Assignment) error
}

// Options 引擎配置
type Options struct {
	Solver   solver.Config
	Detector *validator.DetectorConfig
}

// DefaultOptions 返回默认引擎配置
func DefaultOptions() *Options {
	return &Options{
		Solver:   solver.DefaultConfig(),
		Detector: validator.DefaultDetectorConfig(),
	}
}

// Engine 排班引擎
// 无进程级状态，同一引擎可并发服务多次求解。
type Engine struct {
	builder     *builder.Builder
	assignments AssignmentReader
	writer      ScheduleWriter
	opts        *Options
	logger      *logger.SolverLogger
}

// New 创建排班引擎
// assignments 与 writer 可为 nil：前者关闭按日期范围加载，后者关闭持久化。
func New(store builder.Store, assignments AssignmentReader, writer ScheduleWriter, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Engine{
		builder:     builder.New(store),
		assignments: assignments,
		writer:      writer,
		opts:        opts,
		logger:      logger.NewSolverLogger(),
	}
}

// GenerateRequest 生成排班请求
type GenerateRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Name      string `json:"name,omitempty"`

	// ConstraintConfig 约束参数覆盖（最小休息、软约束权重等）
	ConstraintConfig map[string]interface{} `json:"constraint_config,omitempty"`

	// TimeBudget 为 0 时使用引擎默认预算
	TimeBudget time.Duration `json:"time_budget,omitempty"`

	// Seed 固定的既有分配，求解时不可变
	Seed []*model.Assignment `json:"seed,omitempty"`
}

// GenerateResult 生成排班结果
type GenerateResult struct {
	Schedule   *solver.Result        `json:"schedule"`
	Extraction *extractor.Extraction `json:"extraction"`
	Conflicts  []validator.Conflict  `json:"conflicts"`

	ScheduleID           uuid.UUID `json:"schedule_id"`
	PersistedAssignments int       `json:"persisted_assignments"`
}

// Generate 为日期范围生成排班方案
// 输入错误（空员工集、空班次集、非法日期范围）直接返回；
// infeasible/timeout 是正常求解结果，通过 Schedule.Status 表达。
func (e *Engine) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	problem, err := e.builder.Build(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	manager := constraint.NewManager()
	builtin.RegisterDefaultConstraints(manager, req.ConstraintConfig)

	schedCtx := constraint.NewContext(problem.StartDate, problem.EndDate)
	schedCtx.SetEmployees(problem.Employees)
	schedCtx.SetShifts(problem.Shifts)

	cfg := e.opts.Solver
	if req.TimeBudget > 0 {
		cfg.TimeBudget = req.TimeBudget
	}
	cfg.Seed = req.Seed

	result, err := solver.NewBranchBoundSolver(manager, cfg).Solve(ctx, schedCtx)
	if err != nil {
		return nil, err
	}

	schedule := &model.Schedule{
		BaseModel: model.NewBaseModel(),
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    "draft",
		Version:   1,
	}

	extraction := extractor.Extract(schedCtx, result, schedule.ID)
	conflicts := e.detectConflicts(extraction.Assignments, problem.Employees, problem.Shifts)

	out := &GenerateResult{
		Schedule:   result,
		Extraction: extraction,
		Conflicts:  conflicts,
		ScheduleID: schedule.ID,
	}

	if e.writer != nil && len(extraction.Assignments) > 0 {
		schedule.Assignments = extraction.Assignments
		if err := e.writer.SaveSchedule(ctx, schedule, extraction.Assignments); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "保存排班方案失败")
		}
		out.PersistedAssignments = len(extraction.Assignments)
	}

	return out, nil
}

// OptimizeRequest 优化请求
type OptimizeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// Assignments 待优化的分配集合；为空时按日期范围加载既有分配
	Assignments []*model.Assignment `json:"assignments,omitempty"`

	// Goals 优化目标标签，提升对应软约束的权重
	Goals []string `json:"goals,omitempty"`

	ConstraintConfig map[string]interface{} `json:"constraint_config,omitempty"`
	TimeBudget       time.Duration          `json:"time_budget,omitempty"`
}

// OptimizeResult 优化结果
type OptimizeResult struct {
	Status      solver.Status          `json:"status"`
	Assignments []*model.Assignment    `json:"assignments"`
	Objective   int                    `json:"objective"`
	Duration    time.Duration          `json:"duration"`
	Diff        *optimizer.DiffSummary `json:"diff"`
}

// Optimize 优化既有排班方案
// 确定性局部搜索以现有分配为起点；无冲突且未调整目标的方案得到零差异结果。
func (e *Engine) Optimize(ctx context.Context, req *OptimizeRequest) (*OptimizeResult, error) {
	problem, err := e.builder.Build(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	initial := req.Assignments
	if initial == nil {
		if e.assignments == nil {
			return nil, errors.InvalidInput("assignments", "缺少待优化的分配集合")
		}
		initial, err = e.assignments.ListAssignments(ctx, req.StartDate, req.EndDate)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取既有分配失败")
		}
	}

	manager := constraint.NewManager()
	builtin.RegisterDefaultConstraints(manager, applyGoals(req.ConstraintConfig, req.Goals))

	schedCtx := constraint.NewContext(problem.StartDate, problem.EndDate)
	schedCtx.SetEmployees(problem.Employees)
	schedCtx.SetShifts(problem.Shifts)

	optCfg := optimizer.DefaultOptConfig()
	if req.TimeBudget > 0 {
		optCfg.MaxTime = req.TimeBudget
	}

	start := time.Now()
	opt := optimizer.NewLocalSearchOptimizer(optCfg, optimizer.NewManagerEvaluator(manager, schedCtx))
	solution, err := opt.Optimize(ctx, schedCtx, initial)
	if err != nil {
		return nil, err
	}

	diff := optimizer.Diff(initial, solution.Assignments, problem.Shifts)
	before := e.detectConflicts(initial, problem.Employees, problem.Shifts)
	after := e.detectConflicts(solution.Assignments, problem.Employees, problem.Shifts)
	diff.SetConflictCounts(len(before), len(after))

	status := solver.StatusOptimal
	if !solution.Feasible {
		status = solver.StatusInfeasible
	}

	return &OptimizeResult{
		Status:      status,
		Assignments: solution.Assignments,
		Objective:   solution.Objective,
		Duration:    time.Since(start),
		Diff:        diff,
	}, nil
}

// CheckConflictsRequest 冲突检查请求
type CheckConflictsRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// Assignments 为空时按日期范围加载既有分配
	Assignments []*model.Assignment `json:"assignments,omitempty"`
}

// CheckConflictsResult 冲突检查结果
type CheckConflictsResult struct {
	Conflicts []validator.Conflict `json:"conflicts"`
	Count     int                  `json:"count"`
}

// CheckConflicts 检查日期范围内既有分配的冲突
// 只读扫描，不调用求解器；空分配集合返回零冲突。
func (e *Engine) CheckConflicts(ctx context.Context, req *CheckConflictsRequest) (*CheckConflictsResult, error) {
	if err := builder.ValidateDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}

	assignments := req.Assignments
	if assignments == nil {
		if e.assignments == nil {
			return nil, errors.InvalidInput("assignments", "缺少待检查的分配集合")
		}
		var err error
		assignments, err = e.assignments.ListAssignments(ctx, req.StartDate, req.EndDate)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取既有分配失败")
		}
	}
	if len(assignments) == 0 {
		return &CheckConflictsResult{Conflicts: []validator.Conflict{}}, nil
	}

	employees, err := e.builder.Employees(ctx)
	if err != nil {
		return nil, err
	}
	shifts, err := e.builder.Shifts(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	conflicts := e.detectConflicts(assignments, employees, shifts)
	return &CheckConflictsResult{Conflicts: conflicts, Count: len(conflicts)}, nil
}

// detectConflicts 对分配集合运行冲突检测
func (e *Engine) detectConflicts(assignments []*model.Assignment, employees []*model.Employee, shifts []*model.ShiftInstance) []validator.Conflict {
	empMap := make(map[uuid.UUID]*model.Employee, len(employees))
	for _, emp := range employees {
		empMap[emp.ID] = emp
	}
	shiftMap := make(map[uuid.UUID]*model.ShiftInstance, len(shifts))
	for _, s := range shifts {
		shiftMap[s.ID] = s
	}

	detector := validator.NewConflictDetector(e.opts.Detector)
	return detector.DetectAll(assignments, empMap, shiftMap)
}

// applyGoals 按优化目标标签提升软约束权重
// 未知标签忽略；无标签时配置保持不变。
func applyGoals(config map[string]interface{}, goals []string) map[string]interface{} {
	if len(goals) == 0 {
		return config
	}

	merged := make(map[string]interface{}, len(config)+len(goals))
	for k, v := range config {
		merged[k] = v
	}
	for _, goal := range goals {
		switch goal {
		case "balance_workload":
			merged["workload_balance_weight"] = 120
		case "balance_weekends":
			merged["weekend_balance_weight"] = 90
		case "honor_preferences":
			merged["shift_type_preference_weight"] = 100
			merged["day_preference_weight"] = 80
		}
	}
	return merged
}

// ShiftPlan 排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shiftplan/shiftplan/internal/config"
	"github.com/shiftplan/shiftplan/internal/database"
	"github.com/shiftplan/shiftplan/internal/handler"
	"github.com/shiftplan/shiftplan/internal/metrics"
	"github.com/shiftplan/shiftplan/internal/middleware"
	"github.com/shiftplan/shiftplan/internal/repository"
	"github.com/shiftplan/shiftplan/pkg/logger"
	"github.com/shiftplan/shiftplan/pkg/model"
	"github.com/shiftplan/shiftplan/pkg/scheduler"
	"github.com/shiftplan/shiftplan/pkg/scheduler/solver"
	"github.com/shiftplan/shiftplan/pkg/validator"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// store 组合员工与班次模板仓库，实现求解问题构建所需的数据源
type store struct {
	employees *repository.EmployeeRepository
	templates *repository.ShiftTemplateRepository
}

func (s *store) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	return s.employees.ListEmployees(ctx)
}

func (s *store) ListShiftTemplates(ctx context.Context) ([]*model.ShiftTemplate, error) {
	return s.templates.ListShiftTemplates(ctx)
}

func main() {
	// 加载 .env 文件（不存在时静默跳过）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: logFormat(cfg),
	})

	fmt.Printf("ShiftPlan 排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 数据库连接
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("数据库连接失败")
	}
	defer db.Close()

	// 仓库层
	employeeRepo := repository.NewEmployeeRepository(db)
	templateRepo := repository.NewShiftTemplateRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	// 排班引擎
	engine := scheduler.New(
		&store{employees: employeeRepo, templates: templateRepo},
		scheduleRepo, // 按日期范围加载既有分配
		scheduleRepo, // 单事务持久化求解结果
		&scheduler.Options{
			Solver: solver.Config{
				TimeBudget: cfg.Solver.TimeBudget,
				MaxNodes:   int(cfg.Solver.MaxNodes),
			},
			Detector: &validator.DetectorConfig{
				MinRestHours:  cfg.Solver.MinRestHours,
				CheckCoverage: true,
			},
		},
	)

	// 监控指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	db.WithMetrics(m)

	// 处理器
	scheduleHandler := handler.NewScheduleHandler(engine, m)
	statsHandler := handler.NewStatsHandler(m)

	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Health(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","service":"shiftplan","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"shiftplan"}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "ShiftPlan 排班引擎 API v1",
			"endpoints": {
				"schedule": {
					"generate": "POST /api/v1/schedule/generate",
					"optimize": "POST /api/v1/schedule/optimize",
					"conflicts": "POST /api/v1/schedule/conflicts",
					"validate": "POST /api/v1/schedule/validate"
				},
				"constraints": {
					"library": "GET /api/v1/constraints/library"
				},
				"stats": {
					"coverage": "POST /api/v1/stats/coverage",
					"fairness": "POST /api/v1/stats/fairness"
				}
			}
		}`))
	})

	mux.HandleFunc("/api/v1/schedule/generate", scheduleHandler.Generate)
	mux.HandleFunc("/api/v1/schedule/optimize", scheduleHandler.Optimize)
	mux.HandleFunc("/api/v1/schedule/conflicts", scheduleHandler.CheckConflicts)
	mux.HandleFunc("/api/v1/schedule/validate", scheduleHandler.Validate)

	mux.HandleFunc("/api/v1/constraints/library", handleConstraintLibrary)

	mux.HandleFunc("/api/v1/stats/coverage", statsHandler.Coverage)
	mux.HandleFunc("/api/v1/stats/fairness", statsHandler.Fairness)

	// ========================================
	// 监控端点
	// ========================================

	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}

	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> timeout -> logging -> metrics
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery,
		middleware.RequestID,
	}
	if cfg.API.RateLimit > 0 {
		chain = append(chain, middleware.RateLimit(middleware.NewRateLimiter(float64(cfg.API.RateLimit))))
	}
	if cfg.API.CORS.Enabled {
		chain = append(chain, middleware.CORS)
	}
	if cfg.API.Timeout > 0 {
		chain = append(chain, middleware.Timeout(cfg.API.Timeout))
	}
	chain = append(chain, middleware.SecurityHeaders, middleware.Logging)
	if cfg.Metrics.Enabled {
		chain = append(chain, middleware.Metrics(m))
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: middleware.Chain(mux, chain...),
		// WriteTimeout 留出余量，让超时中间件先返回503
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

func logFormat(cfg *config.Config) string {
	if cfg.IsDevelopment() {
		return "console"
	}
	return "json"
}

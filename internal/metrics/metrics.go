// Package metrics 提供Prometheus监控指标
package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
// 使用独立的 Registry，避免污染全局默认注册表。
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	solveTotal    *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	solveNodes    prometheus.Histogram
	objective     prometheus.Gauge

	optimizeTotal    *prometheus.CounterVec
	optimizeDuration prometheus.Histogram

	conflictsDetected *prometheus.CounterVec

	coverageRate prometheus.Gauge
	fairnessGini *prometheus.GaugeVec

	dbQueryDuration *prometheus.HistogramVec
}

// New 创建并注册全部指标
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftplan_http_requests_total",
		Help: "HTTP请求总数",
	}, []string{"method", "path", "status"})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shiftplan_http_request_duration_seconds",
		Help:    "HTTP请求延迟",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	solveTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftplan_solve_total",
		Help: "排班求解次数",
	}, []string{"status"})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shiftplan_solve_duration_seconds",
		Help:    "排班求解耗时",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
	}, []string{"status"})

	solveNodes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shiftplan_solve_nodes_explored",
		Help:    "求解探索的搜索节点数",
		Buckets: prometheus.ExponentialBuckets(100, 10, 6),
	})

	objective := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shiftplan_solution_objective",
		Help: "最近一次求解的软约束惩罚值",
	})

	optimizeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftplan_optimize_total",
		Help: "排班优化次数",
	}, []string{"status"})

	optimizeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "shiftplan_optimize_duration_seconds",
		Help:    "排班优化耗时",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	})

	conflictsDetected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftplan_conflicts_detected_total",
		Help: "检出的冲突数",
	}, []string{"type"})

	coverageRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "shiftplan_coverage_rate",
		Help: "最近一次求解的班次覆盖率",
	})

	fairnessGini := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shiftplan_fairness_gini",
		Help: "公平性基尼系数",
	}, []string{"metric_type"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shiftplan_db_query_duration_seconds",
		Help:    "数据库查询耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shiftplan_goroutines_total",
		Help: "当前 goroutine 数",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestTotal, requestDuration,
		solveTotal, solveDuration, solveNodes, objective,
		optimizeTotal, optimizeDuration,
		conflictsDetected, coverageRate, fairnessGini,
		dbQueryDuration, goroutines,
	)

	return &Metrics{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		solveTotal:        solveTotal,
		solveDuration:     solveDuration,
		solveNodes:        solveNodes,
		objective:         objective,
		optimizeTotal:     optimizeTotal,
		optimizeDuration:  optimizeDuration,
		conflictsDetected: conflictsDetected,
		coverageRate:      coverageRate,
		fairnessGini:      fairnessGini,
		dbQueryDuration:   dbQueryDuration,
	}
}

// Handler 返回 /metrics 的HTTP处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest 记录请求指标
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveSolve 记录一次求解
func (m *Metrics) ObserveSolve(status string, duration time.Duration, nodes int64, objective int) {
	if m == nil {
		return
	}
	m.solveTotal.WithLabelValues(status).Inc()
	m.solveDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.solveNodes.Observe(float64(nodes))
	m.objective.Set(float64(objective))
}

// ObserveOptimize 记录一次优化
func (m *Metrics) ObserveOptimize(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.optimizeTotal.WithLabelValues(status).Inc()
	m.optimizeDuration.Observe(duration.Seconds())
}

// AddConflicts 累计检出的冲突数
func (m *Metrics) AddConflicts(conflictType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.conflictsDetected.WithLabelValues(conflictType).Add(float64(count))
}

// SetCoverageRate 设置覆盖率
func (m *Metrics) SetCoverageRate(rate float64) {
	if m == nil {
		return
	}
	m.coverageRate.Set(rate)
}

// SetFairnessGini 设置公平性基尼系数
func (m *Metrics) SetFairnessGini(metricType string, gini float64) {
	if m == nil {
		return
	}
	m.fairnessGini.WithLabelValues(metricType).Set(gini)
}

// ObserveDBQuery 记录数据库查询耗时
func (m *Metrics) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

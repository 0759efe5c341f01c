package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	PipelineReasonDeadlineExceeded = "deadline_exceeded"
	PipelineReasonDBLocked         = "db_locked"
	PipelineReasonUniqueViolation  = "unique_violation"
	PipelineReasonMissingRelation  = "missing_relation"
	PipelineReasonIO               = "io"
	PipelineReasonUnknown          = "unknown"
)

const (
	StageGenerate = "generate"
	StageMigrate  = "migrate"
	StageLoad     = "load"
	StageSwap     = "swap"
	StageExport   = "export"
)

// PipelineMetrics captures dataset build and warehouse swap health signals.
type PipelineMetrics struct {
	stageRuns       *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	rowsLoaded      *prometheus.CounterVec
	rebuildDuration prometheus.Observer
}

var (
	pipelineMetricsOnce sync.Once
	pipelineMetrics     *PipelineMetrics
)

// Pipeline returns the singleton pipeline metrics registry.
func Pipeline() *PipelineMetrics {
	return PipelineWithConfig(Config{})
}

// PipelineWithConfig returns the singleton pipeline metrics registry using config labels.
func PipelineWithConfig(cfg Config) *PipelineMetrics {
	pipelineMetricsOnce.Do(func() {
		pipelineMetrics = newPipelineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return pipelineMetrics
}

// ResetPipelineMetricsForTest resets the pipeline metrics singleton for tests.
func ResetPipelineMetricsForTest() {
	pipelineMetricsOnce = sync.Once{}
	pipelineMetrics = nil
}

func newPipelineMetrics(registerer prometheus.Registerer, cfg Config) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "copper"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	stageRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "copper_pipeline_stage_runs_total",
		Help:        "Dataset pipeline stage runs by stage.",
		ConstLabels: constLabels,
	}, []string{"stage"})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "copper_pipeline_stage_duration_seconds",
		Help:        "Dataset pipeline stage latency.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		ConstLabels: constLabels,
	}, []string{"stage"})
	stageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "copper_pipeline_stage_errors_total",
		Help:        "Dataset pipeline stage errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"stage", "reason"})
	rowsLoaded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "copper_pipeline_rows_loaded_total",
		Help:        "Rows loaded into warehouse tables per rebuild.",
		ConstLabels: constLabels,
	}, []string{"table"})
	rebuildDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "copper_warehouse_rebuild_seconds",
		Help:        "End to end warehouse rebuild latency including swap.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		stageRuns,
		stageDuration,
		stageErrors,
		rowsLoaded,
		rebuildDuration,
	)

	return &PipelineMetrics{
		stageRuns:       stageRuns,
		stageDuration:   stageDuration,
		stageErrors:     stageErrors,
		rowsLoaded:      rowsLoaded,
		rebuildDuration: rebuildDuration,
	}
}

// IncStageRun increments the run counter for a pipeline stage.
func (m *PipelineMetrics) IncStageRun(stage string) {
	if m == nil || m.stageRuns == nil {
		return
	}
	m.stageRuns.WithLabelValues(stage).Inc()
}

// ObserveStageDuration records pipeline stage latency in seconds.
func (m *PipelineMetrics) ObserveStageDuration(stage string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// IncStageError increments the pipeline error counter with classification.
func (m *PipelineMetrics) IncStageError(stage string, err error) {
	if m == nil || err == nil || m.stageErrors == nil {
		return
	}
	m.stageErrors.WithLabelValues(stage, ClassifyPipelineReason(err)).Inc()
}

// AddRowsLoaded increments the loaded row counter for a warehouse table.
func (m *PipelineMetrics) AddRowsLoaded(table string, count int) {
	if m == nil || count <= 0 || m.rowsLoaded == nil {
		return
	}
	m.rowsLoaded.WithLabelValues(table).Add(float64(count))
}

// ObserveRebuildDuration records total rebuild latency in seconds.
func (m *PipelineMetrics) ObserveRebuildDuration(duration time.Duration) {
	if m == nil || m.rebuildDuration == nil {
		return
	}
	m.rebuildDuration.Observe(duration.Seconds())
}

// ClassifyPipelineReason maps pipeline errors to low-cardinality reasons.
func ClassifyPipelineReason(err error) string {
	if err == nil {
		return PipelineReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return PipelineReasonDeadlineExceeded
	}
	if isDBLocked(err) {
		return PipelineReasonDBLocked
	}
	if isUniqueViolation(err) {
		return PipelineReasonUniqueViolation
	}
	if isMissingRelation(err) {
		return PipelineReasonMissingRelation
	}
	if isIOError(err) {
		return PipelineReasonIO
	}
	return PipelineReasonUnknown
}

// IsPipelineErrRetryable reports whether a rebuild stage should be retried.
func IsPipelineErrRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return isDBLocked(err)
}

func isDBLocked(err error) bool {
	msg := err.Error()
	// SQLite busy and locked states (codes 5 and 6).
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return true
	}
	return hasPGCode(err, "55P03")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}
	return hasPGCode(err, "23505")
}

func isMissingRelation(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such view") {
		return true
	}
	return hasPGCode(err, "42P01")
}

func isIOError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such file or directory") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "disk I/O error")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyPipelineReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: PipelineReasonDeadlineExceeded,
		},
		{
			name: "sqlite_locked",
			err:  errors.New("database is locked (5) (SQLITE_BUSY)"),
			want: PipelineReasonDBLocked,
		},
		{
			name: "pg_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: PipelineReasonDBLocked,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: PipelineReasonUniqueViolation,
		},
		{
			name: "sqlite_unique",
			err:  errors.New("UNIQUE constraint failed: contracts.contract_id"),
			want: PipelineReasonUniqueViolation,
		},
		{
			name: "missing_relation",
			err:  errors.New("no such table: v_portfolio_summary"),
			want: PipelineReasonMissingRelation,
		},
		{
			name: "io",
			err:  errors.New("open data/copper.db: no such file or directory"),
			want: PipelineReasonIO,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: PipelineReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyPipelineReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsPipelineErrRetryable(t *testing.T) {
	if !IsPipelineErrRetryable(errors.New("database is locked")) {
		t.Fatal("expected locked database to be retryable")
	}
	if IsPipelineErrRetryable(gorm.ErrDuplicatedKey) {
		t.Fatal("expected unique violation to not be retryable")
	}
	if IsPipelineErrRetryable(nil) {
		t.Fatal("expected nil error to not be retryable")
	}
}

func TestAddRowsLoaded(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newPipelineMetrics(registry, Config{
		ServiceName: "copper",
		Environment: "test",
	})

	metrics.AddRowsLoaded("transactions", 30000)
	metrics.AddRowsLoaded("transactions", -1)

	got := testutil.ToFloat64(metrics.rowsLoaded.WithLabelValues("transactions"))
	if got != 30000 {
		t.Fatalf("expected loaded count 30000, got %v", got)
	}
}

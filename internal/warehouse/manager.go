package warehouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/copperhq/copper/internal/clock"
	"github.com/copperhq/copper/internal/config"
	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	obsmetrics "github.com/copperhq/copper/internal/observability/metrics"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
	"github.com/copperhq/copper/pkg/db"
)

// Rebuild triggers, recorded on swap metrics and run provenance.
const (
	TriggerStartup = "startup"
	TriggerAdmin   = "admin"
	TriggerCLI     = "cli"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Tenants *config.TenantHolder
	Log     *zap.Logger
	Gen     generatordomain.Service
	Clock   clock.Clock
	Node    *snowflake.Node
	Metrics *obsmetrics.Metrics `optional:"true"`
}

// Manager owns the warehouse handle and its rebuild lifecycle. Readers
// borrow the handle through DB; a rebuild replaces the handle in one
// step, so a query sees either the previous dataset or the new one,
// never a partial load.
type Manager struct {
	cfg      config.Config
	dbCfg    db.Config
	tenants  *config.TenantHolder
	log      *zap.Logger
	gen      generatordomain.Service
	clock    clock.Clock
	node     *snowflake.Node
	metrics  *obsmetrics.Metrics
	pipeline *obsmetrics.PipelineMetrics

	// buildMu serializes rebuilds; concurrent builds would race on the
	// swap file. mu only guards the handle, so reads continue during a
	// rebuild.
	buildMu    sync.Mutex
	mu         sync.RWMutex
	handle     *gorm.DB
	generation atomic.Uint64
}

func NewManager(p Params) *Manager {
	return &Manager{
		cfg:      p.Cfg,
		dbCfg:    db.FromApp(p.Cfg),
		tenants:  p.Tenants,
		log:      p.Log.Named("warehouse"),
		gen:      p.Gen,
		clock:    p.Clock,
		node:     p.Node,
		metrics:  p.Metrics,
		pipeline: obsmetrics.Pipeline(),
	}
}

// RebuildResult summarizes one completed rebuild.
type RebuildResult struct {
	RunID         string        `json:"run_id"`
	Trigger       string        `json:"trigger"`
	Seed          int64         `json:"seed"`
	ReferenceDate string        `json:"reference_date"`
	Tenants       []string      `json:"tenants"`
	Tables        TableCounts   `json:"tables"`
	TotalRows     int           `json:"total_rows"`
	StartedAt     time.Time     `json:"started_at"`
	Took          time.Duration `json:"-"`
}

// DB returns the live warehouse handle, or nil before EnsureReady.
func (m *Manager) DB() *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

// Generation increments on every completed rebuild. Readers that cache
// query results fold it into their keys so a rebuild invalidates them.
func (m *Manager) Generation() uint64 {
	return m.generation.Load()
}

func (m *Manager) setHandle(conn *gorm.DB) {
	m.mu.Lock()
	m.handle = conn
	m.mu.Unlock()
}

// EnsureReady opens the warehouse and builds it when the backing store
// is missing or has no schema. Existing file-backed warehouses are
// reused as-is so restarts keep serving the same dataset.
func (m *Manager) EnsureReady(ctx context.Context) error {
	if m.DB() == nil {
		if m.dbCfg.IsFileBacked() {
			if _, err := os.Stat(m.dbCfg.Path); err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat warehouse file: %w", err)
				}
				m.log.Info("warehouse file missing, generating dataset",
					zap.String("path", m.dbCfg.Path))
				_, err := m.Rebuild(ctx, generatordomain.Options{}, TriggerStartup)
				return err
			}
		}

		conn, err := db.Open(m.dbCfg)
		if err != nil {
			return fmt.Errorf("open warehouse: %w", err)
		}
		m.setHandle(conn)
	}

	ready, err := m.schemaReady(ctx)
	if err != nil {
		return err
	}
	if !ready {
		m.log.Info("warehouse schema missing, generating dataset",
			zap.String("backend", m.backend()))
		_, err := m.Rebuild(ctx, generatordomain.Options{}, TriggerStartup)
		return err
	}

	m.log.Info("warehouse ready",
		zap.String("backend", m.backend()),
		zap.String("path", m.dbCfg.Path))
	return nil
}

// Rebuild regenerates the dataset and replaces the warehouse contents.
// Unset option fields fall back to the configured generation defaults.
func (m *Manager) Rebuild(ctx context.Context, opts generatordomain.Options, trigger string) (*RebuildResult, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	opts = m.mergeOptions(opts)
	startedAt := m.clock.Now()
	timer := time.Now()

	var ds *generatordomain.Dataset
	err := m.runStage(obsmetrics.StageGenerate, func() error {
		var genErr error
		ds, genErr = m.gen.Generate(ctx, opts)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var run pricingdomain.GenerationRun
	if m.dbCfg.IsFileBacked() {
		run, err = m.swapFile(ctx, ds, opts, trigger, startedAt)
	} else {
		run, err = m.reloadInPlace(ctx, ds, opts, trigger, startedAt)
	}
	if err != nil {
		return nil, err
	}

	m.generation.Add(1)

	took := time.Since(timer)
	m.pipeline.ObserveRebuildDuration(took)
	m.metrics.RecordWarehouseSwap(ctx, trigger)

	counts := countsFor(ds)
	for table, rows := range counts.byTable() {
		m.pipeline.AddRowsLoaded(table, rows)
		m.metrics.RecordGenerationRows(ctx, table, int64(rows))
	}

	m.log.Info("warehouse rebuilt",
		zap.String("trigger", trigger),
		zap.Int64("seed", opts.Seed),
		zap.String("reference_date", opts.ReferenceDate),
		zap.Int("total_rows", counts.Total()),
		zap.Duration("took", took),
	)

	return &RebuildResult{
		RunID:         run.ID.String(),
		Trigger:       trigger,
		Seed:          opts.Seed,
		ReferenceDate: opts.ReferenceDate,
		Tenants:       opts.Tenants,
		Tables:        counts,
		TotalRows:     counts.Total(),
		StartedAt:     startedAt,
		Took:          took,
	}, nil
}

// Close releases the warehouse handle.
func (m *Manager) Close() error {
	m.mu.Lock()
	handle := m.handle
	m.handle = nil
	m.mu.Unlock()
	if handle == nil {
		return nil
	}
	return db.Close(handle)
}

// swapFile builds a complete warehouse in a sibling file and renames it
// over the configured path. Readers on the old handle keep the old
// inode until their pool drains, so the swap never interrupts a query.
func (m *Manager) swapFile(ctx context.Context, ds *generatordomain.Dataset, opts generatordomain.Options, trigger string, startedAt time.Time) (pricingdomain.GenerationRun, error) {
	var run pricingdomain.GenerationRun

	target := m.dbCfg.Path
	if dir := filepath.Dir(target); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return run, fmt.Errorf("create warehouse directory: %w", err)
		}
	}

	tmp := target + ".next"
	_ = os.Remove(tmp)

	build, err := db.OpenSQLite(tmp)
	if err != nil {
		return run, fmt.Errorf("open build target: %w", err)
	}

	err = m.runStage(obsmetrics.StageMigrate, func() error {
		return applySQLiteSchema(build)
	})
	if err == nil {
		err = m.runStage(obsmetrics.StageLoad, func() error {
			if loadErr := loadDataset(ctx, build, ds); loadErr != nil {
				return loadErr
			}
			var runErr error
			run, runErr = writeRun(ctx, build, m.node, ds, opts, trigger, startedAt, m.clock.Now())
			return runErr
		})
	}
	if closeErr := db.Close(build); err == nil && closeErr != nil {
		err = fmt.Errorf("close build target: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return run, err
	}

	err = m.runStage(obsmetrics.StageSwap, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if renameErr := os.Rename(tmp, target); renameErr != nil {
			return fmt.Errorf("swap warehouse file: %w", renameErr)
		}
		conn, openErr := db.Open(m.dbCfg)
		if openErr != nil {
			// The previous handle keeps serving the unlinked file.
			return fmt.Errorf("open warehouse: %w", openErr)
		}
		old := m.handle
		m.handle = conn
		if old != nil {
			// Close blocks until in-flight queries return their
			// connections, so it runs off the swap lock.
			go func() { _ = db.Close(old) }()
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(tmp)
		return run, err
	}
	return run, nil
}

// reloadInPlace replaces the warehouse contents through the existing
// handle. Server backends and in-memory databases cannot be swapped at
// the file level, so the wipe and reload run in one transaction.
func (m *Manager) reloadInPlace(ctx context.Context, ds *generatordomain.Dataset, opts generatordomain.Options, trigger string, startedAt time.Time) (pricingdomain.GenerationRun, error) {
	var run pricingdomain.GenerationRun

	conn := m.DB()
	if conn == nil {
		opened, err := db.Open(m.dbCfg)
		if err != nil {
			return run, fmt.Errorf("open warehouse: %w", err)
		}
		m.setHandle(opened)
		conn = opened
	}

	if err := m.runStage(obsmetrics.StageMigrate, func() error {
		return EnsureSchema(conn, m.dbCfg.Type)
	}); err != nil {
		return run, err
	}

	err := m.runStage(obsmetrics.StageLoad, func() error {
		return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, table := range []string{
				"transactions", "rebate_programs", "contracts",
				"products", "facilities", "idns", "gpos",
			} {
				if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
					return fmt.Errorf("clear %s: %w", table, err)
				}
			}
			if err := loadTables(ctx, tx, ds); err != nil {
				return err
			}
			var runErr error
			run, runErr = writeRun(ctx, tx, m.node, ds, opts, trigger, startedAt, m.clock.Now())
			return runErr
		})
	})
	return run, err
}

// schemaReady probes the newest view so missing tables and missing
// views both trigger a rebuild.
func (m *Manager) schemaReady(ctx context.Context) (bool, error) {
	conn := m.DB()
	if conn == nil {
		return false, nil
	}
	var probe int64
	err := conn.WithContext(ctx).Raw("SELECT COUNT(*) FROM v_contract_risk").Scan(&probe).Error
	if err != nil {
		if db.IsMissingTableErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("probe warehouse schema: %w", err)
	}
	return true, nil
}

// mergeOptions fills unset request fields from configuration, keeping
// the canonical dataset shape under operator control.
func (m *Manager) mergeOptions(opts generatordomain.Options) generatordomain.Options {
	gen := m.cfg.Generation
	if opts.Seed == 0 {
		opts.Seed = gen.Seed
	}
	if opts.IDNCount == 0 {
		opts.IDNCount = gen.IDNCount
	}
	if opts.ContractCount == 0 {
		opts.ContractCount = gen.ContractCount
	}
	if opts.TransactionCount == 0 {
		opts.TransactionCount = gen.TransactionCount
	}
	if opts.ReferenceDate == "" {
		opts.ReferenceDate = gen.ReferenceDate
	}
	if len(opts.Tenants) == 0 && m.tenants != nil {
		opts.Tenants = m.tenants.IDs()
	}
	return opts
}

func (m *Manager) runStage(stage string, fn func() error) error {
	m.pipeline.IncStageRun(stage)
	begin := time.Now()
	err := fn()
	m.pipeline.ObserveStageDuration(stage, time.Since(begin))
	if err != nil {
		m.pipeline.IncStageError(stage, err)
	}
	return err
}

func (m *Manager) backend() string {
	if m.dbCfg.Type == "" {
		return "sqlite"
	}
	return m.dbCfg.Type
}

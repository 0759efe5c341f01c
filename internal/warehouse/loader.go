package warehouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
	"github.com/copperhq/copper/pkg/db"
)

const loadBatchSize = 200

// TableCounts reports rows loaded per warehouse table.
type TableCounts struct {
	GPOs         int `json:"gpos"`
	IDNs         int `json:"idns"`
	Facilities   int `json:"facilities"`
	Products     int `json:"products"`
	Contracts    int `json:"contracts"`
	Rebates      int `json:"rebate_programs"`
	Transactions int `json:"transactions"`
}

func countsFor(ds *generatordomain.Dataset) TableCounts {
	return TableCounts{
		GPOs:         len(ds.GPOs),
		IDNs:         len(ds.IDNs),
		Facilities:   len(ds.Facilities),
		Products:     len(ds.Products),
		Contracts:    len(ds.Contracts),
		Rebates:      len(ds.RebatePrograms),
		Transactions: len(ds.Transactions),
	}
}

func (c TableCounts) byTable() map[string]int {
	return map[string]int{
		"gpos":            c.GPOs,
		"idns":            c.IDNs,
		"facilities":      c.Facilities,
		"products":        c.Products,
		"contracts":       c.Contracts,
		"rebate_programs": c.Rebates,
		"transactions":    c.Transactions,
	}
}

// Total returns rows across all tables.
func (c TableCounts) Total() int {
	total := 0
	for _, rows := range c.byTable() {
		total += rows
	}
	return total
}

// loadTables inserts one dataset in dependency order. The caller owns
// the surrounding transaction.
func loadTables(ctx context.Context, tx *gorm.DB, ds *generatordomain.Dataset) error {
	steps := []struct {
		table string
		rows  int
		load  func() error
	}{
		{"gpos", len(ds.GPOs), func() error { return tx.WithContext(ctx).CreateInBatches(ds.GPOs, loadBatchSize).Error }},
		{"idns", len(ds.IDNs), func() error { return tx.WithContext(ctx).CreateInBatches(ds.IDNs, loadBatchSize).Error }},
		{"facilities", len(ds.Facilities), func() error { return tx.WithContext(ctx).CreateInBatches(ds.Facilities, loadBatchSize).Error }},
		{"products", len(ds.Products), func() error { return tx.WithContext(ctx).CreateInBatches(ds.Products, loadBatchSize).Error }},
		{"contracts", len(ds.Contracts), func() error { return tx.WithContext(ctx).CreateInBatches(ds.Contracts, loadBatchSize).Error }},
		{"rebate_programs", len(ds.RebatePrograms), func() error { return tx.WithContext(ctx).CreateInBatches(ds.RebatePrograms, loadBatchSize).Error }},
		{"transactions", len(ds.Transactions), func() error { return tx.WithContext(ctx).CreateInBatches(ds.Transactions, loadBatchSize).Error }},
	}
	for _, step := range steps {
		if step.rows == 0 {
			continue
		}
		if err := step.load(); err != nil {
			return fmt.Errorf("load %s: %w", step.table, err)
		}
	}
	return nil
}

// loadDataset writes one dataset inside a single transaction.
func loadDataset(ctx context.Context, conn *gorm.DB, ds *generatordomain.Dataset) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return loadTables(ctx, tx, ds)
	})
}

// writeRun records provenance for a completed load.
func writeRun(ctx context.Context, conn *gorm.DB, node *snowflake.Node, ds *generatordomain.Dataset, opts generatordomain.Options, trigger string, startedAt, finishedAt time.Time) (pricingdomain.GenerationRun, error) {
	counts := countsFor(ds)
	run := pricingdomain.GenerationRun{
		ID:               node.Generate(),
		Seed:             opts.Seed,
		ReferenceDate:    opts.ReferenceDate,
		IDNCount:         counts.IDNs,
		FacilityCount:    counts.Facilities,
		ProductCount:     counts.Products,
		ContractCount:    counts.Contracts,
		RebateCount:      counts.Rebates,
		TransactionCount: counts.Transactions,
		Params: datatypes.JSONMap{
			"trigger": trigger,
			"tenants": opts.Tenants,
		},
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if err := conn.WithContext(ctx).Create(&run).Error; err != nil {
		return run, fmt.Errorf("record generation run: %w", err)
	}
	return run, nil
}

// CreateFile builds a standalone warehouse file at dbPath from an
// already generated dataset. The export command uses it to produce
// portable database files without going through a Manager.
func CreateFile(ctx context.Context, dbPath string, ds *generatordomain.Dataset, opts generatordomain.Options, node *snowflake.Node, startedAt time.Time) error {
	opts = opts.WithDefaults()
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create warehouse directory: %w", err)
		}
	}

	conn, err := db.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()

	if err := applySQLiteSchema(conn); err != nil {
		return err
	}
	if err := loadDataset(ctx, conn, ds); err != nil {
		return err
	}
	_, err = writeRun(ctx, conn, node, ds, opts, TriggerCLI, startedAt, time.Now().UTC())
	return err
}

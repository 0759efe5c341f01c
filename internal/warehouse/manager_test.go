package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/copperhq/copper/internal/clock"
	"github.com/copperhq/copper/internal/config"
	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	generatorservice "github.com/copperhq/copper/internal/generator/service"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
	"github.com/copperhq/copper/pkg/db"
)

func newTestManager(t *testing.T, dbPath string) *Manager {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	tenants, err := config.NewTenantHolder()
	require.NoError(t, err)

	cfg := config.Config{
		DBType:    "sqlite",
		Warehouse: config.WarehouseConfig{Path: dbPath},
		Generation: config.GenerationConfig{
			Seed:             7,
			IDNCount:         8,
			ContractCount:    25,
			TransactionCount: 400,
			ReferenceDate:    "2025-01-15",
		},
	}

	return NewManager(Params{
		Cfg:     cfg,
		Tenants: tenants,
		Log:     zap.NewNop(),
		Gen:     generatorservice.New(generatorservice.Params{Log: zap.NewNop()}),
		Clock:   clock.NewFakeClock(time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)),
		Node:    node,
	})
}

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Raw("SELECT COUNT(*) FROM "+table).Scan(&n).Error)
	return n
}

func TestEnsureReadyBuildsMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copper.db")
	mgr := newTestManager(t, path)
	defer mgr.Close()

	require.NoError(t, mgr.EnsureReady(context.Background()))

	_, err := os.Stat(path)
	require.NoError(t, err)

	conn := mgr.DB()
	require.NotNil(t, conn)
	assert.EqualValues(t, 5, countRows(t, conn, "gpos"))
	assert.EqualValues(t, 8, countRows(t, conn, "idns"))
	assert.EqualValues(t, 25, countRows(t, conn, "contracts"))
	assert.EqualValues(t, 400, countRows(t, conn, "transactions"))
	assert.Greater(t, countRows(t, conn, "v_portfolio_summary"), int64(0))

	var runs []pricingdomain.GenerationRun
	require.NoError(t, conn.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.EqualValues(t, 7, runs[0].Seed)
	assert.Equal(t, "2025-01-15", runs[0].ReferenceDate)
}

func TestEnsureReadyReusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copper.db")

	first := newTestManager(t, path)
	require.NoError(t, first.EnsureReady(context.Background()))
	require.NoError(t, first.Close())

	second := newTestManager(t, path)
	defer second.Close()
	require.NoError(t, second.EnsureReady(context.Background()))

	assert.EqualValues(t, 1, countRows(t, second.DB(), "generation_runs"))
}

func TestRebuildReplacesFileBackedDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copper.db")
	mgr := newTestManager(t, path)
	defer mgr.Close()

	require.NoError(t, mgr.EnsureReady(context.Background()))
	before := mgr.DB()

	result, err := mgr.Rebuild(context.Background(), generatordomain.Options{Seed: 99}, TriggerAdmin)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, TriggerAdmin, result.Trigger)
	assert.EqualValues(t, 99, result.Seed)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 400, result.Tables.Transactions)
	assert.Equal(t, result.TotalRows, result.Tables.Total())

	conn := mgr.DB()
	require.NotNil(t, conn)
	assert.NotSame(t, before, conn)

	// The swap starts from a fresh file, so only the new run remains.
	var runs []pricingdomain.GenerationRun
	require.NoError(t, conn.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.EqualValues(t, 99, runs[0].Seed)
}

func TestRebuildInPlaceKeepsRunHistory(t *testing.T) {
	mgr := newTestManager(t, "file:wh_inplace?mode=memory&cache=shared")
	defer mgr.Close()

	require.NoError(t, mgr.EnsureReady(context.Background()))
	before := mgr.DB()
	assert.EqualValues(t, 1, countRows(t, before, "generation_runs"))

	_, err := mgr.Rebuild(context.Background(), generatordomain.Options{Seed: 99}, TriggerAdmin)
	require.NoError(t, err)

	// Memory databases reload through the existing handle.
	assert.Same(t, before, mgr.DB())
	assert.EqualValues(t, 2, countRows(t, mgr.DB(), "generation_runs"))
	assert.EqualValues(t, 400, countRows(t, mgr.DB(), "transactions"))
}

func TestPortfolioSummaryStaysTenantScoped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copper.db")
	mgr := newTestManager(t, path)
	defer mgr.Close()

	require.NoError(t, mgr.EnsureReady(context.Background()))
	conn := mgr.DB()

	var tenantIDs []string
	require.NoError(t, conn.Raw("SELECT DISTINCT tenant_id FROM v_portfolio_summary").Scan(&tenantIDs).Error)
	require.NotEmpty(t, tenantIDs)

	known := make(map[string]struct{})
	for _, id := range mgr.tenants.IDs() {
		known[id] = struct{}{}
	}
	for _, id := range tenantIDs {
		_, ok := known[id]
		assert.True(t, ok, "unknown tenant %q in view", id)
	}

	// Tenant groups partition the fact table, so revenue reconciles.
	var raw float64
	require.NoError(t, conn.Raw("SELECT SUM(invoice_price * quantity) FROM transactions").Scan(&raw).Error)
	var grouped float64
	require.NoError(t, conn.Raw("SELECT SUM(total_revenue) FROM v_portfolio_summary").Scan(&grouped).Error)
	assert.InDelta(t, raw, grouped, 1.0)

	var groupedTxns int64
	require.NoError(t, conn.Raw("SELECT SUM(transaction_count) FROM v_portfolio_summary").Scan(&groupedTxns).Error)
	assert.EqualValues(t, 400, groupedTxns)
}

func TestContractRiskClassification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copper.db")
	mgr := newTestManager(t, path)
	defer mgr.Close()

	require.NoError(t, mgr.EnsureReady(context.Background()))

	type riskRow struct {
		ContractID       string   `gorm:"column:contract_id"`
		AKSRiskFlag      string   `gorm:"column:aks_risk_flag"`
		BaseDiscountPct  float64  `gorm:"column:base_discount_pct"`
		AvgMarginPct     *float64 `gorm:"column:avg_margin_pct"`
		TransactionCount int64    `gorm:"column:transaction_count"`
		RiskStatus       string   `gorm:"column:risk_status"`
	}

	var rows []riskRow
	require.NoError(t, mgr.DB().Raw(
		"SELECT contract_id, aks_risk_flag, base_discount_pct, avg_margin_pct, transaction_count, risk_status FROM v_contract_risk",
	).Scan(&rows).Error)
	require.Len(t, rows, 25)

	for _, row := range rows {
		var want string
		switch {
		case row.AKSRiskFlag == string(pricingdomain.AKSHigh):
			want = string(pricingdomain.RiskCritical)
		case row.AvgMarginPct != nil && *row.AvgMarginPct < 15:
			want = string(pricingdomain.RiskAtRisk)
		case row.BaseDiscountPct > 0.30:
			want = string(pricingdomain.RiskWatch)
		default:
			want = string(pricingdomain.RiskHealthy)
		}
		assert.Equal(t, want, row.RiskStatus, "contract %s", row.ContractID)
	}
}

func TestContractRiskSkipsMarginRuleWithoutTransactions(t *testing.T) {
	conn, err := db.OpenSQLite("file:wh_riskedge?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close(conn)

	require.NoError(t, applySQLiteSchema(conn))

	gpo := pricingdomain.GPO{GPOID: "GPO-001", Name: "Vizient", AdminFeePct: 0.03, MemberCount: 4800}
	idn := pricingdomain.IDN{
		IDNID: "IDN-001", Name: "Mercy Health System", GPOID: gpo.GPOID,
		FacilityCount: 4, AnnualSpend: 12000000,
		Region: pricingdomain.RegionMidwest, State: "OH", Tier: pricingdomain.TierSmall,
	}
	require.NoError(t, conn.Create(&gpo).Error)
	require.NoError(t, conn.Create(&idn).Error)

	contract := func(id string, aks pricingdomain.AKSRisk, discount float64) pricingdomain.Contract {
		return pricingdomain.Contract{
			ContractID: id, TenantID: "tenant-a", IDNID: idn.IDNID, GPOID: gpo.GPOID,
			DealStructure: pricingdomain.DealPV, DeviceCategory: pricingdomain.CategorySurgical,
			StartDate: "2024-01-01", EndDate: "2025-01-01", DurationMonths: 12,
			BaseDiscountPct: discount, MarketShareCommitment: 0.85,
			Status: pricingdomain.StatusActive, AnnualVolumeTarget: 1000,
			SafeHarborCompliant: true, AKSRiskFlag: aks,
		}
	}
	for _, c := range []pricingdomain.Contract{
		contract("CTR-0001", pricingdomain.AKSHigh, 0.10),
		contract("CTR-0002", pricingdomain.AKSLow, 0.35),
		contract("CTR-0003", pricingdomain.AKSLow, 0.10),
	} {
		require.NoError(t, conn.Create(&c).Error)
	}

	var rows []struct {
		ContractID string `gorm:"column:contract_id"`
		RiskStatus string `gorm:"column:risk_status"`
	}
	require.NoError(t, conn.Raw(
		"SELECT contract_id, risk_status FROM v_contract_risk ORDER BY contract_id",
	).Scan(&rows).Error)
	require.Len(t, rows, 3)

	// No transactions means a NULL average margin, which must fall
	// through to the discount rule instead of reading as below 15.
	assert.Equal(t, string(pricingdomain.RiskCritical), rows[0].RiskStatus)
	assert.Equal(t, string(pricingdomain.RiskWatch), rows[1].RiskStatus)
	assert.Equal(t, string(pricingdomain.RiskHealthy), rows[2].RiskStatus)
}

func TestMonthlyTrendsOrderedByCalendar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "copper.db")
	mgr := newTestManager(t, path)
	defer mgr.Close()

	require.NoError(t, mgr.EnsureReady(context.Background()))

	var rows []struct {
		Year  int `gorm:"column:year"`
		Month int `gorm:"column:month"`
	}
	require.NoError(t, mgr.DB().Raw("SELECT year, month FROM v_monthly_trends").Scan(&rows).Error)
	require.NotEmpty(t, rows)

	for i := 1; i < len(rows); i++ {
		prev := rows[i-1].Year*100 + rows[i-1].Month
		curr := rows[i].Year*100 + rows[i].Month
		assert.LessOrEqual(t, prev, curr, "row %d out of order", i)
	}
}

func TestCreateFileProducesQueryableWarehouse(t *testing.T) {
	gen := generatorservice.New(generatorservice.Params{Log: zap.NewNop()})
	opts := generatordomain.Options{Seed: 7, IDNCount: 8, ContractCount: 25, TransactionCount: 400}
	ds, err := gen.Generate(context.Background(), opts)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "export", "copper.db")
	require.NoError(t, CreateFile(context.Background(), path, ds, opts, node, time.Now().UTC()))

	conn, err := db.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close(conn)

	assert.EqualValues(t, len(ds.Transactions), countRows(t, conn, "transactions"))
	assert.Greater(t, countRows(t, conn, "v_price_waterfall"), int64(0))

	var run pricingdomain.GenerationRun
	require.NoError(t, conn.First(&run).Error)
	assert.Equal(t, TriggerCLI, run.Params["trigger"])
}

func TestSmallSeededRunEndToEnd(t *testing.T) {
	gen := generatorservice.New(generatorservice.Params{Log: zap.NewNop()})
	opts := generatordomain.Options{Seed: 42, IDNCount: 5, ContractCount: 10, TransactionCount: 100}
	ds, err := gen.Generate(context.Background(), opts)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "copper.db")
	require.NoError(t, CreateFile(context.Background(), path, ds, opts, node, time.Now().UTC()))

	conn, err := db.OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close(conn)

	assert.EqualValues(t, 100, countRows(t, conn, "transactions"))

	var tenantIDs []string
	require.NoError(t, conn.Raw("SELECT DISTINCT tenant_id FROM transactions").Scan(&tenantIDs).Error)
	known := pricingdomain.DefaultTenantIDs()
	for _, id := range tenantIDs {
		assert.Contains(t, known, id)
	}

	var pairs int64
	require.NoError(t, conn.Raw(
		"SELECT COUNT(*) FROM (SELECT DISTINCT tenant_id, device_category FROM transactions)",
	).Scan(&pairs).Error)
	assert.EqualValues(t, pairs, countRows(t, conn, "v_price_waterfall"))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INTEGER);\n\nCREATE INDEX i ON a (x);\n")
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x INTEGER)", stmts[0])
	assert.Equal(t, "CREATE INDEX i ON a (x)", stmts[1])
}

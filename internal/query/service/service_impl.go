package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/copperhq/copper/internal/cache"
	"github.com/copperhq/copper/internal/config"
	obsmetrics "github.com/copperhq/copper/internal/observability/metrics"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
	"github.com/copperhq/copper/internal/query/domain"
	"github.com/copperhq/copper/internal/warehouse"
)

// View labels used for metrics and cache keys.
const (
	viewPortfolio    = "portfolio_summary"
	viewWaterfall    = "price_waterfall"
	viewCustomers    = "customer_performance"
	viewContracts    = "customer_contracts"
	viewTrends       = "monthly_trends"
	viewRisk         = "contract_risk"
	viewTransactions = "transactions"
	viewKPIs         = "kpis"
	viewDimensions   = "dimensions"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Warehouse *warehouse.Manager
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	warehouse *warehouse.Manager
	metrics   *obsmetrics.Metrics
	cache     cache.Cache[cacheKey, any]
	ttl       time.Duration
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("query.service"),
		warehouse: p.Warehouse,
		metrics:   p.Metrics,
		cache:     cache.NewTTLCache[cacheKey, any](cache.WithMaxEntries(p.Cfg.Cache.MaxEntries)),
		ttl:       time.Duration(p.Cfg.Cache.TTLSeconds) * time.Second,
	}
}

func (s *Service) PortfolioSummary(ctx context.Context, tenantID string, f domain.Filters) ([]domain.PortfolioRow, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	conds, args := tenantConds(tenantID)
	conds, args = appendEq(conds, args, "device_category", f.DeviceCategory)
	conds, args = appendEq(conds, args, "deal_structure", f.DealStructure)

	query := `SELECT device_category, deal_structure, contract_count, transaction_count,
       total_revenue, avg_margin_pct, avg_discount_pct, total_margin
FROM v_portfolio_summary` + whereClause(conds) + `
ORDER BY device_category, deal_structure`

	return queryRows[[]domain.PortfolioRow](ctx, s, viewPortfolio, tenantID, query, args)
}

func (s *Service) PriceWaterfall(ctx context.Context, tenantID string, f domain.Filters) ([]domain.WaterfallRow, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	conds, args := tenantConds(tenantID)
	conds, args = appendEq(conds, args, "device_category", f.DeviceCategory)

	query := `SELECT device_category, avg_list_price, avg_contract_discount, avg_gpo_fee,
       avg_rebate, avg_lowest_net, avg_margin, avg_cost
FROM v_price_waterfall` + whereClause(conds) + `
ORDER BY device_category`

	return queryRows[[]domain.WaterfallRow](ctx, s, viewWaterfall, tenantID, query, args)
}

func (s *Service) CustomerPerformance(ctx context.Context, tenantID string, f domain.Filters) ([]domain.CustomerRow, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	conds, args := tenantConds(tenantID)
	conds, args = appendEq(conds, args, "region", f.Region)
	conds, args = appendEq(conds, args, "gpo_name", f.GPO)

	query := `SELECT idn_id, idn_name, idn_tier, region, gpo_name, active_contracts,
       transaction_count, total_revenue, avg_margin_pct, avg_discount_pct, total_margin
FROM v_customer_performance` + whereClause(conds) + `
ORDER BY total_revenue DESC`

	return queryRows[[]domain.CustomerRow](ctx, s, viewCustomers, tenantID, query, args)
}

// CustomerContracts lists an IDN's contracts joined to their risk
// classification. Contracts whose transactions were all filtered out of
// the risk view come back with zeroed metrics and an Unknown status.
func (s *Service) CustomerContracts(ctx context.Context, tenantID, idnID string) ([]domain.ContractSummary, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	idnID = strings.TrimSpace(idnID)
	if idnID == "" {
		return nil, domain.ErrIDNRequired
	}

	query := `SELECT c.contract_id, c.deal_structure, c.device_category, c.status,
       c.start_date, c.end_date, c.base_discount_pct, c.market_share_commitment,
       c.aks_risk_flag,
       COALESCE(cr.avg_margin_pct, 0) AS avg_margin_pct,
       COALESCE(cr.total_revenue, 0) AS total_revenue,
       COALESCE(cr.risk_status, 'Unknown') AS risk_status
FROM contracts c
LEFT JOIN v_contract_risk cr ON c.contract_id = cr.contract_id
WHERE c.tenant_id = ? AND c.idn_id = ?
ORDER BY c.status, c.end_date`

	return queryRows[[]domain.ContractSummary](ctx, s, viewContracts, tenantID, query, []any{tenantID, idnID})
}

func (s *Service) MonthlyTrends(ctx context.Context, tenantID string, f domain.Filters) ([]domain.TrendRow, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	conds, args := tenantConds(tenantID)
	conds, args = appendEq(conds, args, "device_category", f.DeviceCategory)

	query := `SELECT year, month, quarter, device_category, transactions, revenue,
       avg_margin_pct, avg_discount_pct
FROM v_monthly_trends` + whereClause(conds) + `
ORDER BY year, month`

	return queryRows[[]domain.TrendRow](ctx, s, viewTrends, tenantID, query, args)
}

func (s *Service) ContractRisk(ctx context.Context, tenantID string, f domain.Filters) ([]domain.RiskRow, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	conds, args := tenantConds(tenantID)
	conds, args = appendEq(conds, args, "device_category", f.DeviceCategory)
	conds, args = appendEq(conds, args, "deal_structure", f.DealStructure)

	query := `SELECT contract_id, idn_name, deal_structure, device_category, status,
       market_share_commitment, base_discount_pct, aks_risk_flag, end_date,
       transaction_count,
       COALESCE(avg_margin_pct, 0) AS avg_margin_pct,
       COALESCE(total_revenue, 0) AS total_revenue,
       risk_status
FROM v_contract_risk` + whereClause(conds) + `
ORDER BY risk_status, total_revenue DESC`

	return queryRows[[]domain.RiskRow](ctx, s, viewRisk, tenantID, query, args)
}

// Transactions returns recent raw transactions, newest first. The GPO
// filter resolves the name through the gpos table because transactions
// only carry the gpo_id.
func (s *Service) Transactions(ctx context.Context, tenantID string, f domain.Filters, limit int) ([]pricingdomain.Transaction, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	conds, args := tenantConds(tenantID)
	conds, args = appendEq(conds, args, "device_category", f.DeviceCategory)
	conds, args = appendEq(conds, args, "region", f.Region)
	conds, args = appendEq(conds, args, "deal_structure", f.DealStructure)
	if gpo := strings.TrimSpace(f.GPO); gpo != "" {
		conds = append(conds, "gpo_id IN (SELECT gpo_id FROM gpos WHERE name = ?)")
		args = append(args, gpo)
	}

	query := `SELECT * FROM transactions` + whereClause(conds) + `
ORDER BY transaction_date DESC, transaction_id
LIMIT ?`
	args = append(args, limit)

	return queryRows[[]pricingdomain.Transaction](ctx, s, viewTransactions, tenantID, query, args)
}

// KPIs computes the four headline numbers in one statement so they
// describe the same warehouse generation.
func (s *Service) KPIs(ctx context.Context, tenantID string) (domain.KPISet, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domain.KPISet{}, err
	}

	query := `SELECT
  (SELECT COALESCE(SUM(invoice_price * quantity), 0) FROM transactions WHERE tenant_id = ?) AS total_revenue,
  (SELECT COALESCE(AVG(margin_pct), 0) FROM transactions WHERE tenant_id = ?) AS avg_margin_pct,
  (SELECT COUNT(*) FROM contracts WHERE tenant_id = ? AND status = 'Active') AS active_contracts,
  (SELECT COUNT(*) FROM v_contract_risk WHERE tenant_id = ? AND risk_status IN ('Critical', 'At Risk')) AS at_risk_contracts`

	return queryRows[domain.KPISet](ctx, s, viewKPIs, tenantID, query, []any{tenantID, tenantID, tenantID, tenantID})
}

// Dimensions lists the filter values observed in the tenant's
// transactions, plus the IDNs available for drill-down.
func (s *Service) Dimensions(ctx context.Context, tenantID string) (domain.Dimensions, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domain.Dimensions{}, err
	}

	key := s.key(viewDimensions, tenantID, "dimensions", nil)
	if v, ok := s.cache.Get(key); ok {
		if dims, ok := v.(domain.Dimensions); ok {
			s.metrics.RecordCacheHit(ctx, viewDimensions)
			return dims, nil
		}
	}
	s.metrics.RecordCacheMiss(ctx, viewDimensions)

	conn, err := s.conn()
	if err != nil {
		return domain.Dimensions{}, err
	}
	started := time.Now()

	var dims domain.Dimensions
	for _, q := range []struct {
		dest  *[]string
		query string
	}{
		{&dims.DeviceCategories, `SELECT DISTINCT device_category FROM transactions WHERE tenant_id = ? ORDER BY device_category`},
		{&dims.Regions, `SELECT DISTINCT region FROM transactions WHERE tenant_id = ? ORDER BY region`},
		{&dims.DealStructures, `SELECT DISTINCT deal_structure FROM transactions WHERE tenant_id = ? ORDER BY deal_structure`},
		{&dims.GPOs, `SELECT DISTINCT g.name FROM gpos g JOIN transactions t ON g.gpo_id = t.gpo_id WHERE t.tenant_id = ? ORDER BY g.name`},
	} {
		if err := conn.WithContext(ctx).Raw(q.query, tenantID).Scan(q.dest).Error; err != nil {
			return domain.Dimensions{}, fmt.Errorf("query %s: %w", viewDimensions, err)
		}
	}

	err = conn.WithContext(ctx).Raw(
		`SELECT DISTINCT idn_id, idn_name, idn_tier FROM v_customer_performance WHERE tenant_id = ? ORDER BY idn_name`,
		tenantID,
	).Scan(&dims.IDNs).Error
	if err != nil {
		return domain.Dimensions{}, fmt.Errorf("query %s: %w", viewDimensions, err)
	}

	s.metrics.RecordViewQuery(ctx, tenantID, viewDimensions, time.Since(started))
	s.cache.Set(key, dims, s.ttl)
	return dims, nil
}

// queryRows runs one parameterized statement against the warehouse,
// serving repeats from the TTL cache until the next rebuild bumps the
// generation out from under the key.
func queryRows[T any](ctx context.Context, s *Service, view, tenantID, query string, args []any) (T, error) {
	var zero T

	key := s.key(view, tenantID, query, args)
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.metrics.RecordCacheHit(ctx, view)
			return typed, nil
		}
	}
	s.metrics.RecordCacheMiss(ctx, view)

	conn, err := s.conn()
	if err != nil {
		return zero, err
	}

	started := time.Now()
	var rows T
	if err := conn.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return zero, fmt.Errorf("query %s: %w", view, err)
	}
	s.metrics.RecordViewQuery(ctx, tenantID, view, time.Since(started))

	s.cache.Set(key, rows, s.ttl)
	return rows, nil
}

func (s *Service) conn() (*gorm.DB, error) {
	conn := s.warehouse.DB()
	if conn == nil {
		s.log.Warn("query refused, warehouse handle not ready")
		return nil, domain.ErrWarehouseNotReady
	}
	return conn, nil
}

type cacheKey struct {
	generation uint64
	tenantID   string
	view       string
	stmt       string
}

func (s *Service) key(view, tenantID, query string, args []any) cacheKey {
	var b strings.Builder
	b.WriteString(query)
	for _, a := range args {
		b.WriteByte(0x1f)
		fmt.Fprintf(&b, "%v", a)
	}
	return cacheKey{
		generation: s.warehouse.Generation(),
		tenantID:   tenantID,
		view:       view,
		stmt:       b.String(),
	}
}

func requireTenant(tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", domain.ErrTenantRequired
	}
	return tenantID, nil
}

// tenantConds seeds a WHERE clause with the tenant predicate; filters
// are only ever appended after it.
func tenantConds(tenantID string) ([]string, []any) {
	return []string{"tenant_id = ?"}, []any{tenantID}
}

func appendEq(conds []string, args []any, column, value string) ([]string, []any) {
	value = strings.TrimSpace(value)
	if value == "" {
		return conds, args
	}
	return append(conds, column+" = ?"), append(args, value)
}

func whereClause(conds []string) string {
	return "\nWHERE " + strings.Join(conds, " AND ")
}

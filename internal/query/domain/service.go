package domain

import (
	"context"
	"errors"

	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

// Filters narrows an analytical query along the whitelisted dimensions.
// Empty fields match everything. Each view applies only the dimensions
// it actually carries; the rest are ignored.
type Filters struct {
	DeviceCategory string
	Region         string
	DealStructure  string
	GPO            string
}

// PortfolioRow is one v_portfolio_summary row: revenue and margin per
// device category and deal structure.
type PortfolioRow struct {
	DeviceCategory   string  `gorm:"column:device_category" json:"device_category"`
	DealStructure    string  `gorm:"column:deal_structure" json:"deal_structure"`
	ContractCount    int64   `gorm:"column:contract_count" json:"contract_count"`
	TransactionCount int64   `gorm:"column:transaction_count" json:"transaction_count"`
	TotalRevenue     float64 `gorm:"column:total_revenue" json:"total_revenue"`
	AvgMarginPct     float64 `gorm:"column:avg_margin_pct" json:"avg_margin_pct"`
	AvgDiscountPct   float64 `gorm:"column:avg_discount_pct" json:"avg_discount_pct"`
	TotalMargin      float64 `gorm:"column:total_margin" json:"total_margin"`
}

// WaterfallRow is one v_price_waterfall row: the average list-to-net
// decomposition for a device category.
type WaterfallRow struct {
	DeviceCategory      string  `gorm:"column:device_category" json:"device_category"`
	AvgListPrice        float64 `gorm:"column:avg_list_price" json:"avg_list_price"`
	AvgContractDiscount float64 `gorm:"column:avg_contract_discount" json:"avg_contract_discount"`
	AvgGPOFee           float64 `gorm:"column:avg_gpo_fee" json:"avg_gpo_fee"`
	AvgRebate           float64 `gorm:"column:avg_rebate" json:"avg_rebate"`
	AvgLowestNet        float64 `gorm:"column:avg_lowest_net" json:"avg_lowest_net"`
	AvgMargin           float64 `gorm:"column:avg_margin" json:"avg_margin"`
	AvgCost             float64 `gorm:"column:avg_cost" json:"avg_cost"`
}

// CustomerRow is one v_customer_performance row: per-IDN revenue,
// margin and contract activity.
type CustomerRow struct {
	IDNID            string  `gorm:"column:idn_id" json:"idn_id"`
	IDNName          string  `gorm:"column:idn_name" json:"idn_name"`
	IDNTier          string  `gorm:"column:idn_tier" json:"idn_tier"`
	Region           string  `gorm:"column:region" json:"region"`
	GPOName          string  `gorm:"column:gpo_name" json:"gpo_name"`
	ActiveContracts  int64   `gorm:"column:active_contracts" json:"active_contracts"`
	TransactionCount int64   `gorm:"column:transaction_count" json:"transaction_count"`
	TotalRevenue     float64 `gorm:"column:total_revenue" json:"total_revenue"`
	AvgMarginPct     float64 `gorm:"column:avg_margin_pct" json:"avg_margin_pct"`
	AvgDiscountPct   float64 `gorm:"column:avg_discount_pct" json:"avg_discount_pct"`
	TotalMargin      float64 `gorm:"column:total_margin" json:"total_margin"`
}

// TrendRow is one v_monthly_trends row.
type TrendRow struct {
	Year           int     `gorm:"column:year" json:"year"`
	Month          int     `gorm:"column:month" json:"month"`
	Quarter        string  `gorm:"column:quarter" json:"quarter"`
	DeviceCategory string  `gorm:"column:device_category" json:"device_category"`
	Transactions   int64   `gorm:"column:transactions" json:"transactions"`
	Revenue        float64 `gorm:"column:revenue" json:"revenue"`
	AvgMarginPct   float64 `gorm:"column:avg_margin_pct" json:"avg_margin_pct"`
	AvgDiscountPct float64 `gorm:"column:avg_discount_pct" json:"avg_discount_pct"`
}

// RiskRow is one v_contract_risk row. Contracts without transactions
// report zero margin and revenue.
type RiskRow struct {
	ContractID            string  `gorm:"column:contract_id" json:"contract_id"`
	IDNName               string  `gorm:"column:idn_name" json:"idn_name"`
	DealStructure         string  `gorm:"column:deal_structure" json:"deal_structure"`
	DeviceCategory        string  `gorm:"column:device_category" json:"device_category"`
	Status                string  `gorm:"column:status" json:"status"`
	MarketShareCommitment float64 `gorm:"column:market_share_commitment" json:"market_share_commitment"`
	BaseDiscountPct       float64 `gorm:"column:base_discount_pct" json:"base_discount_pct"`
	AKSRiskFlag           string  `gorm:"column:aks_risk_flag" json:"aks_risk_flag"`
	EndDate               string  `gorm:"column:end_date" json:"end_date"`
	TransactionCount      int64   `gorm:"column:transaction_count" json:"transaction_count"`
	AvgMarginPct          float64 `gorm:"column:avg_margin_pct" json:"avg_margin_pct"`
	TotalRevenue          float64 `gorm:"column:total_revenue" json:"total_revenue"`
	RiskStatus            string  `gorm:"column:risk_status" json:"risk_status"`
}

// ContractSummary is one contract in the customer drill-down, joined
// to its risk classification when the contract has transactions.
type ContractSummary struct {
	ContractID            string  `gorm:"column:contract_id" json:"contract_id"`
	DealStructure         string  `gorm:"column:deal_structure" json:"deal_structure"`
	DeviceCategory        string  `gorm:"column:device_category" json:"device_category"`
	Status                string  `gorm:"column:status" json:"status"`
	StartDate             string  `gorm:"column:start_date" json:"start_date"`
	EndDate               string  `gorm:"column:end_date" json:"end_date"`
	BaseDiscountPct       float64 `gorm:"column:base_discount_pct" json:"base_discount_pct"`
	MarketShareCommitment float64 `gorm:"column:market_share_commitment" json:"market_share_commitment"`
	AKSRiskFlag           string  `gorm:"column:aks_risk_flag" json:"aks_risk_flag"`
	AvgMarginPct          float64 `gorm:"column:avg_margin_pct" json:"avg_margin_pct"`
	TotalRevenue          float64 `gorm:"column:total_revenue" json:"total_revenue"`
	RiskStatus            string  `gorm:"column:risk_status" json:"risk_status"`
}

// KPISet carries the four tenant-level headline numbers.
type KPISet struct {
	TotalRevenue    float64 `gorm:"column:total_revenue" json:"total_revenue"`
	AvgMarginPct    float64 `gorm:"column:avg_margin_pct" json:"avg_margin_pct"`
	ActiveContracts int64   `gorm:"column:active_contracts" json:"active_contracts"`
	AtRiskContracts int64   `gorm:"column:at_risk_contracts" json:"at_risk_contracts"`
}

// IDNOption identifies one IDN for pickers and drill-down entry.
type IDNOption struct {
	IDNID   string `gorm:"column:idn_id" json:"idn_id"`
	IDNName string `gorm:"column:idn_name" json:"idn_name"`
	IDNTier string `gorm:"column:idn_tier" json:"idn_tier"`
}

// Dimensions lists the filter values present in a tenant's data.
type Dimensions struct {
	DeviceCategories []string    `json:"device_categories"`
	Regions          []string    `json:"regions"`
	DealStructures   []string    `json:"deal_structures"`
	GPOs             []string    `json:"gpos"`
	IDNs             []IDNOption `json:"idns"`
}

// Service reads the analytical views. Every call scopes to the tenant
// id passed by the caller; there is no ambient tenant state.
type Service interface {
	PortfolioSummary(ctx context.Context, tenantID string, f Filters) ([]PortfolioRow, error)
	PriceWaterfall(ctx context.Context, tenantID string, f Filters) ([]WaterfallRow, error)
	CustomerPerformance(ctx context.Context, tenantID string, f Filters) ([]CustomerRow, error)
	CustomerContracts(ctx context.Context, tenantID, idnID string) ([]ContractSummary, error)
	MonthlyTrends(ctx context.Context, tenantID string, f Filters) ([]TrendRow, error)
	ContractRisk(ctx context.Context, tenantID string, f Filters) ([]RiskRow, error)
	Transactions(ctx context.Context, tenantID string, f Filters, limit int) ([]pricingdomain.Transaction, error)
	KPIs(ctx context.Context, tenantID string) (KPISet, error)
	Dimensions(ctx context.Context, tenantID string) (Dimensions, error)
}

var (
	ErrTenantRequired    = errors.New("tenant_required")
	ErrIDNRequired       = errors.New("idn_required")
	ErrWarehouseNotReady = errors.New("warehouse_not_ready")
)

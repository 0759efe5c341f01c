package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DateLayout is the wire format for all dataset dates. Dates are stored
// as text so warehouse exports and SQL comparisons stay stable across
// drivers.
const DateLayout = "2006-01-02"

type GPO struct {
	GPOID       string  `gorm:"column:gpo_id;primaryKey" json:"gpo_id"`
	Name        string  `gorm:"column:name;not null" json:"name"`
	AdminFeePct float64 `gorm:"column:admin_fee_pct;not null" json:"admin_fee_pct"`
	MemberCount int     `gorm:"column:member_count;not null" json:"member_count"`
}

func (GPO) TableName() string { return "gpos" }

// IDN is the customer entity: a multi-facility health system.
type IDN struct {
	IDNID         string `gorm:"column:idn_id;primaryKey" json:"idn_id"`
	Name          string `gorm:"column:name;not null;uniqueIndex" json:"name"`
	GPOID         string `gorm:"column:gpo_id;not null;index" json:"gpo_id"`
	FacilityCount int    `gorm:"column:facility_count;not null" json:"facility_count"`
	AnnualSpend   int64  `gorm:"column:annual_spend;not null" json:"annual_spend"`
	Region        Region `gorm:"column:region;not null" json:"region"`
	State         string `gorm:"column:state;not null" json:"state"`
	Tier          Tier   `gorm:"column:tier;not null" json:"tier"`
}

func (IDN) TableName() string { return "idns" }

type Facility struct {
	FacilityID   string       `gorm:"column:facility_id;primaryKey" json:"facility_id"`
	IDNID        string       `gorm:"column:idn_id;not null;index" json:"idn_id"`
	Name         string       `gorm:"column:name;not null" json:"name"`
	FacilityType FacilityType `gorm:"column:facility_type;not null" json:"facility_type"`
	BedCount     int          `gorm:"column:bed_count;not null" json:"bed_count"`
	State        string       `gorm:"column:state;not null" json:"state"`
	Region       Region       `gorm:"column:region;not null" json:"region"`
}

func (Facility) TableName() string { return "facilities" }

type Product struct {
	ProductID string         `gorm:"column:product_id;primaryKey" json:"product_id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Category  DeviceCategory `gorm:"column:category;not null;index" json:"category"`
	ListPrice float64        `gorm:"column:list_price;not null" json:"list_price"`
	Cost      float64        `gorm:"column:cost;not null" json:"cost"`
	SKU       string         `gorm:"column:sku;not null" json:"sku"`
}

func (Product) TableName() string { return "products" }

type Contract struct {
	ContractID            string         `gorm:"column:contract_id;primaryKey" json:"contract_id"`
	TenantID              string         `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	IDNID                 string         `gorm:"column:idn_id;not null;index" json:"idn_id"`
	GPOID                 string         `gorm:"column:gpo_id;not null" json:"gpo_id"`
	DealStructure         DealStructure  `gorm:"column:deal_structure;not null" json:"deal_structure"`
	DeviceCategory        DeviceCategory `gorm:"column:device_category;not null" json:"device_category"`
	StartDate             string         `gorm:"column:start_date;not null" json:"start_date"`
	EndDate               string         `gorm:"column:end_date;not null" json:"end_date"`
	DurationMonths        int            `gorm:"column:duration_months;not null" json:"duration_months"`
	BaseDiscountPct       float64        `gorm:"column:base_discount_pct;not null" json:"base_discount_pct"`
	MarketShareCommitment float64        `gorm:"column:market_share_commitment;not null" json:"market_share_commitment"`
	Status                ContractStatus `gorm:"column:status;not null;index" json:"status"`
	AnnualVolumeTarget    int            `gorm:"column:annual_volume_target;not null" json:"annual_volume_target"`
	SafeHarborCompliant   bool           `gorm:"column:safe_harbor_compliant;not null" json:"safe_harbor_compliant"`
	AKSRiskFlag           AKSRisk        `gorm:"column:aks_risk_flag;not null" json:"aks_risk_flag"`
}

func (Contract) TableName() string { return "contracts" }

// Start parses the contract start date.
func (c Contract) Start() (time.Time, error) {
	return time.Parse(DateLayout, c.StartDate)
}

// End parses the contract end date.
func (c Contract) End() (time.Time, error) {
	return time.Parse(DateLayout, c.EndDate)
}

type RebateProgram struct {
	RebateID         string      `gorm:"column:rebate_id;primaryKey" json:"rebate_id"`
	ContractID       string      `gorm:"column:contract_id;not null;index" json:"contract_id"`
	RebateType       RebateType  `gorm:"column:rebate_type;not null" json:"rebate_type"`
	RebatePct        float64     `gorm:"column:rebate_pct;not null" json:"rebate_pct"`
	TriggerType      string      `gorm:"column:trigger_type;not null" json:"trigger_type"`
	TriggerThreshold float64     `gorm:"column:trigger_threshold;not null" json:"trigger_threshold"`
	Orientation      Orientation `gorm:"column:orientation;not null" json:"orientation"`
	Earned           bool        `gorm:"column:earned;not null" json:"earned"`
}

func (RebateProgram) TableName() string { return "rebate_programs" }

// Transaction carries the full price waterfall plus denormalized
// reporting dimensions so the analytical views never re-join for them.
type Transaction struct {
	TransactionID    string         `gorm:"column:transaction_id;primaryKey" json:"transaction_id"`
	TenantID         string         `gorm:"column:tenant_id;not null;index" json:"tenant_id"`
	ContractID       string         `gorm:"column:contract_id;not null;index" json:"contract_id"`
	IDNID            string         `gorm:"column:idn_id;not null;index" json:"idn_id"`
	GPOID            string         `gorm:"column:gpo_id;not null" json:"gpo_id"`
	ProductID        string         `gorm:"column:product_id;not null" json:"product_id"`
	TransactionDate  string         `gorm:"column:transaction_date;not null" json:"transaction_date"`
	Quantity         int            `gorm:"column:quantity;not null" json:"quantity"`
	ListPrice        float64        `gorm:"column:list_price;not null" json:"list_price"`
	InvoicePrice     float64        `gorm:"column:invoice_price;not null" json:"invoice_price"`
	GPOAdminFee      float64        `gorm:"column:gpo_admin_fee;not null" json:"gpo_admin_fee"`
	RebateAmount     float64        `gorm:"column:rebate_amount;not null" json:"rebate_amount"`
	LowestNetPrice   float64        `gorm:"column:lowest_net_price;not null" json:"lowest_net_price"`
	UnitCost         float64        `gorm:"column:unit_cost;not null" json:"unit_cost"`
	Margin           float64        `gorm:"column:margin;not null" json:"margin"`
	MarginPct        float64        `gorm:"column:margin_pct;not null" json:"margin_pct"`
	TotalDiscountPct float64        `gorm:"column:total_discount_pct;not null" json:"total_discount_pct"`
	DealStructure    DealStructure  `gorm:"column:deal_structure;not null" json:"deal_structure"`
	DeviceCategory   DeviceCategory `gorm:"column:device_category;not null" json:"device_category"`
	Region           Region         `gorm:"column:region;not null" json:"region"`
	IDNTier          Tier           `gorm:"column:idn_tier;not null" json:"idn_tier"`
	Quarter          string         `gorm:"column:quarter;not null" json:"quarter"`
	Year             int            `gorm:"column:year;not null" json:"year"`
	Month            int            `gorm:"column:month;not null" json:"month"`
}

func (Transaction) TableName() string { return "transactions" }

// GenerationRun records one warehouse build for provenance.
type GenerationRun struct {
	ID               snowflake.ID      `gorm:"column:id;primaryKey" json:"id"`
	Seed             int64             `gorm:"column:seed;not null" json:"seed"`
	ReferenceDate    string            `gorm:"column:reference_date;not null" json:"reference_date"`
	IDNCount         int               `gorm:"column:idn_count;not null" json:"idn_count"`
	FacilityCount    int               `gorm:"column:facility_count;not null" json:"facility_count"`
	ProductCount     int               `gorm:"column:product_count;not null" json:"product_count"`
	ContractCount    int               `gorm:"column:contract_count;not null" json:"contract_count"`
	RebateCount      int               `gorm:"column:rebate_count;not null" json:"rebate_count"`
	TransactionCount int               `gorm:"column:transaction_count;not null" json:"transaction_count"`
	Params           datatypes.JSONMap `gorm:"column:params" json:"params,omitempty"`
	StartedAt        time.Time         `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt       time.Time         `gorm:"column:finished_at;not null" json:"finished_at"`
}

func (GenerationRun) TableName() string { return "generation_runs" }

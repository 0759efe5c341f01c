package domain

// Fixed catalogs and sampling policy for the synthetic dataset. The
// generator is the only writer of these distributions; everything else
// treats the values as read-only reference data.

// CategorySpec describes one device category: its list-price range and
// the fixed product names sold under it.
type CategorySpec struct {
	Category DeviceCategory
	MinPrice float64
	MaxPrice float64
	Products []string
}

// RebateSpec describes one rebate program type.
type RebateSpec struct {
	Type    RebateType
	MinRate float64
	MaxRate float64
	Trigger string
}

// Tenant is one manufacturer sharing the warehouse.
type Tenant struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// GPOs is the fixed purchasing-organization catalog. Never generated.
var GPOs = []GPO{
	{GPOID: "GPO-001", Name: "Vizient", AdminFeePct: 0.03, MemberCount: 4800},
	{GPOID: "GPO-002", Name: "Premier", AdminFeePct: 0.025, MemberCount: 4100},
	{GPOID: "GPO-003", Name: "HealthTrust", AdminFeePct: 0.02, MemberCount: 1800},
	{GPOID: "GPO-004", Name: "Intalere", AdminFeePct: 0.015, MemberCount: 1200},
	{GPOID: "GPO-005", Name: "HPG", AdminFeePct: 0.02, MemberCount: 800},
}

// GPOWeights is the IDN affiliation distribution, aligned with GPOs.
var GPOWeights = []float64{0.35, 0.30, 0.15, 0.12, 0.08}

var Categories = []CategorySpec{
	{Category: CategoryOrthopedic, MinPrice: 500, MaxPrice: 15000, Products: []string{
		"Total Knee System", "Total Hip System", "Spinal Fusion Rod",
		"Shoulder Arthroplasty Kit", "Trauma Plate Set", "ACL Reconstruction Kit",
	}},
	{Category: CategoryCardiovascular, MinPrice: 1000, MaxPrice: 30000, Products: []string{
		"Drug-Eluting Stent", "Pacemaker Dual Chamber", "Heart Valve Prosthesis",
		"Ablation Catheter", "Guidewire Set", "Angioplasty Balloon",
	}},
	{Category: CategorySurgical, MinPrice: 50, MaxPrice: 2000, Products: []string{
		"Laparoscopic Stapler", "Electrosurgical Generator", "Suture Kit Premium",
		"Trocar Set", "Clip Applier", "Vessel Sealing Device",
	}},
	{Category: CategoryConsumables, MinPrice: 5, MaxPrice: 200, Products: []string{
		"Surgical Drape Pack", "Wound Closure Strip", "Hemostatic Agent",
		"Irrigation Solution", "Skin Prep Kit", "Adhesive Bandage Box",
	}},
}

// CategorySpecFor returns the spec for a category, or false when the
// category is not in the catalog.
func CategorySpecFor(category DeviceCategory) (CategorySpec, bool) {
	for _, spec := range Categories {
		if spec.Category == category {
			return spec, true
		}
	}
	return CategorySpec{}, false
}

// DealStructureWeights aligns with DealStructures().
var DealStructureWeights = []float64{0.25, 0.30, 0.15, 0.20, 0.10}

// StructureBaseDiscount is the discount starting point per deal structure.
var StructureBaseDiscount = map[DealStructure]float64{
	DealPV:      0.20,
	DealDV:      0.15,
	DealTV:      0.12,
	DealAccess:  0.05,
	DealAllPlay: 0.03,
}

// TierDiscountBonus is added on top of the structure base discount.
var TierDiscountBonus = map[Tier]float64{
	TierLarge:  0.08,
	TierMedium: 0.04,
	TierSmall:  0,
}

// MarketShareRange returns the commitment bounds for a deal structure.
// Access and All Play contracts carry no commitment.
func MarketShareRange(structure DealStructure) (low, high float64) {
	switch structure {
	case DealPV:
		return 0.80, 0.95
	case DealDV:
		return 0.40, 0.60
	case DealTV:
		return 0.25, 0.35
	default:
		return 0, 0
	}
}

var StatesByRegion = map[Region][]string{
	RegionNortheast: {"NY", "NJ", "PA", "CT", "MA"},
	RegionSoutheast: {"FL", "GA", "NC", "VA", "TN"},
	RegionMidwest:   {"IL", "OH", "MI", "IN", "WI"},
	RegionWest:      {"CA", "WA", "OR", "CO", "AZ"},
	RegionSouthwest: {"TX", "OK", "NM", "LA", "AR"},
}

var RebateSpecs = []RebateSpec{
	{Type: RebateVolume, MinRate: 0.02, MaxRate: 0.05, Trigger: "units_threshold"},
	{Type: RebateLoyalty, MinRate: 0.01, MaxRate: 0.03, Trigger: "market_share_threshold"},
	{Type: RebateBundle, MinRate: 0.01, MaxRate: 0.02, Trigger: "cross_category_purchase"},
	{Type: RebateGrowth, MinRate: 0.005, MaxRate: 0.015, Trigger: "yoy_volume_increase"},
}

// RebateCountChoices and RebateCountWeights set how many programs attach
// to each contract.
var (
	RebateCountChoices = []int{1, 2, 3}
	RebateCountWeights = []float64{0.3, 0.5, 0.2}
)

// ContractDurations and ContractDurationWeights set contract length in months.
var (
	ContractDurations       = []int{12, 24, 36}
	ContractDurationWeights = []float64{0.3, 0.5, 0.2}
)

// Contract start dates are drawn from a fixed window so a given seed and
// reference date always classify the same contracts as expired.
const (
	ContractWindowStart = "2023-01-01"
	ContractWindowDays  = 540
)

// AKSRiskLevels and AKSRiskWeights set the anti-kickback risk flag
// distribution, aligned by index.
var (
	AKSRiskLevels  = []AKSRisk{AKSLow, AKSMedium, AKSHigh}
	AKSRiskWeights = []float64{0.7, 0.25, 0.05}
)

// FacilityTypeWeights aligns with Hospital, ASC, Clinic.
var FacilityTypeWeights = []float64{0.5, 0.3, 0.2}

// DefaultTenants is the built-in tenant catalog, used when no tenant
// configuration file is present.
var DefaultTenants = []Tenant{
	{ID: "meddevice_corp", Name: "MedDevice Corp"},
	{ID: "orthotech_inc", Name: "OrthoTech Inc"},
}

// DefaultTenantIDs returns the ids of DefaultTenants in order.
func DefaultTenantIDs() []string {
	ids := make([]string, 0, len(DefaultTenants))
	for _, t := range DefaultTenants {
		ids = append(ids, t.ID)
	}
	return ids
}

package domain

// DealStructure is the contract category driving commitment and discount terms.
type DealStructure string

const (
	DealPV      DealStructure = "PV"
	DealDV      DealStructure = "DV"
	DealTV      DealStructure = "TV"
	DealAccess  DealStructure = "Access"
	DealAllPlay DealStructure = "All Play"
)

func DealStructures() []DealStructure {
	return []DealStructure{DealPV, DealDV, DealTV, DealAccess, DealAllPlay}
}

func (d DealStructure) Valid() bool {
	switch d {
	case DealPV, DealDV, DealTV, DealAccess, DealAllPlay:
		return true
	default:
		return false
	}
}

// DeviceCategory is one of the four fixed product categories.
type DeviceCategory string

const (
	CategoryOrthopedic     DeviceCategory = "Orthopedic Implants"
	CategoryCardiovascular DeviceCategory = "Cardiovascular"
	CategorySurgical       DeviceCategory = "Surgical Instruments"
	CategoryConsumables    DeviceCategory = "Consumables"
)

func DeviceCategories() []DeviceCategory {
	return []DeviceCategory{CategoryOrthopedic, CategoryCardiovascular, CategorySurgical, CategoryConsumables}
}

func (c DeviceCategory) Valid() bool {
	switch c {
	case CategoryOrthopedic, CategoryCardiovascular, CategorySurgical, CategoryConsumables:
		return true
	default:
		return false
	}
}

type FacilityType string

const (
	FacilityHospital FacilityType = "Hospital"
	FacilityASC      FacilityType = "ASC"
	FacilityClinic   FacilityType = "Clinic"
)

type ContractStatus string

const (
	StatusActive  ContractStatus = "Active"
	StatusRenewed ContractStatus = "Renewed"
	StatusExpired ContractStatus = "Expired"
	StatusPending ContractStatus = "Pending"
)

// Billable reports whether transactions may be sampled against the contract.
func (s ContractStatus) Billable() bool {
	return s == StatusActive || s == StatusRenewed
}

type AKSRisk string

const (
	AKSLow    AKSRisk = "Low"
	AKSMedium AKSRisk = "Medium"
	AKSHigh   AKSRisk = "High"
)

// Tier buckets an IDN by facility count.
type Tier string

const (
	TierLarge  Tier = "Large"
	TierMedium Tier = "Medium"
	TierSmall  Tier = "Small"
)

// TierForFacilityCount derives the size tier. Large above 30 facilities,
// Medium above 10, Small otherwise.
func TierForFacilityCount(count int) Tier {
	switch {
	case count > 30:
		return TierLarge
	case count > 10:
		return TierMedium
	default:
		return TierSmall
	}
}

type RebateType string

const (
	RebateVolume  RebateType = "Volume"
	RebateLoyalty RebateType = "Loyalty"
	RebateBundle  RebateType = "Bundle"
	RebateGrowth  RebateType = "Growth"
)

type Orientation string

const (
	OrientationOffensive Orientation = "Offensive"
	OrientationDefensive Orientation = "Defensive"
)

type Region string

const (
	RegionNortheast Region = "Northeast"
	RegionSoutheast Region = "Southeast"
	RegionMidwest   Region = "Midwest"
	RegionWest      Region = "West"
	RegionSouthwest Region = "Southwest"
)

func Regions() []Region {
	return []Region{RegionNortheast, RegionSoutheast, RegionMidwest, RegionWest, RegionSouthwest}
}

// RiskStatus is the classification produced by the contract risk view.
type RiskStatus string

const (
	RiskCritical RiskStatus = "Critical"
	RiskAtRisk   RiskStatus = "At Risk"
	RiskWatch    RiskStatus = "Watch"
	RiskHealthy  RiskStatus = "Healthy"
)

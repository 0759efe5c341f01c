package service

import (
	"fmt"
	"time"

	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

func (b *builder) buildContracts(idns []pricingdomain.IDN) []pricingdomain.Contract {
	n := b.opts.ContractCount
	windowStart, _ := time.Parse(pricingdomain.DateLayout, pricingdomain.ContractWindowStart)

	contracts := make([]pricingdomain.Contract, 0, n)
	for i := 0; i < n; i++ {
		// IDNs are drawn with replacement: large customers holding many
		// contracts is the realistic shape.
		idn := pickOne(b.rand, idns)
		structure := pickWeighted(b.rand, pricingdomain.DealStructures(), pricingdomain.DealStructureWeights)
		category := pickOne(b.rand, pricingdomain.DeviceCategories())

		start := windowStart.AddDate(0, 0, b.rand.intBetween(0, pricingdomain.ContractWindowDays))
		months := pickWeighted(b.rand, pricingdomain.ContractDurations, pricingdomain.ContractDurationWeights)
		end := start.AddDate(0, 0, months*30)

		commitment := 0.0
		if low, high := pricingdomain.MarketShareRange(structure); high > 0 {
			commitment = pricingdomain.Round2(b.rand.uniform(low, high))
		}

		discount := pricingdomain.StructureBaseDiscount[structure] +
			pricingdomain.TierDiscountBonus[idn.Tier] +
			b.rand.normal(0, 0.02)
		discount = pricingdomain.Round3(pricingdomain.Clamp(discount, 0.02, 0.40))

		contracts = append(contracts, pricingdomain.Contract{
			ContractID:            fmt.Sprintf("CTR-%04d", i+1),
			TenantID:              pickOne(b.rand, b.opts.Tenants),
			IDNID:                 idn.IDNID,
			GPOID:                 idn.GPOID,
			DealStructure:         structure,
			DeviceCategory:        category,
			StartDate:             start.Format(pricingdomain.DateLayout),
			EndDate:               end.Format(pricingdomain.DateLayout),
			DurationMonths:        months,
			BaseDiscountPct:       discount,
			MarketShareCommitment: commitment,
			Status:                b.contractStatus(start, end),
			AnnualVolumeTarget:    int(b.rand.uniform(100, 5000)),
			SafeHarborCompliant:   true,
			AKSRiskFlag:           pickWeighted(b.rand, pricingdomain.AKSRiskLevels, pricingdomain.AKSRiskWeights),
		})
	}
	return contracts
}

func (b *builder) contractStatus(start, end time.Time) pricingdomain.ContractStatus {
	switch {
	case end.Before(b.reference):
		if b.rand.chance(0.4) {
			return pricingdomain.StatusExpired
		}
		return pricingdomain.StatusRenewed
	case start.After(b.reference):
		return pricingdomain.StatusPending
	default:
		return pricingdomain.StatusActive
	}
}

func (b *builder) buildRebates(contracts []pricingdomain.Contract) []pricingdomain.RebateProgram {
	rebates := make([]pricingdomain.RebateProgram, 0, len(contracts)*2)
	id := 1
	for _, contract := range contracts {
		count := pickWeighted(b.rand, pricingdomain.RebateCountChoices, pricingdomain.RebateCountWeights)
		for _, spec := range pickDistinct(b.rand, pricingdomain.RebateSpecs, count) {
			orientation := pricingdomain.OrientationDefensive
			if b.rand.chance(0.4) {
				orientation = pricingdomain.OrientationOffensive
			}

			rebates = append(rebates, pricingdomain.RebateProgram{
				RebateID:         fmt.Sprintf("REB-%04d", id),
				ContractID:       contract.ContractID,
				RebateType:       spec.Type,
				RebatePct:        pricingdomain.Round3(b.rand.uniform(spec.MinRate, spec.MaxRate)),
				TriggerType:      spec.Trigger,
				TriggerThreshold: pricingdomain.Round2(b.rand.uniform(0.5, 0.9)),
				Orientation:      orientation,
				Earned:           b.rand.chance(0.65),
			})
			id++
		}
	}
	return rebates
}

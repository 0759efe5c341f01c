package service

import (
	"fmt"
	"time"

	"github.com/copperhq/copper/internal/generator/domain"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

// builder holds the seeded stream and reference date for one build. All
// build* methods draw from the same stream, so call order is part of the
// dataset contract.
type builder struct {
	opts      domain.Options
	reference time.Time
	rand      *sampler
}

func newBuilder(opts domain.Options, reference time.Time) *builder {
	return &builder{
		opts:      opts,
		reference: reference,
		rand:      newSampler(opts.Seed),
	}
}

func (b *builder) buildGPOs() []pricingdomain.GPO {
	gpos := make([]pricingdomain.GPO, len(pricingdomain.GPOs))
	copy(gpos, pricingdomain.GPOs)
	return gpos
}

func (b *builder) buildIDNs() []pricingdomain.IDN {
	n := b.opts.IDNCount
	idns := make([]pricingdomain.IDN, 0, n)
	taken := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		// Log-normal sizes: few large systems, many small ones.
		size := int(b.rand.logNormal(2.5, 0.8))
		if size < 2 {
			size = 2
		}
		if size > 180 {
			size = 180
		}

		name := b.healthSystemName(taken, i+1)
		taken[name] = struct{}{}

		region := pickOne(b.rand, pricingdomain.Regions())
		gpo := pickWeighted(b.rand, pricingdomain.GPOs, pricingdomain.GPOWeights)

		idns = append(idns, pricingdomain.IDN{
			IDNID:         fmt.Sprintf("IDN-%03d", i+1),
			Name:          name,
			GPOID:         gpo.GPOID,
			FacilityCount: size,
			AnnualSpend:   int64(float64(size) * b.rand.uniform(2_000_000, 8_000_000)),
			Region:        region,
			State:         pickOne(b.rand, pricingdomain.StatesByRegion[region]),
			Tier:          pricingdomain.TierForFacilityCount(size),
		})
	}
	return idns
}

func (b *builder) buildFacilities(idns []pricingdomain.IDN) []pricingdomain.Facility {
	total := 0
	for _, idn := range idns {
		total += idn.FacilityCount
	}

	types := []pricingdomain.FacilityType{
		pricingdomain.FacilityHospital,
		pricingdomain.FacilityASC,
		pricingdomain.FacilityClinic,
	}

	facilities := make([]pricingdomain.Facility, 0, total)
	id := 1
	for _, idn := range idns {
		for j := 0; j < idn.FacilityCount; j++ {
			facilityType := pickWeighted(b.rand, types, pricingdomain.FacilityTypeWeights)

			beds := 0
			switch facilityType {
			case pricingdomain.FacilityHospital:
				beds = b.rand.intBetween(50, 800)
			case pricingdomain.FacilityASC:
				beds = b.rand.intBetween(4, 20)
			}

			facilities = append(facilities, pricingdomain.Facility{
				FacilityID:   fmt.Sprintf("FAC-%05d", id),
				IDNID:        idn.IDNID,
				Name:         fmt.Sprintf("%s - %s %s", idn.Name, pickOne(b.rand, cities), facilityType),
				FacilityType: facilityType,
				BedCount:     beds,
				State:        idn.State,
				Region:       idn.Region,
			})
			id++
		}
	}
	return facilities
}

func (b *builder) buildProducts() []pricingdomain.Product {
	products := make([]pricingdomain.Product, 0, 24)
	id := 1
	for _, spec := range pricingdomain.Categories {
		for _, name := range spec.Products {
			listPrice := pricingdomain.Round2(b.rand.uniform(spec.MinPrice, spec.MaxPrice))
			products = append(products, pricingdomain.Product{
				ProductID: fmt.Sprintf("PROD-%03d", id),
				Name:      name,
				Category:  spec.Category,
				ListPrice: listPrice,
				Cost:      pricingdomain.Round2(listPrice * b.rand.uniform(0.25, 0.45)),
				SKU:       b.sku(),
			})
			id++
		}
	}
	return products
}

func (b *builder) sku() string {
	return fmt.Sprintf("SKU-%c%c-%c%c%c%c",
		b.rand.letter(), b.rand.letter(),
		b.rand.digit(), b.rand.digit(), b.rand.digit(), b.rand.digit(),
	)
}

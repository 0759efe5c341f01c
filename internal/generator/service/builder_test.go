package service

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperhq/copper/internal/generator/domain"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

func newTestBuilder(t *testing.T, opts domain.Options) *builder {
	t.Helper()
	opts = opts.WithDefaults()
	reference, err := time.Parse(pricingdomain.DateLayout, opts.ReferenceDate)
	require.NoError(t, err)
	return newBuilder(opts, reference)
}

func TestBuildIDNs(t *testing.T) {
	b := newTestBuilder(t, domain.Options{Seed: 3, IDNCount: 40})
	idns := b.buildIDNs()
	require.Len(t, idns, 40)

	names := make(map[string]struct{}, len(idns))
	for i, idn := range idns {
		assert.Equal(t, fmt.Sprintf("IDN-%03d", i+1), idn.IDNID)

		_, dup := names[idn.Name]
		assert.False(t, dup, "duplicate name %q", idn.Name)
		names[idn.Name] = struct{}{}

		assert.GreaterOrEqual(t, idn.FacilityCount, 2)
		assert.LessOrEqual(t, idn.FacilityCount, 180)
		assert.Equal(t, pricingdomain.TierForFacilityCount(idn.FacilityCount), idn.Tier)

		assert.GreaterOrEqual(t, idn.AnnualSpend, int64(idn.FacilityCount)*2_000_000)
		assert.LessOrEqual(t, idn.AnnualSpend, int64(idn.FacilityCount)*8_000_000)

		states := pricingdomain.StatesByRegion[idn.Region]
		assert.Contains(t, states, idn.State)

		validGPO := false
		for _, gpo := range pricingdomain.GPOs {
			if gpo.GPOID == idn.GPOID {
				validGPO = true
			}
		}
		assert.True(t, validGPO, "unknown gpo %s", idn.GPOID)
	}
}

func TestBuildFacilities(t *testing.T) {
	b := newTestBuilder(t, domain.Options{Seed: 3, IDNCount: 12})
	idns := b.buildIDNs()
	facilities := b.buildFacilities(idns)

	expected := 0
	idnByID := make(map[string]pricingdomain.IDN)
	for _, idn := range idns {
		expected += idn.FacilityCount
		idnByID[idn.IDNID] = idn
	}
	require.Len(t, facilities, expected)

	for i, facility := range facilities {
		assert.Equal(t, fmt.Sprintf("FAC-%05d", i+1), facility.FacilityID)

		idn, ok := idnByID[facility.IDNID]
		require.True(t, ok)
		assert.Equal(t, idn.State, facility.State)
		assert.Equal(t, idn.Region, facility.Region)
		assert.Contains(t, facility.Name, idn.Name+" - ")

		switch facility.FacilityType {
		case pricingdomain.FacilityHospital:
			assert.GreaterOrEqual(t, facility.BedCount, 50)
			assert.Less(t, facility.BedCount, 800)
		case pricingdomain.FacilityASC:
			assert.GreaterOrEqual(t, facility.BedCount, 4)
			assert.Less(t, facility.BedCount, 20)
		case pricingdomain.FacilityClinic:
			assert.Equal(t, 0, facility.BedCount)
		default:
			t.Fatalf("unexpected facility type %q", facility.FacilityType)
		}
	}
}

func TestBuildProducts(t *testing.T) {
	skuPattern := regexp.MustCompile(`^SKU-[A-Z]{2}-\d{4}$`)

	b := newTestBuilder(t, domain.Options{Seed: 3})
	products := b.buildProducts()
	require.Len(t, products, 24)

	byCategory := make(map[pricingdomain.DeviceCategory]int)
	for i, product := range products {
		assert.Equal(t, fmt.Sprintf("PROD-%03d", i+1), product.ProductID)
		assert.Regexp(t, skuPattern, product.SKU)

		spec, ok := pricingdomain.CategorySpecFor(product.Category)
		require.True(t, ok)
		assert.Contains(t, spec.Products, product.Name)
		assert.GreaterOrEqual(t, product.ListPrice, spec.MinPrice)
		assert.LessOrEqual(t, product.ListPrice, spec.MaxPrice)

		assert.Greater(t, product.Cost, 0.0)
		assert.Less(t, product.Cost, product.ListPrice)
		assert.GreaterOrEqual(t, product.Cost, pricingdomain.Round2(product.ListPrice*0.25)-0.01)
		assert.LessOrEqual(t, product.Cost, pricingdomain.Round2(product.ListPrice*0.45)+0.01)

		byCategory[product.Category]++
	}

	for _, spec := range pricingdomain.Categories {
		assert.Equal(t, 6, byCategory[spec.Category])
	}
}

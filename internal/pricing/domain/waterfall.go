package domain

import "math"

// Waterfall is the per-transaction price decomposition from list price
// down to realized margin. Every stage is rounded to cents so the same
// inputs always reproduce the same row.
type Waterfall struct {
	ListPrice        float64
	InvoicePrice     float64
	GPOAdminFee      float64
	RebateAmount     float64
	LowestNetPrice   float64
	UnitCost         float64
	Margin           float64
	MarginPct        float64
	TotalDiscountPct float64
}

// ComputeWaterfall walks list price through contract discount, GPO admin
// fee and rebate to lowest net, then to margin. MarginPct is 0 whenever
// lowest net is not positive, and TotalDiscountPct is 0 for a zero list
// price.
func ComputeWaterfall(listPrice, baseDiscountPct, gpoFeePct, rebatePct, unitCost float64) Waterfall {
	invoice := Round2(listPrice * (1 - baseDiscountPct))
	gpoFee := Round2(invoice * gpoFeePct)
	rebate := Round2(invoice * rebatePct)
	lowestNet := Round2(invoice - gpoFee - rebate)
	margin := Round2(lowestNet - unitCost)

	var marginPct float64
	if lowestNet > 0 {
		marginPct = Round1(margin / lowestNet * 100)
	}

	var totalDiscountPct float64
	if listPrice > 0 {
		totalDiscountPct = Round3(1 - lowestNet/listPrice)
	}

	return Waterfall{
		ListPrice:        listPrice,
		InvoicePrice:     invoice,
		GPOAdminFee:      gpoFee,
		RebateAmount:     rebate,
		LowestNetPrice:   lowestNet,
		UnitCost:         unitCost,
		Margin:           margin,
		MarginPct:        marginPct,
		TotalDiscountPct: totalDiscountPct,
	}
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round3 rounds to three decimal places, the precision used for rates.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Clamp bounds v to [low, high].
func Clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

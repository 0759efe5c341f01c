package service

import (
	"fmt"
	"time"

	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

// fallbackContractLimit caps how many contracts back the transaction
// stream when no contract is in a billable status.
const fallbackContractLimit = 50

func (b *builder) buildTransactions(contracts []pricingdomain.Contract, products []pricingdomain.Product, idns []pricingdomain.IDN) []pricingdomain.Transaction {
	billable := make([]pricingdomain.Contract, 0, len(contracts))
	for _, contract := range contracts {
		if contract.Status.Billable() {
			billable = append(billable, contract)
		}
	}
	if len(billable) == 0 {
		limit := len(contracts)
		if limit > fallbackContractLimit {
			limit = fallbackContractLimit
		}
		billable = contracts[:limit]
	}
	if len(billable) == 0 {
		return nil
	}

	byCategory := make(map[pricingdomain.DeviceCategory][]pricingdomain.Product)
	for _, product := range products {
		byCategory[product.Category] = append(byCategory[product.Category], product)
	}

	idnByID := make(map[string]pricingdomain.IDN, len(idns))
	for _, idn := range idns {
		idnByID[idn.IDNID] = idn
	}

	feeByGPO := make(map[string]float64, len(pricingdomain.GPOs))
	for _, gpo := range pricingdomain.GPOs {
		feeByGPO[gpo.GPOID] = gpo.AdminFeePct
	}

	n := b.opts.TransactionCount
	txns := make([]pricingdomain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		contract := pickOne(b.rand, billable)

		pool := byCategory[contract.DeviceCategory]
		if len(pool) == 0 {
			pool = products
		}
		product := pickOne(b.rand, pool)
		idn := idnByID[contract.IDNID]

		txnDate := b.transactionDate(contract)

		quantity := int(b.rand.logNormal(1.5, 1.0))
		if quantity < 1 {
			quantity = 1
		}
		if quantity > 200 {
			quantity = 200
		}

		rebatePct := pricingdomain.Round3(b.rand.uniform(0.01, 0.06))
		wf := pricingdomain.ComputeWaterfall(
			product.ListPrice,
			contract.BaseDiscountPct,
			feeByGPO[contract.GPOID],
			rebatePct,
			product.Cost,
		)

		txns = append(txns, pricingdomain.Transaction{
			TransactionID:    fmt.Sprintf("TXN-%06d", i+1),
			TenantID:         contract.TenantID,
			ContractID:       contract.ContractID,
			IDNID:            contract.IDNID,
			GPOID:            contract.GPOID,
			ProductID:        product.ProductID,
			TransactionDate:  txnDate.Format(pricingdomain.DateLayout),
			Quantity:         quantity,
			ListPrice:        wf.ListPrice,
			InvoicePrice:     wf.InvoicePrice,
			GPOAdminFee:      wf.GPOAdminFee,
			RebateAmount:     wf.RebateAmount,
			LowestNetPrice:   wf.LowestNetPrice,
			UnitCost:         wf.UnitCost,
			Margin:           wf.Margin,
			MarginPct:        wf.MarginPct,
			TotalDiscountPct: wf.TotalDiscountPct,
			DealStructure:    contract.DealStructure,
			DeviceCategory:   contract.DeviceCategory,
			Region:           idn.Region,
			IDNTier:          idn.Tier,
			Quarter:          fmt.Sprintf("Q%d %d", (int(txnDate.Month())-1)/3+1, txnDate.Year()),
			Year:             txnDate.Year(),
			Month:            int(txnDate.Month()),
		})
	}
	return txns
}

// transactionDate draws a date within the contract period. A degenerate
// period falls back to a year from the start.
func (b *builder) transactionDate(contract pricingdomain.Contract) time.Time {
	start, err := contract.Start()
	if err != nil {
		return b.reference
	}
	end, err := contract.End()
	if err != nil {
		return start
	}

	span := int(end.Sub(start) / (24 * time.Hour))
	if span <= 0 {
		span = 365
	}
	return start.AddDate(0, 0, b.rand.intBetween(0, span))
}

package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperhq/copper/internal/generator/domain"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

func buildTestDataset(t *testing.T, opts domain.Options) (*builder, *domain.Dataset) {
	t.Helper()
	b := newTestBuilder(t, opts)
	ds := &domain.Dataset{}
	ds.GPOs = b.buildGPOs()
	ds.IDNs = b.buildIDNs()
	ds.Facilities = b.buildFacilities(ds.IDNs)
	ds.Products = b.buildProducts()
	ds.Contracts = b.buildContracts(ds.IDNs)
	ds.Transactions = b.buildTransactions(ds.Contracts, ds.Products, ds.IDNs)
	return b, ds
}

func TestTransactionsReferenceBillableContracts(t *testing.T) {
	_, ds := buildTestDataset(t, domain.Options{Seed: 5, IDNCount: 10, ContractCount: 60, TransactionCount: 500})
	require.Len(t, ds.Transactions, 500)

	contractByID := make(map[string]pricingdomain.Contract)
	for _, contract := range ds.Contracts {
		contractByID[contract.ContractID] = contract
	}

	for _, txn := range ds.Transactions {
		contract, ok := contractByID[txn.ContractID]
		require.True(t, ok, "transaction %s references unknown contract", txn.TransactionID)
		assert.True(t, contract.Status.Billable(), "contract %s status %s", contract.ContractID, contract.Status)

		assert.Equal(t, contract.TenantID, txn.TenantID)
		assert.Equal(t, contract.IDNID, txn.IDNID)
		assert.Equal(t, contract.GPOID, txn.GPOID)
		assert.Equal(t, contract.DealStructure, txn.DealStructure)
		assert.Equal(t, contract.DeviceCategory, txn.DeviceCategory)
	}
}

func TestTransactionsFallBackToLeadingContracts(t *testing.T) {
	// An anchor before the contract window leaves every contract Pending,
	// which forces the fallback pool.
	_, ds := buildTestDataset(t, domain.Options{
		Seed: 5, IDNCount: 10, ContractCount: 80, TransactionCount: 200,
		ReferenceDate: "2020-06-15",
	})
	require.Len(t, ds.Transactions, 200)

	allowed := make(map[string]struct{})
	for _, contract := range ds.Contracts[:50] {
		allowed[contract.ContractID] = struct{}{}
	}
	for _, txn := range ds.Transactions {
		_, ok := allowed[txn.ContractID]
		assert.True(t, ok, "transaction %s drew contract %s outside the fallback pool", txn.TransactionID, txn.ContractID)
	}
}

func TestTransactionWaterfallReconciles(t *testing.T) {
	_, ds := buildTestDataset(t, domain.Options{Seed: 5, IDNCount: 10, ContractCount: 60, TransactionCount: 300})

	contractByID := make(map[string]pricingdomain.Contract)
	for _, contract := range ds.Contracts {
		contractByID[contract.ContractID] = contract
	}
	productByID := make(map[string]pricingdomain.Product)
	for _, product := range ds.Products {
		productByID[product.ProductID] = product
	}
	feeByGPO := make(map[string]float64)
	for _, gpo := range ds.GPOs {
		feeByGPO[gpo.GPOID] = gpo.AdminFeePct
	}

	for _, txn := range ds.Transactions {
		contract := contractByID[txn.ContractID]
		product := productByID[txn.ProductID]

		assert.Equal(t, product.ListPrice, txn.ListPrice)
		assert.Equal(t, product.Cost, txn.UnitCost)
		assert.Equal(t, pricingdomain.Round2(txn.ListPrice*(1-contract.BaseDiscountPct)), txn.InvoicePrice)
		assert.Equal(t, pricingdomain.Round2(txn.InvoicePrice*feeByGPO[txn.GPOID]), txn.GPOAdminFee)
		assert.Equal(t, pricingdomain.Round2(txn.InvoicePrice-txn.GPOAdminFee-txn.RebateAmount), txn.LowestNetPrice)
		assert.Equal(t, pricingdomain.Round2(txn.LowestNetPrice-txn.UnitCost), txn.Margin)

		if txn.LowestNetPrice > 0 {
			assert.Equal(t, pricingdomain.Round1(txn.Margin/txn.LowestNetPrice*100), txn.MarginPct)
		} else {
			assert.Zero(t, txn.MarginPct)
		}
		assert.Equal(t, pricingdomain.Round3(1-txn.LowestNetPrice/txn.ListPrice), txn.TotalDiscountPct)

		assert.GreaterOrEqual(t, txn.Quantity, 1)
		assert.LessOrEqual(t, txn.Quantity, 200)
	}
}

func TestTransactionDatesAndCalendarFields(t *testing.T) {
	_, ds := buildTestDataset(t, domain.Options{Seed: 5, IDNCount: 10, ContractCount: 60, TransactionCount: 300})

	contractByID := make(map[string]pricingdomain.Contract)
	for _, contract := range ds.Contracts {
		contractByID[contract.ContractID] = contract
	}
	idnByID := make(map[string]pricingdomain.IDN)
	for _, idn := range ds.IDNs {
		idnByID[idn.IDNID] = idn
	}

	for i, txn := range ds.Transactions {
		assert.Equal(t, fmt.Sprintf("TXN-%06d", i+1), txn.TransactionID)

		contract := contractByID[txn.ContractID]
		start, err := contract.Start()
		require.NoError(t, err)
		end, err := contract.End()
		require.NoError(t, err)

		date, err := time.Parse(pricingdomain.DateLayout, txn.TransactionDate)
		require.NoError(t, err)
		assert.False(t, date.Before(start), "transaction %s dated before contract start", txn.TransactionID)
		assert.True(t, date.Before(end), "transaction %s dated after contract end", txn.TransactionID)

		assert.Equal(t, date.Year(), txn.Year)
		assert.Equal(t, int(date.Month()), txn.Month)
		assert.Equal(t, fmt.Sprintf("Q%d %d", (txn.Month-1)/3+1, txn.Year), txn.Quarter)

		idn := idnByID[txn.IDNID]
		assert.Equal(t, idn.Region, txn.Region)
		assert.Equal(t, idn.Tier, txn.IDNTier)
	}
}

package warehouse

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

// ExportCSV writes one CSV file per warehouse table into dir. Columns
// follow the table schemas so the files round-trip into any SQL tool.
func ExportCSV(ds *generatordomain.Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"gpos.csv", gpoColumns, gpoRows(ds.GPOs)},
		{"idns.csv", idnColumns, idnRows(ds.IDNs)},
		{"facilities.csv", facilityColumns, facilityRows(ds.Facilities)},
		{"products.csv", productColumns, productRows(ds.Products)},
		{"contracts.csv", contractColumns, contractRows(ds.Contracts)},
		{"rebate_programs.csv", rebateColumns, rebateRows(ds.RebatePrograms)},
		{"transactions.csv", transactionColumns, transactionRows(ds.Transactions)},
	}
	for _, f := range files {
		if err := writeCSV(filepath.Join(dir, f.name), f.header, f.rows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(header); err == nil {
		err = w.WriteAll(rows)
	}
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}

var gpoColumns = []string{"gpo_id", "name", "admin_fee_pct", "member_count"}

func gpoRows(gpos []pricingdomain.GPO) [][]string {
	rows := make([][]string, 0, len(gpos))
	for _, g := range gpos {
		rows = append(rows, []string{
			g.GPOID,
			g.Name,
			formatFloat(g.AdminFeePct),
			strconv.Itoa(g.MemberCount),
		})
	}
	return rows
}

var idnColumns = []string{"idn_id", "name", "gpo_id", "facility_count", "annual_spend", "region", "state", "tier"}

func idnRows(idns []pricingdomain.IDN) [][]string {
	rows := make([][]string, 0, len(idns))
	for _, i := range idns {
		rows = append(rows, []string{
			i.IDNID,
			i.Name,
			i.GPOID,
			strconv.Itoa(i.FacilityCount),
			strconv.FormatInt(i.AnnualSpend, 10),
			string(i.Region),
			i.State,
			string(i.Tier),
		})
	}
	return rows
}

var facilityColumns = []string{"facility_id", "idn_id", "name", "facility_type", "bed_count", "state", "region"}

func facilityRows(facilities []pricingdomain.Facility) [][]string {
	rows := make([][]string, 0, len(facilities))
	for _, f := range facilities {
		rows = append(rows, []string{
			f.FacilityID,
			f.IDNID,
			f.Name,
			string(f.FacilityType),
			strconv.Itoa(f.BedCount),
			f.State,
			string(f.Region),
		})
	}
	return rows
}

var productColumns = []string{"product_id", "name", "category", "list_price", "cost", "sku"}

func productRows(products []pricingdomain.Product) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.ProductID,
			p.Name,
			string(p.Category),
			formatFloat(p.ListPrice),
			formatFloat(p.Cost),
			p.SKU,
		})
	}
	return rows
}

var contractColumns = []string{
	"contract_id", "tenant_id", "idn_id", "gpo_id", "deal_structure",
	"device_category", "start_date", "end_date", "duration_months",
	"base_discount_pct", "market_share_commitment", "status",
	"annual_volume_target", "safe_harbor_compliant", "aks_risk_flag",
}

func contractRows(contracts []pricingdomain.Contract) [][]string {
	rows := make([][]string, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, []string{
			c.ContractID,
			c.TenantID,
			c.IDNID,
			c.GPOID,
			string(c.DealStructure),
			string(c.DeviceCategory),
			c.StartDate,
			c.EndDate,
			strconv.Itoa(c.DurationMonths),
			formatFloat(c.BaseDiscountPct),
			formatFloat(c.MarketShareCommitment),
			string(c.Status),
			strconv.Itoa(c.AnnualVolumeTarget),
			strconv.FormatBool(c.SafeHarborCompliant),
			string(c.AKSRiskFlag),
		})
	}
	return rows
}

var rebateColumns = []string{
	"rebate_id", "contract_id", "rebate_type", "rebate_pct",
	"trigger_type", "trigger_threshold", "orientation", "earned",
}

func rebateRows(rebates []pricingdomain.RebateProgram) [][]string {
	rows := make([][]string, 0, len(rebates))
	for _, r := range rebates {
		rows = append(rows, []string{
			r.RebateID,
			r.ContractID,
			string(r.RebateType),
			formatFloat(r.RebatePct),
			r.TriggerType,
			formatFloat(r.TriggerThreshold),
			string(r.Orientation),
			strconv.FormatBool(r.Earned),
		})
	}
	return rows
}

var transactionColumns = []string{
	"transaction_id", "tenant_id", "contract_id", "idn_id", "gpo_id",
	"product_id", "transaction_date", "quantity", "list_price",
	"invoice_price", "gpo_admin_fee", "rebate_amount", "lowest_net_price",
	"unit_cost", "margin", "margin_pct", "total_discount_pct",
	"deal_structure", "device_category", "region", "idn_tier",
	"quarter", "year", "month",
}

func transactionRows(txns []pricingdomain.Transaction) [][]string {
	rows := make([][]string, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []string{
			t.TransactionID,
			t.TenantID,
			t.ContractID,
			t.IDNID,
			t.GPOID,
			t.ProductID,
			t.TransactionDate,
			strconv.Itoa(t.Quantity),
			formatFloat(t.ListPrice),
			formatFloat(t.InvoicePrice),
			formatFloat(t.GPOAdminFee),
			formatFloat(t.RebateAmount),
			formatFloat(t.LowestNetPrice),
			formatFloat(t.UnitCost),
			formatFloat(t.Margin),
			formatFloat(t.MarginPct),
			formatFloat(t.TotalDiscountPct),
			string(t.DealStructure),
			string(t.DeviceCategory),
			string(t.Region),
			string(t.IDNTier),
			t.Quarter,
			strconv.Itoa(t.Year),
			strconv.Itoa(t.Month),
		})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

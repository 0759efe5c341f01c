package warehouse

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	generatorservice "github.com/copperhq/copper/internal/generator/service"
)

func TestExportCSVWritesAllTables(t *testing.T) {
	gen := generatorservice.New(generatorservice.Params{Log: zap.NewNop()})
	ds, err := gen.Generate(context.Background(), generatordomain.Options{
		Seed: 7, IDNCount: 8, ContractCount: 20, TransactionCount: 150,
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "raw")
	require.NoError(t, ExportCSV(ds, dir))

	expected := map[string]struct {
		header []string
		rows   int
	}{
		"gpos.csv":            {gpoColumns, len(ds.GPOs)},
		"idns.csv":            {idnColumns, len(ds.IDNs)},
		"facilities.csv":      {facilityColumns, len(ds.Facilities)},
		"products.csv":        {productColumns, len(ds.Products)},
		"contracts.csv":       {contractColumns, len(ds.Contracts)},
		"rebate_programs.csv": {rebateColumns, len(ds.RebatePrograms)},
		"transactions.csv":    {transactionColumns, len(ds.Transactions)},
	}

	for name, want := range expected {
		file, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err, name)

		records, err := csv.NewReader(file).ReadAll()
		require.NoError(t, file.Close())
		require.NoError(t, err, name)
		require.NotEmpty(t, records, name)

		assert.Equal(t, want.header, records[0], name)
		assert.Len(t, records[1:], want.rows, name)
	}
}

func TestExportCSVKeepsFixedBuyerRows(t *testing.T) {
	gen := generatorservice.New(generatorservice.Params{Log: zap.NewNop()})
	ds, err := gen.Generate(context.Background(), generatordomain.Options{
		Seed: 7, IDNCount: 4, ContractCount: 10, TransactionCount: 50,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, ExportCSV(ds, dir))

	file, err := os.Open(filepath.Join(dir, "gpos.csv"))
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, []string{"GPO-001", "Vizient", "0.03", "4800"}, records[1])
	assert.Equal(t, []string{"GPO-005", "HPG", "0.02", "800"}, records[5])
}

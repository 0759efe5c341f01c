package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	generatordomain "github.com/copperhq/copper/internal/generator/domain"
	generatorservice "github.com/copperhq/copper/internal/generator/service"
	"github.com/copperhq/copper/internal/warehouse"
)

func main() {
	dbPath := flag.String("db", "copper.db", "Warehouse file to write. Pass an empty string to skip the database build.")
	csvDir := flag.String("csv-dir", "", "Optional: also export every table as CSV into this directory.")
	seed := flag.Int64("seed", 0, "Generation seed (0 uses the default seed; equal seeds reproduce equal datasets).")
	idns := flag.Int("idns", 0, "Number of IDN health systems (0 uses the default).")
	contracts := flag.Int("contracts", 0, "Number of contracts (0 uses the default).")
	transactions := flag.Int("transactions", 0, "Number of transactions (0 uses the default).")
	reference := flag.String("reference", "", "Reference date YYYY-MM-DD anchoring contract status (empty uses the default).")
	tenants := flag.String("tenants", "", "Comma-separated tenant ids (empty uses the built-in catalog).")
	flag.Parse()

	if strings.TrimSpace(*dbPath) == "" && strings.TrimSpace(*csvDir) == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -db and/or -csv-dir")
		os.Exit(1)
	}

	opts := generatordomain.Options{
		Seed:             *seed,
		IDNCount:         *idns,
		ContractCount:    *contracts,
		TransactionCount: *transactions,
		ReferenceDate:    strings.TrimSpace(*reference),
		Tenants:          splitTenants(*tenants),
	}
	opts = opts.WithDefaults()

	ctx := context.Background()
	startedAt := time.Now().UTC()

	gen := generatorservice.New(generatorservice.Params{Log: zap.NewNop()})
	ds, err := gen.Generate(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate dataset: %v\n", err)
		os.Exit(1)
	}

	if path := strings.TrimSpace(*dbPath); path != "" {
		node, err := snowflake.NewNode(1)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init id node: %v\n", err)
			os.Exit(1)
		}
		if err := warehouse.CreateFile(ctx, path, ds, opts, node, startedAt); err != nil {
			fmt.Fprintf(os.Stderr, "build warehouse %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("warehouse written to %s\n", path)
	}

	if dir := strings.TrimSpace(*csvDir); dir != "" {
		if err := warehouse.ExportCSV(ds, dir); err != nil {
			fmt.Fprintf(os.Stderr, "export csv to %s: %v\n", dir, err)
			os.Exit(1)
		}
		fmt.Printf("csv tables written to %s\n", dir)
	}

	fmt.Printf("seed=%d reference=%s tenants=%s\n", opts.Seed, opts.ReferenceDate, strings.Join(opts.Tenants, ","))
	fmt.Printf("rows: gpos=%d idns=%d facilities=%d products=%d contracts=%d rebate_programs=%d transactions=%d (%.2fs)\n",
		len(ds.GPOs), len(ds.IDNs), len(ds.Facilities), len(ds.Products),
		len(ds.Contracts), len(ds.RebatePrograms), len(ds.Transactions),
		time.Since(startedAt).Seconds())
}

func splitTenants(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

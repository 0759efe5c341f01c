package service

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/copperhq/copper/internal/generator/domain"
	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

type Params struct {
	fx.In

	Log *zap.Logger
}

type Service struct {
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		log: p.Log.Named("generator.service"),
	}
}

// Generate builds a complete dataset from the options. The same options
// always produce the same dataset.
func (s *Service) Generate(ctx context.Context, opts domain.Options) (*domain.Dataset, error) {
	opts = opts.WithDefaults()
	if opts.IDNCount < 0 || opts.ContractCount < 0 || opts.TransactionCount < 0 {
		return nil, domain.ErrInvalidCount
	}
	if len(opts.Tenants) == 0 {
		return nil, domain.ErrNoTenants
	}

	reference, err := time.Parse(pricingdomain.DateLayout, opts.ReferenceDate)
	if err != nil {
		return nil, domain.ErrInvalidReferenceDate
	}

	start := time.Now()
	b := newBuilder(opts, reference)
	ds := &domain.Dataset{}

	ds.GPOs = b.buildGPOs()
	ds.IDNs = b.buildIDNs()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds.Facilities = b.buildFacilities(ds.IDNs)
	ds.Products = b.buildProducts()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds.Contracts = b.buildContracts(ds.IDNs)
	ds.RebatePrograms = b.buildRebates(ds.Contracts)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds.Transactions = b.buildTransactions(ds.Contracts, ds.Products, ds.IDNs)

	s.log.Info("dataset generated",
		zap.Int64("seed", opts.Seed),
		zap.String("reference_date", opts.ReferenceDate),
		zap.Int("idns", len(ds.IDNs)),
		zap.Int("facilities", len(ds.Facilities)),
		zap.Int("products", len(ds.Products)),
		zap.Int("contracts", len(ds.Contracts)),
		zap.Int("rebate_programs", len(ds.RebatePrograms)),
		zap.Int("transactions", len(ds.Transactions)),
		zap.Duration("took", time.Since(start)),
	)

	return ds, nil
}

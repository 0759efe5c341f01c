package domain

import (
	"context"
	"errors"

	pricingdomain "github.com/copperhq/copper/internal/pricing/domain"
)

const (
	DefaultSeed             = 42
	DefaultIDNCount         = 60
	DefaultContractCount    = 150
	DefaultTransactionCount = 30000
	DefaultReferenceDate    = "2025-01-15"
)

// Options control one dataset build. Zero values fall back to the
// defaults above, so an empty Options reproduces the canonical dataset.
type Options struct {
	Seed             int64
	IDNCount         int
	ContractCount    int
	TransactionCount int

	// ReferenceDate anchors contract status: contracts ending before it
	// are Expired or Renewed, contracts starting after it are Pending.
	ReferenceDate string

	// Tenants receive contracts uniformly at random.
	Tenants []string
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.IDNCount == 0 {
		o.IDNCount = DefaultIDNCount
	}
	if o.ContractCount == 0 {
		o.ContractCount = DefaultContractCount
	}
	if o.TransactionCount == 0 {
		o.TransactionCount = DefaultTransactionCount
	}
	if o.ReferenceDate == "" {
		o.ReferenceDate = DefaultReferenceDate
	}
	if len(o.Tenants) == 0 {
		o.Tenants = pricingdomain.DefaultTenantIDs()
	}
	return o
}

// Dataset is one complete synthetic build, ready for warehouse loading.
type Dataset struct {
	GPOs           []pricingdomain.GPO
	IDNs           []pricingdomain.IDN
	Facilities     []pricingdomain.Facility
	Products       []pricingdomain.Product
	Contracts      []pricingdomain.Contract
	RebatePrograms []pricingdomain.RebateProgram
	Transactions   []pricingdomain.Transaction
}

type Service interface {
	Generate(ctx context.Context, opts Options) (*Dataset, error)
}

var (
	ErrInvalidCount         = errors.New("invalid_count")
	ErrInvalidReferenceDate = errors.New("invalid_reference_date")
	ErrNoTenants            = errors.New("no_tenants")
)

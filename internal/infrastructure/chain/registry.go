package chain

import (
	"context"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// StaticRegistry serves the attestation signer and aggregator addresses from
// configuration. Both rotate rarely enough that a restart is acceptable.
type StaticRegistry struct {
	signer     domain.Address
	aggregator domain.Address
}

func NewStaticRegistry(signer, aggregator domain.Address) *StaticRegistry {
	return &StaticRegistry{signer: signer, aggregator: aggregator}
}

func (r *StaticRegistry) Signer(ctx context.Context) (domain.Address, error) {
	return r.signer, nil
}

func (r *StaticRegistry) AggregatorAddress(ctx context.Context) (domain.Address, error) {
	return r.aggregator, nil
}

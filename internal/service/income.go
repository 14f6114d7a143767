package service

import (
	"context"
	"math/big"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// IncomeService splits a settled payment into the platform cut and the
// organizer's accrued share.
type IncomeService struct {
	minter        domain.TokenMinter
	platformOwner domain.Address
}

func NewIncomeService(minter domain.TokenMinter, platformOwner domain.Address) *IncomeService {
	return &IncomeService{minter: minter, platformOwner: platformOwner}
}

// Distribute transfers the platform cut (current fee rate, basis points of
// 10,000) to the platform owner and accrues the remainder in the income
// ledger keyed by payment token. Non-fungible settlements are rejected
// outright; the price-table rules make them unreachable from the buy path.
func (s *IncomeService) Distribute(ctx context.Context, tx domain.Tx, payment domain.TokenPayment) error {
	if payment.Nonce > 0 {
		return domain.ErrNonFungiblePayment()
	}
	if payment.Amount == nil || payment.Amount.Sign() <= 0 {
		return nil
	}

	feeRate, err := tx.Settings().FeeRate(ctx)
	if err != nil {
		return err
	}

	platformCut := cutAmount(payment.Amount, feeRate)
	organizerShare := new(big.Int).Sub(payment.Amount, platformCut)

	if platformCut.Sign() > 0 {
		cut := domain.TokenPayment{Token: payment.Token, Amount: platformCut}
		if err := s.minter.Transfer(ctx, s.platformOwner, cut); err != nil {
			return err
		}
	}

	if organizerShare.Sign() > 0 {
		if err := tx.Income().Accrue(ctx, payment.Token, organizerShare); err != nil {
			return err
		}
	}

	return nil
}

func cutAmount(total, bps *big.Int) *big.Int {
	cut := new(big.Int).Mul(total, bps)
	return cut.Div(cut, big.NewInt(domain.FeeDenominator))
}

package service

import (
	"context"
	"math/big"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// SettlementRequest carries the caller's attached payment and, for the swap
// path, the aggregation route and slippage limits.
type SettlementRequest struct {
	Payment domain.TokenPayment
	Swaps   []domain.SwapStep
	Limits  []domain.TokenAmount
}

// Settlement is the outcome of payment reconciliation. Settled is exactly
// the required total; Surplus, when present, is swap output owed back to
// the caller once the rest of the pipeline has passed.
type Settlement struct {
	Settled   domain.TokenPayment
	UnitPrice *big.Int
	Surplus   *domain.TokenPayment
}

// PaymentService resolves an attached payment against a stage's price table,
// either directly or through the swap aggregator.
type PaymentService struct {
	aggregator domain.SwapAggregator
}

func NewPaymentService(aggregator domain.SwapAggregator) *PaymentService {
	return &PaymentService{aggregator: aggregator}
}

// Reconcile validates the payment for quantity units of the stage's tickets.
// Direct mode demands an exact amount match; swap mode demands the output
// covers the total and records any surplus for a deferred refund. No funds
// move here: refunds are flushed by the engine after all checks pass.
func (p *PaymentService) Reconcile(ctx context.Context, stage *domain.TicketStage, quantity uint32, req SettlementRequest) (Settlement, error) {
	if len(req.Swaps) > 0 && len(req.Limits) > 0 {
		return p.reconcileSwap(ctx, stage, quantity, req)
	}
	return p.reconcileDirect(stage, quantity, req.Payment)
}

func (p *PaymentService) reconcileDirect(stage *domain.TicketStage, quantity uint32, payment domain.TokenPayment) (Settlement, error) {
	unitPrice, ok := priceFor(stage, payment.Token, payment.Nonce)
	if !ok {
		return Settlement{}, domain.ErrPaymentInvalid()
	}

	total := totalValue(unitPrice, quantity)
	if payment.Amount == nil || payment.Amount.Cmp(total) != 0 {
		return Settlement{}, domain.ErrPaymentMismatch()
	}

	return Settlement{Settled: payment, UnitPrice: unitPrice}, nil
}

func (p *PaymentService) reconcileSwap(ctx context.Context, stage *domain.TicketStage, quantity uint32, req SettlementRequest) (Settlement, error) {
	output, err := p.aggregator.Swap(ctx, req.Payment, req.Swaps, req.Limits)
	if err != nil {
		return Settlement{}, domain.ErrSwapFailed(err)
	}

	unitPrice, ok := priceFor(stage, output.Token, output.Nonce)
	if !ok {
		return Settlement{}, domain.ErrSwapTokenInvalid()
	}

	total := totalValue(unitPrice, quantity)
	if output.Amount.Cmp(total) < 0 {
		return Settlement{}, domain.ErrInsufficientSwapOutput()
	}

	settlement := Settlement{
		Settled:   domain.TokenPayment{Token: output.Token, Nonce: output.Nonce, Amount: total},
		UnitPrice: unitPrice,
	}
	if output.Amount.Cmp(total) > 0 {
		settlement.Surplus = &domain.TokenPayment{
			Token:  output.Token,
			Nonce:  output.Nonce,
			Amount: new(big.Int).Sub(output.Amount, total),
		}
	}
	return settlement, nil
}

// priceFor scans the stage's price list for a (token, nonce) match.
// First match wins; duplicates are rejected at configuration time.
func priceFor(stage *domain.TicketStage, token domain.TokenID, nonce uint64) (*big.Int, bool) {
	for _, price := range stage.Prices {
		if price.Token == token && price.Nonce == nonce {
			return price.Amount, true
		}
	}
	return nil, false
}

func totalValue(unitPrice *big.Int, quantity uint32) *big.Int {
	return new(big.Int).Mul(unitPrice, big.NewInt(int64(quantity)))
}

// ValidatePriceTable enforces the stage-configuration rules: every entry
// must be fungible and no (token, nonce) pair may appear twice.
func ValidatePriceTable(prices []domain.TokenPayment) error {
	type pair struct {
		token domain.TokenID
		nonce uint64
	}
	seen := make(map[pair]struct{}, len(prices))
	for _, price := range prices {
		if price.Nonce > 0 {
			return domain.ErrNonFungiblePriceEntry(price.Token, price.Nonce)
		}
		key := pair{price.Token, price.Nonce}
		if _, dup := seen[key]; dup {
			return domain.ErrDuplicatePriceEntry(price.Token, price.Nonce)
		}
		seen[key] = struct{}{}
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

func testStage(prices ...domain.TokenPayment) *domain.TicketStage {
	return &domain.TicketStage{
		EventID:      testEventID,
		TicketTypeID: testTypeID,
		ID:           testStageID,
		Prices:       prices,
	}
}

func TestReconcileDirect(t *testing.T) {
	stage := testStage(
		domain.TokenPayment{Token: priceToken, Amount: big.NewInt(100)},
		domain.TokenPayment{Token: domain.NativeToken, Amount: big.NewInt(7)},
	)
	p := NewPaymentService(nil)

	t.Run("exact amount settles", func(t *testing.T) {
		settlement, err := p.Reconcile(context.Background(), stage, 3, SettlementRequest{
			Payment: domain.TokenPayment{Token: priceToken, Amount: big.NewInt(300)},
		})
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(100), settlement.UnitPrice)
		assert.Equal(t, big.NewInt(300), settlement.Settled.Amount)
		assert.Nil(t, settlement.Surplus)
	})

	t.Run("alternative currency settles at its own price", func(t *testing.T) {
		settlement, err := p.Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: domain.NativeToken, Amount: big.NewInt(14)},
		})
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(7), settlement.UnitPrice)
	})

	t.Run("overpayment is rejected", func(t *testing.T) {
		_, err := p.Reconcile(context.Background(), stage, 1, SettlementRequest{
			Payment: domain.TokenPayment{Token: priceToken, Amount: big.NewInt(101)},
		})
		assert.ErrorIs(t, err, domain.ErrPaymentMismatch())
	})

	t.Run("underpayment is rejected", func(t *testing.T) {
		_, err := p.Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: priceToken, Amount: big.NewInt(199)},
		})
		assert.ErrorIs(t, err, domain.ErrPaymentMismatch())
	})

	t.Run("unknown currency is rejected", func(t *testing.T) {
		_, err := p.Reconcile(context.Background(), stage, 1, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(100)},
		})
		assert.ErrorIs(t, err, domain.ErrPaymentInvalid())
	})
}

func TestReconcileSwap(t *testing.T) {
	stage := testStage(domain.TokenPayment{Token: priceToken, Amount: big.NewInt(100)})
	route := []domain.SwapStep{{Pool: "0xpool", TokenIn: "WETH-aaaaaa", TokenOut: priceToken, AmountIn: big.NewInt(1)}}
	limits := []domain.TokenAmount{{Token: priceToken, Amount: big.NewInt(200)}}

	t.Run("exact output settles with no surplus", func(t *testing.T) {
		agg := &fakeAggregator{output: domain.TokenPayment{Token: priceToken, Amount: big.NewInt(200)}}
		settlement, err := NewPaymentService(agg).Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(1)},
			Swaps:   route,
			Limits:  limits,
		})
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(200), settlement.Settled.Amount)
		assert.Nil(t, settlement.Surplus)
	})

	t.Run("surplus output is recorded, not transferred", func(t *testing.T) {
		agg := &fakeAggregator{output: domain.TokenPayment{Token: priceToken, Amount: big.NewInt(260)}}
		settlement, err := NewPaymentService(agg).Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(1)},
			Swaps:   route,
			Limits:  limits,
		})
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(200), settlement.Settled.Amount)
		require.NotNil(t, settlement.Surplus)
		assert.Equal(t, big.NewInt(60), settlement.Surplus.Amount)
		assert.Equal(t, priceToken, settlement.Surplus.Token)
	})

	t.Run("insufficient output is rejected", func(t *testing.T) {
		agg := &fakeAggregator{output: domain.TokenPayment{Token: priceToken, Amount: big.NewInt(199)}}
		_, err := NewPaymentService(agg).Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(1)},
			Swaps:   route,
			Limits:  limits,
		})
		assert.ErrorIs(t, err, domain.ErrInsufficientSwapOutput())
	})

	t.Run("output in an unpriced currency is rejected", func(t *testing.T) {
		agg := &fakeAggregator{output: domain.TokenPayment{Token: "DAI-bbbbbb", Amount: big.NewInt(500)}}
		_, err := NewPaymentService(agg).Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(1)},
			Swaps:   route,
			Limits:  limits,
		})
		assert.ErrorIs(t, err, domain.ErrSwapTokenInvalid())
	})

	t.Run("aggregator failure is wrapped", func(t *testing.T) {
		agg := &fakeAggregator{err: errors.New("pool drained")}
		_, err := NewPaymentService(agg).Reconcile(context.Background(), stage, 2, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(1)},
			Swaps:   route,
			Limits:  limits,
		})
		assert.ErrorIs(t, err, domain.ErrSwapFailed(nil))
	})

	t.Run("missing route falls back to direct matching", func(t *testing.T) {
		_, err := NewPaymentService(nil).Reconcile(context.Background(), stage, 1, SettlementRequest{
			Payment: domain.TokenPayment{Token: "WETH-aaaaaa", Amount: big.NewInt(1)},
			Swaps:   route, // limits missing
		})
		assert.ErrorIs(t, err, domain.ErrPaymentInvalid())
	})
}

func TestValidatePriceTable(t *testing.T) {
	assert.NoError(t, ValidatePriceTable([]domain.TokenPayment{
		{Token: priceToken, Amount: big.NewInt(100)},
		{Token: domain.NativeToken, Amount: big.NewInt(7)},
	}))

	err := ValidatePriceTable([]domain.TokenPayment{
		{Token: priceToken, Amount: big.NewInt(100)},
		{Token: priceToken, Amount: big.NewInt(90)},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicatePriceEntry(priceToken, 0))

	err = ValidatePriceTable([]domain.TokenPayment{
		{Token: "TICKET-abc123", Nonce: 4, Amount: big.NewInt(1)},
	})
	assert.ErrorIs(t, err, domain.ErrNonFungiblePriceEntry("TICKET-abc123", 4))
}

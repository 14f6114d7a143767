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

const organizer = domain.Address("0x3333333333333333333333333333333333333333")

func issuePayment(amount int64) domain.TokenPayment {
	return domain.TokenPayment{Token: domain.NativeToken, Amount: big.NewInt(amount)}
}

func createArgs() domain.EventArgs {
	return domain.EventArgs{MaxCapacity: 500, MaxPerUser: 4, AppendNumber: true}
}

func TestCreateEventValidatesIssuePayment(t *testing.T) {
	f := newEngineFixture(t)
	ctx := WithCaller(context.Background(), organizer)

	tests := []struct {
		name    string
		payment domain.TokenPayment
	}{
		{"wrong amount", issuePayment(49)},
		{"wrong token", domain.TokenPayment{Token: priceToken, Amount: big.NewInt(50)}},
		{"non-fungible", domain.TokenPayment{Token: domain.NativeToken, Nonce: 1, Amount: big.NewInt(50)}},
		{"missing amount", domain.TokenPayment{Token: domain.NativeToken}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), tt.payment)
			assert.ErrorIs(t, err, domain.ErrInvalidIssuePayment("50 EGLD"))
			assert.Empty(t, f.issuer.requests)
		})
	}
}

func TestCreateEventReservesAndIssues(t *testing.T) {
	f := newEngineFixture(t)
	ctx := WithCaller(context.Background(), organizer)

	require.NoError(t, f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), issuePayment(50)))

	reg, ok, err := f.store.GetRegistration(context.Background(), "gala")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RegistrationPending, reg.State)
	assert.Equal(t, organizer, reg.Caller)

	require.Len(t, f.issuer.requests, 1)
	assert.Equal(t, "gala", f.issuer.requests[0].EventID)
	assert.Equal(t, "GALA", f.issuer.requests[0].TokenTicker)

	// The id is now taken, for existing events and pending registrations alike.
	err = f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), issuePayment(50))
	assert.ErrorIs(t, err, domain.ErrEventIDInUse("gala"))
}

func TestCreateEventRollsBackWhenIssuerFails(t *testing.T) {
	f := newEngineFixture(t)
	f.issuer.err = errors.New("gateway down")
	ctx := WithCaller(context.Background(), organizer)

	err := f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), issuePayment(50))
	require.Error(t, err)

	_, ok, err := f.store.GetRegistration(context.Background(), "gala")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandleIssuanceResultConfirms(t *testing.T) {
	f := newEngineFixture(t)
	ctx := WithCaller(context.Background(), organizer)
	require.NoError(t, f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), issuePayment(50)))

	result := domain.IssuanceResult{EventID: "gala", Token: "GALA-123456", OK: true}
	require.NoError(t, f.engine.HandleIssuanceResult(context.Background(), result))

	event, ok, err := f.store.GetEvent(context.Background(), "gala")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TokenID("GALA-123456"), event.Token)
	assert.Equal(t, uint32(500), event.MaxCapacity)
	assert.True(t, event.AppendNumber)
	// Fee rate snapshot taken at confirmation time.
	assert.Equal(t, big.NewInt(500), event.Fees)

	assert.Equal(t, uint64(1), f.store.nonces["GALA-123456"])
	assert.True(t, f.store.collections["GALA-123456"])

	reg, _, err := f.store.GetRegistration(context.Background(), "gala")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationConfirmed, reg.State)

	assert.Contains(t, f.publisher.typesSeen(), "event_upserted")

	// Redelivery is a no-op.
	published := len(f.publisher.events)
	require.NoError(t, f.engine.HandleIssuanceResult(context.Background(), result))
	assert.Len(t, f.publisher.events, published)
}

func TestHandleIssuanceResultRefundsOnFailure(t *testing.T) {
	f := newEngineFixture(t)
	ctx := WithCaller(context.Background(), organizer)
	require.NoError(t, f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), issuePayment(50)))

	result := domain.IssuanceResult{EventID: "gala", OK: false, Reason: "ticker rejected"}
	require.NoError(t, f.engine.HandleIssuanceResult(context.Background(), result))

	_, ok, err := f.store.GetRegistration(context.Background(), "gala")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.store.GetEvent(context.Background(), "gala")
	require.NoError(t, err)
	assert.False(t, ok)

	refund := f.minter.transfersTo(organizer)
	require.Len(t, refund, 1)
	assert.Equal(t, domain.NativeToken, refund[0].Token)
	assert.Equal(t, big.NewInt(50), refund[0].Amount)

	// The id can be used again.
	require.NoError(t, f.engine.CreateEvent(ctx, "gala", "Gala Tickets", "GALA", createArgs(), issuePayment(50)))
}

func TestHandleIssuanceResultUnknownEvent(t *testing.T) {
	f := newEngineFixture(t)
	err := f.engine.HandleIssuanceResult(context.Background(), domain.IssuanceResult{EventID: "ghost", OK: true})
	assert.NoError(t, err)
	assert.Empty(t, f.publisher.events)
}

func TestEditEvent(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	err := f.engine.EditEvent(ctx, "ghost", createArgs())
	assert.ErrorIs(t, err, domain.ErrEventNotFound("ghost"))

	args := domain.EventArgs{MaxCapacity: 42, MaxPerUser: 1, HasKYC: true}
	require.NoError(t, f.engine.EditEvent(ctx, testEventID, args))

	event := f.store.events[testEventID]
	assert.Equal(t, uint32(42), event.MaxCapacity)
	assert.True(t, event.HasKYC)
	// Token and mint count survive the edit.
	assert.Equal(t, testToken, event.Token)
}

func TestTicketTypeLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	args := domain.TicketTypeArgs{ID: "ga", BaseName: "GA #", Royalties: big.NewInt(100), MintLimit: 30}
	require.NoError(t, f.engine.CreateTicketType(ctx, testEventID, args))

	err := f.engine.CreateTicketType(ctx, testEventID, args)
	assert.ErrorIs(t, err, domain.ErrTypeIDInUse("ga"))

	// Edits preserve the mint count.
	stored := f.store.types[typeKey(testEventID, "ga")]
	stored.MintCount = 7
	f.store.types[typeKey(testEventID, "ga")] = stored

	args.MintLimit = 60
	require.NoError(t, f.engine.EditTicketType(ctx, testEventID, args))
	edited := f.store.types[typeKey(testEventID, "ga")]
	assert.Equal(t, uint32(60), edited.MintLimit)
	assert.Equal(t, uint32(7), edited.MintCount)

	// Removal cascades to the tier's stages but not to its siblings.
	require.NoError(t, f.engine.CreateTicketStage(ctx, testEventID, "ga", domain.TicketStageArgs{
		ID:     "public",
		Prices: []domain.TokenPayment{{Token: priceToken, Amount: big.NewInt(10)}},
	}))
	require.NoError(t, f.engine.RemoveTicketType(ctx, testEventID, "ga"))

	_, ok, err := f.store.GetTicketType(ctx, testEventID, "ga")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = f.store.GetTicketStage(ctx, domain.StageKey{EventID: testEventID, TicketTypeID: "ga", StageID: "public"})
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = f.store.GetTicketStage(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTicketStageLifecycle(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	badPrices := domain.TicketStageArgs{
		ID: "late",
		Prices: []domain.TokenPayment{
			{Token: priceToken, Amount: big.NewInt(10)},
			{Token: priceToken, Amount: big.NewInt(20)},
		},
	}
	err := f.engine.CreateTicketStage(ctx, testEventID, testTypeID, badPrices)
	assert.ErrorIs(t, err, domain.ErrDuplicatePriceEntry(priceToken, 0))

	err = f.engine.CreateTicketStage(ctx, testEventID, testTypeID, domain.TicketStageArgs{ID: testStageID})
	assert.ErrorIs(t, err, domain.ErrStageIDInUse(testStageID))

	good := domain.TicketStageArgs{
		ID:        "late",
		Prices:    []domain.TokenPayment{{Token: priceToken, Amount: big.NewInt(150)}},
		MintLimit: 10,
		StartTime: 5_000,
		Active:    true,
	}
	require.NoError(t, f.engine.CreateTicketStage(ctx, testEventID, testTypeID, good))

	// Edits replace configuration but keep the mint count.
	lateKey := domain.StageKey{EventID: testEventID, TicketTypeID: testTypeID, StageID: "late"}
	stored := f.store.stages[stageKey(lateKey)]
	stored.MintCount = 4
	f.store.stages[stageKey(lateKey)] = stored

	good.MintLimit = 25
	require.NoError(t, f.engine.EditTicketStage(ctx, testEventID, testTypeID, good))
	edited := f.store.stages[stageKey(lateKey)]
	assert.Equal(t, uint32(25), edited.MintLimit)
	assert.Equal(t, uint32(4), edited.MintCount)

	missing := good
	missing.ID = "ghost"
	err = f.engine.EditTicketStage(ctx, testEventID, testTypeID, missing)
	assert.ErrorIs(t, err, domain.ErrTicketStageNotFound("ghost"))

	// Removing a stage is idempotent and leaves the tier alone.
	require.NoError(t, f.engine.RemoveTicketStage(ctx, testEventID, testTypeID, "late"))
	require.NoError(t, f.engine.RemoveTicketStage(ctx, testEventID, testTypeID, "late"))
	_, ok, err := f.store.GetTicketType(ctx, testEventID, testTypeID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWhitelistAdministration(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	wallets := []domain.Address{testBuyer, organizer}

	err := f.engine.AddToWhitelist(ctx, domain.StageKey{EventID: "ghost", TicketTypeID: testTypeID, StageID: testStageID}, wallets)
	assert.ErrorIs(t, err, domain.ErrEventNotFound("ghost"))

	require.NoError(t, f.engine.AddToWhitelist(ctx, testKey, wallets))
	size, err := f.store.Size(ctx, testKey)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	require.NoError(t, f.engine.RemoveFromWhitelist(ctx, testKey, []domain.Address{organizer}))
	listed, err := f.store.Contains(ctx, testKey, organizer)
	require.NoError(t, err)
	assert.False(t, listed)

	assert.Contains(t, f.publisher.typesSeen(), "whitelist_changed")
}

func TestSetFees(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.engine.SetFees(ctx, big.NewInt(10_000)), domain.ErrInvalidFeeRate())
	assert.ErrorIs(t, f.engine.SetFees(ctx, big.NewInt(-1)), domain.ErrInvalidFeeRate())
	assert.ErrorIs(t, f.engine.SetFees(ctx, nil), domain.ErrInvalidFeeRate())

	require.NoError(t, f.engine.SetFees(ctx, big.NewInt(9_999)))
	rate, err := f.store.FeeRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(9_999), rate)
}

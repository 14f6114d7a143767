package service

import (
	"context"
	"math/big"
	"time"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/logging"
	"github.com/ticketforge/ticketing-api/shared/monitoring"
)

// Ticketing is the sale engine. Every public operation runs inside one
// unit-of-work transaction; domain events are published only after commit.
type Ticketing struct {
	uow       domain.UnitOfWork
	validator *ValidationService
	payments  *PaymentService
	identity  *IdentityService
	mint      *MintService
	income    *IncomeService
	issuer    domain.TokenIssuer
	minter    domain.TokenMinter
	publisher domain.MessagePublisher
	logger    *logging.Logger
	issueCost *big.Int
	now       func() time.Time
}

// TicketingDeps collects the engine's injected collaborators
type TicketingDeps struct {
	UnitOfWork domain.UnitOfWork
	Validator  *ValidationService
	Payments   *PaymentService
	Identity   *IdentityService
	Mint       *MintService
	Income     *IncomeService
	Issuer     domain.TokenIssuer
	Minter     domain.TokenMinter
	Publisher  domain.MessagePublisher
	Logger     *logging.Logger
	IssueCost  *big.Int
}

// NewTicketing creates the engine
func NewTicketing(deps TicketingDeps) *Ticketing {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Ticketing{
		uow:       deps.UnitOfWork,
		validator: deps.Validator,
		payments:  deps.Payments,
		identity:  deps.Identity,
		mint:      deps.Mint,
		income:    deps.Income,
		issuer:    deps.Issuer,
		minter:    deps.Minter,
		publisher: deps.Publisher,
		logger:    logger,
		issueCost: deps.IssueCost,
		now:       time.Now,
	}
}

// WithClock overrides the engine's time source, used by tests
func (t *Ticketing) WithClock(now func() time.Time) *Ticketing {
	t.now = now
	return t
}

// BuyRequest is one purchase attempt
type BuyRequest struct {
	EventID      string
	TicketTypeID string
	StageID      string
	Quantity     uint32
	Caller       domain.Address
	Settlement   SettlementRequest
	Signature    []byte
	Payload      []byte
}

// Buy runs the full pipeline: validation, payment reconciliation, identity
// gate, mint and bookkeeping, income distribution. Any failure aborts the
// transaction with no partial state change.
func (t *Ticketing) Buy(ctx context.Context, req BuyRequest) ([]domain.TokenPayment, error) {
	start := time.Now()
	var minted []domain.TokenPayment
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		key := domain.StageKey{EventID: req.EventID, TicketTypeID: req.TicketTypeID, StageID: req.StageID}

		event, ticketType, stage, err := t.validator.ValidatePurchase(ctx, tx, key, req.Quantity, req.Caller, t.now())
		if err != nil {
			return err
		}

		settlement, err := t.payments.Reconcile(ctx, &stage, req.Quantity, req.Settlement)
		if err != nil {
			return err
		}

		if err := t.identity.Check(ctx, &event, &ticketType, &stage, req.Caller, req.Quantity, req.Signature, req.Payload); err != nil {
			return err
		}

		// Every check has passed; funds may move from here on.
		if settlement.Surplus != nil {
			if err := t.minter.Transfer(ctx, req.Caller, *settlement.Surplus); err != nil {
				return err
			}
		}

		minted, err = t.mint.Mint(ctx, tx, &event, &ticketType, &stage, req.Caller, req.Quantity)
		if err != nil {
			return err
		}

		if err := t.income.Distribute(ctx, tx, settlement.Settled); err != nil {
			return err
		}

		soldOut := event.MintCount == event.MaxCapacity
		pending = append(pending,
			domain.NewMintRecorded(&event, &ticketType, &stage, soldOut),
			domain.NewPurchaseCompleted(minted, settlement.Settled.Token, req.Caller, settlement.UnitPrice, event.Token, ""),
		)
		return nil
	})

	if err != nil {
		monitoring.RecordPurchase(req.EventID, "rejected", time.Since(start))
		return nil, err
	}

	monitoring.RecordPurchase(req.EventID, "success", time.Since(start))
	monitoring.RecordMint(req.EventID, "buy", req.Quantity)
	t.logger.WithFields(map[string]interface{}{
		"event_id": req.EventID,
		"stage_id": req.StageID,
		"buyer":    string(req.Caller),
		"quantity": req.Quantity,
	}).Info("purchase completed")

	t.publish(ctx, pending)
	return minted, nil
}

// GiveawayRecipient is one (wallet, quantity) pair of a free giveaway
type GiveawayRecipient struct {
	To       domain.Address `json:"to"`
	Quantity uint32         `json:"quantity"`
}

// Giveaway mints free tickets for each recipient. There is no stage context:
// only the type and event capacity checks apply, and no stage accounting or
// whitelist/time-window rules run.
func (t *Ticketing) Giveaway(ctx context.Context, eventID, typeID string, recipients []GiveawayRecipient) ([]domain.TokenPayment, error) {
	var all []domain.TokenPayment
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		ticketType, err := RequireTicketType(ctx, tx, eventID, typeID)
		if err != nil {
			return err
		}

		for _, recipient := range recipients {
			if err := t.validator.CheckTypeSoldOut(&event, &ticketType, recipient.Quantity); err != nil {
				return err
			}

			minted, err := t.mint.Mint(ctx, tx, &event, &ticketType, nil, recipient.To, recipient.Quantity)
			if err != nil {
				return err
			}

			soldOut := event.MintCount == event.MaxCapacity
			pending = append(pending,
				domain.NewMintRecorded(&event, &ticketType, nil, soldOut),
				domain.NewPurchaseCompleted(minted, domain.NativeToken, recipient.To, big.NewInt(0), event.Token, ""),
			)
			all = append(all, minted...)
		}
		return nil
	})

	if err != nil {
		monitoring.RecordAdminOp("giveaway", "rejected")
		return nil, err
	}

	monitoring.RecordAdminOp("giveaway", "success")
	monitoring.RecordMint(eventID, "giveaway", uint32(len(all)))
	t.publish(ctx, pending)
	return all, nil
}

// GiveawayAdminRequest is the signature-gated paid-equivalent giveaway
type GiveawayAdminRequest struct {
	EventID      string
	TicketTypeID string
	StageID      string
	To           domain.Address
	Quantity     uint32
	ExternalID   string
	Signature    []byte
	Payload      []byte
}

// GiveawayAdmin mints with full stage validation and the identity gate but
// without payment. The external ID ties the mint to an off-platform sale.
func (t *Ticketing) GiveawayAdmin(ctx context.Context, req GiveawayAdminRequest) ([]domain.TokenPayment, error) {
	var minted []domain.TokenPayment
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		key := domain.StageKey{EventID: req.EventID, TicketTypeID: req.TicketTypeID, StageID: req.StageID}

		event, ticketType, stage, err := t.validator.ValidatePurchase(ctx, tx, key, req.Quantity, req.To, t.now())
		if err != nil {
			return err
		}

		if err := t.identity.Check(ctx, &event, &ticketType, &stage, req.To, req.Quantity, req.Signature, req.Payload); err != nil {
			return err
		}

		minted, err = t.mint.Mint(ctx, tx, &event, &ticketType, &stage, req.To, req.Quantity)
		if err != nil {
			return err
		}

		soldOut := event.MintCount == event.MaxCapacity
		pending = append(pending,
			domain.NewMintRecorded(&event, &ticketType, &stage, soldOut),
			domain.NewPurchaseCompleted(minted, domain.NativeToken, req.To, big.NewInt(0), event.Token, req.ExternalID),
		)
		return nil
	})

	if err != nil {
		monitoring.RecordAdminOp("giveaway_admin", "rejected")
		return nil, err
	}

	monitoring.RecordAdminOp("giveaway_admin", "success")
	monitoring.RecordMint(req.EventID, "giveaway", req.Quantity)
	t.publish(ctx, pending)
	return minted, nil
}

// publish sends the deferred domain events. Failures are logged, not
// propagated: the ledger transaction has already committed and consumers
// are eventually consistent.
func (t *Ticketing) publish(ctx context.Context, events []*domain.DomainEvent) {
	if t.publisher == nil {
		return
	}
	for _, evt := range events {
		if err := t.publisher.PublishDomainEvent(ctx, evt); err != nil {
			t.logger.WithError(err).WithField("event_type", evt.EventType).Warn("failed to publish domain event")
		}
	}
}

package service

import (
	"context"
	"math/big"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/monitoring"
)

// Admin lifecycle: event/type/stage CRUD, whitelist maintenance and fee
// configuration. All operations are owner-only; authorization happens at
// the transport layer.

// CreateEvent reserves the event id and starts the asynchronous collection
// issuance. The Event record itself is only written when the issuance
// confirmation arrives (HandleIssuanceResult); until then the id is held by
// a pending registration.
func (t *Ticketing) CreateEvent(ctx context.Context, eventID, tokenName, tokenTicker string, args domain.EventArgs, payment domain.TokenPayment) error {
	if payment.Token != domain.NativeToken || payment.Nonce != 0 ||
		payment.Amount == nil || payment.Amount.Cmp(t.issueCost) != 0 {
		return domain.ErrInvalidIssuePayment(t.issueCost.String() + " " + string(domain.NativeToken))
	}

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, exists, err := tx.Inventory().GetRegistration(ctx, eventID); err != nil {
			return err
		} else if exists {
			return domain.ErrEventIDInUse(eventID)
		}

		reg := domain.EventRegistration{
			EventID:     eventID,
			State:       domain.RegistrationPending,
			Args:        args,
			Caller:      callerFrom(ctx),
			Payment:     payment,
			TokenName:   tokenName,
			TokenTicker: tokenTicker,
			CreatedAt:   t.now(),
		}
		if err := tx.Inventory().ReserveEventID(ctx, reg); err != nil {
			return err
		}

		// An issuer failure here rolls the reservation back with the tx.
		return t.issuer.IssueCollection(ctx, domain.IssueRequest{
			EventID:     eventID,
			TokenName:   tokenName,
			TokenTicker: tokenTicker,
			Payment:     payment.Amount,
		})
	})

	monitoring.RecordAdminOp("create_event", statusOf(err))
	return err
}

// HandleIssuanceResult completes the two-phase event creation. On success
// the Event record is written with the current fee snapshot and the
// collection is registered; on failure the speculative registration is
// removed and the issuance payment refunded to the original caller.
// Redeliveries are idempotent: unknown or already-confirmed registrations
// are acknowledged without effect.
func (t *Ticketing) HandleIssuanceResult(ctx context.Context, result domain.IssuanceResult) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		reg, ok, err := tx.Inventory().GetRegistration(ctx, result.EventID)
		if err != nil {
			return err
		}
		if !ok || reg.State == domain.RegistrationConfirmed {
			return nil
		}

		if !result.OK {
			if err := tx.Inventory().DeleteRegistration(ctx, result.EventID); err != nil {
				return err
			}
			if reg.Payment.Amount != nil && reg.Payment.Amount.Sign() > 0 {
				if err := t.minter.Transfer(ctx, reg.Caller, reg.Payment); err != nil {
					return err
				}
			}
			monitoring.RecordIssuance("failed")
			t.logger.WithField("event_id", result.EventID).Warnf("collection issuance failed: %s", result.Reason)
			return nil
		}

		if err := tx.Accounting().SetNextNonce(ctx, result.Token, 1); err != nil {
			return err
		}
		if err := tx.Inventory().RegisterCollection(ctx, result.Token); err != nil {
			return err
		}

		feeRate, err := tx.Settings().FeeRate(ctx)
		if err != nil {
			return err
		}

		event := domain.Event{
			ID:            result.EventID,
			Token:         result.Token,
			MaxCapacity:   reg.Args.MaxCapacity,
			MaxPerUser:    reg.Args.MaxPerUser,
			Fees:          feeRate,
			HasKYC:        reg.Args.HasKYC,
			RefundPolicy:  reg.Args.RefundPolicy,
			AppendNumber:  reg.Args.AppendNumber,
			BotProtection: reg.Args.BotProtection,
		}
		if err := tx.Inventory().PutEvent(ctx, event); err != nil {
			return err
		}
		if err := tx.Inventory().ConfirmRegistration(ctx, result.EventID); err != nil {
			return err
		}

		monitoring.RecordIssuance("confirmed")
		pending = append(pending, domain.NewEventUpserted(&event))
		return nil
	})

	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// EditEvent replaces the admin-editable fields of an event
func (t *Ticketing) EditEvent(ctx context.Context, eventID string, args domain.EventArgs) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		event.MaxCapacity = args.MaxCapacity
		event.MaxPerUser = args.MaxPerUser
		event.HasKYC = args.HasKYC
		event.RefundPolicy = args.RefundPolicy
		event.AppendNumber = args.AppendNumber
		event.BotProtection = args.BotProtection

		if err := tx.Inventory().PutEvent(ctx, event); err != nil {
			return err
		}
		pending = append(pending, domain.NewEventUpserted(&event))
		return nil
	})

	monitoring.RecordAdminOp("edit_event", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// CreateTicketType adds a new tier under an event
func (t *Ticketing) CreateTicketType(ctx context.Context, eventID string, args domain.TicketTypeArgs) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		if _, exists, err := tx.Inventory().GetTicketType(ctx, eventID, args.ID); err != nil {
			return err
		} else if exists {
			return domain.ErrTypeIDInUse(args.ID)
		}

		ticketType := domain.TicketType{
			EventID:    eventID,
			ID:         args.ID,
			BaseName:   args.BaseName,
			Image:      args.Image,
			Royalties:  args.Royalties,
			MaxPerUser: args.MaxPerUser,
			MintLimit:  args.MintLimit,
		}
		if err := tx.Inventory().PutTicketType(ctx, ticketType); err != nil {
			return err
		}
		pending = append(pending, domain.NewTicketTypeUpserted(&ticketType, event.Token))
		return nil
	})

	monitoring.RecordAdminOp("create_ticket_type", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// EditTicketType replaces a tier's editable fields, preserving its mint count
func (t *Ticketing) EditTicketType(ctx context.Context, eventID string, args domain.TicketTypeArgs) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		ticketType, err := RequireTicketType(ctx, tx, eventID, args.ID)
		if err != nil {
			return err
		}

		ticketType.BaseName = args.BaseName
		ticketType.Image = args.Image
		ticketType.Royalties = args.Royalties
		ticketType.MintLimit = args.MintLimit
		ticketType.MaxPerUser = args.MaxPerUser

		if err := tx.Inventory().PutTicketType(ctx, ticketType); err != nil {
			return err
		}
		pending = append(pending, domain.NewTicketTypeUpserted(&ticketType, event.Token))
		return nil
	})

	monitoring.RecordAdminOp("edit_ticket_type", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// RemoveTicketType deletes a tier and cascades to all of its stages
func (t *Ticketing) RemoveTicketType(ctx context.Context, eventID, typeID string) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if _, err := RequireTicketType(ctx, tx, eventID, typeID); err != nil {
			return err
		}

		if err := tx.Inventory().DeleteStagesForType(ctx, eventID, typeID); err != nil {
			return err
		}
		if err := tx.Inventory().DeleteTicketType(ctx, eventID, typeID); err != nil {
			return err
		}
		pending = append(pending, domain.NewTicketTypeRemoved(eventID, typeID, event.Token))
		return nil
	})

	monitoring.RecordAdminOp("remove_ticket_type", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// CreateTicketStage adds a sale window under a tier. The price table is
// validated here: duplicates and non-fungible entries are configuration
// errors, not runtime surprises.
func (t *Ticketing) CreateTicketStage(ctx context.Context, eventID, typeID string, args domain.TicketStageArgs) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if _, err := RequireTicketType(ctx, tx, eventID, typeID); err != nil {
			return err
		}
		if err := ValidatePriceTable(args.Prices); err != nil {
			return err
		}

		key := domain.StageKey{EventID: eventID, TicketTypeID: typeID, StageID: args.ID}
		if _, exists, err := tx.Inventory().GetTicketStage(ctx, key); err != nil {
			return err
		} else if exists {
			return domain.ErrStageIDInUse(args.ID)
		}

		stage := domain.TicketStage{
			EventID:      eventID,
			TicketTypeID: typeID,
			ID:           args.ID,
			Prices:       args.Prices,
			HasWhitelist: args.HasWhitelist,
			MaxPerUser:   args.MaxPerUser,
			MintLimit:    args.MintLimit,
			StartTime:    args.StartTime,
			EndTime:      args.EndTime,
			Active:       args.Active,
		}
		if err := tx.Inventory().PutTicketStage(ctx, stage); err != nil {
			return err
		}
		pending = append(pending, domain.NewTicketStageUpserted(&stage, event.Token))
		return nil
	})

	monitoring.RecordAdminOp("create_ticket_stage", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// EditTicketStage replaces a stage's configuration, preserving its mint count
func (t *Ticketing) EditTicketStage(ctx context.Context, eventID, typeID string, args domain.TicketStageArgs) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if _, err := RequireTicketType(ctx, tx, eventID, typeID); err != nil {
			return err
		}
		if err := ValidatePriceTable(args.Prices); err != nil {
			return err
		}

		key := domain.StageKey{EventID: eventID, TicketTypeID: typeID, StageID: args.ID}
		stage, ok, err := tx.Inventory().GetTicketStage(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTicketStageNotFound(args.ID)
		}

		stage.Prices = args.Prices
		stage.HasWhitelist = args.HasWhitelist
		stage.MaxPerUser = args.MaxPerUser
		stage.MintLimit = args.MintLimit
		stage.StartTime = args.StartTime
		stage.EndTime = args.EndTime
		stage.Active = args.Active

		if err := tx.Inventory().PutTicketStage(ctx, stage); err != nil {
			return err
		}
		pending = append(pending, domain.NewTicketStageUpserted(&stage, event.Token))
		return nil
	})

	monitoring.RecordAdminOp("edit_ticket_stage", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// RemoveTicketStage deletes one stage. Removal does not cascade upward.
func (t *Ticketing) RemoveTicketStage(ctx context.Context, eventID, typeID, stageID string) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		event, err := RequireEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if _, err := RequireTicketType(ctx, tx, eventID, typeID); err != nil {
			return err
		}

		key := domain.StageKey{EventID: eventID, TicketTypeID: typeID, StageID: stageID}
		stage, ok, err := tx.Inventory().GetTicketStage(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if _, err := tx.Inventory().DeleteTicketStage(ctx, key); err != nil {
			return err
		}
		pending = append(pending, domain.NewTicketStageRemoved(&stage, event.Token))
		return nil
	})

	monitoring.RecordAdminOp("remove_ticket_stage", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// AddToWhitelist adds wallets to a stage's allow-list
func (t *Ticketing) AddToWhitelist(ctx context.Context, key domain.StageKey, wallets []domain.Address) error {
	return t.changeWhitelist(ctx, key, wallets, true)
}

// RemoveFromWhitelist removes wallets from a stage's allow-list
func (t *Ticketing) RemoveFromWhitelist(ctx context.Context, key domain.StageKey, wallets []domain.Address) error {
	return t.changeWhitelist(ctx, key, wallets, false)
}

func (t *Ticketing) changeWhitelist(ctx context.Context, key domain.StageKey, wallets []domain.Address, add bool) error {
	var pending []*domain.DomainEvent

	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := RequireEvent(ctx, tx, key.EventID); err != nil {
			return err
		}
		if _, err := RequireTicketType(ctx, tx, key.EventID, key.TicketTypeID); err != nil {
			return err
		}

		if add {
			if err := tx.Whitelist().Add(ctx, key, wallets); err != nil {
				return err
			}
		} else {
			if err := tx.Whitelist().Remove(ctx, key, wallets); err != nil {
				return err
			}
		}
		pending = append(pending, domain.NewWhitelistChanged(key, wallets, add))
		return nil
	})

	monitoring.RecordAdminOp("change_whitelist", statusOf(err))
	if err == nil {
		t.publish(ctx, pending)
	}
	return err
}

// SetFees configures the platform cut in basis points, strictly under 10,000
func (t *Ticketing) SetFees(ctx context.Context, bps *big.Int) error {
	if bps == nil || bps.Sign() < 0 || bps.Cmp(big.NewInt(domain.FeeDenominator)) >= 0 {
		return domain.ErrInvalidFeeRate()
	}
	err := t.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.Settings().SetFeeRate(ctx, bps)
	})
	monitoring.RecordAdminOp("set_fees", statusOf(err))
	return err
}

func statusOf(err error) string {
	if err != nil {
		return "rejected"
	}
	return "success"
}

type callerKey struct{}

// WithCaller stamps the acting wallet on the context
func WithCaller(ctx context.Context, caller domain.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func callerFrom(ctx context.Context) domain.Address {
	if v := ctx.Value(callerKey{}); v != nil {
		if addr, ok := v.(domain.Address); ok {
			return addr
		}
	}
	return ""
}

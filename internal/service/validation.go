package service

import (
	"context"
	"time"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// ValidationService runs the ordered pre-purchase checks. It only reads;
// no state is mutated until the whole pipeline has passed.
type ValidationService struct{}

func NewValidationService() *ValidationService {
	return &ValidationService{}
}

// ValidatePurchase checks existence, stage state, time window, whitelist,
// quantity, per-user limits and remaining capacity, in that order, failing
// on the first violated rule. Limit and sold-out checks report the most
// specific tier first (stage, then type, then event).
func (v *ValidationService) ValidatePurchase(
	ctx context.Context,
	tx domain.Tx,
	key domain.StageKey,
	quantity uint32,
	caller domain.Address,
	now time.Time,
) (domain.Event, domain.TicketType, domain.TicketStage, error) {
	event, ticketType, stage, err := v.lookup(ctx, tx, key)
	if err != nil {
		return domain.Event{}, domain.TicketType{}, domain.TicketStage{}, err
	}

	if !stage.Active {
		return event, ticketType, stage, domain.ErrStageInactive(stage.ID)
	}

	ts := now.Unix()
	if ts < stage.StartTime {
		return event, ticketType, stage, domain.ErrSaleNotStarted(stage.ID)
	}
	if stage.EndTime != 0 && ts > stage.EndTime {
		return event, ticketType, stage, domain.ErrSaleEnded(stage.ID)
	}

	if stage.HasWhitelist {
		listed, err := tx.Whitelist().Contains(ctx, key, caller)
		if err != nil {
			return event, ticketType, stage, err
		}
		if !listed {
			return event, ticketType, stage, domain.ErrNotWhitelisted(caller)
		}
	}

	if quantity == 0 {
		return event, ticketType, stage, domain.ErrInvalidQuantity(quantity)
	}

	if err := v.checkBuyLimits(ctx, tx, key, quantity, caller, &event, &ticketType, &stage); err != nil {
		return event, ticketType, stage, err
	}

	if err := v.checkSoldOut(&event, &ticketType, &stage, quantity); err != nil {
		return event, ticketType, stage, err
	}

	return event, ticketType, stage, nil
}

func (v *ValidationService) lookup(ctx context.Context, tx domain.Tx, key domain.StageKey) (domain.Event, domain.TicketType, domain.TicketStage, error) {
	inv := tx.Inventory()

	event, ok, err := inv.GetEvent(ctx, key.EventID)
	if err != nil {
		return domain.Event{}, domain.TicketType{}, domain.TicketStage{}, err
	}
	if !ok {
		return domain.Event{}, domain.TicketType{}, domain.TicketStage{}, domain.ErrEventNotFound(key.EventID)
	}

	ticketType, ok, err := inv.GetTicketType(ctx, key.EventID, key.TicketTypeID)
	if err != nil {
		return event, domain.TicketType{}, domain.TicketStage{}, err
	}
	if !ok {
		return event, domain.TicketType{}, domain.TicketStage{}, domain.ErrTicketTypeNotFound(key.TicketTypeID)
	}

	stage, ok, err := inv.GetTicketStage(ctx, key)
	if err != nil {
		return event, ticketType, domain.TicketStage{}, err
	}
	if !ok {
		return event, ticketType, domain.TicketStage{}, domain.ErrTicketStageNotFound(key.StageID)
	}

	return event, ticketType, stage, nil
}

// checkBuyLimits compares the caller's existing counters against each
// tier's max_per_user. A cap of zero means unlimited.
func (v *ValidationService) checkBuyLimits(
	ctx context.Context,
	tx domain.Tx,
	key domain.StageKey,
	quantity uint32,
	caller domain.Address,
	event *domain.Event,
	ticketType *domain.TicketType,
	stage *domain.TicketStage,
) error {
	acct := tx.Accounting()

	if stage.MaxPerUser > 0 {
		counts, err := acct.BuysPerStage(ctx, caller, key)
		if err != nil {
			return err
		}
		if counts+quantity > stage.MaxPerUser {
			return domain.ErrLimitExceeded(domain.TierStage, stage.MaxPerUser)
		}
	}

	if ticketType.MaxPerUser > 0 {
		counts, err := acct.BuysPerType(ctx, caller, key.EventID, key.TicketTypeID)
		if err != nil {
			return err
		}
		if counts+quantity > ticketType.MaxPerUser {
			return domain.ErrLimitExceeded(domain.TierType, ticketType.MaxPerUser)
		}
	}

	if event.MaxPerUser > 0 {
		counts, err := acct.BuysPerEvent(ctx, caller, key.EventID)
		if err != nil {
			return err
		}
		if counts+quantity > event.MaxPerUser {
			return domain.ErrLimitExceeded(domain.TierEvent, event.MaxPerUser)
		}
	}

	return nil
}

func (v *ValidationService) checkSoldOut(event *domain.Event, ticketType *domain.TicketType, stage *domain.TicketStage, quantity uint32) error {
	if stage.MintCount+quantity > stage.MintLimit {
		return domain.ErrSoldOut(domain.TierStage)
	}
	if ticketType.MintCount+quantity > ticketType.MintLimit {
		return domain.ErrSoldOut(domain.TierType)
	}
	if event.MintCount+quantity > event.MaxCapacity {
		return domain.ErrSoldOut(domain.TierEvent)
	}
	return nil
}

// CheckTypeSoldOut is the reduced capacity check used by the giveaway path,
// where no stage context exists.
func (v *ValidationService) CheckTypeSoldOut(event *domain.Event, ticketType *domain.TicketType, quantity uint32) error {
	if ticketType.MintCount+quantity > ticketType.MintLimit {
		return domain.ErrSoldOut(domain.TierType)
	}
	if event.MintCount+quantity > event.MaxCapacity {
		return domain.ErrSoldOut(domain.TierEvent)
	}
	return nil
}

// RequireEvent fetches an event or fails with the not-found error
func RequireEvent(ctx context.Context, tx domain.Tx, eventID string) (domain.Event, error) {
	event, ok, err := tx.Inventory().GetEvent(ctx, eventID)
	if err != nil {
		return domain.Event{}, err
	}
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound(eventID)
	}
	return event, nil
}

// RequireTicketType fetches a ticket type or fails with the not-found error
func RequireTicketType(ctx context.Context, tx domain.Tx, eventID, typeID string) (domain.TicketType, error) {
	ticketType, ok, err := tx.Inventory().GetTicketType(ctx, eventID, typeID)
	if err != nil {
		return domain.TicketType{}, err
	}
	if !ok {
		return domain.TicketType{}, domain.ErrTicketTypeNotFound(typeID)
	}
	return ticketType, nil
}

package service

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/logging"
	"github.com/ticketforge/ticketing-api/shared/redis"
)

const viewCacheTTL = 30 * time.Second

// Views serves the read-only query surface. Catalog listings are cached in
// Redis with a short TTL; admin handlers invalidate the affected keys on
// successful writes so edits become visible immediately.
type Views struct {
	uow    domain.UnitOfWork
	cache  *redis.Redis
	logger *logging.Logger
}

func NewViews(uow domain.UnitOfWork, cache *redis.Redis, logger *logging.Logger) *Views {
	if logger == nil {
		logger = logging.Default()
	}
	return &Views{uow: uow, cache: cache, logger: logger}
}

func eventsCacheKey() string                  { return redis.EventsViewKey() }
func typesCacheKey(eventID string) string     { return redis.TypesViewKey(eventID) }
func stagesCacheKey(eventID, t string) string { return redis.StagesViewKey(eventID, t) }

// ListEvents returns every event record
func (v *Views) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	if v.cachedGet(ctx, eventsCacheKey(), &events) {
		return events, nil
	}

	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		events, err = tx.Inventory().ListEvents(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	v.cachedSet(ctx, eventsCacheKey(), events)
	return events, nil
}

// GetEvent returns one event by id
func (v *Views) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	var event domain.Event
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		event, err = RequireEvent(ctx, tx, eventID)
		return err
	})
	return event, err
}

// ListTicketTypes returns the tiers of one event
func (v *Views) ListTicketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	var types []domain.TicketType
	if v.cachedGet(ctx, typesCacheKey(eventID), &types) {
		return types, nil
	}

	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := RequireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		types, err = tx.Inventory().ListTicketTypes(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	v.cachedSet(ctx, typesCacheKey(eventID), types)
	return types, nil
}

// ListTicketStages returns the stages of one tier
func (v *Views) ListTicketStages(ctx context.Context, eventID, typeID string) ([]domain.TicketStage, error) {
	var stages []domain.TicketStage
	if v.cachedGet(ctx, stagesCacheKey(eventID, typeID), &stages) {
		return stages, nil
	}

	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := RequireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		if _, err := RequireTicketType(ctx, tx, eventID, typeID); err != nil {
			return err
		}
		var err error
		stages, err = tx.Inventory().ListTicketStages(ctx, eventID, typeID)
		return err
	})
	if err != nil {
		return nil, err
	}

	v.cachedSet(ctx, stagesCacheKey(eventID, typeID), stages)
	return stages, nil
}

// ListAllStages returns every stage of every tier of an event
func (v *Views) ListAllStages(ctx context.Context, eventID string) ([]domain.TicketStage, error) {
	var all []domain.TicketStage
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := RequireEvent(ctx, tx, eventID); err != nil {
			return err
		}
		types, err := tx.Inventory().ListTicketTypes(ctx, eventID)
		if err != nil {
			return err
		}
		for _, ticketType := range types {
			stages, err := tx.Inventory().ListTicketStages(ctx, eventID, ticketType.ID)
			if err != nil {
				return err
			}
			all = append(all, stages...)
		}
		return nil
	})
	return all, err
}

// IncomeTokens lists the currencies with accrued organizer income
func (v *Views) IncomeTokens(ctx context.Context) ([]domain.TokenID, error) {
	var tokens []domain.TokenID
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		tokens, err = tx.Income().Tokens(ctx)
		return err
	})
	return tokens, err
}

// IncomePayment returns the accrued organizer income for one currency.
// A currency that never accrued anything reports a zero amount.
func (v *Views) IncomePayment(ctx context.Context, token domain.TokenID) (domain.TokenPayment, error) {
	var payment domain.TokenPayment
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		p, ok, err := tx.Income().Get(ctx, token)
		if err != nil {
			return err
		}
		if !ok {
			p = domain.TokenPayment{Token: token, Amount: big.NewInt(0)}
		}
		payment = p
		return nil
	})
	return payment, err
}

// WhitelistSize returns the number of wallets on a stage's allow-list
func (v *Views) WhitelistSize(ctx context.Context, key domain.StageKey) (int, error) {
	var size int
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		size, err = tx.Whitelist().Size(ctx, key)
		return err
	})
	return size, err
}

// IsWhitelisted reports whether a wallet is on a stage's allow-list
func (v *Views) IsWhitelisted(ctx context.Context, key domain.StageKey, wallet domain.Address) (bool, error) {
	var listed bool
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		listed, err = tx.Whitelist().Contains(ctx, key, wallet)
		return err
	})
	return listed, err
}

// UserBuys reports one wallet's purchase counters at all three scopes
type UserBuys struct {
	Event uint32 `json:"event"`
	Type  uint32 `json:"type"`
	Stage uint32 `json:"stage"`
}

// BuysFor returns a wallet's counters for a stage and its enclosing scopes
func (v *Views) BuysFor(ctx context.Context, key domain.StageKey, wallet domain.Address) (UserBuys, error) {
	var buys UserBuys
	err := v.uow.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		acct := tx.Accounting()
		var err error
		if buys.Event, err = acct.BuysPerEvent(ctx, wallet, key.EventID); err != nil {
			return err
		}
		if buys.Type, err = acct.BuysPerType(ctx, wallet, key.EventID, key.TicketTypeID); err != nil {
			return err
		}
		buys.Stage, err = acct.BuysPerStage(ctx, wallet, key)
		return err
	})
	return buys, err
}

// InvalidateEvents drops the cached event listing
func (v *Views) InvalidateEvents(ctx context.Context) {
	v.cachedDel(ctx, eventsCacheKey())
}

// InvalidateTypes drops the cached tier listing of an event
func (v *Views) InvalidateTypes(ctx context.Context, eventID string) {
	v.cachedDel(ctx, typesCacheKey(eventID))
}

// InvalidateStages drops the cached stage listing of a tier
func (v *Views) InvalidateStages(ctx context.Context, eventID, typeID string) {
	v.cachedDel(ctx, stagesCacheKey(eventID, typeID))
}

// cachedGet reports true when the key was present and decoded. Cache errors
// degrade to a repository read.
func (v *Views) cachedGet(ctx context.Context, key string, out interface{}) bool {
	if v.cache == nil {
		return false
	}
	raw, err := v.cache.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			v.logger.WithError(err).WithField("key", key).Debug("view cache read failed")
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		v.logger.WithError(err).WithField("key", key).Debug("view cache entry corrupt")
		return false
	}
	return true
}

func (v *Views) cachedSet(ctx context.Context, key string, value interface{}) {
	if v.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := v.cache.SetWithExpiration(ctx, key, string(raw), viewCacheTTL); err != nil {
		v.logger.WithError(err).WithField("key", key).Debug("view cache write failed")
	}
}

func (v *Views) cachedDel(ctx context.Context, key string) {
	if v.cache == nil {
		return
	}
	if err := v.cache.Delete(ctx, key); err != nil {
		v.logger.WithError(err).WithField("key", key).Debug("view cache invalidation failed")
	}
}

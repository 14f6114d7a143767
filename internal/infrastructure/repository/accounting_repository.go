package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// AccountingRepository persists the per-wallet purchase counters and the
// per-collection mint nonce. Counter increments are upserts so the first
// purchase needs no prior row.
type AccountingRepository struct {
	db dbtx
}

func NewAccountingRepository(db dbtx) domain.AccountingRepository {
	return &AccountingRepository{db: db}
}

func (r *AccountingRepository) BuysPerEvent(ctx context.Context, user domain.Address, eventID string) (uint32, error) {
	return r.counter(ctx,
		`SELECT count FROM buys_per_event WHERE wallet = $1 AND event_id = $2`,
		string(user), eventID)
}

func (r *AccountingRepository) BuysPerType(ctx context.Context, user domain.Address, eventID, typeID string) (uint32, error) {
	return r.counter(ctx,
		`SELECT count FROM buys_per_type WHERE wallet = $1 AND event_id = $2 AND ticket_type_id = $3`,
		string(user), eventID, typeID)
}

func (r *AccountingRepository) BuysPerStage(ctx context.Context, user domain.Address, key domain.StageKey) (uint32, error) {
	return r.counter(ctx,
		`SELECT count FROM buys_per_stage WHERE wallet = $1 AND event_id = $2 AND ticket_type_id = $3 AND stage_id = $4`,
		string(user), key.EventID, key.TicketTypeID, key.StageID)
}

func (r *AccountingRepository) counter(ctx context.Context, query string, args ...interface{}) (uint32, error) {
	var count uint32
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read purchase counter: %w", err)
	}
	return count, nil
}

func (r *AccountingRepository) AddEventBuys(ctx context.Context, user domain.Address, eventID string, quantity uint32) error {
	query := `
		INSERT INTO buys_per_event (wallet, event_id, count) VALUES ($1, $2, $3)
		ON CONFLICT (wallet, event_id) DO UPDATE SET count = buys_per_event.count + EXCLUDED.count
	`
	_, err := r.db.ExecContext(ctx, query, string(user), eventID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add event buys: %w", err)
	}
	return nil
}

func (r *AccountingRepository) AddTypeBuys(ctx context.Context, user domain.Address, eventID, typeID string, quantity uint32) error {
	query := `
		INSERT INTO buys_per_type (wallet, event_id, ticket_type_id, count) VALUES ($1, $2, $3, $4)
		ON CONFLICT (wallet, event_id, ticket_type_id) DO UPDATE SET count = buys_per_type.count + EXCLUDED.count
	`
	_, err := r.db.ExecContext(ctx, query, string(user), eventID, typeID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add type buys: %w", err)
	}
	return nil
}

func (r *AccountingRepository) AddStageBuys(ctx context.Context, user domain.Address, key domain.StageKey, quantity uint32) error {
	query := `
		INSERT INTO buys_per_stage (wallet, event_id, ticket_type_id, stage_id, count) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet, event_id, ticket_type_id, stage_id) DO UPDATE SET count = buys_per_stage.count + EXCLUDED.count
	`
	_, err := r.db.ExecContext(ctx, query, string(user), key.EventID, key.TicketTypeID, key.StageID, quantity)
	if err != nil {
		return fmt.Errorf("failed to add stage buys: %w", err)
	}
	return nil
}

// NextNonce reads the collection's next mint nonce, locking the row for the
// remainder of the transaction. The nonce is seeded when the collection is
// issued; a missing row is a consistency fault, not an empty counter.
func (r *AccountingRepository) NextNonce(ctx context.Context, token domain.TokenID) (uint64, error) {
	var nonce uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT next_nonce FROM collection_nonces WHERE token = $1 FOR UPDATE`,
		string(token)).Scan(&nonce)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("collection %s has no seeded nonce", token)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read collection nonce: %w", err)
	}
	return nonce, nil
}

func (r *AccountingRepository) SetNextNonce(ctx context.Context, token domain.TokenID, nonce uint64) error {
	query := `
		INSERT INTO collection_nonces (token, next_nonce) VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET next_nonce = EXCLUDED.next_nonce
	`
	_, err := r.db.ExecContext(ctx, query, string(token), nonce)
	if err != nil {
		return fmt.Errorf("failed to set collection nonce: %w", err)
	}
	return nil
}

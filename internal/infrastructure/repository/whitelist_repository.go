package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// WhitelistRepository persists the per-stage allow-lists
type WhitelistRepository struct {
	db dbtx
}

func NewWhitelistRepository(db dbtx) domain.WhitelistRepository {
	return &WhitelistRepository{db: db}
}

func (r *WhitelistRepository) Add(ctx context.Context, key domain.StageKey, wallets []domain.Address) error {
	query := `
		INSERT INTO whitelist (event_id, ticket_type_id, stage_id, wallet)
		SELECT $1, $2, $3, unnest($4::text[])
		ON CONFLICT DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		key.EventID, key.TicketTypeID, key.StageID, pq.Array(addressStrings(wallets)))
	if err != nil {
		return fmt.Errorf("failed to add whitelist entries: %w", err)
	}
	return nil
}

func (r *WhitelistRepository) Remove(ctx context.Context, key domain.StageKey, wallets []domain.Address) error {
	query := `
		DELETE FROM whitelist
		WHERE event_id = $1 AND ticket_type_id = $2 AND stage_id = $3 AND wallet = ANY($4::text[])
	`
	_, err := r.db.ExecContext(ctx, query,
		key.EventID, key.TicketTypeID, key.StageID, pq.Array(addressStrings(wallets)))
	if err != nil {
		return fmt.Errorf("failed to remove whitelist entries: %w", err)
	}
	return nil
}

func (r *WhitelistRepository) Contains(ctx context.Context, key domain.StageKey, wallet domain.Address) (bool, error) {
	query := `
		SELECT 1 FROM whitelist
		WHERE event_id = $1 AND ticket_type_id = $2 AND stage_id = $3 AND wallet = $4
	`
	var one int
	err := r.db.QueryRowContext(ctx, query,
		key.EventID, key.TicketTypeID, key.StageID, string(wallet)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check whitelist: %w", err)
	}
	return true, nil
}

func (r *WhitelistRepository) Size(ctx context.Context, key domain.StageKey) (int, error) {
	query := `
		SELECT COUNT(*) FROM whitelist
		WHERE event_id = $1 AND ticket_type_id = $2 AND stage_id = $3
	`
	var size int
	err := r.db.QueryRowContext(ctx, query, key.EventID, key.TicketTypeID, key.StageID).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to count whitelist: %w", err)
	}
	return size, nil
}

func addressStrings(wallets []domain.Address) []string {
	out := make([]string, len(wallets))
	for i, w := range wallets {
		out[i] = string(w)
	}
	return out
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

const feeRateKey = "fee_rate"

// SettingsRepository persists platform-level configuration as key/value rows
type SettingsRepository struct {
	db dbtx
}

func NewSettingsRepository(db dbtx) domain.SettingsRepository {
	return &SettingsRepository{db: db}
}

// FeeRate returns the platform cut in basis points, zero when never set
func (r *SettingsRepository) FeeRate(ctx context.Context) (*big.Int, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, feeRateKey).Scan(&value)
	if err == sql.ErrNoRows {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fee rate: %w", err)
	}
	return parseBigInt(value)
}

func (r *SettingsRepository) SetFeeRate(ctx context.Context, bps *big.Int) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := r.db.ExecContext(ctx, query, feeRateKey, bps.String())
	if err != nil {
		return fmt.Errorf("failed to set fee rate: %w", err)
	}
	return nil
}

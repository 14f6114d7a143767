package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// IncomeRepository persists the organizer's accrued income per currency.
// Amounts are stored as text because they exceed bigint range.
type IncomeRepository struct {
	db dbtx
}

func NewIncomeRepository(db dbtx) domain.IncomeRepository {
	return &IncomeRepository{db: db}
}

// Accrue adds amount to the token's balance. The read locks the row, so
// concurrent accruals within separate transactions serialize here.
func (r *IncomeRepository) Accrue(ctx context.Context, token domain.TokenID, amount *big.Int) error {
	var current string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM income WHERE token = $1 FOR UPDATE`, string(token)).Scan(&current)
	if err == sql.ErrNoRows {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO income (token, amount) VALUES ($1, $2)`, string(token), amount.String())
		if err != nil {
			return fmt.Errorf("failed to insert income: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read income: %w", err)
	}

	balance, err := parseBigInt(current)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)

	_, err = r.db.ExecContext(ctx,
		`UPDATE income SET amount = $1 WHERE token = $2`, balance.String(), string(token))
	if err != nil {
		return fmt.Errorf("failed to update income: %w", err)
	}
	return nil
}

func (r *IncomeRepository) Get(ctx context.Context, token domain.TokenID) (domain.TokenPayment, bool, error) {
	var amount string
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM income WHERE token = $1`, string(token)).Scan(&amount)
	if err == sql.ErrNoRows {
		return domain.TokenPayment{}, false, nil
	}
	if err != nil {
		return domain.TokenPayment{}, false, fmt.Errorf("failed to get income: %w", err)
	}

	balance, err := parseBigInt(amount)
	if err != nil {
		return domain.TokenPayment{}, false, err
	}
	return domain.TokenPayment{Token: token, Amount: balance}, true, nil
}

func (r *IncomeRepository) Tokens(ctx context.Context) ([]domain.TokenID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM income ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("failed to list income tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.TokenID
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan income token: %w", err)
		}
		tokens = append(tokens, domain.TokenID(token))
	}
	return tokens, rows.Err()
}

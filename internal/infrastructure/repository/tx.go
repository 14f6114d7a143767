package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/postgres"
)

// dbtx is the common surface of *sql.DB and *sql.Tx. Every repository is
// written against it so the same code serves transactional and direct use.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx bundles the repositories bound to one database transaction
type Tx struct {
	inventory  domain.InventoryRepository
	accounting domain.AccountingRepository
	whitelist  domain.WhitelistRepository
	income     domain.IncomeRepository
	settings   domain.SettingsRepository
}

func newTx(db dbtx) *Tx {
	return &Tx{
		inventory:  NewInventoryRepository(db),
		accounting: NewAccountingRepository(db),
		whitelist:  NewWhitelistRepository(db),
		income:     NewIncomeRepository(db),
		settings:   NewSettingsRepository(db),
	}
}

func (t *Tx) Inventory() domain.InventoryRepository   { return t.inventory }
func (t *Tx) Accounting() domain.AccountingRepository { return t.accounting }
func (t *Tx) Whitelist() domain.WhitelistRepository   { return t.whitelist }
func (t *Tx) Income() domain.IncomeRepository         { return t.income }
func (t *Tx) Settings() domain.SettingsRepository     { return t.settings }

// UnitOfWork runs ledger operations inside one serializable-enough
// transaction. Postgres read committed plus the row locks taken by the
// counter upserts is sufficient for the sale invariants.
type UnitOfWork struct {
	postgresDb *postgres.Postgres
}

func NewUnitOfWork(postgresDb *postgres.Postgres) domain.UnitOfWork {
	return &UnitOfWork{postgresDb: postgresDb}
}

func (uow *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	sqlTx, err := uow.postgresDb.GetClient().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, newTx(sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

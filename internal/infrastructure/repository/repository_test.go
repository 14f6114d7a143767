package repository

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/postgres"
)

func newMockUOW(t *testing.T) (domain.UnitOfWork, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUnitOfWork(postgres.NewPostgresWithDB(db)), mock
}

func TestWithinTxCommits(t *testing.T) {
	uow, mock := newMockUOW(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO buys_per_event").
		WithArgs("0xabc", "summer-fest", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.Accounting().AddEventBuys(ctx, "0xabc", "summer-fest", 2)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	uow, mock := newMockUOW(t)
	boom := errors.New("validation failed")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := uow.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterMissingRowReadsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT count FROM buys_per_stage").
		WithArgs("0xabc", "summer-fest", "vip", "early-bird").
		WillReturnRows(sqlmock.NewRows([]string{"count"}))

	repo := NewAccountingRepository(db)
	count, err := repo.BuysPerStage(context.Background(), "0xabc", domain.StageKey{
		EventID: "summer-fest", TicketTypeID: "vip", StageID: "early-bird",
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)
}

func TestNextNonceRequiresSeededRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT next_nonce FROM collection_nonces").
		WithArgs("TICKET-abc123").
		WillReturnRows(sqlmock.NewRows([]string{"next_nonce"}))

	repo := NewAccountingRepository(db)
	_, err = repo.NextNonce(context.Background(), "TICKET-abc123")
	assert.Error(t, err)

	mock.ExpectQuery("SELECT next_nonce FROM collection_nonces").
		WithArgs("TICKET-abc123").
		WillReturnRows(sqlmock.NewRows([]string{"next_nonce"}).AddRow(7))

	nonce, err := repo.NextNonce(context.Background(), "TICKET-abc123")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)
}

func TestFeeRateDefaultsToZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("fee_rate").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	repo := NewSettingsRepository(db)
	rate, err := repo.FeeRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), rate)
}

func TestIncomeAccrueAddsToExistingBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT amount FROM income").
		WithArgs("USDC-c76f1f").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow("900"))
	mock.ExpectExec("UPDATE income SET amount").
		WithArgs("1090", "USDC-c76f1f").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewIncomeRepository(db)
	err = repo.Accrue(context.Background(), "USDC-c76f1f", big.NewInt(190))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncomeAccrueInsertsFirstBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT amount FROM income").
		WithArgs("USDC-c76f1f").
		WillReturnRows(sqlmock.NewRows([]string{"amount"}))
	mock.ExpectExec("INSERT INTO income").
		WithArgs("USDC-c76f1f", "190").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewIncomeRepository(db)
	err = repo.Accrue(context.Background(), "USDC-c76f1f", big.NewInt(190))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventScansBigIntColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "token", "transfer_role", "max_capacity", "max_per_user", "fees",
		"mint_count", "has_kyc", "refund_policy", "append_number", "bot_protection",
	}).AddRow("summer-fest", "TICKET-abc123", false, 100, 10, "500", 3, true, false, true, false)

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id").
		WithArgs("summer-fest").
		WillReturnRows(rows)

	repo := NewInventoryRepository(db)
	event, ok, err := repo.GetEvent(context.Background(), "summer-fest")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TokenID("TICKET-abc123"), event.Token)
	assert.Equal(t, big.NewInt(500), event.Fees)
	assert.Equal(t, uint32(3), event.MintCount)
	assert.True(t, event.HasKYC)
}

func TestGetEventMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM events WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewInventoryRepository(db)
	_, ok, err := repo.GetEvent(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutTicketStageEncodesPrices(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO ticket_stages").
		WithArgs("summer-fest", "vip", "early-bird", sqlmock.AnyArg(), false,
			uint32(3), uint32(20), uint32(0), int64(1000), int64(0), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewInventoryRepository(db)
	err = repo.PutTicketStage(context.Background(), domain.TicketStage{
		EventID:      "summer-fest",
		TicketTypeID: "vip",
		ID:           "early-bird",
		Prices:       []domain.TokenPayment{{Token: "USDC-c76f1f", Amount: big.NewInt(100)}},
		MaxPerUser:   3,
		MintLimit:    20,
		StartTime:    1000,
		Active:       true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/shared/postgres"
)

// InventoryRepository persists events, ticket types, stages and the
// two-phase issuance registry. Price tables and registration payloads are
// stored as JSONB; big integer rates are stored as text.
type InventoryRepository struct {
	db dbtx
}

func NewInventoryRepository(db dbtx) domain.InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) ReserveEventID(ctx context.Context, reg domain.EventRegistration) error {
	args, err := json.Marshal(reg.Args)
	if err != nil {
		return fmt.Errorf("failed to encode registration args: %w", err)
	}
	payment, err := json.Marshal(reg.Payment)
	if err != nil {
		return fmt.Errorf("failed to encode registration payment: %w", err)
	}

	query := `
		INSERT INTO event_registry (event_id, state, args, caller, payment, token_name, token_ticker, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		reg.EventID, string(reg.State), args, string(reg.Caller), payment,
		reg.TokenName, reg.TokenTicker, reg.CreatedAt,
	)
	// Two concurrent registrations can both pass the existence pre-check;
	// the primary key settles the race.
	if postgres.IsUniqueViolation(err, "") {
		return domain.ErrEventIDInUse(reg.EventID)
	}
	if err != nil {
		return fmt.Errorf("failed to reserve event id: %w", err)
	}
	return nil
}

func (r *InventoryRepository) GetRegistration(ctx context.Context, eventID string) (domain.EventRegistration, bool, error) {
	query := `
		SELECT event_id, state, args, caller, payment, token_name, token_ticker, created_at
		FROM event_registry WHERE event_id = $1
	`
	var reg domain.EventRegistration
	var state, caller string
	var args, payment []byte

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&reg.EventID, &state, &args, &caller, &payment,
		&reg.TokenName, &reg.TokenTicker, &reg.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.EventRegistration{}, false, nil
	}
	if err != nil {
		return domain.EventRegistration{}, false, fmt.Errorf("failed to get registration: %w", err)
	}

	reg.State = domain.RegistrationState(state)
	reg.Caller = domain.Address(caller)
	if err := json.Unmarshal(args, &reg.Args); err != nil {
		return domain.EventRegistration{}, false, fmt.Errorf("failed to decode registration args: %w", err)
	}
	if err := json.Unmarshal(payment, &reg.Payment); err != nil {
		return domain.EventRegistration{}, false, fmt.Errorf("failed to decode registration payment: %w", err)
	}
	return reg, true, nil
}

func (r *InventoryRepository) ConfirmRegistration(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE event_registry SET state = $1 WHERE event_id = $2`,
		string(domain.RegistrationConfirmed), eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm registration: %w", err)
	}
	return nil
}

func (r *InventoryRepository) DeleteRegistration(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM event_registry WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return nil
}

func (r *InventoryRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, bool, error) {
	query := `
		SELECT id, token, transfer_role, max_capacity, max_per_user, fees, mint_count,
		       has_kyc, refund_policy, append_number, bot_protection
		FROM events WHERE id = $1
	`
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, eventID))
	if err == sql.ErrNoRows {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, fmt.Errorf("failed to get event: %w", err)
	}
	return event, true, nil
}

func (r *InventoryRepository) PutEvent(ctx context.Context, event domain.Event) error {
	if event.Fees == nil {
		event.Fees = big.NewInt(0)
	}
	query := `
		INSERT INTO events (id, token, transfer_role, max_capacity, max_per_user, fees, mint_count,
		                    has_kyc, refund_policy, append_number, bot_protection)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token, transfer_role = EXCLUDED.transfer_role,
			max_capacity = EXCLUDED.max_capacity, max_per_user = EXCLUDED.max_per_user,
			fees = EXCLUDED.fees, mint_count = EXCLUDED.mint_count,
			has_kyc = EXCLUDED.has_kyc, refund_policy = EXCLUDED.refund_policy,
			append_number = EXCLUDED.append_number, bot_protection = EXCLUDED.bot_protection
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, string(event.Token), event.TransferRole, event.MaxCapacity, event.MaxPerUser,
		event.Fees.String(), event.MintCount, event.HasKYC, event.RefundPolicy,
		event.AppendNumber, event.BotProtection,
	)
	if err != nil {
		return fmt.Errorf("failed to put event: %w", err)
	}
	return nil
}

func (r *InventoryRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	query := `
		SELECT id, token, transfer_role, max_capacity, max_per_user, fees, mint_count,
		       has_kyc, refund_policy, append_number, bot_protection
		FROM events ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *InventoryRepository) GetTicketType(ctx context.Context, eventID, typeID string) (domain.TicketType, bool, error) {
	query := `
		SELECT event_id, id, base_name, image, royalties, max_per_user, mint_limit, mint_count
		FROM ticket_types WHERE event_id = $1 AND id = $2
	`
	ticketType, err := scanTicketType(r.db.QueryRowContext(ctx, query, eventID, typeID))
	if err == sql.ErrNoRows {
		return domain.TicketType{}, false, nil
	}
	if err != nil {
		return domain.TicketType{}, false, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return ticketType, true, nil
}

func (r *InventoryRepository) PutTicketType(ctx context.Context, ticketType domain.TicketType) error {
	if ticketType.Royalties == nil {
		ticketType.Royalties = big.NewInt(0)
	}
	query := `
		INSERT INTO ticket_types (event_id, id, base_name, image, royalties, max_per_user, mint_limit, mint_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id, id) DO UPDATE SET
			base_name = EXCLUDED.base_name, image = EXCLUDED.image,
			royalties = EXCLUDED.royalties, max_per_user = EXCLUDED.max_per_user,
			mint_limit = EXCLUDED.mint_limit, mint_count = EXCLUDED.mint_count
	`
	_, err := r.db.ExecContext(ctx, query,
		ticketType.EventID, ticketType.ID, ticketType.BaseName, ticketType.Image,
		ticketType.Royalties.String(), ticketType.MaxPerUser, ticketType.MintLimit, ticketType.MintCount,
	)
	if err != nil {
		return fmt.Errorf("failed to put ticket type: %w", err)
	}
	return nil
}

func (r *InventoryRepository) DeleteTicketType(ctx context.Context, eventID, typeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ticket_types WHERE event_id = $1 AND id = $2`, eventID, typeID)
	if err != nil {
		return fmt.Errorf("failed to delete ticket type: %w", err)
	}
	return nil
}

func (r *InventoryRepository) ListTicketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	query := `
		SELECT event_id, id, base_name, image, royalties, max_per_user, mint_limit, mint_count
		FROM ticket_types WHERE event_id = $1 ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket types: %w", err)
	}
	defer rows.Close()

	var types []domain.TicketType
	for rows.Next() {
		ticketType, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		types = append(types, ticketType)
	}
	return types, rows.Err()
}

func (r *InventoryRepository) GetTicketStage(ctx context.Context, key domain.StageKey) (domain.TicketStage, bool, error) {
	query := `
		SELECT event_id, ticket_type_id, id, prices, has_whitelist, max_per_user,
		       mint_limit, mint_count, start_time, end_time, active
		FROM ticket_stages WHERE event_id = $1 AND ticket_type_id = $2 AND id = $3
	`
	stage, err := scanTicketStage(r.db.QueryRowContext(ctx, query, key.EventID, key.TicketTypeID, key.StageID))
	if err == sql.ErrNoRows {
		return domain.TicketStage{}, false, nil
	}
	if err != nil {
		return domain.TicketStage{}, false, fmt.Errorf("failed to get ticket stage: %w", err)
	}
	return stage, true, nil
}

func (r *InventoryRepository) PutTicketStage(ctx context.Context, stage domain.TicketStage) error {
	prices, err := json.Marshal(stage.Prices)
	if err != nil {
		return fmt.Errorf("failed to encode stage prices: %w", err)
	}
	query := `
		INSERT INTO ticket_stages (event_id, ticket_type_id, id, prices, has_whitelist,
		                           max_per_user, mint_limit, mint_count, start_time, end_time, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id, ticket_type_id, id) DO UPDATE SET
			prices = EXCLUDED.prices, has_whitelist = EXCLUDED.has_whitelist,
			max_per_user = EXCLUDED.max_per_user, mint_limit = EXCLUDED.mint_limit,
			mint_count = EXCLUDED.mint_count, start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time, active = EXCLUDED.active
	`
	_, err = r.db.ExecContext(ctx, query,
		stage.EventID, stage.TicketTypeID, stage.ID, prices, stage.HasWhitelist,
		stage.MaxPerUser, stage.MintLimit, stage.MintCount, stage.StartTime, stage.EndTime, stage.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to put ticket stage: %w", err)
	}
	return nil
}

func (r *InventoryRepository) DeleteTicketStage(ctx context.Context, key domain.StageKey) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM ticket_stages WHERE event_id = $1 AND ticket_type_id = $2 AND id = $3`,
		key.EventID, key.TicketTypeID, key.StageID)
	if err != nil {
		return false, fmt.Errorf("failed to delete ticket stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *InventoryRepository) DeleteStagesForType(ctx context.Context, eventID, typeID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ticket_stages WHERE event_id = $1 AND ticket_type_id = $2`, eventID, typeID)
	if err != nil {
		return fmt.Errorf("failed to delete stages for type: %w", err)
	}
	return nil
}

func (r *InventoryRepository) ListTicketStages(ctx context.Context, eventID, typeID string) ([]domain.TicketStage, error) {
	query := `
		SELECT event_id, ticket_type_id, id, prices, has_whitelist, max_per_user,
		       mint_limit, mint_count, start_time, end_time, active
		FROM ticket_stages WHERE event_id = $1 AND ticket_type_id = $2 ORDER BY start_time, id
	`
	rows, err := r.db.QueryContext(ctx, query, eventID, typeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.TicketStage
	for rows.Next() {
		stage, err := scanTicketStage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket stage: %w", err)
		}
		stages = append(stages, stage)
	}
	return stages, rows.Err()
}

func (r *InventoryRepository) RegisterCollection(ctx context.Context, token domain.TokenID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (token) VALUES ($1) ON CONFLICT (token) DO NOTHING`, string(token))
	if err != nil {
		return fmt.Errorf("failed to register collection: %w", err)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scanner) (domain.Event, error) {
	var event domain.Event
	var token, fees string
	err := row.Scan(
		&event.ID, &token, &event.TransferRole, &event.MaxCapacity, &event.MaxPerUser,
		&fees, &event.MintCount, &event.HasKYC, &event.RefundPolicy,
		&event.AppendNumber, &event.BotProtection,
	)
	if err != nil {
		return domain.Event{}, err
	}
	event.Token = domain.TokenID(token)
	event.Fees, err = parseBigInt(fees)
	return event, err
}

func scanTicketType(row scanner) (domain.TicketType, error) {
	var ticketType domain.TicketType
	var royalties string
	err := row.Scan(
		&ticketType.EventID, &ticketType.ID, &ticketType.BaseName, &ticketType.Image,
		&royalties, &ticketType.MaxPerUser, &ticketType.MintLimit, &ticketType.MintCount,
	)
	if err != nil {
		return domain.TicketType{}, err
	}
	ticketType.Royalties, err = parseBigInt(royalties)
	return ticketType, err
}

func scanTicketStage(row scanner) (domain.TicketStage, error) {
	var stage domain.TicketStage
	var prices []byte
	err := row.Scan(
		&stage.EventID, &stage.TicketTypeID, &stage.ID, &prices, &stage.HasWhitelist,
		&stage.MaxPerUser, &stage.MintLimit, &stage.MintCount,
		&stage.StartTime, &stage.EndTime, &stage.Active,
	)
	if err != nil {
		return domain.TicketStage{}, err
	}
	if err := json.Unmarshal(prices, &stage.Prices); err != nil {
		return domain.TicketStage{}, fmt.Errorf("failed to decode stage prices: %w", err)
	}
	return stage, nil
}

func parseBigInt(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return n, nil
}

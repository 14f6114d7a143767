package domain

import (
	"context"
	"math/big"
	"time"
)

// Address is a wallet or contract account address, hex encoded
type Address string

// TokenID identifies a token collection or payment currency
type TokenID string

// NativeToken is the chain's base currency, used for issuance payments
const NativeToken TokenID = "EGLD"

// FeeDenominator is the basis-point denominator for fee and royalty rates
const FeeDenominator = 10_000

// UnitAmount is the amount carried by every minted ticket unit
var UnitAmount = big.NewInt(1)

// TokenPayment is a (token, nonce, amount) triple. Nonce zero means a
// fungible currency; a positive nonce identifies a unique unit.
type TokenPayment struct {
	Token  TokenID  `json:"token"`
	Nonce  uint64   `json:"nonce"`
	Amount *big.Int `json:"amount"`
}

// Event is a top-level sellable campaign owning one token collection.
type Event struct {
	ID            string   `db:"id" json:"id"`
	Token         TokenID  `db:"token" json:"token"`
	TransferRole  bool     `db:"transfer_role" json:"transfer_role"`
	MaxCapacity   uint32   `db:"max_capacity" json:"max_capacity"`
	MaxPerUser    uint32   `db:"max_per_user" json:"max_per_user"`
	Fees          *big.Int `db:"fees" json:"fees"` // basis points, snapshot at issuance
	MintCount     uint32   `db:"mint_count" json:"mint_count"`
	HasKYC        bool     `db:"has_kyc" json:"has_kyc"`
	RefundPolicy  bool     `db:"refund_policy" json:"refund_policy"`
	AppendNumber  bool     `db:"append_number" json:"append_number"`
	BotProtection bool     `db:"bot_protection" json:"bot_protection"`
}

// EventArgs are the admin-editable fields of an Event
type EventArgs struct {
	MaxCapacity   uint32 `json:"max_capacity"`
	MaxPerUser    uint32 `json:"max_per_user"`
	HasKYC        bool   `json:"has_kyc"`
	RefundPolicy  bool   `json:"refund_policy"`
	AppendNumber  bool   `json:"append_number"`
	BotProtection bool   `json:"bot_protection"`
}

// TicketType is a named tier of tickets within an event
type TicketType struct {
	EventID    string   `db:"event_id" json:"event_id"`
	ID         string   `db:"id" json:"id"`
	BaseName   string   `db:"base_name" json:"base_name"`
	Image      string   `db:"image" json:"image"`
	Royalties  *big.Int `db:"royalties" json:"royalties"` // basis points
	MaxPerUser uint32   `db:"max_per_user" json:"max_per_user"`
	MintLimit  uint32   `db:"mint_limit" json:"mint_limit"`
	MintCount  uint32   `db:"mint_count" json:"mint_count"`
}

// TicketTypeArgs carries the creatable/editable fields of a TicketType
type TicketTypeArgs struct {
	ID         string   `json:"id"`
	BaseName   string   `json:"base_name"`
	Image      string   `json:"image"`
	Royalties  *big.Int `json:"royalties"`
	MaxPerUser uint32   `json:"max_per_user"`
	MintLimit  uint32   `json:"mint_limit"`
}

// TicketStage is a time-boxed pricing window for a ticket type.
// EndTime zero means the stage never ends.
type TicketStage struct {
	EventID      string         `db:"event_id" json:"event_id"`
	TicketTypeID string         `db:"ticket_type_id" json:"ticket_type_id"`
	ID           string         `db:"id" json:"id"`
	Prices       []TokenPayment `db:"prices" json:"prices"`
	HasWhitelist bool           `db:"has_whitelist" json:"has_whitelist"`
	MaxPerUser   uint32         `db:"max_per_user" json:"max_per_user"`
	MintLimit    uint32         `db:"mint_limit" json:"mint_limit"`
	MintCount    uint32         `db:"mint_count" json:"mint_count"`
	StartTime    int64          `db:"start_time" json:"start_time"`
	EndTime      int64          `db:"end_time" json:"end_time"`
	Active       bool           `db:"active" json:"active"`
}

// TicketStageArgs carries the creatable/editable fields of a TicketStage
type TicketStageArgs struct {
	ID           string         `json:"id"`
	Prices       []TokenPayment `json:"prices"`
	HasWhitelist bool           `json:"has_whitelist"`
	MaxPerUser   uint32         `json:"max_per_user"`
	MintLimit    uint32         `json:"mint_limit"`
	StartTime    int64          `json:"start_time"`
	EndTime      int64          `json:"end_time"`
	Active       bool           `json:"active"`
}

// StageKey addresses a stage and its whitelist
type StageKey struct {
	EventID      string
	TicketTypeID string
	StageID      string
}

// RegistrationState tracks the two-phase event issuance
type RegistrationState string

const (
	RegistrationPending   RegistrationState = "pending"
	RegistrationConfirmed RegistrationState = "confirmed"
)

// EventRegistration is the speculative record inserted when an event is
// created, before the token issuance is confirmed by the chain.
type EventRegistration struct {
	EventID     string            `db:"event_id" json:"event_id"`
	State       RegistrationState `db:"state" json:"state"`
	Args        EventArgs         `db:"args" json:"args"`
	Caller      Address           `db:"caller" json:"caller"`
	Payment     TokenPayment      `db:"payment" json:"payment"`
	TokenName   string            `db:"token_name" json:"token_name"`
	TokenTicker string            `db:"token_ticker" json:"token_ticker"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}

// IssuanceResult is the asynchronous confirmation from the chain gateway
type IssuanceResult struct {
	EventID string  `json:"event_id"`
	Token   TokenID `json:"token"`
	OK      bool    `json:"ok"`
	Reason  string  `json:"reason,omitempty"`
}

// UnitOfWork runs a function within one transactional boundary. Either the
// whole function's writes commit or none of them do.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes the repositories bound to one transaction
type Tx interface {
	Inventory() InventoryRepository
	Accounting() AccountingRepository
	Whitelist() WhitelistRepository
	Income() IncomeRepository
	Settings() SettingsRepository
}

// InventoryRepository holds events, ticket types, stages and the
// two-phase issuance registry. Lookups report existence explicitly.
type InventoryRepository interface {
	ReserveEventID(ctx context.Context, reg EventRegistration) error
	GetRegistration(ctx context.Context, eventID string) (EventRegistration, bool, error)
	ConfirmRegistration(ctx context.Context, eventID string) error
	DeleteRegistration(ctx context.Context, eventID string) error

	GetEvent(ctx context.Context, eventID string) (Event, bool, error)
	PutEvent(ctx context.Context, event Event) error
	ListEvents(ctx context.Context) ([]Event, error)

	GetTicketType(ctx context.Context, eventID, typeID string) (TicketType, bool, error)
	PutTicketType(ctx context.Context, ticketType TicketType) error
	DeleteTicketType(ctx context.Context, eventID, typeID string) error
	ListTicketTypes(ctx context.Context, eventID string) ([]TicketType, error)

	GetTicketStage(ctx context.Context, key StageKey) (TicketStage, bool, error)
	PutTicketStage(ctx context.Context, stage TicketStage) error
	DeleteTicketStage(ctx context.Context, key StageKey) (bool, error)
	DeleteStagesForType(ctx context.Context, eventID, typeID string) error
	ListTicketStages(ctx context.Context, eventID, typeID string) ([]TicketStage, error)

	RegisterCollection(ctx context.Context, token TokenID) error
}

// AccountingRepository holds per-user purchase counters and the
// per-collection mint nonce.
type AccountingRepository interface {
	BuysPerEvent(ctx context.Context, user Address, eventID string) (uint32, error)
	BuysPerType(ctx context.Context, user Address, eventID, typeID string) (uint32, error)
	BuysPerStage(ctx context.Context, user Address, key StageKey) (uint32, error)

	AddEventBuys(ctx context.Context, user Address, eventID string, quantity uint32) error
	AddTypeBuys(ctx context.Context, user Address, eventID, typeID string, quantity uint32) error
	AddStageBuys(ctx context.Context, user Address, key StageKey, quantity uint32) error

	NextNonce(ctx context.Context, token TokenID) (uint64, error)
	SetNextNonce(ctx context.Context, token TokenID, nonce uint64) error
}

// WhitelistRepository holds the per-stage allow-lists
type WhitelistRepository interface {
	Add(ctx context.Context, key StageKey, wallets []Address) error
	Remove(ctx context.Context, key StageKey, wallets []Address) error
	Contains(ctx context.Context, key StageKey, wallet Address) (bool, error)
	Size(ctx context.Context, key StageKey) (int, error)
}

// IncomeRepository is the organizer's accrued-income ledger
type IncomeRepository interface {
	Accrue(ctx context.Context, token TokenID, amount *big.Int) error
	Get(ctx context.Context, token TokenID) (TokenPayment, bool, error)
	Tokens(ctx context.Context) ([]TokenID, error)
}

// SettingsRepository holds the platform fee rate in basis points
type SettingsRepository interface {
	FeeRate(ctx context.Context) (*big.Int, error)
	SetFeeRate(ctx context.Context, bps *big.Int) error
}

// IssueRequest asks the chain gateway to issue a new NFT collection
type IssueRequest struct {
	EventID     string   `json:"event_id"`
	TokenName   string   `json:"token_name"`
	TokenTicker string   `json:"token_ticker"`
	Payment     *big.Int `json:"payment"`
}

// TokenIssuer starts an asynchronous collection issuance. The outcome
// arrives later as an IssuanceResult on the messaging layer.
type TokenIssuer interface {
	IssueCollection(ctx context.Context, req IssueRequest) error
}

// TokenMinter wraps the chain's unit-mint and transfer primitives
type TokenMinter interface {
	MintUnit(ctx context.Context, collection TokenID, name string, royalties *big.Int, attributes string, uris []string) (uint64, error)
	TransferBatch(ctx context.Context, to Address, payments []TokenPayment) error
	Transfer(ctx context.Context, to Address, payment TokenPayment) error
}

// SwapStep is one hop of an aggregated swap route
type SwapStep struct {
	Pool     Address  `json:"pool"`
	TokenIn  TokenID  `json:"token_in"`
	TokenOut TokenID  `json:"token_out"`
	AmountIn *big.Int `json:"amount_in"`
}

// TokenAmount is a slippage limit for the swap aggregator
type TokenAmount struct {
	Token  TokenID  `json:"token"`
	Amount *big.Int `json:"amount"`
}

// SwapAggregator routes a payment through the swap collaborator
type SwapAggregator interface {
	Swap(ctx context.Context, input TokenPayment, route []SwapStep, limits []TokenAmount) (TokenPayment, error)
}

// SignerRegistry exposes the externally managed signer and aggregator addresses
type SignerRegistry interface {
	Signer(ctx context.Context) (Address, error)
	AggregatorAddress(ctx context.Context) (Address, error)
}

// AccountInspector distinguishes contract accounts from user wallets
type AccountInspector interface {
	IsContract(ctx context.Context, addr Address) (bool, error)
}

// MessagePublisher publishes domain events emitted by the engine
type MessagePublisher interface {
	PublishDomainEvent(ctx context.Context, event *DomainEvent) error
}

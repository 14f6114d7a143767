package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// memStore is an in-memory ledger implementing every repository interface.
// memUnitOfWork snapshots it before each transaction and restores the
// snapshot on error, mirroring the all-or-nothing commit semantics.
type memStore struct {
	mu sync.Mutex

	registrations map[string]domain.EventRegistration
	events        map[string]domain.Event
	types         map[string]domain.TicketType
	stages        map[string]domain.TicketStage
	collections   map[domain.TokenID]bool
	whitelist     map[string]map[domain.Address]bool
	buysEvent     map[string]uint32
	buysType      map[string]uint32
	buysStage     map[string]uint32
	nonces        map[domain.TokenID]uint64
	income        map[domain.TokenID]*big.Int
	feeRate       *big.Int
}

func newMemStore() *memStore {
	return &memStore{
		registrations: make(map[string]domain.EventRegistration),
		events:        make(map[string]domain.Event),
		types:         make(map[string]domain.TicketType),
		stages:        make(map[string]domain.TicketStage),
		collections:   make(map[domain.TokenID]bool),
		whitelist:     make(map[string]map[domain.Address]bool),
		buysEvent:     make(map[string]uint32),
		buysType:      make(map[string]uint32),
		buysStage:     make(map[string]uint32),
		nonces:        make(map[domain.TokenID]uint64),
		income:        make(map[domain.TokenID]*big.Int),
		feeRate:       big.NewInt(0),
	}
}

func typeKey(eventID, typeID string) string { return eventID + "|" + typeID }

func stageKey(key domain.StageKey) string {
	return key.EventID + "|" + key.TicketTypeID + "|" + key.StageID
}

func userKey(user domain.Address, parts ...string) string {
	k := string(user)
	for _, p := range parts {
		k += "|" + p
	}
	return k
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	for k, v := range s.registrations {
		c.registrations[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.types {
		c.types[k] = v
	}
	for k, v := range s.stages {
		c.stages[k] = v
	}
	for k, v := range s.collections {
		c.collections[k] = v
	}
	for k, v := range s.whitelist {
		inner := make(map[domain.Address]bool, len(v))
		for a, b := range v {
			inner[a] = b
		}
		c.whitelist[k] = inner
	}
	for k, v := range s.buysEvent {
		c.buysEvent[k] = v
	}
	for k, v := range s.buysType {
		c.buysType[k] = v
	}
	for k, v := range s.buysStage {
		c.buysStage[k] = v
	}
	for k, v := range s.nonces {
		c.nonces[k] = v
	}
	for k, v := range s.income {
		c.income[k] = new(big.Int).Set(v)
	}
	c.feeRate = new(big.Int).Set(s.feeRate)
	return c
}

func (s *memStore) restore(snap *memStore) {
	s.registrations = snap.registrations
	s.events = snap.events
	s.types = snap.types
	s.stages = snap.stages
	s.collections = snap.collections
	s.whitelist = snap.whitelist
	s.buysEvent = snap.buysEvent
	s.buysType = snap.buysType
	s.buysStage = snap.buysStage
	s.nonces = snap.nonces
	s.income = snap.income
	s.feeRate = snap.feeRate
}

// InventoryRepository

func (s *memStore) ReserveEventID(_ context.Context, reg domain.EventRegistration) error {
	s.registrations[reg.EventID] = reg
	return nil
}

func (s *memStore) GetRegistration(_ context.Context, eventID string) (domain.EventRegistration, bool, error) {
	reg, ok := s.registrations[eventID]
	return reg, ok, nil
}

func (s *memStore) ConfirmRegistration(_ context.Context, eventID string) error {
	reg := s.registrations[eventID]
	reg.State = domain.RegistrationConfirmed
	s.registrations[eventID] = reg
	return nil
}

func (s *memStore) DeleteRegistration(_ context.Context, eventID string) error {
	delete(s.registrations, eventID)
	return nil
}

func (s *memStore) GetEvent(_ context.Context, eventID string) (domain.Event, bool, error) {
	event, ok := s.events[eventID]
	return event, ok, nil
}

func (s *memStore) PutEvent(_ context.Context, event domain.Event) error {
	s.events[event.ID] = event
	return nil
}

func (s *memStore) ListEvents(_ context.Context) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) GetTicketType(_ context.Context, eventID, typeID string) (domain.TicketType, bool, error) {
	t, ok := s.types[typeKey(eventID, typeID)]
	return t, ok, nil
}

func (s *memStore) PutTicketType(_ context.Context, ticketType domain.TicketType) error {
	s.types[typeKey(ticketType.EventID, ticketType.ID)] = ticketType
	return nil
}

func (s *memStore) DeleteTicketType(_ context.Context, eventID, typeID string) error {
	delete(s.types, typeKey(eventID, typeID))
	return nil
}

func (s *memStore) ListTicketTypes(_ context.Context, eventID string) ([]domain.TicketType, error) {
	var out []domain.TicketType
	for _, t := range s.types {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memStore) GetTicketStage(_ context.Context, key domain.StageKey) (domain.TicketStage, bool, error) {
	st, ok := s.stages[stageKey(key)]
	return st, ok, nil
}

func (s *memStore) PutTicketStage(_ context.Context, stage domain.TicketStage) error {
	s.stages[stageKey(domain.StageKey{EventID: stage.EventID, TicketTypeID: stage.TicketTypeID, StageID: stage.ID})] = stage
	return nil
}

func (s *memStore) DeleteTicketStage(_ context.Context, key domain.StageKey) (bool, error) {
	k := stageKey(key)
	_, ok := s.stages[k]
	delete(s.stages, k)
	return ok, nil
}

func (s *memStore) DeleteStagesForType(_ context.Context, eventID, typeID string) error {
	for k, st := range s.stages {
		if st.EventID == eventID && st.TicketTypeID == typeID {
			delete(s.stages, k)
		}
	}
	return nil
}

func (s *memStore) ListTicketStages(_ context.Context, eventID, typeID string) ([]domain.TicketStage, error) {
	var out []domain.TicketStage
	for _, st := range s.stages {
		if st.EventID == eventID && st.TicketTypeID == typeID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *memStore) RegisterCollection(_ context.Context, token domain.TokenID) error {
	s.collections[token] = true
	return nil
}

// AccountingRepository

func (s *memStore) BuysPerEvent(_ context.Context, user domain.Address, eventID string) (uint32, error) {
	return s.buysEvent[userKey(user, eventID)], nil
}

func (s *memStore) BuysPerType(_ context.Context, user domain.Address, eventID, typeID string) (uint32, error) {
	return s.buysType[userKey(user, eventID, typeID)], nil
}

func (s *memStore) BuysPerStage(_ context.Context, user domain.Address, key domain.StageKey) (uint32, error) {
	return s.buysStage[userKey(user, key.EventID, key.TicketTypeID, key.StageID)], nil
}

func (s *memStore) AddEventBuys(_ context.Context, user domain.Address, eventID string, quantity uint32) error {
	s.buysEvent[userKey(user, eventID)] += quantity
	return nil
}

func (s *memStore) AddTypeBuys(_ context.Context, user domain.Address, eventID, typeID string, quantity uint32) error {
	s.buysType[userKey(user, eventID, typeID)] += quantity
	return nil
}

func (s *memStore) AddStageBuys(_ context.Context, user domain.Address, key domain.StageKey, quantity uint32) error {
	s.buysStage[userKey(user, key.EventID, key.TicketTypeID, key.StageID)] += quantity
	return nil
}

func (s *memStore) NextNonce(_ context.Context, token domain.TokenID) (uint64, error) {
	nonce, ok := s.nonces[token]
	if !ok {
		return 0, fmt.Errorf("collection %s has no seeded nonce", token)
	}
	return nonce, nil
}

func (s *memStore) SetNextNonce(_ context.Context, token domain.TokenID, nonce uint64) error {
	s.nonces[token] = nonce
	return nil
}

// WhitelistRepository

func (s *memStore) Add(_ context.Context, key domain.StageKey, wallets []domain.Address) error {
	k := stageKey(key)
	if s.whitelist[k] == nil {
		s.whitelist[k] = make(map[domain.Address]bool)
	}
	for _, w := range wallets {
		s.whitelist[k][w] = true
	}
	return nil
}

func (s *memStore) Remove(_ context.Context, key domain.StageKey, wallets []domain.Address) error {
	k := stageKey(key)
	for _, w := range wallets {
		delete(s.whitelist[k], w)
	}
	return nil
}

func (s *memStore) Contains(_ context.Context, key domain.StageKey, wallet domain.Address) (bool, error) {
	return s.whitelist[stageKey(key)][wallet], nil
}

func (s *memStore) Size(_ context.Context, key domain.StageKey) (int, error) {
	return len(s.whitelist[stageKey(key)]), nil
}

// IncomeRepository

func (s *memStore) Accrue(_ context.Context, token domain.TokenID, amount *big.Int) error {
	if s.income[token] == nil {
		s.income[token] = big.NewInt(0)
	}
	s.income[token].Add(s.income[token], amount)
	return nil
}

func (s *memStore) Get(_ context.Context, token domain.TokenID) (domain.TokenPayment, bool, error) {
	amount, ok := s.income[token]
	if !ok {
		return domain.TokenPayment{}, false, nil
	}
	return domain.TokenPayment{Token: token, Amount: new(big.Int).Set(amount)}, true, nil
}

func (s *memStore) Tokens(_ context.Context) ([]domain.TokenID, error) {
	out := make([]domain.TokenID, 0, len(s.income))
	for t := range s.income {
		out = append(out, t)
	}
	return out, nil
}

// SettingsRepository

func (s *memStore) FeeRate(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(s.feeRate), nil
}

func (s *memStore) SetFeeRate(_ context.Context, bps *big.Int) error {
	s.feeRate = new(big.Int).Set(bps)
	return nil
}

// memTx exposes the store as a transaction
type memTx struct{ store *memStore }

func (t *memTx) Inventory() domain.InventoryRepository   { return t.store }
func (t *memTx) Accounting() domain.AccountingRepository { return t.store }
func (t *memTx) Whitelist() domain.WhitelistRepository   { return t.store }
func (t *memTx) Income() domain.IncomeRepository         { return t.store }
func (t *memTx) Settings() domain.SettingsRepository     { return t.store }

// memUnitOfWork restores the pre-transaction snapshot when fn fails
type memUnitOfWork struct{ store *memStore }

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	snap := u.store.snapshot()
	if err := fn(ctx, &memTx{store: u.store}); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

// fakeMinter records chain transfers and mints sequential unit nonces
type fakeMinter struct {
	nextUnit  uint64
	mintErr   error
	minted    []string
	transfers []struct {
		To       domain.Address
		Payments []domain.TokenPayment
	}
}

func newFakeMinter() *fakeMinter { return &fakeMinter{nextUnit: 1} }

func (m *fakeMinter) MintUnit(_ context.Context, collection domain.TokenID, name string, _ *big.Int, _ string, _ []string) (uint64, error) {
	if m.mintErr != nil {
		return 0, m.mintErr
	}
	nonce := m.nextUnit
	m.nextUnit++
	m.minted = append(m.minted, fmt.Sprintf("%s/%s/%d", collection, name, nonce))
	return nonce, nil
}

func (m *fakeMinter) TransferBatch(_ context.Context, to domain.Address, payments []domain.TokenPayment) error {
	m.transfers = append(m.transfers, struct {
		To       domain.Address
		Payments []domain.TokenPayment
	}{to, payments})
	return nil
}

func (m *fakeMinter) Transfer(ctx context.Context, to domain.Address, payment domain.TokenPayment) error {
	return m.TransferBatch(ctx, to, []domain.TokenPayment{payment})
}

func (m *fakeMinter) transfersTo(to domain.Address) []domain.TokenPayment {
	var out []domain.TokenPayment
	for _, t := range m.transfers {
		if t.To == to {
			out = append(out, t.Payments...)
		}
	}
	return out
}

// fakeIssuer records issuance requests
type fakeIssuer struct {
	requests []domain.IssueRequest
	err      error
}

func (i *fakeIssuer) IssueCollection(_ context.Context, req domain.IssueRequest) error {
	if i.err != nil {
		return i.err
	}
	i.requests = append(i.requests, req)
	return nil
}

// fakeAggregator returns a configured swap output
type fakeAggregator struct {
	output domain.TokenPayment
	err    error
}

func (a *fakeAggregator) Swap(_ context.Context, _ domain.TokenPayment, _ []domain.SwapStep, _ []domain.TokenAmount) (domain.TokenPayment, error) {
	if a.err != nil {
		return domain.TokenPayment{}, a.err
	}
	return a.output, nil
}

// fakeRegistry serves a fixed signer address
type fakeRegistry struct {
	signer     domain.Address
	aggregator domain.Address
}

func (r *fakeRegistry) Signer(_ context.Context) (domain.Address, error) {
	return r.signer, nil
}

func (r *fakeRegistry) AggregatorAddress(_ context.Context) (domain.Address, error) {
	return r.aggregator, nil
}

// fakeInspector marks a configurable set of addresses as contracts
type fakeInspector struct {
	contracts map[domain.Address]bool
}

func (i *fakeInspector) IsContract(_ context.Context, addr domain.Address) (bool, error) {
	return i.contracts[addr], nil
}

// fakePublisher collects published domain events
type fakePublisher struct {
	events []*domain.DomainEvent
}

func (p *fakePublisher) PublishDomainEvent(_ context.Context, event *domain.DomainEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) typesSeen() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

package service

import (
	"context"
	"strconv"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// MintService creates ticket units and advances every nested counter in the
// same transaction. Chain-side minting is assumed infallible once invoked
// validly; a failure still aborts the ledger transaction.
type MintService struct {
	minter    domain.TokenMinter
	inspector domain.AccountInspector
}

func NewMintService(minter domain.TokenMinter, inspector domain.AccountInspector) *MintService {
	return &MintService{minter: minter, inspector: inspector}
}

// Mint creates quantity units of the ticket type for `to`, transfers them in
// one batch, and persists the updated Event/TicketType/TicketStage records.
// A nil stage is the giveaway path: no stage counter is touched.
// The entities are mutated in place so the caller sees the new counts.
func (m *MintService) Mint(
	ctx context.Context,
	tx domain.Tx,
	event *domain.Event,
	ticketType *domain.TicketType,
	stage *domain.TicketStage,
	to domain.Address,
	quantity uint32,
) ([]domain.TokenPayment, error) {
	isContract, err := m.inspector.IsContract(ctx, to)
	if err != nil {
		return nil, err
	}
	if isContract {
		return nil, domain.ErrOnlyUserAccounts(to)
	}

	acct := tx.Accounting()

	nonce, err := acct.NextNonce(ctx, event.Token)
	if err != nil {
		return nil, err
	}

	minted := make([]domain.TokenPayment, 0, quantity)
	for i := uint32(0); i < quantity; i++ {
		name := ticketType.BaseName
		if event.AppendNumber {
			name += strconv.FormatUint(nonce, 10)
		}

		unitNonce, err := m.minter.MintUnit(ctx, event.Token, name, ticketType.Royalties, "", []string{ticketType.Image})
		if err != nil {
			return nil, err
		}

		nonce++
		minted = append(minted, domain.TokenPayment{
			Token:  event.Token,
			Nonce:  unitNonce,
			Amount: domain.UnitAmount,
		})
	}

	if err := acct.AddEventBuys(ctx, to, event.ID, quantity); err != nil {
		return nil, err
	}
	if err := acct.AddTypeBuys(ctx, to, event.ID, ticketType.ID, quantity); err != nil {
		return nil, err
	}
	if stage != nil {
		key := domain.StageKey{EventID: event.ID, TicketTypeID: ticketType.ID, StageID: stage.ID}
		if err := acct.AddStageBuys(ctx, to, key, quantity); err != nil {
			return nil, err
		}
	}

	if err := acct.SetNextNonce(ctx, event.Token, nonce); err != nil {
		return nil, err
	}

	if err := m.minter.TransferBatch(ctx, to, minted); err != nil {
		return nil, err
	}

	event.MintCount += quantity
	ticketType.MintCount += quantity
	if stage != nil {
		stage.MintCount += quantity
		if err := tx.Inventory().PutTicketStage(ctx, *stage); err != nil {
			return nil, err
		}
	}
	if err := tx.Inventory().PutTicketType(ctx, *ticketType); err != nil {
		return nil, err
	}
	if err := tx.Inventory().PutEvent(ctx, *event); err != nil {
		return nil, err
	}

	return minted, nil
}

package domain

import (
	"fmt"
	"math/big"
	"time"
)

// DomainEvent is the envelope published for every ledger mutation
type DomainEvent struct {
	Schema      string                 `json:"schema"`
	Version     string                 `json:"version"`
	EventID     string                 `json:"event_id"`
	EventType   string                 `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	Data        map[string]interface{} `json:"data"`
	Timestamp   time.Time              `json:"timestamp"`
}

const eventSchema = "ticketing.domain.v1"

func newDomainEvent(eventType, aggregateID string, data map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		Schema:      eventSchema,
		Version:     "1.0",
		EventID:     fmt.Sprintf("%s_%s_%d", eventType, aggregateID, time.Now().UnixNano()),
		EventType:   eventType,
		AggregateID: aggregateID,
		Data:        data,
		Timestamp:   time.Now(),
	}
}

// NewEventUpserted reports a created or edited Event record
func NewEventUpserted(event *Event) *DomainEvent {
	return newDomainEvent("event_upserted", event.ID, map[string]interface{}{
		"id":             event.ID,
		"token":          string(event.Token),
		"max_capacity":   event.MaxCapacity,
		"max_per_user":   event.MaxPerUser,
		"mint_count":     event.MintCount,
		"fees":           event.Fees.String(),
		"has_kyc":        event.HasKYC,
		"bot_protection": event.BotProtection,
	})
}

// NewTicketTypeUpserted reports a created or edited TicketType
func NewTicketTypeUpserted(ticketType *TicketType, collection TokenID) *DomainEvent {
	return newDomainEvent("ticket_type_upserted", ticketType.EventID, map[string]interface{}{
		"event_id":     ticketType.EventID,
		"id":           ticketType.ID,
		"base_name":    ticketType.BaseName,
		"royalties":    ticketType.Royalties.String(),
		"max_per_user": ticketType.MaxPerUser,
		"mint_limit":   ticketType.MintLimit,
		"mint_count":   ticketType.MintCount,
		"collection":   string(collection),
	})
}

// NewTicketTypeRemoved reports a removed TicketType
func NewTicketTypeRemoved(eventID, typeID string, collection TokenID) *DomainEvent {
	return newDomainEvent("ticket_type_removed", eventID, map[string]interface{}{
		"event_id":   eventID,
		"id":         typeID,
		"collection": string(collection),
	})
}

// NewTicketStageUpserted reports a created or edited TicketStage
func NewTicketStageUpserted(stage *TicketStage, collection TokenID) *DomainEvent {
	return newDomainEvent("ticket_stage_upserted", stage.EventID, map[string]interface{}{
		"event_id":       stage.EventID,
		"ticket_type_id": stage.TicketTypeID,
		"id":             stage.ID,
		"has_whitelist":  stage.HasWhitelist,
		"start_time":     stage.StartTime,
		"end_time":       stage.EndTime,
		"active":         stage.Active,
		"mint_limit":     stage.MintLimit,
		"mint_count":     stage.MintCount,
		"collection":     string(collection),
	})
}

// NewTicketStageRemoved reports a removed TicketStage
func NewTicketStageRemoved(stage *TicketStage, collection TokenID) *DomainEvent {
	return newDomainEvent("ticket_stage_removed", stage.EventID, map[string]interface{}{
		"event_id":       stage.EventID,
		"ticket_type_id": stage.TicketTypeID,
		"id":             stage.ID,
		"collection":     string(collection),
	})
}

// NewWhitelistChanged reports a whitelist batch add or remove
func NewWhitelistChanged(key StageKey, wallets []Address, added bool) *DomainEvent {
	list := make([]string, 0, len(wallets))
	for _, w := range wallets {
		list = append(list, string(w))
	}
	return newDomainEvent("whitelist_changed", key.EventID, map[string]interface{}{
		"event_id":       key.EventID,
		"ticket_type_id": key.TicketTypeID,
		"stage_id":       key.StageID,
		"wallets":        list,
		"added":          added,
	})
}

// NewMintRecorded reports a completed mint. soldOut is informational: it is
// true when this mint filled the event to exactly its max capacity.
func NewMintRecorded(event *Event, ticketType *TicketType, stage *TicketStage, soldOut bool) *DomainEvent {
	data := map[string]interface{}{
		"event_id":        event.ID,
		"ticket_type_id":  ticketType.ID,
		"collection":      string(event.Token),
		"event_count":     event.MintCount,
		"type_count":      ticketType.MintCount,
		"global_sold_out": soldOut,
	}
	if stage != nil {
		data["stage_id"] = stage.ID
		data["stage_count"] = stage.MintCount
	}
	return newDomainEvent("mint_recorded", event.ID, data)
}

// NewPurchaseCompleted reports the buyer-facing outcome of a buy or giveaway
func NewPurchaseCompleted(minted []TokenPayment, paymentToken TokenID, buyer Address, unitPrice *big.Int, collection TokenID, externalID string) *DomainEvent {
	units := make([]map[string]interface{}, 0, len(minted))
	for _, p := range minted {
		units = append(units, map[string]interface{}{
			"token":  string(p.Token),
			"nonce":  p.Nonce,
			"amount": p.Amount.String(),
		})
	}
	return newDomainEvent("purchase_completed", string(collection), map[string]interface{}{
		"units":         units,
		"payment_token": string(paymentToken),
		"buyer":         string(buyer),
		"unit_price":    unitPrice.String(),
		"collection":    string(collection),
		"external_id":   externalID,
	})
}

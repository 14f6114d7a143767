package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/internal/service"
)

type swapStepDTO struct {
	Pool     string `json:"pool"`
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
	AmountIn string `json:"amount_in"`
}

type tokenAmountDTO struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type buyRequest struct {
	Caller    string           `json:"caller"`
	Quantity  uint32           `json:"quantity"`
	Payment   paymentDTO       `json:"payment"`
	Swaps     []swapStepDTO    `json:"swaps,omitempty"`
	Limits    []tokenAmountDTO `json:"limits,omitempty"`
	Signature string           `json:"signature,omitempty"`
	Payload   string           `json:"payload,omitempty"`
}

type purchaseResponse struct {
	Minted []domain.TokenPayment `json:"minted"`
}

// Buy handles one purchase attempt against a stage
func (h *Handlers) Buy(c echo.Context) error {
	var req buyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed request")
	}
	if req.Caller == "" {
		return badRequest(c, "caller", "caller is required")
	}

	payment, ok := req.Payment.toDomain()
	if !ok {
		return badRequest(c, "payment.amount", "not a decimal integer")
	}
	signature, ok := parseSignature(req.Signature)
	if !ok {
		return badRequest(c, "signature", "not valid hex")
	}

	settlement := service.SettlementRequest{Payment: payment}
	for _, s := range req.Swaps {
		amountIn, ok := parseAmount(s.AmountIn)
		if !ok {
			return badRequest(c, "swaps.amount_in", "not a decimal integer")
		}
		settlement.Swaps = append(settlement.Swaps, domain.SwapStep{
			Pool:     domain.Address(s.Pool),
			TokenIn:  domain.TokenID(s.TokenIn),
			TokenOut: domain.TokenID(s.TokenOut),
			AmountIn: amountIn,
		})
	}
	for _, l := range req.Limits {
		amount, ok := parseAmount(l.Amount)
		if !ok {
			return badRequest(c, "limits.amount", "not a decimal integer")
		}
		settlement.Limits = append(settlement.Limits, domain.TokenAmount{
			Token:  domain.TokenID(l.Token),
			Amount: amount,
		})
	}

	key := stageKeyFrom(c)
	minted, err := h.engine.Buy(c.Request().Context(), service.BuyRequest{
		EventID:      key.EventID,
		TicketTypeID: key.TicketTypeID,
		StageID:      key.StageID,
		Quantity:     req.Quantity,
		Caller:       domain.Address(req.Caller),
		Settlement:   settlement,
		Signature:    signature,
		Payload:      []byte(req.Payload),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, purchaseResponse{Minted: minted})
}

type giveawayRequest struct {
	EventID      string                      `json:"event_id"`
	TicketTypeID string                      `json:"ticket_type_id"`
	Recipients   []service.GiveawayRecipient `json:"recipients"`
}

// Giveaway mints free tickets for a list of recipients
func (h *Handlers) Giveaway(c echo.Context) error {
	var req giveawayRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed request")
	}
	if len(req.Recipients) == 0 {
		return badRequest(c, "recipients", "at least one recipient is required")
	}

	minted, err := h.engine.Giveaway(c.Request().Context(), req.EventID, req.TicketTypeID, req.Recipients)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, purchaseResponse{Minted: minted})
}

type giveawayAdminRequest struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	StageID      string `json:"stage_id"`
	To           string `json:"to"`
	Quantity     uint32 `json:"quantity"`
	ExternalID   string `json:"external_id,omitempty"`
	Signature    string `json:"signature,omitempty"`
	Payload      string `json:"payload,omitempty"`
}

// GiveawayAdmin mints through the full stage validation without payment
func (h *Handlers) GiveawayAdmin(c echo.Context) error {
	var req giveawayAdminRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed request")
	}
	signature, ok := parseSignature(req.Signature)
	if !ok {
		return badRequest(c, "signature", "not valid hex")
	}

	minted, err := h.engine.GiveawayAdmin(c.Request().Context(), service.GiveawayAdminRequest{
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		StageID:      req.StageID,
		To:           domain.Address(req.To),
		Quantity:     req.Quantity,
		ExternalID:   req.ExternalID,
		Signature:    signature,
		Payload:      []byte(req.Payload),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, purchaseResponse{Minted: minted})
}

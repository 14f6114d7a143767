package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/internal/service"
)

type createEventRequest struct {
	EventID     string           `json:"event_id"`
	TokenName   string           `json:"token_name"`
	TokenTicker string           `json:"token_ticker"`
	Caller      string           `json:"caller"`
	Args        domain.EventArgs `json:"args"`
	Payment     paymentDTO       `json:"payment"`
}

// CreateEvent starts the two-phase event creation. The response is 202:
// the Event record appears once the collection issuance is confirmed.
func (h *Handlers) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed request")
	}
	if req.EventID == "" {
		return badRequest(c, "event_id", "event id is required")
	}

	payment, ok := req.Payment.toDomain()
	if !ok {
		return badRequest(c, "payment.amount", "not a decimal integer")
	}

	ctx := service.WithCaller(c.Request().Context(), domain.Address(req.Caller))
	if err := h.engine.CreateEvent(ctx, req.EventID, req.TokenName, req.TokenTicker, req.Args, payment); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateEvents(c.Request().Context())
	return c.JSON(http.StatusAccepted, map[string]string{"event_id": req.EventID, "state": "pending"})
}

// EditEvent replaces an event's editable fields
func (h *Handlers) EditEvent(c echo.Context) error {
	var args domain.EventArgs
	if err := c.Bind(&args); err != nil {
		return badRequest(c, "body", "malformed request")
	}

	eventID := c.PathParam("eventID")
	if err := h.engine.EditEvent(c.Request().Context(), eventID, args); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateEvents(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// CreateTicketType adds a tier to an event
func (h *Handlers) CreateTicketType(c echo.Context) error {
	var args ticketTypeArgsDTO
	if err := c.Bind(&args); err != nil {
		return badRequest(c, "body", "malformed request")
	}

	domainArgs, ok := args.toDomain()
	if !ok {
		return badRequest(c, "royalties", "not a decimal integer")
	}

	eventID := c.PathParam("eventID")
	if err := h.engine.CreateTicketType(c.Request().Context(), eventID, domainArgs); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateTypes(c.Request().Context(), eventID)
	return c.NoContent(http.StatusCreated)
}

// EditTicketType replaces a tier's editable fields
func (h *Handlers) EditTicketType(c echo.Context) error {
	var args ticketTypeArgsDTO
	if err := c.Bind(&args); err != nil {
		return badRequest(c, "body", "malformed request")
	}

	domainArgs, ok := args.toDomain()
	if !ok {
		return badRequest(c, "royalties", "not a decimal integer")
	}
	domainArgs.ID = c.PathParam("typeID")

	eventID := c.PathParam("eventID")
	if err := h.engine.EditTicketType(c.Request().Context(), eventID, domainArgs); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateTypes(c.Request().Context(), eventID)
	return c.NoContent(http.StatusNoContent)
}

// RemoveTicketType deletes a tier and its stages
func (h *Handlers) RemoveTicketType(c echo.Context) error {
	eventID := c.PathParam("eventID")
	typeID := c.PathParam("typeID")

	if err := h.engine.RemoveTicketType(c.Request().Context(), eventID, typeID); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateTypes(c.Request().Context(), eventID)
	h.views.InvalidateStages(c.Request().Context(), eventID, typeID)
	return c.NoContent(http.StatusNoContent)
}

// CreateTicketStage adds a sale window to a tier
func (h *Handlers) CreateTicketStage(c echo.Context) error {
	var args ticketStageArgsDTO
	if err := c.Bind(&args); err != nil {
		return badRequest(c, "body", "malformed request")
	}

	domainArgs, ok := args.toDomain()
	if !ok {
		return badRequest(c, "prices", "amount is not a decimal integer")
	}

	eventID := c.PathParam("eventID")
	typeID := c.PathParam("typeID")
	if err := h.engine.CreateTicketStage(c.Request().Context(), eventID, typeID, domainArgs); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateStages(c.Request().Context(), eventID, typeID)
	return c.NoContent(http.StatusCreated)
}

// EditTicketStage replaces a stage's configuration
func (h *Handlers) EditTicketStage(c echo.Context) error {
	var args ticketStageArgsDTO
	if err := c.Bind(&args); err != nil {
		return badRequest(c, "body", "malformed request")
	}

	domainArgs, ok := args.toDomain()
	if !ok {
		return badRequest(c, "prices", "amount is not a decimal integer")
	}
	domainArgs.ID = c.PathParam("stageID")

	eventID := c.PathParam("eventID")
	typeID := c.PathParam("typeID")
	if err := h.engine.EditTicketStage(c.Request().Context(), eventID, typeID, domainArgs); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateStages(c.Request().Context(), eventID, typeID)
	return c.NoContent(http.StatusNoContent)
}

// RemoveTicketStage deletes one stage
func (h *Handlers) RemoveTicketStage(c echo.Context) error {
	key := stageKeyFrom(c)
	if err := h.engine.RemoveTicketStage(c.Request().Context(), key.EventID, key.TicketTypeID, key.StageID); err != nil {
		return h.fail(c, err)
	}

	h.views.InvalidateStages(c.Request().Context(), key.EventID, key.TicketTypeID)
	return c.NoContent(http.StatusNoContent)
}

type whitelistRequest struct {
	Wallets []string `json:"wallets"`
}

// AddToWhitelist adds wallets to a stage's allow-list
func (h *Handlers) AddToWhitelist(c echo.Context) error {
	return h.changeWhitelist(c, true)
}

// RemoveFromWhitelist removes wallets from a stage's allow-list
func (h *Handlers) RemoveFromWhitelist(c echo.Context) error {
	return h.changeWhitelist(c, false)
}

func (h *Handlers) changeWhitelist(c echo.Context, add bool) error {
	var req whitelistRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed request")
	}
	if len(req.Wallets) == 0 {
		return badRequest(c, "wallets", "at least one wallet is required")
	}

	wallets := make([]domain.Address, len(req.Wallets))
	for i, w := range req.Wallets {
		wallets[i] = domain.Address(w)
	}

	key := stageKeyFrom(c)
	var err error
	if add {
		err = h.engine.AddToWhitelist(c.Request().Context(), key, wallets)
	} else {
		err = h.engine.RemoveFromWhitelist(c.Request().Context(), key, wallets)
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type setFeesRequest struct {
	Bps string `json:"bps"`
}

// SetFees configures the platform cut in basis points
func (h *Handlers) SetFees(c echo.Context) error {
	var req setFeesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed request")
	}

	bps, ok := parseAmount(req.Bps)
	if !ok {
		return badRequest(c, "bps", "not a decimal integer")
	}

	if err := h.engine.SetFees(c.Request().Context(), bps); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ticketTypeArgsDTO carries the tier fields with string-encoded royalties
type ticketTypeArgsDTO struct {
	ID         string `json:"id"`
	BaseName   string `json:"base_name"`
	Image      string `json:"image"`
	Royalties  string `json:"royalties"`
	MaxPerUser uint32 `json:"max_per_user"`
	MintLimit  uint32 `json:"mint_limit"`
}

func (a ticketTypeArgsDTO) toDomain() (domain.TicketTypeArgs, bool) {
	royalties, ok := parseAmount(a.Royalties)
	if !ok {
		return domain.TicketTypeArgs{}, false
	}
	return domain.TicketTypeArgs{
		ID:         a.ID,
		BaseName:   a.BaseName,
		Image:      a.Image,
		Royalties:  royalties,
		MaxPerUser: a.MaxPerUser,
		MintLimit:  a.MintLimit,
	}, true
}

// ticketStageArgsDTO carries the stage fields with string-encoded prices
type ticketStageArgsDTO struct {
	ID           string       `json:"id"`
	Prices       []paymentDTO `json:"prices"`
	HasWhitelist bool         `json:"has_whitelist"`
	MaxPerUser   uint32       `json:"max_per_user"`
	MintLimit    uint32       `json:"mint_limit"`
	StartTime    int64        `json:"start_time"`
	EndTime      int64        `json:"end_time"`
	Active       bool         `json:"active"`
}

func (a ticketStageArgsDTO) toDomain() (domain.TicketStageArgs, bool) {
	prices := make([]domain.TokenPayment, 0, len(a.Prices))
	for _, p := range a.Prices {
		payment, ok := p.toDomain()
		if !ok {
			return domain.TicketStageArgs{}, false
		}
		prices = append(prices, payment)
	}
	return domain.TicketStageArgs{
		ID:           a.ID,
		Prices:       prices,
		HasWhitelist: a.HasWhitelist,
		MaxPerUser:   a.MaxPerUser,
		MintLimit:    a.MintLimit,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Active:       a.Active,
	}, true
}

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// ListEvents returns every event
func (h *Handlers) ListEvents(c echo.Context) error {
	events, err := h.views.ListEvents(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

// GetEvent returns one event
func (h *Handlers) GetEvent(c echo.Context) error {
	event, err := h.views.GetEvent(c.Request().Context(), c.PathParam("eventID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// ListTicketTypes returns the tiers of an event
func (h *Handlers) ListTicketTypes(c echo.Context) error {
	types, err := h.views.ListTicketTypes(c.Request().Context(), c.PathParam("eventID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ticket_types": types})
}

// ListTicketStages returns the stages of one tier
func (h *Handlers) ListTicketStages(c echo.Context) error {
	stages, err := h.views.ListTicketStages(c.Request().Context(), c.PathParam("eventID"), c.PathParam("typeID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"stages": stages})
}

// ListAllStages returns every stage of an event across all tiers
func (h *Handlers) ListAllStages(c echo.Context) error {
	stages, err := h.views.ListAllStages(c.Request().Context(), c.PathParam("eventID"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"stages": stages})
}

// WhitelistSize returns the allow-list size of a stage
func (h *Handlers) WhitelistSize(c echo.Context) error {
	size, err := h.views.WhitelistSize(c.Request().Context(), stageKeyFrom(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"size": size})
}

// IsWhitelisted reports whether a wallet is on a stage's allow-list
func (h *Handlers) IsWhitelisted(c echo.Context) error {
	listed, err := h.views.IsWhitelisted(c.Request().Context(), stageKeyFrom(c), domain.Address(c.PathParam("wallet")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"whitelisted": listed})
}

// BuysFor returns a wallet's purchase counters for a stage and its scopes
func (h *Handlers) BuysFor(c echo.Context) error {
	buys, err := h.views.BuysFor(c.Request().Context(), stageKeyFrom(c), domain.Address(c.PathParam("wallet")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, buys)
}

// IncomeTokens lists the currencies with accrued organizer income
func (h *Handlers) IncomeTokens(c echo.Context) error {
	tokens, err := h.views.IncomeTokens(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tokens": tokens})
}

// IncomePayment returns the accrued income for one currency
func (h *Handlers) IncomePayment(c echo.Context) error {
	payment, err := h.views.IncomePayment(c.Request().Context(), domain.TokenID(c.PathParam("token")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

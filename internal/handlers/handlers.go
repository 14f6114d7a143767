package handlers

import (
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/ticketforge/ticketing-api/internal/domain"
	"github.com/ticketforge/ticketing-api/internal/service"
	"github.com/ticketforge/ticketing-api/shared/errors"
	"github.com/ticketforge/ticketing-api/shared/logging"
	"github.com/ticketforge/ticketing-api/shared/monitoring"
)

// Handlers wires the sale engine and views onto the HTTP surface
type Handlers struct {
	engine *service.Ticketing
	views  *service.Views
	logger *logging.Logger
}

func New(engine *service.Ticketing, views *service.Views, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handlers{engine: engine, views: views, logger: logger}
}

// Register mounts every route under /v1
func (h *Handlers) Register(e *echo.Echo) {
	v1 := e.Group("/v1")

	v1.GET("/events", h.ListEvents)
	v1.POST("/events", h.CreateEvent)
	v1.GET("/events/:eventID", h.GetEvent)
	v1.PUT("/events/:eventID", h.EditEvent)

	v1.GET("/events/:eventID/types", h.ListTicketTypes)
	v1.POST("/events/:eventID/types", h.CreateTicketType)
	v1.PUT("/events/:eventID/types/:typeID", h.EditTicketType)
	v1.DELETE("/events/:eventID/types/:typeID", h.RemoveTicketType)

	v1.GET("/events/:eventID/stages", h.ListAllStages)
	v1.GET("/events/:eventID/types/:typeID/stages", h.ListTicketStages)
	v1.POST("/events/:eventID/types/:typeID/stages", h.CreateTicketStage)
	v1.PUT("/events/:eventID/types/:typeID/stages/:stageID", h.EditTicketStage)
	v1.DELETE("/events/:eventID/types/:typeID/stages/:stageID", h.RemoveTicketStage)

	v1.POST("/events/:eventID/types/:typeID/stages/:stageID/purchases", h.Buy)

	v1.GET("/events/:eventID/types/:typeID/stages/:stageID/whitelist/size", h.WhitelistSize)
	v1.GET("/events/:eventID/types/:typeID/stages/:stageID/whitelist/:wallet", h.IsWhitelisted)
	v1.POST("/events/:eventID/types/:typeID/stages/:stageID/whitelist", h.AddToWhitelist)
	v1.DELETE("/events/:eventID/types/:typeID/stages/:stageID/whitelist", h.RemoveFromWhitelist)

	v1.GET("/events/:eventID/types/:typeID/stages/:stageID/buys/:wallet", h.BuysFor)

	v1.POST("/giveaways", h.Giveaway)
	v1.POST("/giveaways/admin", h.GiveawayAdmin)

	v1.PUT("/fees", h.SetFees)
	v1.GET("/income", h.IncomeTokens)
	v1.GET("/income/:token", h.IncomePayment)
}

// fail maps engine errors to HTTP responses, keeping the structured body
func (h *Handlers) fail(c echo.Context, err error) error {
	status := errors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error("request failed")
		monitoring.CaptureError(err, "handlers")
	}
	if appErr, ok := err.(*errors.Error); ok {
		return c.JSON(status, appErr)
	}
	return c.JSON(status, errors.Internal("internal error"))
}

func badRequest(c echo.Context, field, reason string) error {
	appErr := errors.InvalidInput(field, reason)
	return c.JSON(appErr.StatusCode, appErr)
}

// paymentDTO is the wire form of a token payment; amounts travel as decimal
// strings because they exceed JSON number precision.
type paymentDTO struct {
	Token  string `json:"token"`
	Nonce  uint64 `json:"nonce"`
	Amount string `json:"amount"`
}

func (p paymentDTO) toDomain() (domain.TokenPayment, bool) {
	amount, ok := parseAmount(p.Amount)
	if !ok {
		return domain.TokenPayment{}, false
	}
	return domain.TokenPayment{Token: domain.TokenID(p.Token), Nonce: p.Nonce, Amount: amount}, true
}

func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(s, 10)
}

func parseSignature(s string) ([]byte, bool) {
	if s == "" {
		return nil, true
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, false
	}
	return raw, true
}

func stageKeyFrom(c echo.Context) domain.StageKey {
	return domain.StageKey{
		EventID:      c.PathParam("eventID"),
		TicketTypeID: c.PathParam("typeID"),
		StageID:      c.PathParam("stageID"),
	}
}

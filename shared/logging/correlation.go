package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

const RequestIDHeader = "X-Request-ID"

// WithRequestID stores a request identifier under the key WithContext reads.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, "request_id", requestID) //nolint:staticcheck
}

// GetRequestID returns the request identifier from the context, if any.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value("request_id").(string); ok { //nolint:staticcheck
		return v
	}
	return ""
}

// RequestID tags every request with an identifier, propagates it through the
// request context and echoes it back in the response headers. Loggers pick it
// up via WithContext.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.SetRequest(c.Request().WithContext(WithRequestID(c.Request().Context(), id)))
			c.Response().Header().Set(RequestIDHeader, id)
			return next(c)
		}
	}
}

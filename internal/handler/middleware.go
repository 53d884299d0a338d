package handler

import (
	"context"
	"net/http"

	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/store"
	"github.com/labstack/echo/v4"
)

type APIKeyServicer interface {
	GetAPIKeyByValue(ctx context.Context, value string) (*store.APIKey, error)
}

// APIKeyAuth rejects requests that do not carry a stored key in the
// X-SecPipe-API-Key header.
func APIKeyAuth(apiKeyService APIKeyServicer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value := c.Request().Header.Get(internal.APIKeyHeader)
			if value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
			}
			if _, err := apiKeyService.GetAPIKeyByValue(c.Request().Context(), value); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			return next(c)
		}
	}
}

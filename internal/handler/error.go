package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

func newError(c echo.Context, err error, code int, message string) error {
	if err != nil {
		slog.Error(message, "path", c.Path(), "err", err)
		return echo.NewHTTPError(code, message).WithInternal(err)
	}
	return echo.NewHTTPError(code, message)
}

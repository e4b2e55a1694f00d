package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// ErrorResponse is the standard API error body (message only).
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps a service error onto an echo HTTP error using the platform
// error taxonomy. Upstream platform failures surface as 502.
func httpError(err error) error {
	switch platform.KindOf(err) {
	case platform.ErrValidation:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case platform.ErrAuth, platform.ErrPlatform:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case platform.ErrTransient:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

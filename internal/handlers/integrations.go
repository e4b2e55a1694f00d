package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/omnicrm/omnicrm/internal/ingest"
	"github.com/omnicrm/omnicrm/internal/platform"
	"github.com/omnicrm/omnicrm/internal/settings"
)

// IntegrationsHandler exposes integration settings and sync operations.
type IntegrationsHandler struct {
	settings     *settings.Service
	orchestrator *ingest.Orchestrator
	registry     *platform.Registry
	logger       *slog.Logger
}

func NewIntegrationsHandler(log *slog.Logger, settingsService *settings.Service, orchestrator *ingest.Orchestrator, registry *platform.Registry) *IntegrationsHandler {
	return &IntegrationsHandler{
		settings:     settingsService,
		orchestrator: orchestrator,
		registry:     registry,
		logger:       log.With(slog.String("handler", "integrations")),
	}
}

func (h *IntegrationsHandler) Register(e *echo.Echo) {
	group := e.Group("/integrations")
	group.GET("/settings", h.GetSettings)
	group.PATCH("/:platform", h.Update)
	group.POST("/sync", h.Sync)
	group.POST("/:platform/test", h.Test)
}

func (h *IntegrationsHandler) GetSettings(c echo.Context) error {
	overview, err := h.settings.Overview(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, overview)
}

func (h *IntegrationsHandler) Update(c echo.Context) error {
	platformType, err := h.platformParam(c)
	if err != nil {
		return err
	}
	var req settings.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	overview, err := h.settings.Update(c.Request().Context(), platformType, req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, overview)
}

// Sync runs a full synchronous sync cycle and returns its per-platform result.
func (h *IntegrationsHandler) Sync(c echo.Context) error {
	result := h.orchestrator.SyncAll(c.Request().Context())
	return c.JSON(http.StatusOK, result)
}

// Test checks the stored credentials against the live platform API. The
// outcome is a 200 either way; success tells configured from broken.
func (h *IntegrationsHandler) Test(c echo.Context) error {
	platformType, err := h.platformParam(c)
	if err != nil {
		return err
	}
	adapter, ok := h.registry.Get(platformType)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no adapter for platform")
	}
	creds, configured, err := h.settings.CredentialsFor(c.Request().Context(), platformType)
	if err != nil {
		return httpError(err)
	}
	if !configured {
		return c.JSON(http.StatusOK, map[string]any{
			"success": false,
			"error":   "platform is not configured",
		})
	}
	summary, err := adapter.Test(c.Request().Context(), creds)
	if err != nil {
		h.logger.Warn("connection test failed",
			slog.String("platform", platformType.String()),
			slog.String("error", err.Error()))
		return c.JSON(http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": summary,
	})
}

func (h *IntegrationsHandler) platformParam(c echo.Context) (platform.Type, error) {
	raw := strings.TrimSpace(c.Param("platform"))
	platformType, err := platform.ParseType(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !slices.Contains(platform.SyncTypes(), platformType) {
		return "", echo.NewHTTPError(http.StatusBadRequest, "platform has no integration: "+raw)
	}
	return platformType, nil
}

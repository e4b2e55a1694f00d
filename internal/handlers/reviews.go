package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/omnicrm/omnicrm/internal/platform"
	"github.com/omnicrm/omnicrm/internal/records"
	"github.com/omnicrm/omnicrm/internal/settings"
)

// ReviewsHandler publishes operator responses back to the review's platform.
type ReviewsHandler struct {
	records  *records.Store
	registry *platform.Registry
	settings *settings.Service
	logger   *slog.Logger
}

func NewReviewsHandler(log *slog.Logger, recordStore *records.Store, registry *platform.Registry, settingsService *settings.Service) *ReviewsHandler {
	return &ReviewsHandler{
		records:  recordStore,
		registry: registry,
		settings: settingsService,
		logger:   log.With(slog.String("handler", "reviews")),
	}
}

func (h *ReviewsHandler) Register(e *echo.Echo) {
	e.GET("/reviews/:id", h.Get)
	e.POST("/reviews/:id/respond", h.Respond)
}

func (h *ReviewsHandler) Get(c echo.Context) error {
	review, err := h.records.GetReviewByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, records.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, review)
}

// Respond sends the reply through the review's platform adapter first and
// stores it only after the platform accepted it.
func (h *ReviewsHandler) Respond(c echo.Context) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "response text is required")
	}

	ctx := c.Request().Context()
	review, err := h.records.GetReviewByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, records.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "review not found")
		}
		return httpError(err)
	}

	adapter, ok := h.registry.Get(review.Platform)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "platform does not support responses")
	}
	creds, configured, err := h.settings.CredentialsFor(ctx, review.Platform)
	if err != nil {
		return httpError(err)
	}
	if !configured {
		return echo.NewHTTPError(http.StatusBadRequest, "platform is not configured")
	}

	if err := adapter.Send(ctx, creds, review.ExternalID, req.Text); err != nil {
		h.logger.Warn("review response rejected",
			slog.String("review_id", review.ID),
			slog.String("platform", review.Platform.String()),
			slog.String("error", err.Error()))
		return httpError(err)
	}

	updated, err := h.records.SetReviewResponse(ctx, review.ID, req.Text, time.Now().UTC())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

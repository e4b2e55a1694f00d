package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/omnicrm/omnicrm/internal/auth"
	"github.com/omnicrm/omnicrm/internal/webhook"
)

// TelegramHandler exposes the webhook receiver and its admin lifecycle
// endpoints. The receiver itself is excluded from JWT auth at the server
// level; Telegram cannot send bearer tokens.
type TelegramHandler struct {
	webhook *webhook.Service
	logger  *slog.Logger
}

func NewTelegramHandler(log *slog.Logger, webhookService *webhook.Service) *TelegramHandler {
	return &TelegramHandler{
		webhook: webhookService,
		logger:  log.With(slog.String("handler", "telegram")),
	}
}

func (h *TelegramHandler) Register(e *echo.Echo) {
	e.POST("/telegram/webhook", h.Receive)
	e.GET("/telegram/webhook", h.Status)
	e.POST("/telegram/set-webhook", h.SetWebhook)
	e.POST("/telegram/delete-webhook", h.DeleteWebhook)
}

// Receive handles one pushed update. The response is always 200; a failed
// delivery is reported in the ack body only.
func (h *TelegramHandler) Receive(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusOK, webhook.Ack{OK: false, Error: "unreadable body"})
	}
	ack := h.webhook.HandleUpdate(c.Request().Context(), payload)
	return c.JSON(http.StatusOK, ack)
}

// Status reports the webhook lifecycle state. With a token query parameter
// it instead echoes the token back, the verification handshake some proxies
// perform before forwarding updates.
func (h *TelegramHandler) Status(c echo.Context) error {
	if token := c.QueryParam("token"); token != "" {
		return c.String(http.StatusOK, token)
	}
	state, url := h.webhook.Status()
	return c.JSON(http.StatusOK, map[string]string{
		"state": string(state),
		"url":   url,
	})
}

func (h *TelegramHandler) SetWebhook(c echo.Context) error {
	if err := auth.RequireAdmin(c); err != nil {
		return err
	}
	var req struct {
		WebhookURL string `json:"webhook_url"`
		URL        string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	webhookURL := req.WebhookURL
	if webhookURL == "" {
		webhookURL = req.URL
	}
	if err := h.webhook.SetWebhook(c.Request().Context(), webhookURL); err != nil {
		return httpError(err)
	}
	state, url := h.webhook.Status()
	return c.JSON(http.StatusOK, map[string]string{
		"state": string(state),
		"url":   url,
	})
}

func (h *TelegramHandler) DeleteWebhook(c echo.Context) error {
	if err := auth.RequireAdmin(c); err != nil {
		return err
	}
	if err := h.webhook.DeleteWebhook(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

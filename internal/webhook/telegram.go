// Package webhook receives pushed Telegram updates and manages the bot's
// webhook registration lifecycle.
package webhook

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// State tracks the webhook lifecycle of this process.
type State string

const (
	StateUnregistered State = "unregistered"
	StateRegistered   State = "registered"
	StateReceiving    State = "receiving"
)

const metadataWebhookURL = "telegram_webhook_url"

// Ack is the body returned to Telegram for every delivery. Deliveries are
// always acknowledged; a non-ok ack never becomes a transport error, since
// Telegram retries non-2xx responses indefinitely.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// TelegramAdapter is the adapter surface the webhook service needs.
type TelegramAdapter interface {
	Normalize(item platform.RawItem) (platform.Record, error)
	SetWebhook(ctx context.Context, creds platform.Credentials, webhookURL string) error
	DeleteWebhook(ctx context.Context, creds platform.Credentials) error
}

// CredentialSource supplies the stored Telegram credentials.
type CredentialSource interface {
	CredentialsFor(ctx context.Context, platformType platform.Type) (platform.Credentials, bool, error)
	SetMetadataValue(ctx context.Context, key string, value any) error
}

// Persister stores one normalized record.
type Persister interface {
	Persist(ctx context.Context, record platform.Record) error
}

// Service handles pushed updates and webhook registration.
type Service struct {
	adapter     TelegramAdapter
	credentials CredentialSource
	pipeline    Persister
	logger      *slog.Logger

	mu         sync.Mutex
	state      State
	webhookURL string
}

// NewService creates the Telegram webhook service.
func NewService(log *slog.Logger, adapter TelegramAdapter, credentials CredentialSource, pipeline Persister) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		adapter:     adapter,
		credentials: credentials,
		pipeline:    pipeline,
		logger:      log.With(slog.String("service", "telegram_webhook")),
		state:       StateUnregistered,
	}
}

// HandleUpdate processes one pushed update and always produces an ack.
func (s *Service) HandleUpdate(ctx context.Context, payload []byte) Ack {
	_, configured, err := s.credentials.CredentialsFor(ctx, platform.TypeTelegram)
	if err != nil {
		s.logger.Error("credential lookup failed", slog.String("error", err.Error()))
		return Ack{OK: false, Error: "settings unavailable"}
	}
	if !configured {
		return Ack{OK: false, Error: "telegram is not configured"}
	}

	record, err := s.adapter.Normalize(platform.RawItem{Payload: payload})
	if err != nil {
		if errors.Is(err, platform.ErrSkipped) {
			s.markReceiving()
			return Ack{OK: true}
		}
		s.logger.Warn("update rejected", slog.String("error", err.Error()))
		return Ack{OK: false, Error: "unsupported update"}
	}

	if err := s.pipeline.Persist(ctx, record); err != nil && !errors.Is(err, platform.ErrSkipped) {
		// Logged but acked; the poller retries the message on the next cycle.
		s.logger.Error("persist failed",
			slog.String("external_id", record.ExternalID),
			slog.String("error", err.Error()))
	}
	s.markReceiving()
	return Ack{OK: true}
}

// SetWebhook registers the public URL with Telegram and records it.
func (s *Service) SetWebhook(ctx context.Context, webhookURL string) error {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return platform.NewError(platform.ErrValidation, "webhook url is required")
	}
	creds, configured, err := s.credentials.CredentialsFor(ctx, platform.TypeTelegram)
	if err != nil {
		return err
	}
	if !configured {
		return platform.NewError(platform.ErrAuth, "telegram bot token is not configured")
	}
	if err := s.adapter.SetWebhook(ctx, creds, webhookURL); err != nil {
		return err
	}
	if err := s.credentials.SetMetadataValue(ctx, metadataWebhookURL, webhookURL); err != nil {
		s.logger.Warn("webhook url not persisted", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.state = StateRegistered
	s.webhookURL = webhookURL
	s.mu.Unlock()
	s.logger.Info("webhook set", slog.String("url", webhookURL))
	return nil
}

// DeleteWebhook removes the registration and falls back to polling.
func (s *Service) DeleteWebhook(ctx context.Context) error {
	creds, configured, err := s.credentials.CredentialsFor(ctx, platform.TypeTelegram)
	if err != nil {
		return err
	}
	if !configured {
		return platform.NewError(platform.ErrAuth, "telegram bot token is not configured")
	}
	if err := s.adapter.DeleteWebhook(ctx, creds); err != nil {
		return err
	}
	if err := s.credentials.SetMetadataValue(ctx, metadataWebhookURL, ""); err != nil {
		s.logger.Warn("webhook url not cleared", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.state = StateUnregistered
	s.webhookURL = ""
	s.mu.Unlock()
	s.logger.Info("webhook deleted")
	return nil
}

// Status reports the current lifecycle state and registered URL.
func (s *Service) Status() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.webhookURL
}

func (s *Service) markReceiving() {
	s.mu.Lock()
	s.state = StateReceiving
	s.mu.Unlock()
}

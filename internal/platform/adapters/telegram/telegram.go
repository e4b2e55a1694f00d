// Package telegram ingests and sends Telegram bot messages. The same
// normalization serves both polled updates and webhook deliveries.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// Credential keys stored in integration settings.
const (
	CredBotToken = "bot_token"
)

const (
	fetchLimit = 100
	// defaultRequestTimeout bounds every bot API call. The SDK's default
	// client has no timeout, which would let a hung connection stall a
	// sync run indefinitely.
	defaultRequestTimeout = 30 * time.Second
)

type Adapter struct {
	logger *slog.Logger
	client *http.Client
}

func New(log *slog.Logger, timeout time.Duration) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Adapter{
		logger: log.With(slog.String("adapter", "telegram")),
		client: &http.Client{Timeout: timeout},
	}
}

func (a *Adapter) Type() platform.Type {
	return platform.TypeTelegram
}

// Fetch pulls pending updates without confirming them; duplicate suppression
// downstream keeps repeated pulls harmless.
func (a *Adapter) Fetch(_ context.Context, creds platform.Credentials) ([]platform.RawItem, error) {
	bot, err := a.bot(creds)
	if err != nil {
		return nil, err
	}
	updates, err := bot.GetUpdates(tgbotapi.UpdateConfig{Limit: fetchLimit})
	if err != nil {
		return nil, platform.WrapError(platform.ErrTransient, err, "telegram getUpdates")
	}
	items := make([]platform.RawItem, 0, len(updates))
	for _, u := range updates {
		if u.Message == nil {
			continue
		}
		payload, err := json.Marshal(u)
		if err != nil {
			continue
		}
		items = append(items, platform.RawItem{
			ExternalID: strconv.Itoa(u.Message.MessageID),
			Payload:    payload,
		})
	}
	a.logger.Debug("updates fetched", slog.Int("count", len(items)))
	return items, nil
}

// Normalize converts one Telegram update into a message record. The chat id
// becomes the sender handle so replies can target the same chat.
func (a *Adapter) Normalize(item platform.RawItem) (platform.Record, error) {
	parsed, err := parseUpdate(item.Payload)
	if err != nil {
		return platform.Record{}, platform.WrapError(platform.ErrValidation, err, "telegram update payload")
	}
	msg := parsed.Message
	if msg == nil {
		return platform.Record{}, platform.ErrSkipped
	}
	content := msg.content()
	if content == "" {
		return platform.Record{}, platform.ErrSkipped
	}

	externalID := msg.MessageID.String()
	if externalID == "" {
		externalID = strings.TrimSpace(item.ExternalID)
	}
	chatID := ""
	if msg.Chat != nil {
		chatID = msg.Chat.ID.String()
	}
	if chatID == "" {
		return platform.Record{}, platform.NewError(platform.ErrValidation, "telegram update has no chat id")
	}

	createdAt := time.Time{}
	if msg.Date > 0 {
		createdAt = time.Unix(msg.Date, 0).UTC()
	}
	metadata := map[string]any{
		"chat_id": chatID,
	}
	if msg.Chat != nil && msg.Chat.Type != "" {
		metadata["chat_type"] = msg.Chat.Type
	}
	if msg.From != nil {
		if msg.From.Username != "" {
			metadata["username"] = msg.From.Username
		}
		if msg.From.ID != "" {
			metadata["user_id"] = msg.From.ID.String()
		}
	}

	return platform.Record{
		Kind:       platform.KindMessage,
		Platform:   platform.TypeTelegram,
		ExternalID: externalID,
		Direction:  platform.DirectionInbound,
		Content:    content,
		Sender: platform.Identity{
			Handle:      chatID,
			DisplayName: parsed.Message.From.displayName(),
		},
		CreatedAt: createdAt,
		Metadata:  metadata,
	}, nil
}

// Send delivers text to a chat id or @username target.
func (a *Adapter) Send(_ context.Context, creds platform.Credentials, target, text string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return platform.NewError(platform.ErrValidation, "telegram target is required")
	}
	if strings.TrimSpace(text) == "" {
		return platform.NewError(platform.ErrValidation, "message text is required")
	}
	bot, err := a.bot(creds)
	if err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(target, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		if !strings.HasPrefix(target, "@") {
			target = "@" + target
		}
		msg = tgbotapi.NewMessageToChannel(target, text)
	}
	if _, err := bot.Send(msg); err != nil {
		return platform.WrapError(platform.ErrPlatform, err, "telegram send to %s", target)
	}
	return nil
}

// Test verifies the bot token against getMe.
func (a *Adapter) Test(_ context.Context, creds platform.Credentials) (string, error) {
	bot, err := a.bot(creds)
	if err != nil {
		return "", err
	}
	me, err := bot.GetMe()
	if err != nil {
		return "", platform.WrapError(platform.ErrAuth, err, "telegram getMe")
	}
	return fmt.Sprintf("connected as @%s", me.UserName), nil
}

// SetWebhook points the bot at the given public URL.
func (a *Adapter) SetWebhook(_ context.Context, creds platform.Credentials, webhookURL string) error {
	bot, err := a.bot(creds)
	if err != nil {
		return err
	}
	hook, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return platform.WrapError(platform.ErrValidation, err, "webhook url")
	}
	if _, err := bot.Request(hook); err != nil {
		return platform.WrapError(platform.ErrPlatform, err, "telegram setWebhook")
	}
	a.logger.Info("webhook registered")
	return nil
}

// DeleteWebhook removes the registered webhook so polling works again.
func (a *Adapter) DeleteWebhook(_ context.Context, creds platform.Credentials) error {
	bot, err := a.bot(creds)
	if err != nil {
		return err
	}
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return platform.WrapError(platform.ErrPlatform, err, "telegram deleteWebhook")
	}
	a.logger.Info("webhook removed")
	return nil
}

func (a *Adapter) bot(creds platform.Credentials) (*tgbotapi.BotAPI, error) {
	token, err := creds.Require(CredBotToken)
	if err != nil {
		return nil, err
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, a.client)
	if err != nil {
		return nil, platform.WrapError(platform.ErrAuth, err, "telegram authorization")
	}
	return bot, nil
}

// Package facebook ingests Facebook page conversations through the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// Credential keys stored in integration settings.
const (
	CredAccessToken = "access_token"
	CredPageID      = "page_id"
)

const DefaultBaseURL = "https://graph.facebook.com/v19.0"

type Adapter struct {
	client  *platform.APIClient
	logger  *slog.Logger
	BaseURL string
}

func New(log *slog.Logger, client *platform.APIClient) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		client:  client,
		logger:  log.With(slog.String("adapter", "facebook")),
		BaseURL: DefaultBaseURL,
	}
}

func (a *Adapter) Type() platform.Type {
	return platform.TypeFacebook
}

type conversationsResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Messages struct {
			Data []pageMessage `json:"data"`
		} `json:"messages"`
	} `json:"data"`
}

type pageMessage struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	From        struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"from"`
}

type messageItem struct {
	Message        pageMessage `json:"message"`
	ConversationID string      `json:"conversation_id"`
	PageID         string      `json:"page_id"`
}

// Fetch pulls messages from the page inbox.
func (a *Adapter) Fetch(ctx context.Context, creds platform.Credentials) ([]platform.RawItem, error) {
	token, err := creds.Require(CredAccessToken)
	if err != nil {
		return nil, err
	}
	pageID, err := creds.Require(CredPageID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/conversations?fields=id,messages{id,message,from,created_time}&access_token=%s",
		a.BaseURL, url.PathEscape(pageID), url.QueryEscape(token))
	var resp conversationsResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	items := make([]platform.RawItem, 0)
	for _, conv := range resp.Data {
		for _, msg := range conv.Messages.Data {
			payload, err := json.Marshal(messageItem{
				Message:        msg,
				ConversationID: conv.ID,
				PageID:         pageID,
			})
			if err != nil {
				continue
			}
			items = append(items, platform.RawItem{ExternalID: msg.ID, Payload: payload})
		}
	}
	a.logger.Debug("messages fetched", slog.Int("count", len(items)))
	return items, nil
}

// Normalize converts one inbox message into a message record. Messages sent
// by the page itself become outbound records.
func (a *Adapter) Normalize(item platform.RawItem) (platform.Record, error) {
	var parsed messageItem
	if err := json.Unmarshal(item.Payload, &parsed); err != nil {
		return platform.Record{}, platform.WrapError(platform.ErrValidation, err, "facebook message payload")
	}
	if strings.TrimSpace(parsed.Message.Message) == "" {
		return platform.Record{}, platform.ErrSkipped
	}
	externalID := strings.TrimSpace(parsed.Message.ID)
	if externalID == "" {
		externalID = strings.TrimSpace(item.ExternalID)
	}

	direction := platform.DirectionInbound
	sender := platform.Identity{
		Handle:      parsed.Message.From.ID,
		Email:       parsed.Message.From.Email,
		DisplayName: parsed.Message.From.Name,
	}
	if parsed.PageID != "" && parsed.Message.From.ID == parsed.PageID {
		direction = platform.DirectionOutbound
		sender = platform.Identity{}
	}

	createdAt := parseGraphTime(parsed.Message.CreatedTime)
	metadata := map[string]any{}
	if parsed.ConversationID != "" {
		metadata["conversation_id"] = parsed.ConversationID
	}
	return platform.Record{
		Kind:       platform.KindMessage,
		Platform:   platform.TypeFacebook,
		ExternalID: externalID,
		Direction:  direction,
		Content:    parsed.Message.Message,
		Sender:     sender,
		CreatedAt:  createdAt,
		Metadata:   metadata,
	}, nil
}

// parseGraphTime handles both RFC 3339 and the Graph API's "+0000" offset form.
func parseGraphTime(raw string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// Send posts a reply into a conversation. Target is the conversation id.
func (a *Adapter) Send(ctx context.Context, creds platform.Credentials, target, text string) error {
	token, err := creds.Require(CredAccessToken)
	if err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return platform.NewError(platform.ErrValidation, "facebook conversation id is required")
	}
	endpoint := fmt.Sprintf("%s/%s/messages?access_token=%s",
		a.BaseURL, url.PathEscape(target), url.QueryEscape(token))
	return a.client.PostJSON(ctx, endpoint, map[string]string{"message": text}, nil)
}

// Test verifies the token by loading the page profile.
func (a *Adapter) Test(ctx context.Context, creds platform.Credentials) (string, error) {
	token, err := creds.Require(CredAccessToken)
	if err != nil {
		return "", err
	}
	pageID, err := creds.Require(CredPageID)
	if err != nil {
		return "", err
	}
	var page struct {
		Name string `json:"name"`
	}
	endpoint := fmt.Sprintf("%s/%s?fields=name&access_token=%s",
		a.BaseURL, url.PathEscape(pageID), url.QueryEscape(token))
	if err := a.client.GetJSON(ctx, endpoint, &page); err != nil {
		return "", err
	}
	return fmt.Sprintf("connected to page %s", page.Name), nil
}

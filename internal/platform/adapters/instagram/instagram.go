// Package instagram ingests Instagram media comments through the Graph API.
package instagram

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
	CredUserID      = "ig_user_id"
)

const DefaultBaseURL = "https://graph.facebook.com/v19.0"

const mediaLimit = 10

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
		logger:  log.With(slog.String("adapter", "instagram")),
		BaseURL: DefaultBaseURL,
	}
}

func (a *Adapter) Type() platform.Type {
	return platform.TypeInstagram
}

type mediaResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Permalink string `json:"permalink"`
		Comments  struct {
			Data []comment `json:"data"`
		} `json:"comments"`
	} `json:"data"`
}

type comment struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type commentItem struct {
	Comment   comment `json:"comment"`
	MediaID   string  `json:"media_id"`
	Permalink string  `json:"permalink"`
}

// Fetch pulls comments from the account's recent media.
func (a *Adapter) Fetch(ctx context.Context, creds platform.Credentials) ([]platform.RawItem, error) {
	token, err := creds.Require(CredAccessToken)
	if err != nil {
		return nil, err
	}
	userID, err := creds.Require(CredUserID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/media?fields=id,permalink,comments{id,text,username,timestamp}&limit=%d&access_token=%s",
		a.BaseURL, url.PathEscape(userID), mediaLimit, url.QueryEscape(token))
	var resp mediaResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	items := make([]platform.RawItem, 0)
	for _, media := range resp.Data {
		for _, c := range media.Comments.Data {
			payload, err := json.Marshal(commentItem{
				Comment:   c,
				MediaID:   media.ID,
				Permalink: media.Permalink,
			})
			if err != nil {
				continue
			}
			items = append(items, platform.RawItem{ExternalID: c.ID, Payload: payload})
		}
	}
	a.logger.Debug("comments fetched", slog.Int("count", len(items)))
	return items, nil
}

// Normalize converts one comment into a message record.
func (a *Adapter) Normalize(item platform.RawItem) (platform.Record, error) {
	var parsed commentItem
	if err := json.Unmarshal(item.Payload, &parsed); err != nil {
		return platform.Record{}, platform.WrapError(platform.ErrValidation, err, "instagram comment payload")
	}
	if strings.TrimSpace(parsed.Comment.Text) == "" {
		return platform.Record{}, platform.ErrSkipped
	}
	externalID := strings.TrimSpace(parsed.Comment.ID)
	if externalID == "" {
		externalID = strings.TrimSpace(item.ExternalID)
	}
	createdAt := parseGraphTime(parsed.Comment.Timestamp)
	metadata := map[string]any{}
	if parsed.MediaID != "" {
		metadata["media_id"] = parsed.MediaID
	}
	if parsed.Permalink != "" {
		metadata["permalink"] = parsed.Permalink
	}
	return platform.Record{
		Kind:       platform.KindMessage,
		Platform:   platform.TypeInstagram,
		ExternalID: externalID,
		Direction:  platform.DirectionInbound,
		Content:    parsed.Comment.Text,
		Sender: platform.Identity{
			Handle:      parsed.Comment.Username,
			DisplayName: parsed.Comment.Username,
		},
		CreatedAt: createdAt,
		Metadata:  metadata,
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

// Send replies to a comment. Target is the comment id.
func (a *Adapter) Send(ctx context.Context, creds platform.Credentials, target, text string) error {
	token, err := creds.Require(CredAccessToken)
	if err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return platform.NewError(platform.ErrValidation, "instagram comment id is required")
	}
	endpoint := fmt.Sprintf("%s/%s/replies?message=%s&access_token=%s",
		a.BaseURL, url.PathEscape(target), url.QueryEscape(text), url.QueryEscape(token))
	return a.client.PostJSON(ctx, endpoint, nil, nil)
}

// Test verifies the token by loading the account profile.
func (a *Adapter) Test(ctx context.Context, creds platform.Credentials) (string, error) {
	token, err := creds.Require(CredAccessToken)
	if err != nil {
		return "", err
	}
	userID, err := creds.Require(CredUserID)
	if err != nil {
		return "", err
	}
	var profile struct {
		Username string `json:"username"`
	}
	endpoint := fmt.Sprintf("%s/%s?fields=username&access_token=%s",
		a.BaseURL, url.PathEscape(userID), url.QueryEscape(token))
	if err := a.client.GetJSON(ctx, endpoint, &profile); err != nil {
		return "", err
	}
	return fmt.Sprintf("connected as @%s", profile.Username), nil
}

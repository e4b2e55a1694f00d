// Package yandexmaps ingests organization reviews from the Yandex business
// reviews API. Yandex scores on a 10-point scale; records are normalized to
// the canonical 1..5 range.
package yandexmaps

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
	CredAPIKey = "api_key"
	CredOrgID  = "org_id"
)

const DefaultBaseURL = "https://api.business.yandex.ru"

const pageSize = 50

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
		logger:  log.With(slog.String("adapter", "yandex_maps")),
		BaseURL: DefaultBaseURL,
	}
}

func (a *Adapter) Type() platform.Type {
	return platform.TypeYandexMaps
}

type reviewsResponse struct {
	Reviews []review `json:"reviews"`
}

type review struct {
	ID          string `json:"id"`
	Rating      any    `json:"rating"`
	Text        string `json:"text"`
	UpdatedTime string `json:"updatedTime"`
	Author      struct {
		Name string `json:"name"`
	} `json:"author"`
}

type reviewItem struct {
	Review review `json:"review"`
	OrgID  string `json:"org_id"`
}

// Fetch pulls the organization's reviews.
func (a *Adapter) Fetch(ctx context.Context, creds platform.Credentials) ([]platform.RawItem, error) {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return nil, err
	}
	orgID, err := creds.Require(CredOrgID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/businesses/%s/reviews?limit=%d&apikey=%s",
		a.BaseURL, url.PathEscape(orgID), pageSize, url.QueryEscape(apiKey))
	var resp reviewsResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	items := make([]platform.RawItem, 0, len(resp.Reviews))
	for _, r := range resp.Reviews {
		payload, err := json.Marshal(reviewItem{Review: r, OrgID: orgID})
		if err != nil {
			continue
		}
		items = append(items, platform.RawItem{ExternalID: r.ID, Payload: payload})
	}
	a.logger.Debug("reviews fetched", slog.Int("count", len(items)))
	return items, nil
}

// Normalize converts one review into a review record, mapping the 10-point
// score onto 1..5.
func (a *Adapter) Normalize(item platform.RawItem) (platform.Record, error) {
	var parsed reviewItem
	if err := json.Unmarshal(item.Payload, &parsed); err != nil {
		return platform.Record{}, platform.WrapError(platform.ErrValidation, err, "yandex review payload")
	}
	externalID := strings.TrimSpace(parsed.Review.ID)
	if externalID == "" {
		externalID = strings.TrimSpace(item.ExternalID)
	}
	if externalID == "" {
		return platform.Record{}, platform.NewError(platform.ErrValidation, "yandex review has no id")
	}
	createdAt := time.Time{}
	if ts, err := time.Parse(time.RFC3339, parsed.Review.UpdatedTime); err == nil {
		createdAt = ts.UTC()
	}
	metadata := map[string]any{}
	platformURL := ""
	if parsed.OrgID != "" {
		metadata["org_id"] = parsed.OrgID
		platformURL = fmt.Sprintf("https://yandex.ru/maps/org/%s/reviews", url.PathEscape(parsed.OrgID))
	}
	return platform.Record{
		Kind:        platform.KindReview,
		Platform:    platform.TypeYandexMaps,
		ExternalID:  externalID,
		Rating:      platform.NormalizeRating(parsed.Review.Rating, 10),
		Content:     parsed.Review.Text,
		AuthorName:  parsed.Review.Author.Name,
		PlatformURL: platformURL,
		CreatedAt:   createdAt,
		Metadata:    metadata,
	}, nil
}

// Send publishes an owner reply to a review. Target is the review id.
func (a *Adapter) Send(ctx context.Context, creds platform.Credentials, target, text string) error {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return err
	}
	orgID, err := creds.Require(CredOrgID)
	if err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return platform.NewError(platform.ErrValidation, "yandex review id is required")
	}
	endpoint := fmt.Sprintf("%s/v1/businesses/%s/reviews/%s/reply?apikey=%s",
		a.BaseURL, url.PathEscape(orgID), url.PathEscape(target), url.QueryEscape(apiKey))
	return a.client.PostJSON(ctx, endpoint, map[string]string{"text": text}, nil)
}

// Test verifies the key by requesting a single review page.
func (a *Adapter) Test(ctx context.Context, creds platform.Credentials) (string, error) {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return "", err
	}
	orgID, err := creds.Require(CredOrgID)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/v1/businesses/%s/reviews?limit=1&apikey=%s",
		a.BaseURL, url.PathEscape(orgID), url.QueryEscape(apiKey))
	var resp reviewsResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	return fmt.Sprintf("organization %s reachable", orgID), nil
}

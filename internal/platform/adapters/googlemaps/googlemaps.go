// Package googlemaps ingests place reviews through the Google Places API.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// Credential keys stored in integration settings.
const (
	CredAPIKey  = "api_key"
	CredPlaceID = "place_id"
)

const DefaultBaseURL = "https://maps.googleapis.com"

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
		logger:  log.With(slog.String("adapter", "google_maps")),
		BaseURL: DefaultBaseURL,
	}
}

func (a *Adapter) Type() platform.Type {
	return platform.TypeGoogleMaps
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name    string   `json:"name"`
		URL     string   `json:"url"`
		Reviews []review `json:"reviews"`
	} `json:"result"`
}

// Rating stays untyped; scores arrive as numbers or strings.
type review struct {
	AuthorName string `json:"author_name"`
	Rating     any    `json:"rating"`
	Text       string `json:"text"`
	Time       int64  `json:"time"`
}

type reviewItem struct {
	Review   review `json:"review"`
	PlaceID  string `json:"place_id"`
	PlaceURL string `json:"place_url"`
}

// Fetch pulls the place's reviews from the details endpoint.
func (a *Adapter) Fetch(ctx context.Context, creds platform.Credentials) ([]platform.RawItem, error) {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return nil, err
	}
	placeID, err := creds.Require(CredPlaceID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/maps/api/place/details/json?place_id=%s&fields=name,url,reviews&key=%s",
		a.BaseURL, url.QueryEscape(placeID), url.QueryEscape(apiKey))
	var resp detailsResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status); err != nil {
		return nil, err
	}

	items := make([]platform.RawItem, 0, len(resp.Result.Reviews))
	for _, r := range resp.Result.Reviews {
		payload, err := json.Marshal(reviewItem{
			Review:   r,
			PlaceID:  placeID,
			PlaceURL: resp.Result.URL,
		})
		if err != nil {
			continue
		}
		items = append(items, platform.RawItem{
			ExternalID: externalID(placeID, r.Time),
			Payload:    payload,
		})
	}
	a.logger.Debug("reviews fetched", slog.Int("count", len(items)))
	return items, nil
}

// Normalize converts one review into a review record on the 1..5 scale.
func (a *Adapter) Normalize(item platform.RawItem) (platform.Record, error) {
	var parsed reviewItem
	if err := json.Unmarshal(item.Payload, &parsed); err != nil {
		return platform.Record{}, platform.WrapError(platform.ErrValidation, err, "google review payload")
	}
	if parsed.PlaceID == "" {
		return platform.Record{}, platform.NewError(platform.ErrValidation, "google review has no place id")
	}
	createdAt := time.Time{}
	if parsed.Review.Time > 0 {
		createdAt = time.Unix(parsed.Review.Time, 0).UTC()
	}
	return platform.Record{
		Kind:        platform.KindReview,
		Platform:    platform.TypeGoogleMaps,
		ExternalID:  externalID(parsed.PlaceID, parsed.Review.Time),
		Rating:      platform.NormalizeRating(parsed.Review.Rating, 5),
		Content:     parsed.Review.Text,
		AuthorName:  parsed.Review.AuthorName,
		PlatformURL: parsed.PlaceURL,
		CreatedAt:   createdAt,
		Metadata: map[string]any{
			"place_id": parsed.PlaceID,
		},
	}, nil
}

// Send publishes an owner reply to a review. Target is the review external id.
func (a *Adapter) Send(ctx context.Context, creds platform.Credentials, target, text string) error {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return platform.NewError(platform.ErrValidation, "google review id is required")
	}
	endpoint := fmt.Sprintf("%s/v4/reviews/%s/reply?key=%s",
		a.BaseURL, url.PathEscape(target), url.QueryEscape(apiKey))
	return a.client.PostJSON(ctx, endpoint, map[string]string{"comment": text}, nil)
}

// Test verifies the key by loading the place name.
func (a *Adapter) Test(ctx context.Context, creds platform.Credentials) (string, error) {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return "", err
	}
	placeID, err := creds.Require(CredPlaceID)
	if err != nil {
		return "", err
	}
	endpoint := fmt.Sprintf("%s/maps/api/place/details/json?place_id=%s&fields=name&key=%s",
		a.BaseURL, url.QueryEscape(placeID), url.QueryEscape(apiKey))
	var resp detailsResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if err := checkStatus(resp.Status); err != nil {
		return "", err
	}
	return fmt.Sprintf("connected to place %s", resp.Result.Name), nil
}

// externalID derives a stable id: Google reviews carry no provider id, so
// the place plus the review's unix timestamp stands in for one.
func externalID(placeID string, unix int64) string {
	return placeID + ":" + strconv.FormatInt(unix, 10)
}

// checkStatus maps the API's in-body status field onto the error taxonomy;
// the HTTP status is 200 even for denied requests.
func checkStatus(status string) error {
	switch status {
	case "", "OK", "ZERO_RESULTS":
		return nil
	case "REQUEST_DENIED":
		return platform.NewError(platform.ErrAuth, "google places: %s", status)
	case "OVER_QUERY_LIMIT":
		return platform.NewError(platform.ErrTransient, "google places: %s", status)
	case "INVALID_REQUEST", "NOT_FOUND":
		return platform.NewError(platform.ErrValidation, "google places: %s", status)
	default:
		return platform.NewError(platform.ErrPlatform, "google places: %s", status)
	}
}

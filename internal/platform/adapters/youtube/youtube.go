// Package youtube ingests comment threads from a channel's recent videos
// through the YouTube Data API.
package youtube

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
	CredAPIKey    = "api_key"
	CredChannelID = "channel_id"
)

const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Comments are sampled from the channel's most recent videos only; a full
// backfill of an old channel is out of scope for a sync cycle.
const (
	videoSampleSize  = 5
	commentsPerVideo = 50
)

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
		logger:  log.With(slog.String("adapter", "youtube")),
		BaseURL: DefaultBaseURL,
	}
}

func (a *Adapter) Type() platform.Type {
	return platform.TypeYouTube
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type threadsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				Snippet commentSnippet `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

type commentSnippet struct {
	TextOriginal      string `json:"textOriginal"`
	TextDisplay       string `json:"textDisplay"`
	AuthorDisplayName string `json:"authorDisplayName"`
	AuthorChannelID   struct {
		Value string `json:"value"`
	} `json:"authorChannelId"`
	PublishedAt string `json:"publishedAt"`
}

type commentItem struct {
	ThreadID string         `json:"thread_id"`
	VideoID  string         `json:"video_id"`
	Snippet  commentSnippet `json:"snippet"`
}

// Fetch lists the channel's latest videos and pulls their comment threads.
func (a *Adapter) Fetch(ctx context.Context, creds platform.Credentials) ([]platform.RawItem, error) {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return nil, err
	}
	channelID, err := creds.Require(CredChannelID)
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/search?part=id&channelId=%s&order=date&type=video&maxResults=%d&key=%s",
		a.BaseURL, url.QueryEscape(channelID), videoSampleSize, url.QueryEscape(apiKey))
	var search searchResponse
	if err := a.client.GetJSON(ctx, searchURL, &search); err != nil {
		return nil, err
	}

	items := make([]platform.RawItem, 0)
	for _, video := range search.Items {
		videoID := strings.TrimSpace(video.ID.VideoID)
		if videoID == "" {
			continue
		}
		threadsURL := fmt.Sprintf("%s/commentThreads?part=snippet&videoId=%s&maxResults=%d&key=%s",
			a.BaseURL, url.QueryEscape(videoID), commentsPerVideo, url.QueryEscape(apiKey))
		var threads threadsResponse
		if err := a.client.GetJSON(ctx, threadsURL, &threads); err != nil {
			// A single video with disabled comments must not sink the run.
			a.logger.Warn("comment threads fetch failed",
				slog.String("video_id", videoID),
				slog.String("error", err.Error()))
			continue
		}
		for _, thread := range threads.Items {
			payload, err := json.Marshal(commentItem{
				ThreadID: thread.ID,
				VideoID:  videoID,
				Snippet:  thread.Snippet.TopLevelComment.Snippet,
			})
			if err != nil {
				continue
			}
			items = append(items, platform.RawItem{ExternalID: thread.ID, Payload: payload})
		}
	}
	a.logger.Debug("comments fetched",
		slog.Int("videos", len(search.Items)),
		slog.Int("count", len(items)))
	return items, nil
}

// Normalize converts one comment thread into a message record.
func (a *Adapter) Normalize(item platform.RawItem) (platform.Record, error) {
	var parsed commentItem
	if err := json.Unmarshal(item.Payload, &parsed); err != nil {
		return platform.Record{}, platform.WrapError(platform.ErrValidation, err, "youtube comment payload")
	}
	content := strings.TrimSpace(parsed.Snippet.TextOriginal)
	if content == "" {
		content = strings.TrimSpace(parsed.Snippet.TextDisplay)
	}
	if content == "" {
		return platform.Record{}, platform.ErrSkipped
	}
	externalID := strings.TrimSpace(parsed.ThreadID)
	if externalID == "" {
		externalID = strings.TrimSpace(item.ExternalID)
	}
	createdAt := time.Time{}
	if ts, err := time.Parse(time.RFC3339, parsed.Snippet.PublishedAt); err == nil {
		createdAt = ts.UTC()
	}
	metadata := map[string]any{}
	if parsed.VideoID != "" {
		metadata["video_id"] = parsed.VideoID
	}
	return platform.Record{
		Kind:       platform.KindMessage,
		Platform:   platform.TypeYouTube,
		ExternalID: externalID,
		Direction:  platform.DirectionInbound,
		Content:    content,
		Sender: platform.Identity{
			Handle:      parsed.Snippet.AuthorChannelID.Value,
			DisplayName: parsed.Snippet.AuthorDisplayName,
		},
		CreatedAt: createdAt,
		Metadata:  metadata,
	}, nil
}

// Send replies to a comment thread. Target is the parent comment id.
func (a *Adapter) Send(ctx context.Context, creds platform.Credentials, target, text string) error {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return platform.NewError(platform.ErrValidation, "youtube comment id is required")
	}
	endpoint := fmt.Sprintf("%s/comments?part=snippet&key=%s", a.BaseURL, url.QueryEscape(apiKey))
	body := map[string]any{
		"snippet": map[string]string{
			"parentId":     target,
			"textOriginal": text,
		},
	}
	return a.client.PostJSON(ctx, endpoint, body, nil)
}

// Test verifies the key by loading the channel snippet.
func (a *Adapter) Test(ctx context.Context, creds platform.Credentials) (string, error) {
	apiKey, err := creds.Require(CredAPIKey)
	if err != nil {
		return "", err
	}
	channelID, err := creds.Require(CredChannelID)
	if err != nil {
		return "", err
	}
	var resp struct {
		Items []struct {
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
		} `json:"items"`
	}
	endpoint := fmt.Sprintf("%s/channels?part=snippet&id=%s&key=%s",
		a.BaseURL, url.QueryEscape(channelID), url.QueryEscape(apiKey))
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", platform.NewError(platform.ErrValidation, "channel %s not found", channelID)
	}
	return fmt.Sprintf("connected to channel %s", resp.Items[0].Snippet.Title), nil
}

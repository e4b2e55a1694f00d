package googlemaps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omnicrm/omnicrm/internal/platform"
)

func testAdapter(baseURL string) *Adapter {
	adapter := New(nil, platform.NewAPIClient(2*time.Second, 0))
	if baseURL != "" {
		adapter.BaseURL = baseURL
	}
	return adapter
}

func TestFetchReviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "ChIJplace" {
			http.Error(w, "wrong place", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"status":"OK","result":{"name":"Milliy Taomlar","url":"https://maps.google.com/?cid=77",
			"reviews":[
				{"author_name":"Olim","rating":5,"text":"Zo'r oshxona","time":1756400000},
				{"author_name":"Karim","rating":2,"text":"Kutish uzoq","time":1756300000}
			]}}`))
	}))
	defer server.Close()

	items, err := testAdapter(server.URL).Fetch(context.Background(), platform.Credentials{
		CredAPIKey:  "key",
		CredPlaceID: "ChIJplace",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(items))
	}
	if items[0].ExternalID != "ChIJplace:1756400000" {
		t.Fatalf("external id = %q", items[0].ExternalID)
	}
}

func TestFetchRequestDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"REQUEST_DENIED"}`))
	}))
	defer server.Close()

	_, err := testAdapter(server.URL).Fetch(context.Background(), platform.Credentials{
		CredAPIKey:  "bad",
		CredPlaceID: "ChIJplace",
	})
	if !platform.IsKind(err, platform.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestNormalizeReview(t *testing.T) {
	payload := []byte(`{"review":{"author_name":"Olim","rating":4,"text":"Yaxshi","time":1756400000},"place_id":"ChIJplace","place_url":"https://maps.google.com/?cid=77"}`)

	record, err := testAdapter("").Normalize(platform.RawItem{Payload: payload})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if record.Kind != platform.KindReview || record.Platform != platform.TypeGoogleMaps {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Rating != 4 {
		t.Fatalf("rating = %d, want 4", record.Rating)
	}
	if record.ExternalID != "ChIJplace:1756400000" {
		t.Fatalf("external id = %q", record.ExternalID)
	}
	if record.PlatformURL != "https://maps.google.com/?cid=77" {
		t.Fatalf("platform url = %q", record.PlatformURL)
	}
	if record.Metadata["place_id"] != "ChIJplace" {
		t.Fatalf("metadata = %v", record.Metadata)
	}
	if record.AuthorName != "Olim" {
		t.Fatalf("author = %q", record.AuthorName)
	}
}

func TestNormalizeClampsRating(t *testing.T) {
	for raw, want := range map[string]int{`0`: 1, `6`: 5, `"8"`: 5} {
		payload := []byte(`{"review":{"author_name":"X","rating":` + raw + `,"time":1},"place_id":"p"}`)
		record, err := testAdapter("").Normalize(platform.RawItem{Payload: payload})
		if err != nil {
			t.Fatalf("rating %s: %v", raw, err)
		}
		if record.Rating != want {
			t.Fatalf("rating %s = %d, want %d", raw, record.Rating, want)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	cases := map[string]platform.ErrorKind{
		"OVER_QUERY_LIMIT": platform.ErrTransient,
		"INVALID_REQUEST":  platform.ErrValidation,
		"UNKNOWN_ERROR":    platform.ErrPlatform,
	}
	for status, kind := range cases {
		if err := checkStatus(status); !platform.IsKind(err, kind) {
			t.Fatalf("status %s: got %v, want kind %s", status, err, kind)
		}
	}
	if err := checkStatus("OK"); err != nil {
		t.Fatalf("OK must pass, got %v", err)
	}
}

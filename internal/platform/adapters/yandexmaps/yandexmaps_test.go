package yandexmaps

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
		if r.URL.Path != "/v1/businesses/org77/reviews" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"reviews":[
			{"id":"r1","rating":9,"text":"Juda yaxshi","updatedTime":"2026-08-27T08:00:00Z","author":{"name":"Dilnoza"}},
			{"id":"r2","rating":4,"text":"O'rtacha","updatedTime":"2026-08-26T08:00:00Z","author":{"name":"Bekzod"}}
		]}`))
	}))
	defer server.Close()

	items, err := testAdapter(server.URL).Fetch(context.Background(), platform.Credentials{
		CredAPIKey: "key",
		CredOrgID:  "org77",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(items))
	}
	if items[0].ExternalID != "r1" {
		t.Fatalf("external id = %q", items[0].ExternalID)
	}
}

func TestNormalizeTenScaleRating(t *testing.T) {
	cases := map[string]int{`9`: 5, `7`: 4, `4`: 2, `0`: 1, `"8"`: 4}
	for raw, want := range cases {
		payload := []byte(`{"review":{"id":"r1","rating":` + raw + `,"text":"t","author":{"name":"A"}},"org_id":"org77"}`)
		record, err := testAdapter("").Normalize(platform.RawItem{Payload: payload})
		if err != nil {
			t.Fatalf("rating %s: %v", raw, err)
		}
		if record.Rating != want {
			t.Fatalf("rating %s = %d, want %d", raw, record.Rating, want)
		}
	}
}

func TestNormalizeReview(t *testing.T) {
	payload := []byte(`{"review":{"id":"r9","rating":10,"text":"Eng zo'ri","updatedTime":"2026-08-27T08:00:00Z","author":{"name":"Dilnoza"}},"org_id":"org77"}`)

	record, err := testAdapter("").Normalize(platform.RawItem{Payload: payload})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if record.Kind != platform.KindReview || record.Platform != platform.TypeYandexMaps {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Rating != 5 {
		t.Fatalf("rating = %d, want 5", record.Rating)
	}
	if record.Metadata["org_id"] != "org77" {
		t.Fatalf("metadata = %v", record.Metadata)
	}
	if record.PlatformURL != "https://yandex.ru/maps/org/org77/reviews" {
		t.Fatalf("platform url = %q", record.PlatformURL)
	}
}

func TestNormalizeRequiresID(t *testing.T) {
	_, err := testAdapter("").Normalize(platform.RawItem{Payload: []byte(`{"review":{"rating":5}}`)})
	if !platform.IsKind(err, platform.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

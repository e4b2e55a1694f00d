package facebook

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

func TestFetchFlattensConversations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"t_1","messages":{"data":[
				{"id":"m_1","message":"Assalomu alaykum","created_time":"2026-08-29T09:00:00+0000","from":{"id":"u_9","name":"Vali"}},
				{"id":"m_2","message":"Alaykum assalom","created_time":"2026-08-29T09:05:00+0000","from":{"id":"page_1","name":"Do'kon"}}
			]}}
		]}`))
	}))
	defer server.Close()

	items, err := testAdapter(server.URL).Fetch(context.Background(), platform.Credentials{
		CredAccessToken: "tok",
		CredPageID:      "page_1",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(items))
	}
}

func TestNormalizeDirections(t *testing.T) {
	adapter := testAdapter("")

	inbound, err := adapter.Normalize(platform.RawItem{Payload: []byte(
		`{"message":{"id":"m_1","message":"Ish vaqtingiz?","created_time":"2026-08-29T09:00:00+0000","from":{"id":"u_9","name":"Vali"}},"conversation_id":"t_1","page_id":"page_1"}`)})
	if err != nil {
		t.Fatalf("normalize inbound: %v", err)
	}
	if inbound.Direction != platform.DirectionInbound {
		t.Fatalf("direction = %q", inbound.Direction)
	}
	if inbound.Sender.Handle != "u_9" || inbound.Sender.DisplayName != "Vali" {
		t.Fatalf("sender = %+v", inbound.Sender)
	}
	if inbound.CreatedAt.IsZero() {
		t.Fatal("expected created_time to be parsed")
	}
	if inbound.Metadata["conversation_id"] != "t_1" {
		t.Fatalf("metadata = %v", inbound.Metadata)
	}

	outbound, err := adapter.Normalize(platform.RawItem{Payload: []byte(
		`{"message":{"id":"m_2","message":"9 dan 18 gacha","from":{"id":"page_1","name":"Do'kon"}},"conversation_id":"t_1","page_id":"page_1"}`)})
	if err != nil {
		t.Fatalf("normalize outbound: %v", err)
	}
	if outbound.Direction != platform.DirectionOutbound {
		t.Fatalf("page's own message must be outbound, got %q", outbound.Direction)
	}
	if !outbound.Sender.Empty() {
		t.Fatalf("page message must not carry a contact identity: %+v", outbound.Sender)
	}
}

func TestNormalizeSkipsEmptyMessage(t *testing.T) {
	_, err := testAdapter("").Normalize(platform.RawItem{Payload: []byte(`{"message":{"id":"m_3"}}`)})
	if err != platform.ErrSkipped {
		t.Fatalf("expected skip, got %v", err)
	}
}

func TestTestReportsPageName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"name":"Chorsu Do'koni"}`))
	}))
	defer server.Close()

	summary, err := testAdapter(server.URL).Test(context.Background(), platform.Credentials{
		CredAccessToken: "tok",
		CredPageID:      "page_1",
	})
	if err != nil {
		t.Fatalf("test: %v", err)
	}
	if summary != "connected to page Chorsu Do'koni" {
		t.Fatalf("summary = %q", summary)
	}
}

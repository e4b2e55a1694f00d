package platform

import (
	"context"
	"testing"
)

type stubAdapter struct {
	platformType Type
}

func (a stubAdapter) Type() Type { return a.platformType }
func (a stubAdapter) Fetch(context.Context, Credentials) ([]RawItem, error) {
	return nil, nil
}
func (a stubAdapter) Normalize(RawItem) (Record, error) { return Record{}, nil }
func (a stubAdapter) Send(context.Context, Credentials, string, string) error {
	return nil
}
func (a stubAdapter) Test(context.Context, Credentials) (string, error) { return "", nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(stubAdapter{platformType: TypeTelegram}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(stubAdapter{platformType: TypeTelegram}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if _, ok := registry.Get(TypeTelegram); !ok {
		t.Fatal("expected adapter lookup to succeed")
	}
	if _, ok := registry.Get(TypeFacebook); ok {
		t.Fatal("expected missing adapter lookup to fail")
	}
}

func TestRegistryListOrdered(t *testing.T) {
	registry := NewRegistry()
	registry.MustRegister(stubAdapter{platformType: TypeYandexMaps})
	registry.MustRegister(stubAdapter{platformType: TypeFacebook})
	registry.MustRegister(stubAdapter{platformType: TypeInstagram})

	types := registry.Types()
	if len(types) != 3 {
		t.Fatalf("expected 3 types, got %d", len(types))
	}
	if types[0] != TypeFacebook || types[1] != TypeInstagram || types[2] != TypeYandexMaps {
		t.Fatalf("unexpected order: %v", types)
	}
}

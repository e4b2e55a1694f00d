package contacts

import (
	"context"
	"strconv"
	"testing"

	"github.com/omnicrm/omnicrm/internal/platform"
)

type fakeStore struct {
	contacts []Contact
	nextID   int
}

func (s *fakeStore) FindByPhone(_ context.Context, branchID, phone string) (Contact, error) {
	for _, c := range s.contacts {
		if c.BranchID == branchID && c.Phone == phone {
			return c, nil
		}
	}
	return Contact{}, ErrContactNotFound
}

func (s *fakeStore) FindByEmail(_ context.Context, branchID, email string) (Contact, error) {
	for _, c := range s.contacts {
		if c.BranchID == branchID && c.Email == email {
			return c, nil
		}
	}
	return Contact{}, ErrContactNotFound
}

func (s *fakeStore) Create(_ context.Context, req CreateRequest) (Contact, error) {
	s.nextID++
	contact := Contact{
		ID:          "contact-" + strconv.Itoa(s.nextID),
		BranchID:    req.BranchID,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Email:       req.Email,
		Tags:        req.Tags,
	}
	s.contacts = append(s.contacts, contact)
	return contact, nil
}

func TestResolvePhonePrecedence(t *testing.T) {
	store := &fakeStore{contacts: []Contact{
		{ID: "existing", BranchID: "b1", Phone: "+998901234567", DisplayName: "Old Name"},
	}}
	resolver := NewResolver(nil, store)

	id, created, err := resolver.Resolve(context.Background(), "b1", platform.Identity{
		Phone:       "+998901234567",
		DisplayName: "Completely Different Name",
	}, "telegram")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created {
		t.Fatal("expected existing contact, not a new one")
	}
	if id != "existing" {
		t.Fatalf("got %q want existing", id)
	}
}

func TestResolveEmailFallback(t *testing.T) {
	store := &fakeStore{contacts: []Contact{
		{ID: "by-email", BranchID: "b1", Email: "ali@example.com"},
	}}
	resolver := NewResolver(nil, store)

	id, created, err := resolver.Resolve(context.Background(), "b1", platform.Identity{
		Email: "ali@example.com",
	}, "facebook")
	if err != nil || created {
		t.Fatalf("resolve: id=%q created=%v err=%v", id, created, err)
	}
	if id != "by-email" {
		t.Fatalf("got %q want by-email", id)
	}
}

func TestResolveHandleAsPhone(t *testing.T) {
	store := &fakeStore{contacts: []Contact{
		{ID: "by-handle", BranchID: "b1", Phone: "insta_user"},
	}}
	resolver := NewResolver(nil, store)

	id, created, err := resolver.Resolve(context.Background(), "b1", platform.Identity{
		Handle: "insta_user",
	}, "instagram")
	if err != nil || created {
		t.Fatalf("resolve: id=%q created=%v err=%v", id, created, err)
	}
	if id != "by-handle" {
		t.Fatalf("got %q want by-handle", id)
	}
}

func TestResolveCreatesExactlyOnce(t *testing.T) {
	store := &fakeStore{}
	resolver := NewResolver(nil, store)
	identity := platform.Identity{Handle: "123", DisplayName: "Ali"}

	id1, created, err := resolver.Resolve(context.Background(), "b1", identity, "telegram")
	if err != nil || !created {
		t.Fatalf("first resolve: created=%v err=%v", created, err)
	}
	id2, created, err := resolver.Resolve(context.Background(), "b1", identity, "telegram")
	if err != nil || created {
		t.Fatalf("second resolve: created=%v err=%v", created, err)
	}
	if id1 != id2 {
		t.Fatalf("expected same contact, got %q and %q", id1, id2)
	}
	if len(store.contacts) != 1 {
		t.Fatalf("expected one stored contact, got %d", len(store.contacts))
	}
	if store.contacts[0].Phone != "123" {
		t.Fatalf("handle should be stored as phone, got %q", store.contacts[0].Phone)
	}
	if len(store.contacts[0].Tags) == 0 || store.contacts[0].Tags[0] != "telegram" {
		t.Fatalf("expected origin tag, got %v", store.contacts[0].Tags)
	}
}

func TestResolveEmptyIdentity(t *testing.T) {
	resolver := NewResolver(nil, &fakeStore{})
	_, _, err := resolver.Resolve(context.Background(), "b1", platform.Identity{DisplayName: "only a name"}, "youtube")
	if !platform.IsKind(err, platform.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

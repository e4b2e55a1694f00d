package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/omnicrm/omnicrm/internal/branches"
	"github.com/omnicrm/omnicrm/internal/platform"
	"github.com/omnicrm/omnicrm/internal/records"
)

type fakeRecordStore struct {
	messages []records.Message
	reviews  []records.Review
}

func (s *fakeRecordStore) FindMessageByExternalID(_ context.Context, platformType platform.Type, externalID string) (records.Message, error) {
	for _, msg := range s.messages {
		if msg.Platform == platformType && msg.ExternalID == externalID {
			return msg, nil
		}
	}
	return records.Message{}, records.ErrRecordNotFound
}

func (s *fakeRecordStore) InsertMessage(_ context.Context, msg records.Message) (records.Message, error) {
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *fakeRecordStore) FindReviewByExternalID(_ context.Context, platformType platform.Type, externalID string) (records.Review, error) {
	for _, review := range s.reviews {
		if review.Platform == platformType && review.ExternalID == externalID {
			return review, nil
		}
	}
	return records.Review{}, records.ErrRecordNotFound
}

func (s *fakeRecordStore) InsertReview(_ context.Context, review records.Review) (records.Review, error) {
	s.reviews = append(s.reviews, review)
	return review, nil
}

type fakeResolver struct {
	calls int
}

func (r *fakeResolver) Resolve(_ context.Context, _ string, identity platform.Identity, _ string) (string, bool, error) {
	if identity.Empty() {
		return "", false, platform.NewError(platform.ErrValidation, "empty identity")
	}
	r.calls++
	return "contact-1", true, nil
}

type fakeBranches struct {
	branch branches.Branch
	calls  int
}

func (b *fakeBranches) Default(context.Context) (branches.Branch, error) {
	b.calls++
	if b.branch.ID == "" {
		return branches.Branch{}, branches.ErrNoBranches
	}
	return b.branch, nil
}

func newTestPipeline(store *fakeRecordStore, resolver *fakeResolver) *Pipeline {
	return NewPipeline(nil, store, resolver, &fakeBranches{branch: branches.Branch{ID: "branch-1"}})
}

func TestPersistMessageAndReplay(t *testing.T) {
	store := &fakeRecordStore{}
	resolver := &fakeResolver{}
	pipeline := newTestPipeline(store, resolver)
	record := platform.Record{
		Kind:       platform.KindMessage,
		Platform:   platform.TypeTelegram,
		ExternalID: "7",
		Content:    "Salom",
		Sender:     platform.Identity{Phone: "123", DisplayName: "Ali"},
	}

	if err := pipeline.Persist(context.Background(), record); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(store.messages))
	}
	msg := store.messages[0]
	if msg.ContactID != "contact-1" || msg.Direction != platform.DirectionInbound {
		t.Fatalf("unexpected message: %+v", msg)
	}

	err := pipeline.Persist(context.Background(), record)
	if !errors.Is(err, platform.ErrSkipped) {
		t.Fatalf("replay should skip, got %v", err)
	}
	if len(store.messages) != 1 {
		t.Fatalf("replay must not store another row, got %d", len(store.messages))
	}
}

func TestPersistReview(t *testing.T) {
	store := &fakeRecordStore{}
	pipeline := newTestPipeline(store, &fakeResolver{})

	err := pipeline.Persist(context.Background(), platform.Record{
		Kind:        platform.KindReview,
		Platform:    platform.TypeGoogleMaps,
		ExternalID:  "place-1:1700000000",
		Rating:      4,
		Content:     "Yaxshi joy",
		AuthorName:  "Olim",
		PlatformURL: "https://maps.google.com/?cid=1",
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.reviews) != 1 {
		t.Fatalf("expected one review, got %d", len(store.reviews))
	}
	review := store.reviews[0]
	if review.Rating != 4 || review.BranchID != "branch-1" || review.Comment != "Yaxshi joy" {
		t.Fatalf("unexpected review: %+v", review)
	}
	if review.ContactID != "" {
		t.Fatalf("author without identity must not link a contact, got %q", review.ContactID)
	}
}

func TestPersistReviewLooksUpBranchOnce(t *testing.T) {
	store := &fakeRecordStore{}
	resolver := &fakeResolver{}
	branchStore := &fakeBranches{branch: branches.Branch{ID: "branch-1"}}
	pipeline := NewPipeline(nil, store, resolver, branchStore)

	err := pipeline.Persist(context.Background(), platform.Record{
		Kind:       platform.KindReview,
		Platform:   platform.TypeYandexMaps,
		ExternalID: "rev-9",
		Rating:     5,
		Sender:     platform.Identity{Email: "olim@example.uz", DisplayName: "Olim"},
	})
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if branchStore.calls != 1 {
		t.Fatalf("branch lookups = %d, want 1", branchStore.calls)
	}
	if store.reviews[0].BranchID != "branch-1" || store.reviews[0].ContactID != "contact-1" {
		t.Fatalf("unexpected review: %+v", store.reviews[0])
	}
}

func TestPersistReviewRequiresExternalID(t *testing.T) {
	pipeline := newTestPipeline(&fakeRecordStore{}, &fakeResolver{})
	err := pipeline.Persist(context.Background(), platform.Record{
		Kind:     platform.KindReview,
		Platform: platform.TypeYandexMaps,
	})
	if !platform.IsKind(err, platform.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPersistUnknownKind(t *testing.T) {
	pipeline := newTestPipeline(&fakeRecordStore{}, &fakeResolver{})
	err := pipeline.Persist(context.Background(), platform.Record{
		Kind:     "attachment",
		Platform: platform.TypeFacebook,
	})
	if !platform.IsKind(err, platform.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

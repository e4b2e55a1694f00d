package contacts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// Finder is the store surface the resolver needs.
type Finder interface {
	FindByPhone(ctx context.Context, branchID, phone string) (Contact, error)
	FindByEmail(ctx context.Context, branchID, email string) (Contact, error)
	Create(ctx context.Context, req CreateRequest) (Contact, error)
}

// Resolver associates an external identity with a CRM contact, creating one
// when no match exists. Lookup order: phone, then email, then the platform
// handle checked against the phone column (handles are stored there for
// platforms without real phone numbers).
//
// The find-then-create sequence is not serialized; two concurrent identical
// inbound events can create duplicate contacts. Merging duplicates is a
// CRM-level cleanup operation, so the race is accepted rather than locked away.
type Resolver struct {
	store  Finder
	logger *slog.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(log *slog.Logger, store Finder) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store:  store,
		logger: log.With(slog.String("component", "contact_resolver")),
	}
}

// Resolve returns the contact id for the identity, creating a new contact
// tagged with originTag when nothing matches. The second return value
// reports whether a contact was created.
func (r *Resolver) Resolve(ctx context.Context, branchID string, identity platform.Identity, originTag string) (string, bool, error) {
	if r.store == nil {
		return "", false, errors.New("contact store not configured")
	}
	if identity.Empty() {
		return "", false, platform.NewError(platform.ErrValidation, "identity has no phone, email, or handle")
	}

	phone := strings.TrimSpace(identity.Phone)
	email := strings.TrimSpace(identity.Email)
	handle := strings.TrimSpace(identity.Handle)

	if phone != "" {
		contact, err := r.store.FindByPhone(ctx, branchID, phone)
		if err == nil {
			return contact.ID, false, nil
		}
		if !errors.Is(err, ErrContactNotFound) {
			return "", false, err
		}
	}
	if email != "" {
		contact, err := r.store.FindByEmail(ctx, branchID, email)
		if err == nil {
			return contact.ID, false, nil
		}
		if !errors.Is(err, ErrContactNotFound) {
			return "", false, err
		}
	}
	if handle != "" && handle != phone {
		contact, err := r.store.FindByPhone(ctx, branchID, handle)
		if err == nil {
			return contact.ID, false, nil
		}
		if !errors.Is(err, ErrContactNotFound) {
			return "", false, err
		}
	}

	storedPhone := phone
	if storedPhone == "" {
		storedPhone = handle
	}
	displayName := strings.TrimSpace(identity.DisplayName)
	if displayName == "" {
		displayName = firstNonEmpty(handle, phone, email)
	}
	contact, err := r.store.Create(ctx, CreateRequest{
		BranchID:    branchID,
		DisplayName: displayName,
		Phone:       storedPhone,
		Email:       email,
		Tags:        []string{strings.TrimSpace(originTag)},
	})
	if err != nil {
		return "", false, err
	}
	r.logger.Debug("contact created",
		slog.String("contact_id", contact.ID),
		slog.String("origin", originTag))
	return contact.ID, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

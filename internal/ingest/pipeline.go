// Package ingest turns normalized platform records into stored messages and
// reviews, and orchestrates full sync runs across all configured platforms.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omnicrm/omnicrm/internal/branches"
	"github.com/omnicrm/omnicrm/internal/platform"
	"github.com/omnicrm/omnicrm/internal/records"
)

// ContactResolver maps a provider identity to a CRM contact id.
type ContactResolver interface {
	Resolve(ctx context.Context, branchID string, identity platform.Identity, originTag string) (string, bool, error)
}

// RecordStore is the persistence surface the pipeline writes through.
type RecordStore interface {
	FindMessageByExternalID(ctx context.Context, platformType platform.Type, externalID string) (records.Message, error)
	InsertMessage(ctx context.Context, msg records.Message) (records.Message, error)
	FindReviewByExternalID(ctx context.Context, platformType platform.Type, externalID string) (records.Review, error)
	InsertReview(ctx context.Context, review records.Review) (records.Review, error)
}

// BranchProvider supplies the branch inbound content attaches to.
type BranchProvider interface {
	Default(ctx context.Context) (branches.Branch, error)
}

// Pipeline persists normalized records: resolve the contact, drop records
// already stored under the same (platform, external_id), insert the rest.
type Pipeline struct {
	store    RecordStore
	resolver ContactResolver
	branches BranchProvider
	logger   *slog.Logger
}

// NewPipeline creates a persistence pipeline.
func NewPipeline(log *slog.Logger, store RecordStore, resolver ContactResolver, branchStore BranchProvider) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:    store,
		resolver: resolver,
		branches: branchStore,
		logger:   log.With(slog.String("component", "ingest_pipeline")),
	}
}

// Persist stores one normalized record. It returns platform.ErrSkipped when
// an identical record is already stored.
func (p *Pipeline) Persist(ctx context.Context, record platform.Record) error {
	if record.Platform == "" {
		return platform.NewError(platform.ErrValidation, "record has no platform")
	}

	switch record.Kind {
	case platform.KindMessage:
		return p.persistMessage(ctx, record)
	case platform.KindReview:
		return p.persistReview(ctx, record)
	default:
		return platform.NewError(platform.ErrValidation, "unknown record kind: %s", record.Kind)
	}
}

func (p *Pipeline) persistMessage(ctx context.Context, record platform.Record) error {
	externalID := strings.TrimSpace(record.ExternalID)
	if externalID != "" {
		_, err := p.store.FindMessageByExternalID(ctx, record.Platform, externalID)
		if err == nil {
			return platform.ErrSkipped
		}
		if !errors.Is(err, records.ErrRecordNotFound) {
			return fmt.Errorf("dedupe check: %w", err)
		}
	}

	contactID := ""
	if p.resolver != nil && !record.Sender.Empty() {
		branchID, err := p.defaultBranchID(ctx)
		if err != nil {
			return err
		}
		contactID, err = p.resolveContact(ctx, branchID, record)
		if err != nil {
			return err
		}
	}

	direction := record.Direction
	if direction == "" {
		direction = platform.DirectionInbound
	}
	_, err := p.store.InsertMessage(ctx, records.Message{
		Platform:   record.Platform,
		Direction:  direction,
		Content:    record.Content,
		ContactID:  contactID,
		ExternalID: externalID,
		Metadata:   record.Metadata,
		CreatedAt:  record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (p *Pipeline) persistReview(ctx context.Context, record platform.Record) error {
	externalID := strings.TrimSpace(record.ExternalID)
	if externalID == "" {
		return platform.NewError(platform.ErrValidation, "review has no external id")
	}
	_, err := p.store.FindReviewByExternalID(ctx, record.Platform, externalID)
	if err == nil {
		return platform.ErrSkipped
	}
	if !errors.Is(err, records.ErrRecordNotFound) {
		return fmt.Errorf("dedupe check: %w", err)
	}

	branchID, err := p.defaultBranchID(ctx)
	if err != nil {
		return err
	}
	contactID, err := p.resolveContact(ctx, branchID, record)
	if err != nil {
		return err
	}

	_, err = p.store.InsertReview(ctx, records.Review{
		Platform:    record.Platform,
		Rating:      record.Rating,
		Comment:     record.Content,
		AuthorName:  record.AuthorName,
		ExternalID:  externalID,
		ContactID:   contactID,
		BranchID:    branchID,
		PlatformURL: record.PlatformURL,
		Metadata:    record.Metadata,
		CreatedAt:   record.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// defaultBranchID resolves the branch inbound content attaches to. Missing
// branches are tolerated; records are then stored without a branch link.
func (p *Pipeline) defaultBranchID(ctx context.Context) (string, error) {
	if p.branches == nil {
		return "", nil
	}
	branch, err := p.branches.Default(ctx)
	if err != nil {
		if errors.Is(err, branches.ErrNoBranches) {
			return "", nil
		}
		return "", err
	}
	return branch.ID, nil
}

// resolveContact returns the contact id for the record sender. Records
// without a usable identity (review authors are often just a display name)
// are stored without a contact link.
func (p *Pipeline) resolveContact(ctx context.Context, branchID string, record platform.Record) (string, error) {
	if p.resolver == nil || record.Sender.Empty() {
		return "", nil
	}
	contactID, created, err := p.resolver.Resolve(ctx, branchID, record.Sender, record.Platform.String())
	if err != nil {
		if platform.IsKind(err, platform.ErrValidation) {
			return "", nil
		}
		return "", err
	}
	if created {
		p.logger.Debug("contact created for inbound record",
			slog.String("platform", record.Platform.String()),
			slog.String("contact_id", contactID))
	}
	return contactID, nil
}

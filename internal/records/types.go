// Package records stores the canonical Message and Review rows produced by ingestion.
package records

import (
	"errors"
	"time"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// ErrRecordNotFound is returned by lookups that match no stored record.
var ErrRecordNotFound = errors.New("record not found")

// Message is a canonical inbound/outbound communication unit.
type Message struct {
	ID         string             `json:"id"`
	Platform   platform.Type      `json:"platform"`
	Direction  platform.Direction `json:"direction"`
	Content    string             `json:"content"`
	ContactID  string             `json:"contact_id,omitempty"`
	ExternalID string             `json:"external_id,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Review is a canonical rating-bearing unit from a maps platform.
type Review struct {
	ID          string         `json:"id"`
	Platform    platform.Type  `json:"platform"`
	Rating      int            `json:"rating"`
	Comment     string         `json:"comment,omitempty"`
	AuthorName  string         `json:"author_name"`
	ExternalID  string         `json:"external_id"`
	Response    string         `json:"response,omitempty"`
	RespondedAt time.Time      `json:"responded_at,omitzero"`
	ContactID   string         `json:"contact_id,omitempty"`
	BranchID    string         `json:"branch_id,omitempty"`
	PlatformURL string         `json:"platform_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

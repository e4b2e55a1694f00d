// Package contacts stores CRM contacts and resolves external identities to them.
package contacts

import (
	"errors"
	"time"
)

// ErrContactNotFound is returned by lookups that match no contact.
var ErrContactNotFound = errors.New("contact not found")

// Contact is a CRM identity record. Phone may hold a platform handle for
// platforms without real phone numbers (Telegram chat ids, Instagram usernames).
type Contact struct {
	ID          string    `json:"id"`
	BranchID    string    `json:"branch_id,omitempty"`
	DisplayName string    `json:"display_name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest is the input for creating a contact.
type CreateRequest struct {
	BranchID    string
	DisplayName string
	Phone       string
	Email       string
	Tags        []string
}

// Package platform defines the canonical ingestion types shared by all
// platform adapters: the platform enum, fetched raw items, normalized
// records, the error taxonomy, and the adapter registry.
package platform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type identifies the origin platform of a message or review.
type Type string

const (
	TypeInstagram  Type = "instagram"
	TypeFacebook   Type = "facebook"
	TypeTelegram   Type = "telegram"
	TypeYouTube    Type = "youtube"
	TypeGoogleMaps Type = "google_maps"
	TypeYandexMaps Type = "yandex_maps"

	// Message kinds created inside the CRM rather than synced from a provider.
	TypeManual Type = "manual"
	TypePhone  Type = "phone"
	TypeEmail  Type = "email"
	TypeSMS    Type = "sms"
)

func (t Type) String() string {
	return string(t)
}

// SyncTypes lists the external platforms content is ingested from.
func SyncTypes() []Type {
	return []Type{
		TypeInstagram,
		TypeFacebook,
		TypeTelegram,
		TypeYouTube,
		TypeGoogleMaps,
		TypeYandexMaps,
	}
}

// ParseType validates and normalizes a raw string into a known platform type.
func ParseType(raw string) (Type, error) {
	normalized := Type(strings.ToLower(strings.TrimSpace(raw)))
	switch normalized {
	case TypeInstagram, TypeFacebook, TypeTelegram, TypeYouTube,
		TypeGoogleMaps, TypeYandexMaps, TypeManual, TypePhone, TypeEmail, TypeSMS:
		return normalized, nil
	}
	return "", fmt.Errorf("unsupported platform type: %s", raw)
}

// Direction marks whether a message was received from or sent to a contact.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Identity is a provider-native author reference used to resolve a Contact.
// Any subset of the fields may be present.
type Identity struct {
	Phone       string
	Email       string
	Handle      string
	DisplayName string
}

// Empty reports whether the identity carries no usable hint.
func (i Identity) Empty() bool {
	return strings.TrimSpace(i.Phone) == "" &&
		strings.TrimSpace(i.Email) == "" &&
		strings.TrimSpace(i.Handle) == ""
}

// RecordKind distinguishes the two canonical record shapes.
type RecordKind string

const (
	KindMessage RecordKind = "message"
	KindReview  RecordKind = "review"
)

// Record is a normalized unit produced by an adapter, ready for persistence.
// Message records use Direction/Content; review records additionally carry
// Rating, AuthorName, and PlatformURL.
type Record struct {
	Kind        RecordKind
	Platform    Type
	ExternalID  string
	Direction   Direction
	Content     string
	Rating      int
	AuthorName  string
	PlatformURL string
	Sender      Identity
	CreatedAt   time.Time
	Metadata    map[string]any
}

// RawItem is a single unparsed unit returned by a platform read API.
type RawItem struct {
	ExternalID string
	Payload    json.RawMessage
}

// Credentials holds the per-platform credential fields read from settings.
type Credentials map[string]string

// Get returns the first non-empty value among the given keys.
func (c Credentials) Get(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(c[key]); value != "" {
			return value
		}
	}
	return ""
}

// Require returns the credential value for key or an auth error naming it.
func (c Credentials) Require(key string) (string, error) {
	value := strings.TrimSpace(c[key])
	if value == "" {
		return "", NewError(ErrAuth, "%s is not configured", key)
	}
	return value, nil
}

// NormalizeRating converts a provider score on the given scale into the
// canonical [1,5] range. A 10-point score is mapped with round(score/10*5);
// out-of-range values are clamped.
func NormalizeRating(raw any, scale int) int {
	score := ratingValue(raw)
	if scale == 10 {
		score = math.Round(score / 10 * 5)
	}
	value := int(math.Round(score))
	if value < 1 {
		return 1
	}
	if value > 5 {
		return 5
	}
	return value
}

func ratingValue(raw any) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		value, err := v.Float64()
		if err != nil {
			return 0
		}
		return value
	case string:
		value, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return value
	default:
		return 0
	}
}

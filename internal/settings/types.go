// Package settings manages the single integration settings record: per
// platform credentials plus the list of platforms shown as enabled in the UI.
package settings

import (
	"github.com/omnicrm/omnicrm/internal/platform"
)

// SettingsID is the fixed id of the singleton settings row.
const SettingsID = "00000000-0000-0000-0000-000000000001"

// MaskedSecret is the placeholder returned instead of stored credential
// values. Clients send it back unchanged to keep a value as is.
const MaskedSecret = "********"

// Settings is the stored integration state.
type Settings struct {
	Platforms        map[platform.Type]platform.Credentials `json:"platforms"`
	EnabledPlatforms []string                               `json:"enabled_platforms"`
	Metadata         map[string]any                         `json:"metadata,omitempty"`
}

// PlatformOverview is the masked view of one platform's configuration.
type PlatformOverview struct {
	Platform   platform.Type     `json:"platform"`
	Enabled    bool              `json:"enabled"`
	Configured bool              `json:"configured"`
	Fields     map[string]string `json:"fields"`
}

// UpdateRequest is a partial update for one platform. Credential keys that
// are present override stored ones, the masked placeholder keeps the stored
// value, and an empty string removes the key.
type UpdateRequest struct {
	Credentials map[string]string `json:"credentials,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
}

func defaultSettings() Settings {
	return Settings{
		Platforms:        map[platform.Type]platform.Credentials{},
		EnabledPlatforms: []string{},
		Metadata:         map[string]any{},
	}
}

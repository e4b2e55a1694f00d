package settings

import (
	"strings"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// mergeCredentials applies a partial credential update on top of the stored
// values. Keys absent from incoming stay untouched, the masked placeholder
// keeps the stored value, and an empty string deletes the key.
func mergeCredentials(existing platform.Credentials, incoming map[string]string) platform.Credentials {
	merged := platform.Credentials{}
	for key, value := range existing {
		merged[key] = value
	}
	for key, value := range incoming {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		switch value {
		case MaskedSecret:
			// keep stored value
		case "":
			delete(merged, key)
		default:
			merged[key] = value
		}
	}
	return merged
}

// maskCredentials replaces every stored value with the placeholder so raw
// secrets never leave the service.
func maskCredentials(creds platform.Credentials) map[string]string {
	masked := make(map[string]string, len(creds))
	for key := range creds {
		masked[key] = MaskedSecret
	}
	return masked
}

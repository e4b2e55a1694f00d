package settings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/omnicrm/omnicrm/internal/db"
	"github.com/omnicrm/omnicrm/internal/platform"
)

// ErrSettingsNotFound is returned when the singleton row does not exist yet.
var ErrSettingsNotFound = errors.New("settings row not found")

// Store persists the singleton settings row in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a settings store on the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get loads the singleton row.
func (s *Store) Get(ctx context.Context) (Settings, error) {
	pgID, err := db.ParseUUID(SettingsID)
	if err != nil {
		return Settings{}, err
	}
	var (
		platformsRaw []byte
		enabled      []string
		metadataRaw  []byte
	)
	err = s.pool.QueryRow(ctx,
		"SELECT platforms, enabled_platforms, metadata FROM integration_settings WHERE id = $1",
		pgID).Scan(&platformsRaw, &enabled, &metadataRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, ErrSettingsNotFound
	}
	if err != nil {
		return Settings{}, err
	}
	return decodeSettings(platformsRaw, enabled, metadataRaw)
}

// Save upserts the singleton row.
func (s *Store) Save(ctx context.Context, settings Settings) error {
	pgID, err := db.ParseUUID(SettingsID)
	if err != nil {
		return err
	}
	platformsRaw, err := json.Marshal(settings.Platforms)
	if err != nil {
		return err
	}
	metadata := settings.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataRaw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	enabled := settings.EnabledPlatforms
	if enabled == nil {
		enabled = []string{}
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO integration_settings (id, platforms, enabled_platforms, metadata)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET platforms = EXCLUDED.platforms,
		     enabled_platforms = EXCLUDED.enabled_platforms,
		     metadata = EXCLUDED.metadata,
		     updated_at = now()`,
		pgID, platformsRaw, enabled, metadataRaw)
	return err
}

func decodeSettings(platformsRaw []byte, enabled []string, metadataRaw []byte) (Settings, error) {
	settings := defaultSettings()
	if len(platformsRaw) > 0 {
		var platforms map[platform.Type]platform.Credentials
		if err := json.Unmarshal(platformsRaw, &platforms); err != nil {
			return Settings{}, err
		}
		if platforms != nil {
			settings.Platforms = platforms
		}
	}
	if enabled != nil {
		settings.EnabledPlatforms = enabled
	}
	if len(metadataRaw) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
			return Settings{}, err
		}
		if metadata != nil {
			settings.Metadata = metadata
		}
	}
	return settings, nil
}

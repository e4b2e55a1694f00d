package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// Storage is the store surface the service needs.
type Storage interface {
	Get(ctx context.Context) (Settings, error)
	Save(ctx context.Context, settings Settings) error
}

// Service owns the singleton settings record. Credential values never leave
// the service unmasked; adapters get them through CredentialsFor.
type Service struct {
	store  Storage
	logger *slog.Logger
}

// NewService creates a settings service.
func NewService(log *slog.Logger, store Storage) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "settings")),
	}
}

// Load returns the stored settings, creating the row with defaults on first
// access.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	if s.store == nil {
		return Settings{}, fmt.Errorf("settings store not configured")
	}
	stored, err := s.store.Get(ctx)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return Settings{}, err
	}
	created := defaultSettings()
	if err := s.store.Save(ctx, created); err != nil {
		return Settings{}, err
	}
	s.logger.Info("settings row created")
	return created, nil
}

// Update applies a partial update for one platform and returns its masked
// overview.
func (s *Service) Update(ctx context.Context, platformType platform.Type, req UpdateRequest) (PlatformOverview, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return PlatformOverview{}, err
	}

	if len(req.Credentials) > 0 {
		current.Platforms[platformType] = mergeCredentials(current.Platforms[platformType], req.Credentials)
		if len(current.Platforms[platformType]) == 0 {
			delete(current.Platforms, platformType)
		}
	}
	if req.Enabled != nil {
		current.EnabledPlatforms = setEnabled(current.EnabledPlatforms, platformType, *req.Enabled)
	}

	if err := s.store.Save(ctx, current); err != nil {
		return PlatformOverview{}, err
	}
	s.logger.Info("integration updated", slog.String("platform", platformType.String()))
	return overviewFor(current, platformType), nil
}

// CredentialsFor returns the stored credentials for a platform and whether
// any are configured.
func (s *Service) CredentialsFor(ctx context.Context, platformType platform.Type) (platform.Credentials, bool, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	creds := current.Platforms[platformType]
	return creds, len(creds) > 0, nil
}

// SetMetadataValue stores one key in the settings metadata blob. An empty
// value removes the key.
func (s *Service) SetMetadataValue(ctx context.Context, key string, value any) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if current.Metadata == nil {
		current.Metadata = map[string]any{}
	}
	if value == nil || value == "" {
		delete(current.Metadata, key)
	} else {
		current.Metadata[key] = value
	}
	return s.store.Save(ctx, current)
}

// Overview returns the masked state of every sync platform.
func (s *Service) Overview(ctx context.Context) ([]PlatformOverview, error) {
	current, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]PlatformOverview, 0, len(platform.SyncTypes()))
	for _, platformType := range platform.SyncTypes() {
		items = append(items, overviewFor(current, platformType))
	}
	return items, nil
}

func overviewFor(settings Settings, platformType platform.Type) PlatformOverview {
	creds := settings.Platforms[platformType]
	return PlatformOverview{
		Platform:   platformType,
		Enabled:    slices.Contains(settings.EnabledPlatforms, platformType.String()),
		Configured: len(creds) > 0,
		Fields:     maskCredentials(creds),
	}
}

func setEnabled(enabled []string, platformType platform.Type, on bool) []string {
	name := platformType.String()
	filtered := make([]string, 0, len(enabled))
	for _, item := range enabled {
		if strings.TrimSpace(item) != name {
			filtered = append(filtered, item)
		}
	}
	if on {
		filtered = append(filtered, name)
	}
	return filtered
}

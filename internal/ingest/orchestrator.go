package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/omnicrm/omnicrm/internal/platform"
)

// CredentialSource supplies stored credentials per platform.
type CredentialSource interface {
	CredentialsFor(ctx context.Context, platformType platform.Type) (platform.Credentials, bool, error)
}

// Persister stores one normalized record.
type Persister interface {
	Persist(ctx context.Context, record platform.Record) error
}

// PlatformResult is the outcome of one platform within a sync run.
type PlatformResult struct {
	Platform platform.Type `json:"platform"`
	Synced   int           `json:"synced"`
	Skipped  int           `json:"skipped"`
	Errors   int           `json:"errors"`
	Error    string        `json:"error,omitempty"`
}

// SyncResult is the outcome of a full sync run.
type SyncResult struct {
	StartedAt  time.Time                        `json:"started_at"`
	FinishedAt time.Time                        `json:"finished_at"`
	Platforms  map[platform.Type]PlatformResult `json:"platforms"`
}

// TotalSynced sums newly stored records across platforms.
func (r SyncResult) TotalSynced() int {
	total := 0
	for _, result := range r.Platforms {
		total += result.Synced
	}
	return total
}

// Orchestrator runs sync cycles: every platform with stored credentials is
// fetched concurrently, and one platform failing never stops the others.
type Orchestrator struct {
	registry    *platform.Registry
	credentials CredentialSource
	pipeline    Persister
	logger      *slog.Logger
	timeout     time.Duration
}

// NewOrchestrator creates a sync orchestrator. timeout bounds each platform
// fetch call.
func NewOrchestrator(log *slog.Logger, registry *platform.Registry, credentials CredentialSource, pipeline Persister, timeout time.Duration) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{
		registry:    registry,
		credentials: credentials,
		pipeline:    pipeline,
		logger:      log.With(slog.String("component", "sync_orchestrator")),
		timeout:     timeout,
	}
}

// SyncAll fetches and persists new content from every configured platform.
// Platforms without stored credentials are reported as skipped with zero
// counts, not as failures.
func (o *Orchestrator) SyncAll(ctx context.Context) SyncResult {
	result := SyncResult{
		StartedAt: time.Now().UTC(),
		Platforms: make(map[platform.Type]PlatformResult),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, adapter := range o.registry.List() {
		wg.Add(1)
		go func(adapter platform.Adapter) {
			defer wg.Done()
			platformResult := o.syncPlatform(ctx, adapter)
			mu.Lock()
			result.Platforms[adapter.Type()] = platformResult
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()

	result.FinishedAt = time.Now().UTC()
	o.logger.Info("sync finished",
		slog.Int("platforms", len(result.Platforms)),
		slog.Int("synced", result.TotalSynced()),
		slog.Duration("took", result.FinishedAt.Sub(result.StartedAt)))
	return result
}

func (o *Orchestrator) syncPlatform(ctx context.Context, adapter platform.Adapter) PlatformResult {
	platformType := adapter.Type()
	platformResult := PlatformResult{Platform: platformType}
	log := o.logger.With(slog.String("platform", platformType.String()))

	creds, configured, err := o.credentials.CredentialsFor(ctx, platformType)
	if err != nil {
		platformResult.Error = err.Error()
		log.Error("credential lookup failed", slog.String("error", err.Error()))
		return platformResult
	}
	if !configured {
		log.Debug("no credentials, platform skipped")
		return platformResult
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	items, err := adapter.Fetch(fetchCtx, creds)
	cancel()
	if err != nil {
		platformResult.Error = err.Error()
		log.Warn("fetch failed",
			slog.String("kind", string(platform.KindOf(err))),
			slog.String("error", err.Error()))
		return platformResult
	}

	for _, item := range items {
		record, err := adapter.Normalize(item)
		if err != nil {
			if errors.Is(err, platform.ErrSkipped) {
				platformResult.Skipped++
				continue
			}
			platformResult.Errors++
			log.Warn("normalize failed",
				slog.String("external_id", item.ExternalID),
				slog.String("error", err.Error()))
			continue
		}
		if err := o.pipeline.Persist(ctx, record); err != nil {
			if errors.Is(err, platform.ErrSkipped) {
				platformResult.Skipped++
				continue
			}
			platformResult.Errors++
			log.Warn("persist failed",
				slog.String("external_id", record.ExternalID),
				slog.String("error", err.Error()))
			continue
		}
		platformResult.Synced++
	}

	log.Info("platform synced",
		slog.Int("synced", platformResult.Synced),
		slog.Int("skipped", platformResult.Skipped),
		slog.Int("errors", platformResult.Errors))
	return platformResult
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/omnicrm/omnicrm/db"
	"github.com/omnicrm/omnicrm/internal/branches"
	"github.com/omnicrm/omnicrm/internal/config"
	"github.com/omnicrm/omnicrm/internal/contacts"
	"github.com/omnicrm/omnicrm/internal/db"
	"github.com/omnicrm/omnicrm/internal/handlers"
	"github.com/omnicrm/omnicrm/internal/ingest"
	"github.com/omnicrm/omnicrm/internal/logger"
	"github.com/omnicrm/omnicrm/internal/platform"
	"github.com/omnicrm/omnicrm/internal/platform/adapters/facebook"
	"github.com/omnicrm/omnicrm/internal/platform/adapters/googlemaps"
	"github.com/omnicrm/omnicrm/internal/platform/adapters/instagram"
	"github.com/omnicrm/omnicrm/internal/platform/adapters/telegram"
	"github.com/omnicrm/omnicrm/internal/platform/adapters/yandexmaps"
	"github.com/omnicrm/omnicrm/internal/platform/adapters/youtube"
	"github.com/omnicrm/omnicrm/internal/records"
	"github.com/omnicrm/omnicrm/internal/server"
	"github.com/omnicrm/omnicrm/internal/settings"
	"github.com/omnicrm/omnicrm/internal/version"
	"github.com/omnicrm/omnicrm/internal/webhook"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideAPIClient(cfg config.Config) *platform.APIClient {
	return platform.NewAPIClient(cfg.Sync.FetchTimeout(), cfg.Sync.RatePerSecond)
}

func provideTelegramAdapter(log *slog.Logger, cfg config.Config) *telegram.Adapter {
	return telegram.New(log, cfg.Sync.FetchTimeout())
}

func provideRegistry(log *slog.Logger, client *platform.APIClient, telegramAdapter *telegram.Adapter) *platform.Registry {
	registry := platform.NewRegistry()
	registry.MustRegister(telegramAdapter)
	registry.MustRegister(instagram.New(log, client))
	registry.MustRegister(facebook.New(log, client))
	registry.MustRegister(youtube.New(log, client))
	registry.MustRegister(googlemaps.New(log, client))
	registry.MustRegister(yandexmaps.New(log, client))
	return registry
}

func provideResolver(log *slog.Logger, store *contacts.Store) *contacts.Resolver {
	return contacts.NewResolver(log, store)
}

func providePipeline(log *slog.Logger, recordStore *records.Store, resolver *contacts.Resolver, branchStore *branches.Store) *ingest.Pipeline {
	return ingest.NewPipeline(log, recordStore, resolver, branchStore)
}

func provideSettingsService(log *slog.Logger, store *settings.Store) *settings.Service {
	return settings.NewService(log, store)
}

func provideOrchestrator(log *slog.Logger, cfg config.Config, registry *platform.Registry, settingsService *settings.Service, pipeline *ingest.Pipeline) *ingest.Orchestrator {
	return ingest.NewOrchestrator(log, registry, settingsService, pipeline, cfg.Sync.FetchTimeout())
}

func provideScheduler(log *slog.Logger, cfg config.Config, orchestrator *ingest.Orchestrator) (*ingest.Scheduler, error) {
	return ingest.NewScheduler(log, orchestrator, cfg.Sync.Schedule)
}

func provideWebhookService(log *slog.Logger, telegramAdapter *telegram.Adapter, settingsService *settings.Service, pipeline *ingest.Pipeline) *webhook.Service {
	return webhook.NewService(log, telegramAdapter, settingsService, pipeline)
}

func main() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			contacts.NewStore,
			records.NewStore,
			branches.NewStore,
			settings.NewStore,

			provideAPIClient,
			provideTelegramAdapter,
			provideRegistry,
			provideResolver,
			providePipeline,
			provideSettingsService,
			provideOrchestrator,
			provideScheduler,
			provideWebhookService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewIntegrationsHandler),
			provideServerHandler(handlers.NewTelegramHandler),
			provideServerHandler(handlers.NewReviewsHandler),

			provideServer,
		),
		fx.Invoke(
			runMigrations,
			startScheduler,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func runMigrations(logger *slog.Logger, cfg config.Config) error {
	migrationsDir, err := fs.Sub(migrations.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.Migrate(logger, cfg.Postgres, migrationsDir)
}

func startScheduler(lc fx.Lifecycle, scheduler *ingest.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting omnicrm", slog.String("version", version.Info()))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

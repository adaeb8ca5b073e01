package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	votetallyengine "livepoll/contexts/polling/vote-tally-engine"
	boltadapter "livepoll/contexts/polling/vote-tally-engine/adapters/bolt"
	"livepoll/contexts/polling/vote-tally-engine/adapters/memory"
	postgresadapter "livepoll/contexts/polling/vote-tally-engine/adapters/postgres"
	redisadapter "livepoll/contexts/polling/vote-tally-engine/adapters/redis"
	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	"livepoll/contexts/polling/vote-tally-engine/ports"
	"livepoll/internal/platform/cache"
	"livepoll/internal/platform/config"
	"livepoll/internal/platform/db"
	"livepoll/internal/platform/httpserver"
	"livepoll/internal/platform/messaging"
	"livepoll/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server   *httpserver.Server
	hub      *messaging.Hub
	module   votetallyengine.Module
	postgres *db.Postgres
	redis    *cache.Redis
	bolt     *boltadapter.Ledger
	logger   *slog.Logger
}

// BuildAPI loads configuration from the environment and wires the API.
func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return BuildAPIFromConfig(cfg, NewLogger(cfg, os.Stdout))
}

// BuildAPIFromConfig wires the ledger, counter store, broadcast hub and HTTP
// server selected by cfg. On error every handle opened so far is closed.
func BuildAPIFromConfig(cfg config.Config, logger *slog.Logger) (_ *APIApp, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "api")

	app := &APIApp{logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observer := metrics.New(metricsNamespace(cfg.ServiceName), registry)

	seed := pollsFromConfig(cfg.Polls)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		catalog   ports.PollCatalog
		ledger    ports.VoteLedger
		store     *memory.Store
		readiness []httpserver.ReadinessCheck
	)
	switch cfg.LedgerBackend {
	case config.LedgerPostgres:
		pg, connectErr := db.Connect(db.Options{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.PostgresMaxOpen,
			MaxIdleConns:    cfg.PostgresMaxIdle,
			ConnMaxLifetime: 30 * time.Minute,
			Logger:          logger,
		})
		if connectErr != nil {
			return nil, connectErr
		}
		app.postgres = pg
		readiness = append(readiness, httpserver.ReadinessCheck{Name: "postgres", Check: pg.Ping})
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if cfg.PostgresAutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		if err := repo.SeedPolls(ctx, seed); err != nil {
			return nil, err
		}
		catalog, ledger = repo, repo
	case config.LedgerBolt:
		boltLedger, openErr := boltadapter.Open(boltadapter.Options{
			DataDir: cfg.BoltDataDir,
			Clock:   postgresadapter.SystemClock{},
			IDGen:   postgresadapter.UUIDGenerator{},
			Logger:  logger,
		})
		if openErr != nil {
			return nil, openErr
		}
		app.bolt = boltLedger
		store = memory.NewStore(seed)
		catalog, ledger = store, boltLedger
	default:
		store = memory.NewStore(seed)
		catalog, ledger = store, store
	}

	var counters ports.CounterStore
	switch cfg.CounterBackend {
	case config.CounterRedis:
		client, connectErr := cache.ConnectRedis(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if connectErr != nil {
			return nil, connectErr
		}
		app.redis = client
		readiness = append(readiness, httpserver.ReadinessCheck{Name: "redis", Check: client.Ping})
		counters = redisadapter.NewCounterStore(client.Client, cfg.RedisKeyPrefix, logger)
	default:
		counters = memory.NewCounterStore()
	}

	app.hub = messaging.NewHub(cfg.SubscriberBuffer, observer, logger)
	app.module = votetallyengine.NewModule(votetallyengine.Dependencies{
		Polls:     catalog,
		Ledger:    ledger,
		Counters:  counters,
		Broadcast: app.hub,
		Sessions:  postgresadapter.UUIDGenerator{},
		Observer:  observer,
		Logger:    logger,
	})
	app.module.Store = store

	app.server = httpserver.New(app.module, httpserver.Options{
		Addr:          normalizeAddr(cfg.HTTPPort),
		SessionSecret: cfg.SessionSecret,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Readiness:     readiness,
		Logger:        logger,
	})

	logger.Info("api app wired",
		"event", "bootstrap_api_wired",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"ledger_backend", cfg.LedgerBackend,
		"counter_backend", cfg.CounterBackend,
		"polls_seeded", len(seed),
	)
	return app, nil
}

// Run serves until ctx is done, then drains the HTTP server and releases
// results subscribers.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		a.hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	err := group.Wait()
	a.logger.Info("api app stopped",
		"event", "bootstrap_api_stopped",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return err
}

func (a *APIApp) Handler() http.Handler {
	return a.server.Handler()
}

func (a *APIApp) Module() votetallyengine.Module {
	return a.module
}

func (a *APIApp) Close() error {
	var errs []error
	if a.bolt != nil {
		errs = append(errs, a.bolt.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg config.Config, out io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(out, options))
	}
	return slog.New(slog.NewJSONHandler(out, options))
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func pollsFromConfig(seeds []config.PollSeed) []entities.Poll {
	polls := make([]entities.Poll, 0, len(seeds))
	for _, seed := range seeds {
		options := make([]entities.PollOption, 0, len(seed.Options))
		for _, option := range seed.Options {
			options = append(options, entities.PollOption{
				OptionID: option.ID,
				Title:    option.Title,
			})
		}
		polls = append(polls, entities.Poll{
			PollID:  seed.ID,
			Title:   seed.Title,
			Options: options,
		})
	}
	return polls
}

func metricsNamespace(serviceName string) string {
	value := strings.ToLower(strings.TrimSpace(serviceName))
	value = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(value)
	if value == "" {
		return "livepoll"
	}
	return value
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") || strings.Contains(value, ":") {
		return value
	}
	return ":" + value
}

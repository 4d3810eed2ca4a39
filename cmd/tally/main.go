// Command tally serves the Tally bookkeeping API: users, groups, categories
// and entries over PostgreSQL, with a read-through cache kept coherent across
// instances by NATS invalidation messages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	tallyhttp "github.com/Strob0t/Tally/internal/adapter/http"
	"github.com/Strob0t/Tally/internal/adapter/memory"
	tallynats "github.com/Strob0t/Tally/internal/adapter/nats"
	tallyotel "github.com/Strob0t/Tally/internal/adapter/otel"
	"github.com/Strob0t/Tally/internal/adapter/postgres"
	"github.com/Strob0t/Tally/internal/cache"
	"github.com/Strob0t/Tally/internal/config"
	"github.com/Strob0t/Tally/internal/logger"
	"github.com/Strob0t/Tally/internal/middleware"
	"github.com/Strob0t/Tally/internal/port/database"
	"github.com/Strob0t/Tally/internal/port/eventbus"
	"github.com/Strob0t/Tally/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run serves until a signal arrives or a component fails. The returned error
// has already been logged.
func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		err = fmt.Errorf("config: %w", err)
		slog.Error("fatal", "error", err)
		return err
	}

	log, closeLog := logger.New(cfg.Logging)
	slog.SetDefault(log)
	// The fatal record must reach an async logger before it is closed.
	defer func() {
		if err != nil {
			slog.Error("fatal", "error", err)
		}
		closeLog.Close()
	}()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"log_level", cfg.Logging.Level,
		"nats", cfg.NATS.URL != "",
		"otel", cfg.OTEL.Endpoint != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownOTEL, err := tallyotel.Init(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTEL(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	// --- Store ---
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Cache ---
	metrics, err := tallyotel.NewCacheMetrics()
	if err != nil {
		return fmt.Errorf("cache metrics: %w", err)
	}
	c := cache.New(
		cache.WithTTLs(cfg.Cache.TTLs()),
		cache.WithObserver(metrics),
		cache.WithLogger(log),
	)
	reg, err := metrics.ObserveSize(tallyotel.Meter(), c)
	if err != nil {
		return fmt.Errorf("cache size gauge: %w", err)
	}
	defer func() { _ = reg.Unregister() }()

	// --- Invalidation bus ---
	var bus eventbus.Bus = eventbus.Nop{}
	var busConnected func() bool
	if cfg.NATS.URL != "" {
		nb, err := tallynats.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = nb.Close() }()
		bus, busConnected = nb, nb.IsConnected
	}

	// --- Services ---
	layer := service.NewCacheLayer(c, bus)
	users := service.NewUserService(store, layer)
	groups := service.NewGroupService(store, layer, users)
	categories := service.NewCategoryService(store, layer, groups)
	entries := service.NewEntryService(store, layer, categories)

	handlers := &tallyhttp.Handlers{
		Users:        users,
		Groups:       groups,
		Categories:   categories,
		Entries:      entries,
		Summaries:    service.NewSummaryService(layer, groups, categories, entries),
		Cache:        service.NewCacheService(layer),
		Store:        store,
		BusConnected: busConnected,
		BodyLimit:    cfg.Server.BodyLimit,
		Clock:        c.Clock(),
	}

	// --- HTTP ---
	r := chi.NewRouter()

	// Middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(tallyotel.HTTPMiddleware(cfg.OTEL.ServiceName))
	r.Use(tallyhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(tallyhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tallyhttp.SecurityHeaders)
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	tallyhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return cache.NewSweeper(c, cfg.Cache.SweepInterval).Run(gctx)
	})
	g.Go(func() error {
		return layer.Listen(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// openStore selects the record store named by the config. The returned
// function releases it.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("postgres connected")

		if cfg.Postgres.AutoMigrate {
			if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("migrations: %w", err)
			}
			version, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
			if err != nil {
				slog.Warn("read migration version", "error", err)
			}
			slog.Info("migrations applied", "version", version)
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/travel-karte/api"
	"github.com/pkordes/travel-karte/internal/config"
	"github.com/pkordes/travel-karte/internal/excel"
	"github.com/pkordes/travel-karte/internal/handler"
	"github.com/pkordes/travel-karte/internal/live"
	"github.com/pkordes/travel-karte/internal/metrics"
	"github.com/pkordes/travel-karte/internal/middleware"
	"github.com/pkordes/travel-karte/internal/repo"
	"github.com/pkordes/travel-karte/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live change feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

// relay is a broker that needs a loop forwarding remote signals to the hub.
type relay interface {
	Run(ctx context.Context) error
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Database ---------------------------------------------------------
	// pgxpool.New does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	// --- Live changes -----------------------------------------------------
	// The hub fans signals out to this instance's watchers. With more than
	// one instance, a broker relays signals between them.
	hub := live.NewHub(logger)
	var (
		broker  live.Broker = hub
		relayer relay
	)
	switch cfg.LiveBackend {
	case config.LivePostgres:
		pg := live.NewPGBroker(pool, hub, logger)
		broker, relayer = pg, pg
	case config.LiveRedis:
		client, err := live.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		rb := live.NewRedisBroker(client, hub, logger)
		broker, relayer = rb, rb
	}
	logger.Info("live backend selected", "backend", cfg.LiveBackend)

	// --- Services ---------------------------------------------------------
	kartes := repo.NewKarteRepo(pool)
	karteSvc := service.NewKarteService(kartes, broker, logger)
	exportSvc := service.NewExportService(kartes, excel.NewGenerator(), time.Now)
	m := metrics.New()
	m.WatchSubscriptions(func() int { return hub.Subscribers() })

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Metrics →
	// Recoverer → CORS → body limit. Recoverer sits inside the logger and
	// metrics so a panic is still recorded as a 500.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(middleware.NewMetricsHandler(m))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	handler.NewServer(karteSvc, exportSvc, logger,
		handler.WithRecorder(m),
		handler.WithOpenAPI(api.OpenAPI),
		handler.WithMetricsHandler(m.Handler()),
		handler.WithAllowedOrigins(cfg.CORSOrigins),
	).Register(r)

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	// The websocket upgrade clears these deadlines on the hijacked conn.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	if relayer != nil {
		g.Go(func() error {
			if err := relayer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("live relay: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown: on signal or a failed component, give in-flight
	// requests up to 15 seconds to complete before forcefully closing.
	// Watch streams end as soon as ctx is cancelled.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

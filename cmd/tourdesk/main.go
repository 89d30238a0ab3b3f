// Command tourdesk runs the booking engine as a standalone HTTP server.
//
//	tourdesk -config tourdesk.yaml
//
// Every setting can also come from a .env file or TOURDESK_* variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/tourdesk"
	"github.com/xraph/tourdesk/api"
	audithook "github.com/xraph/tourdesk/audit_hook"
	"github.com/xraph/tourdesk/cache"
	rediscache "github.com/xraph/tourdesk/cache/redis"
	"github.com/xraph/tourdesk/config"
	"github.com/xraph/tourdesk/natspub"
	"github.com/xraph/tourdesk/observability"
	"github.com/xraph/tourdesk/store"
	"github.com/xraph/tourdesk/store/memory"
	mongostore "github.com/xraph/tourdesk/store/mongo"
	"github.com/xraph/tourdesk/store/postgres"
)

func main() {
	configPath := flag.String("config", "tourdesk.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("tourdesk exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, _ := cfg.Level() //nolint:errcheck // checked by config.Load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}

	loc, _ := cfg.Location() //nolint:errcheck // checked by config.Load
	opts := []tourdesk.Option{
		tourdesk.WithLogger(logger),
		tourdesk.WithDefaultCapacity(cfg.Booking.DefaultCapacity),
		tourdesk.WithMaxRangeDays(cfg.Booking.MaxRangeDays),
		tourdesk.WithLocation(loc),
	}

	c, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return errors.Join(err, s.Close())
	}
	defer closeCache() //nolint:errcheck // best effort on exit
	opts = append(opts, tourdesk.WithAvailabilityCache(c, cfg.Redis.TTL))

	reg := prometheus.NewRegistry()
	if cfg.Metrics {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, tourdesk.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))))
	}

	if cfg.Audit {
		auditLog := logger.With("component", "audit")
		opts = append(opts, tourdesk.WithPlugin(audithook.New(
			audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
				auditLog.InfoContext(ctx, evt.Action,
					"resource", evt.Resource,
					"resource_id", evt.ResourceID,
					"outcome", evt.Outcome,
					"severity", evt.Severity,
					"metadata", evt.Metadata,
				)
				return nil
			}),
			audithook.WithLogger(logger),
		)))
	}

	if cfg.NATS.URL != "" {
		pub, err := natspub.Connect(cfg.NATS.URL,
			natspub.WithPrefix(cfg.NATS.SubjectPrefix),
			natspub.WithLogger(logger),
		)
		if err != nil {
			return errors.Join(err, s.Close())
		}
		opts = append(opts, tourdesk.WithPlugin(pub))
	}

	eng := tourdesk.New(s, opts...)
	if err := eng.Start(ctx); err != nil {
		return err
	}

	e := api.NewServer(eng, api.WithLogger(logger), api.WithBasePath(cfg.HTTP.BasePath))
	e.Use(middleware.RequestID())
	if cfg.Metrics {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			_ = eng.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	httpErr := e.Shutdown(shutdownCtx)
	return errors.Join(httpErr, eng.Stop(shutdownCtx))
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		var opts []postgres.Option
		if cfg.Store.PostgresTrace {
			opts = append(opts, postgres.WithTracing())
		}
		return postgres.Open(cfg.Store.PostgresDSN, opts...)
	case config.DriverMongo:
		return mongostore.Connect(cfg.Store.MongoURI, cfg.Store.MongoDatabase)
	default:
		return memory.New(), nil
	}
}

// openCache returns a Redis cache when an address is configured and an
// in-process cache otherwise. The close func releases the Redis client.
func openCache(ctx context.Context, cfg config.Config) (cache.Cache, func() error, error) {
	if cfg.Redis.Addr == "" {
		return cache.NewMemory(), func() error { return nil }, nil
	}
	c, err := rediscache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"

	"github.com/technosupport/incident-analytics/internal/alerts"
	"github.com/technosupport/incident-analytics/internal/analytics"
	"github.com/technosupport/incident-analytics/internal/api"
	"github.com/technosupport/incident-analytics/internal/config"
	"github.com/technosupport/incident-analytics/internal/data"
	"github.com/technosupport/incident-analytics/internal/export"
	"github.com/technosupport/incident-analytics/internal/health"
	"github.com/technosupport/incident-analytics/internal/logging"
	"github.com/technosupport/incident-analytics/internal/metrics"
	"github.com/technosupport/incident-analytics/internal/middleware"
	"github.com/technosupport/incident-analytics/internal/notify"
	"github.com/technosupport/incident-analytics/internal/ratelimit"
	"github.com/technosupport/incident-analytics/internal/reports"
	"github.com/technosupport/incident-analytics/internal/search"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "incident-analytics",
		Usage:   "Read-only analytics API over security camera incidents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config/default.yaml",
				Usage:   "Path to the YAML config file (hot-reloaded)",
				Sources: cli.EnvVars("CONFIG_PATH"),
			},
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Serve a seeded in-memory store instead of Postgres",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override logging.level from the config file",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfgPath := cmd.String("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cmd.IsSet("demo") {
		cfg.Server.Demo = cmd.Bool("demo")
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if cfg.Server.Version == "dev" {
		cfg.Server.Version = version
	}

	closer, err := logging.Init(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	inner, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	store := data.NewGuardedStore(inner, data.GuardConfig{
		Timeout:             cfg.Store.Timeout,
		ConsecutiveFailures: cfg.Store.ConsecutiveFailures,
		OpenTimeout:         cfg.Store.OpenTimeout,
	}, collector)

	watcher := config.NewWatcher(cfgPath, cfg)
	watcher.Start(ctx)

	engine := analytics.NewEngine(store)
	synth := alerts.NewSynthesizer(engine, watcher.Thresholds)

	deps := api.Deps{
		Engine:            engine,
		Reports:           reports.NewGenerator(engine),
		Alerts:            synth,
		Search:            search.NewEngine(store),
		Exporter:          export.NewExporter(store, cfg.Export.MaxRecords),
		Metrics:           collector,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		AlertDefaultLimit: cfg.Alerts.DefaultLimit,
		StreamInterval:    cfg.Server.StreamInterval,
	}

	// Rate limiting
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		limiter := ratelimit.NewLimiter(rdb, cfg.Redis.Salt)
		deps.RateLimit = middleware.NewRateLimitMiddleware(limiter, middleware.Config{GlobalIP: cfg.RateLimit}, watcher.RateLimit, collector)
		log.Info().Str("addr", cfg.Redis.Addr).Int("rate", cfg.RateLimit.Rate).Dur("window", cfg.RateLimit.Window).Msg("rate limiting enabled")
	}

	// Alert notifications
	if cfg.Notify.Enabled && cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("incident-analytics"), nats.MaxReconnects(-1))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable, alert notifications disabled")
		} else {
			defer nc.Drain()
			notifier := notify.NewNotifier(
				notify.Config{Interval: cfg.Notify.Interval, MinSeverity: alerts.Severity(cfg.Notify.MinSeverity)},
				synth,
				notify.NewNATSPublisher(nc, cfg.Notify.Subject, cfg.Notify.RetryMax),
				notify.NewDedup(cfg.Notify.DedupSize, cfg.Notify.DedupTTL),
				collector,
			)
			notifier.Start()
			defer notifier.Stop()
			log.Info().Str("subject", cfg.Notify.Subject).Msg("alert notifications enabled")
		}
	}

	// Health
	healthSvc := health.NewService(cfg.Server.Version, 2*time.Second, map[string]health.Pinger{"store": store})
	deps.Health = healthSvc
	grpcSrv, hs := health.NewGRPCServer(grpc.ChainUnaryInterceptor(middleware.UnaryLogger()))
	healthScheduler := health.NewScheduler(health.SchedulerConfig{Interval: 15 * time.Second}, healthSvc, hs)
	healthScheduler.Start()
	defer healthScheduler.Stop()

	errCh := make(chan error, 2)

	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		go func() {
			log.Info().Int("port", cfg.Server.GRPCPort).Msg("gRPC health server listening")
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		defer grpcSrv.GracefulStop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.Server.Port).Bool("demo", cfg.Server.Demo).Str("version", cfg.Server.Version).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("server stopped")
	return nil
}

// openStore returns the Postgres-backed store, or a seeded in-memory one in
// demo mode, with its cleanup func.
func openStore(cfg config.Config) (data.IncidentStore, func(), error) {
	if cfg.Server.Demo {
		log.Warn().Msg("demo mode: serving seeded in-memory incidents")
		return data.SeedDemo(time.Now(), 15, uint64(time.Now().UnixNano())), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("DB open error: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		// Startup continues; the guarded store reports unavailability per request.
		log.Error().Err(err).Str("host", cfg.Database.Host).Msg("DB ping failed")
	}
	return data.NewModels(db), func() { db.Close() }, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loyaltykit/adapters/jsonfile"
	mem "loyaltykit/adapters/memory"
	redisAdapter "loyaltykit/adapters/redis"
	sqlxAdapter "loyaltykit/adapters/sqlx"
	"loyaltykit/analytics"
	"loyaltykit/api/httpapi"
	"loyaltykit/config"
	"loyaltykit/core"
	"loyaltykit/engine"
	"loyaltykit/integrations/webhook"
	"loyaltykit/leaderboard"
	"loyaltykit/loyalty"
	"loyaltykit/realtime"
)

// App aggregates the assembled server components.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Hub     *realtime.Hub
	Board   leaderboard.Board
	Service *engine.LoyaltyService
	Handler http.Handler
	Server  *http.Server
	Metrics MetricsServer
}

// MetricsServer wraps the optional Prometheus endpoint so dependency wiring
// can tell it apart from the main API server. Server is nil when metrics are
// disabled.
type MetricsServer struct {
	*http.Server
}

func provideConfig(_ context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Environment == config.EnvProduction {
		config.LoadSecretsFromEnv(cfg)
	}
	return cfg, nil
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideBoard(cfg *config.Config) leaderboard.Board {
	if !cfg.Rewards.Leaderboard {
		return nil
	}
	return leaderboard.NewStandings()
}

func provideLedger(ctx context.Context, cfg *config.Config) (engine.Ledger, error) {
	return setupLedger(ctx, cfg)
}

func provideService(cfg *config.Config, logger *slog.Logger, hub *realtime.Hub, board leaderboard.Board, ledger engine.Ledger) *engine.LoyaltyService {
	opts := []loyalty.Option{
		loyalty.WithLedger(ledger),
		loyalty.WithRealtime(hub),
		loyalty.WithLogger(logger),
		loyalty.WithHistoryPageSize(cfg.Rewards.HistoryPageSize),
		loyalty.WithDispatchMode(dispatchMode(cfg)),
	}
	if board != nil {
		opts = append(opts, loyalty.WithLeaderboard(board))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, loyalty.WithHooks(analytics.NewPrometheusHook()))
	}
	if len(cfg.Rewards.WebhookEndpoints) > 0 {
		sink := webhook.New(cfg.Rewards.WebhookEndpoints,
			webhook.WithEventTypes(webhookEvents...))
		opts = append(opts, loyalty.WithHooks(sink))
	}
	return loyalty.New(opts...)
}

func provideHandler(svc *engine.LoyaltyService, hub *realtime.Hub, board leaderboard.Board, cfg *config.Config) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		Board:            board,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func provideMetricsServer(cfg *config.Config) MetricsServer {
	if !cfg.Metrics.Enabled {
		return MetricsServer{}
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	return MetricsServer{&http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}}
}

// webhookEvents lists the events worth pushing to external systems. Routine
// point awards stay internal.
var webhookEvents = []core.EventType{core.EventLevelUp, core.EventMilestoneUnlocked}

func dispatchMode(cfg *config.Config) engine.DispatchMode {
	if cfg.Rewards.DispatchMode == "sync" {
		return engine.DispatchSync
	}
	return engine.DispatchAsync
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	out := os.Stdout
	if cfg.Logging.Output == "stderr" {
		out = os.Stderr
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	var result []slog.Attr
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupLedger creates the appropriate ledger adapter based on configuration.
func setupLedger(_ context.Context, cfg *config.Config) (engine.Ledger, error) {
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), nil
	case "redis":
		return redisAdapter.New(cfg.Storage.Redis)
	case "sql":
		store, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate ledger schema: %w", err)
		}
		return store, nil
	case "file":
		return jsonfile.New(cfg.Storage.File.Path)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}

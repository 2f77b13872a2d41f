package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MendesCorporation/automata/internal/api"
	"github.com/MendesCorporation/automata/internal/config"
	"github.com/MendesCorporation/automata/internal/feedback"
	"github.com/MendesCorporation/automata/internal/identity"
	"github.com/MendesCorporation/automata/internal/quarantine"
	"github.com/MendesCorporation/automata/internal/ranking"
	"github.com/MendesCorporation/automata/internal/registry"
	"github.com/MendesCorporation/automata/internal/storage"
	"github.com/MendesCorporation/automata/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "optional path to a non-secret YAML config seed")
	dataDir := flag.String("data-dir", "./data", "directory for operator settings overrides")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("starting registryd", "env", cfg.Env, "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.NewStore(ctx, storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Name:     cfg.Database.Name,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		PoolMax:  cfg.Database.PoolMax,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	settingsStore, err := config.NewSettingsStore(*dataDir)
	if err != nil {
		slog.Error("failed to load settings store", "error", err)
		os.Exit(1)
	}

	issuer := identity.NewTokenIssuer(cfg.JWTSecret)
	registrySvc := registry.NewService(store, cfg.IsProduction())
	rankingEngine := ranking.NewEngine(store, issuer, cfg.JWTSecret, cfg.IsProduction(), cfg.SearchDebug)
	feedbackPipeline := feedback.NewPipeline(store, settingsStore, cfg.IsProduction())
	quarantineEngine := quarantine.NewEngine(store, settingsStore, cfg.IsProduction())

	var redisClient *redis.Client
	var replayGuard *identity.ReplayGuard
	var leader *quarantine.Leader
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		leader = quarantine.NewLeader(redisClient)

		if cfg.AutoReview.ExecKeyReplayGuard {
			replayGuard, err = identity.NewReplayGuard(cfg.Redis.Addr, cfg.Redis.Password)
			if err != nil {
				slog.Error("failed to connect replay guard to redis", "error", err)
				os.Exit(1)
			}
			defer replayGuard.Close()
			issuer.SetReplayGuard(replayGuard)
			slog.Info("execution-key replay guard enabled")
		}
	}

	var tp *telemetry.Provider
	if cfg.Telemetry.Enabled {
		tp, err = telemetry.NewProvider(telemetry.Config{
			Enabled:  true,
			Exporter: "otlp",
			Endpoint: cfg.Telemetry.Endpoint,
			Insecure: cfg.Telemetry.Insecure,
		})
		if err != nil {
			slog.Warn("telemetry initialization failed, continuing without tracing", "error", err)
			tp = nil
		} else {
			slog.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
		}
	}
	if tp == nil {
		tp = telemetry.NoopProvider()
	}

	handlerAPI := api.New(store, issuer, registrySvc, rankingEngine, feedbackPipeline, quarantineEngine,
		cfg.JWTSecret, cfg.TrustProxy, cfg.SearchDebug)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handlerAPI,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	instanceID := uuid.NewString()
	if leader != nil {
		go runAutoReviewLoop(ctx, quarantineEngine, leader, instanceID, cfg.AutoReview.Interval)
	} else {
		go runAutoReviewLoop(ctx, quarantineEngine, nil, instanceID, cfg.AutoReview.Interval)
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("server error", "error", err)
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	}

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown error", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}

	slog.Info("registryd stopped")
}

// runAutoReviewLoop drives the periodic quarantine sweep. When a
// Leader is configured, a tick runs the sweep only if this instance
// takes the SETNX lock, and the lock is released when the sweep ends.
func runAutoReviewLoop(ctx context.Context, engine *quarantine.Engine, leader *quarantine.Leader, instanceID string, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if leader != nil {
				acquired, err := leader.TryAcquire(ctx, instanceID)
				if err != nil {
					slog.Error("auto-review leader election failed", "error", err)
					continue
				}
				if !acquired {
					slog.Debug("auto-review skipped, another instance holds the lock")
					continue
				}
			}

			summary, err := engine.RunAutoReview(ctx)
			if err != nil {
				slog.Error("auto-review sweep failed", "error", err)
				continue
			}
			slog.Info("auto-review sweep completed",
				"quarantined", summary.Quarantined,
				"reactivated", summary.Reactivated,
				"banned", summary.Banned,
			)

			if leader != nil {
				if err := leader.Release(ctx, instanceID); err != nil {
					slog.Error("auto-review leader release failed", "error", err)
				}
			}
		}
	}
}

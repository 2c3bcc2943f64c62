package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctchen222/Connect-Four/internal/api/controller"
	"ctchen222/Connect-Four/internal/auth"
	"ctchen222/Connect-Four/internal/cleanup"
	"ctchen222/Connect-Four/internal/config"
	"ctchen222/Connect-Four/internal/db"
	"ctchen222/Connect-Four/internal/events"
	"ctchen222/Connect-Four/internal/hub"
	"ctchen222/Connect-Four/internal/logger"
	"ctchen222/Connect-Four/internal/repository"
	"ctchen222/Connect-Four/internal/server"
	"ctchen222/Connect-Four/internal/service"
	"ctchen222/Connect-Four/internal/telemetry"

	"github.com/gin-gonic/gin"
)

const purgeInterval = 10 * time.Minute

// store bundles the session backend chosen by configuration.
type store struct {
	repo   repository.SessionRepository
	bus    events.Bus
	health server.HealthFunc
	close  func() error
	purger cleanup.Purger
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		conn, err := db.OpenSQLite(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		repo := repository.NewSQLiteSessionRepository(conn, cfg.SessionTTL)
		return &store{
			repo:   repo,
			bus:    events.NewLocalBus(),
			health: conn.PingContext,
			close:  conn.Close,
			purger: repo,
		}, nil

	default:
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:   repository.NewRedisSessionRepository(rdb, cfg.SessionTTL),
			bus:    events.NewRedisBus(rdb),
			health: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			close:  rdb.Close,
		}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry before the logger so the otelslog bridge picks up
	// the real logger provider.
	shutdown, err := telemetry.InitOtel(ctx, telemetry.Options{
		Enabled:       cfg.OtelEnabled,
		CollectorAddr: cfg.OtelCollectorAddr,
		Version:       cfg.ServiceVersion,
	})
	if err != nil {
		slog.Error("Failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		slog.Error("Failed to create metrics", "error", err)
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open session store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer st.close()

	games := service.NewGameService(st.repo, st.bus, metrics, service.Options{
		DefaultWidth:  cfg.BoardWidth,
		DefaultHeight: cfg.BoardHeight,
	})
	tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)

	h := hub.NewHub(games, st.bus, metrics)
	go func() {
		if err := h.Run(ctx); err != nil {
			slog.Error("Hub stopped", "error", err)
			stop()
		}
	}()

	if st.purger != nil {
		go cleanup.NewWorker(st.purger, purgeInterval).Run(ctx)
	}

	srv := server.NewServer(h, controller.NewGameController(games, tokens), tokens, st.health)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("HTTP server started", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	select {
	case <-h.Done():
	case <-shutdownCtx.Done():
	}

	slog.Info("Server exiting")
}

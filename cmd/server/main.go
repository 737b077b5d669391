package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/stockroom/internal/config"
	"github.com/JonMunkholm/stockroom/internal/core"
	"github.com/JonMunkholm/stockroom/internal/logging"
	"github.com/JonMunkholm/stockroom/internal/store"
	"github.com/JonMunkholm/stockroom/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend", cfg.Store.Backend,
		"serialize_writes", cfg.Engine.SerializeWrites,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	st, err := store.Open(ctx, cfg)
	if st == nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	if err != nil {
		// Reachable later; serve the empty snapshot meanwhile.
		slog.Warn("store not reachable at startup", "store", st.Name(), "error", err)
	}

	service := core.NewService(st, core.Options{
		SerializeWrites:  cfg.Engine.SerializeWrites,
		WriteWait:        cfg.Engine.WriteWaitTime,
		OperationTimeout: cfg.Engine.OperationTimeout,
		JournalSize:      cfg.Engine.JournalSize,
	})

	loadCtx, cancelLoad := context.WithTimeout(ctx, core.DefaultLoadTimeout)
	if err := service.Load(loadCtx); err != nil {
		slog.Warn("initial load failed, starting with an empty inventory", "error", err)
	} else {
		slog.Info("inventory loaded", "store", st.Name(), "categories", service.Status().Categories)
	}
	cancelLoad()

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	go service.StartRefreshScheduler(refreshCtx, cfg.Engine.RefreshInterval)

	server := web.NewServer(service, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		stopRefresh()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := service.Shutdown(shutdownCtx); err != nil {
			slog.Error("store close error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"groupledger/internal/api"
	"groupledger/internal/auth"
	"groupledger/internal/config"
	"groupledger/internal/service"
	"groupledger/internal/storage"
	"groupledger/internal/storage/memory"
	"groupledger/internal/storage/sqlite"
	"groupledger/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load(os.Getenv)
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	switch cfg.Backend {
	case "memory":
		store = memory.New()
	default:
		s, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		store = s
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", cfg.Backend, "database", cfg.SQLiteDBPath)

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)
	server := api.New(
		service.NewAuthService(auth.NewPasswordAuthenticator(store), tokens),
		service.NewGroupService(store),
		service.NewGroupLedgerService(store),
		tokens,
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

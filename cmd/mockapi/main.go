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

	"golang.org/x/sync/errgroup"

	"portal-chat/internal/config"
	"portal-chat/internal/db"
	"portal-chat/internal/mockapi"
	"portal-chat/internal/observability"
	"portal-chat/internal/repositories"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mock backend stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.SlogLevel(), "portal-mockapi")

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer database.Close()

	handler := mockapi.NewHandler(
		repositories.NewConversationRepo(database),
		repositories.NewMessageRepo(database),
		repositories.NewTypingRepo(database),
		repositories.NewOrderRepo(database),
		mockapi.DefaultTypingTTL,
		logger,
	)
	srv := &http.Server{
		Addr:              cfg.MockAPIAddr,
		Handler:           mockapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("mock backend listening", "addr", cfg.MockAPIAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

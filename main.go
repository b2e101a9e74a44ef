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

	"portal-chat/internal/api"
	"portal-chat/internal/config"
	"portal-chat/internal/dashboard"
	"portal-chat/internal/notify"
	"portal-chat/internal/observability"
	"portal-chat/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gateway stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.SlogLevel(), cfg.ServiceName)
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}

	client := api.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)

	publisher := notify.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	logger.Info("event publisher ready", "mode", notify.PublisherMode(publisher))

	hub := ws.NewHub(logger)
	notifier := notify.Multi{hub, notify.NewAMQPNotifier(publisher, cfg.ServiceName)}

	manager := dashboard.NewManager(client, dashboard.Options{
		ChatPollInterval:   cfg.ChatPollInterval,
		UnreadPollInterval: cfg.UnreadPollInterval,
		TypingTimeout:      cfg.TypingTimeout,
		IdleTTL:            cfg.SessionIdleTTL,
		Icon:               cfg.NotificationIcon,
		RendererFor:        func(email string) dashboard.Renderer { return hub.RendererFor(email) },
		Notifier:           notifier,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(cfg, logger, routerDeps{manager: manager, orders: client, hub: hub, notifier: notifier}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gateway listening", "addr", cfg.Addr, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		manager.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		manager.Shutdown(shutdownCtx)
		err := srv.Shutdown(shutdownCtx)
		if tracingErr := shutdownTracing(shutdownCtx); tracingErr != nil {
			logger.Warn("tracing shutdown", "err", tracingErr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("gateway stopped")
	return nil
}

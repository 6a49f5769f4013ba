package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dtroode/workdesk-client/internal/api/rest"
	"github.com/dtroode/workdesk-client/internal/config"
	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/model"
	"github.com/dtroode/workdesk-client/internal/service"
	storage "github.com/dtroode/workdesk-client/internal/storage/sqlite"
	"github.com/dtroode/workdesk-client/internal/stream"
	"github.com/dtroode/workdesk-client/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("failed to open token storage", "error", err)
	}
	defer store.Close()

	transport, err := rest.NewTransport(cfg.API.CACertFile)
	if err != nil {
		logger.Fatal("failed to create HTTP transport", "error", err)
	}

	inspector := token.NewInspector()
	session := service.NewSession(store, inspector, cfg.API.BaseURL, newAuthHTTPClient(transport, cfg.API.Timeout), logger)

	if err := session.LoadRuntimeConfig(ctx); err != nil {
		logger.Info("could not fetch runtime config, mock auth stays off", "error", err)
	}

	guard := service.NewGuard(session, logger)
	if err := guard.Check(ctx); err != nil {
		if cfg.Auth.Login == "" {
			logger.Fatal("no valid session and no credentials provided, set AUTH_LOGIN and AUTH_PASSWORD")
		}
		if err := session.Login(ctx, model.Credentials{Login: cfg.Auth.Login, Password: cfg.Auth.Password}); err != nil {
			logger.Fatal("login failed", "error", err)
		}
		logger.Info("logged in", "login", cfg.Auth.Login)
	}

	apiClient := rest.NewClient(cfg.API.BaseURL, rest.NewInterceptor(transport, session, logger), cfg.API.Timeout, logger)

	streamTransport := stream.NewTransport(transport, cfg.Stream.MaxBackoff, logger)
	notifications := stream.NewNotificationClient(streamTransport, session, cfg.API.BaseURL, cfg.Stream.Path, cfg.Stream.WindowHours, logger)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := notifications.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification stream terminated", "error", err)
			stop()
		}
	}()

	go func() {
		defer wg.Done()
		consumeEvents(ctx, notifications, apiClient, logger)
	}()

	logAppVersion(logger)

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := session.Logout(shutdownCtx); err != nil {
		logger.Error("error during logout", "error", err)
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

// consumeEvents reconciles stream events: a changed event names the single
// record to fetch or drop, a snapshot invalidates the whole local view.
func consumeEvents(ctx context.Context, notifications *stream.NotificationClient, apiClient *rest.Client, logger *logger.Logger) {
	for ev := range notifications.Events() {
		switch ev.Kind {
		case model.StreamEventSnapshot:
			items, err := apiClient.ListNotifications(ctx)
			if err != nil {
				logger.Error("failed to list notifications", "error", err)
				continue
			}
			logger.Info("notification snapshot", "cursor", ev.Cursor, "count", len(items))
		case model.StreamEventChanged:
			if ev.Operation == model.OperationDeleted {
				logger.Info("notification removed", "id", ev.ChangedNotificationID, "cursor", ev.Cursor)
				continue
			}
			n, err := apiClient.GetNotification(ctx, ev.ChangedNotificationID)
			if err != nil {
				logger.Error("failed to fetch changed notification", "id", ev.ChangedNotificationID, "error", err)
				continue
			}
			logger.Info("notification changed",
				"operation", ev.Operation,
				"id", n.ID,
				"subject", n.Subject,
				"cursor", ev.Cursor)
		case model.StreamEventError:
			logger.Error("stream error event", "message", ev.Message)
		}
	}
}

// newAuthHTTPClient builds the plain client the session uses for auth
// endpoints; those calls never go through the request interceptor.
func newAuthHTTPClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	return &http.Client{Transport: transport, Timeout: timeout}
}

func logAppVersion(logger *logger.Logger) {
	logger.Info("workdesk client",
		"build_version", buildVersion,
		"build_date", buildDate,
		"build_commit", buildCommit)
}

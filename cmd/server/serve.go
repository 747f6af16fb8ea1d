package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/config"
	"github.com/mamadbah2/floorlog/internal/repository"
	"github.com/mamadbah2/floorlog/internal/repository/backend"
	"github.com/mamadbah2/floorlog/internal/repository/sheets"
	"github.com/mamadbah2/floorlog/internal/server/handlers"
	"github.com/mamadbah2/floorlog/internal/server/router"
	accesssvc "github.com/mamadbah2/floorlog/internal/service/access"
	exportsvc "github.com/mamadbah2/floorlog/internal/service/export"
	recordssvc "github.com/mamadbah2/floorlog/internal/service/records"
	reportingsvc "github.com/mamadbah2/floorlog/internal/service/reporting"
	"github.com/mamadbah2/floorlog/pkg/clients/gateway"
)

func runServe(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, baseLogger, err := bootstrap(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()

	location, err := cfg.Business.Location()
	if err != nil {
		return err
	}

	store, err := backend.Open(ctx, cfg.Storage, baseLogger.Named("repo"))
	if err != nil {
		baseLogger.Error("failed to open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	if err := seedAccessCode(ctx, store, cfg.Auth.AccessCode, baseLogger); err != nil {
		return err
	}

	var (
		codeSource   accesssvc.CodeSource = store
		backendProbe handlers.Pinger
	)
	if cfg.Gateway.Enabled() {
		client := gateway.NewClient(cfg.Gateway)
		codeSource = client
		backendProbe = client
		baseLogger.Info("access codes read through rest gateway", zap.String("url", cfg.Gateway.URL))
	}

	var publisher sheets.Repository
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Error("failed to init sheets repository", zap.Error(err))
			return err
		}
		publisher = sheetsRepo
	} else {
		baseLogger.Warn("google sheets credentials missing, sheet publishing disabled")
	}

	sessionSecret, err := resolveSessionSecret(cfg.Auth, baseLogger)
	if err != nil {
		return err
	}

	recordsSvc := recordssvc.NewService(store, location, baseLogger.Named("svc.records"))
	reportingSvc := reportingsvc.NewService(store, location, baseLogger.Named("svc.reporting"))
	exportSvc := exportsvc.NewService(reportingSvc, publisher, cfg.Sheets.ExportRange, baseLogger.Named("svc.export"))
	gate := accesssvc.NewGate(codeSource, baseLogger.Named("svc.access"))

	engine := router.New(router.Handlers{
		Auth:    handlers.NewAuthHandler(gate, baseLogger.Named("handlers.auth")),
		Records: handlers.NewRecordsHandler(recordsSvc, baseLogger.Named("handlers.records")),
		Reports: handlers.NewReportsHandler(reportingSvc, exportSvc, baseLogger.Named("handlers.reports")),
		Health:  handlers.NewHealthHandler(store, backendProbe, baseLogger.Named("handlers.health")),
	}, router.SessionOptions{
		Secret: sessionSecret,
		MaxAge: cfg.Auth.SessionMaxAge,
		Secure: cfg.Auth.CookieSecure,
	}, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("timezone", location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			baseLogger.Error("http server crashed", zap.Error(err))
			return err
		}
	case <-sigCtx.Done():
		baseLogger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func runSetup(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, baseLogger, err := bootstrap(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()

	if cfg.Storage.Driver == config.DriverMemory {
		return errors.New("setup has nothing to do for the memory store")
	}

	// Opening a SQL or Mongo store creates its tables and indexes.
	store, err := backend.Open(ctx, cfg.Storage, baseLogger.Named("repo"))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	if cfg.Auth.AccessCode == "" {
		baseLogger.Warn("ACCESS_CODE not set, schema created without an access code")
		return nil
	}
	if err := seedAccessCode(ctx, store, cfg.Auth.AccessCode, baseLogger); err != nil {
		return err
	}

	baseLogger.Info("setup complete", zap.String("storage", cfg.Storage.Driver))
	return nil
}

func seedAccessCode(ctx context.Context, store repository.Store, code string, logger *zap.Logger) error {
	if code == "" {
		return nil
	}
	if err := store.SeedAccessCode(ctx, code); err != nil {
		logger.Error("failed to seed access code", zap.Error(err))
		return fmt.Errorf("seed access code: %w", err)
	}
	return nil
}

func resolveSessionSecret(cfg config.AuthConfig, logger *zap.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	return secret, nil
}

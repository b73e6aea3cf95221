package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"authserver/internal/config"
	"authserver/internal/email"
	"authserver/internal/httpapi"
	"authserver/internal/service"
	"authserver/internal/store/postgres"
	"authserver/internal/uploads"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file (env vars take precedence)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.DBDSN); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	files := uploads.NewClient(cfg.UploadServerURL, logger)

	accountsStore := postgres.NewAccountsStore(pool, files, cfg.ProfilePicBaseURL, logger)
	picturesStore := postgres.NewProfilePicturesStore(pool, files, cfg.ProfilePicBaseURL, logger)
	resetsStore := postgres.NewResetTokensStore(pool)

	var mailer service.ResetMailer
	if cfg.SMTP.Configured() {
		mailer = &email.ResetMailer{Settings: email.Settings{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			TLSMode:   cfg.SMTP.TLSMode,
		}}
	} else {
		logger.Warn("smtp not configured, reset tokens will only be logged")
	}

	authSvc := &service.AuthService{
		Accounts:      accountsStore,
		Resets:        resetsStore,
		Mailer:        mailer,
		Secret:        []byte(cfg.JWTSecret),
		TokenTTL:      cfg.TokenTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		Logger:        logger,
	}
	accountsSvc := &service.AccountsService{
		Store:    accountsStore,
		Pictures: picturesStore,
	}

	handler := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:    logger,
		IsProd:    cfg.IsProd(),
		DBPing:    pool.Ping,
		Auth:      authSvc,
		Accounts:  accountsSvc,
		JWTSecret: []byte(cfg.JWTSecret),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

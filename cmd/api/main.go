package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"salonhub.io/internal/app"
	"salonhub.io/internal/config"
	"salonhub.io/internal/httpapi"
	"salonhub.io/internal/notify"
	"salonhub.io/internal/obs"
	"salonhub.io/internal/ratelimit"
	"salonhub.io/internal/store/memory"
	"salonhub.io/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "salonhub-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := obs.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend app.Backend
	if cfg.DatabaseURL != "" {
		store, err := pg.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()
		backend = store
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		backend = memory.New()
	}

	svcs, err := app.Wire(backend, app.Options{
		JWTSecret:   cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL,
		TokenIssuer: cfg.TokenIssuer,
		TOTPIssuer:  cfg.TOTPIssuer,
	})
	if err != nil {
		return err
	}
	defer svcs.Audit.Close()

	if cfg.SuperAdminEmail != "" {
		u, created, err := svcs.Auth.EnsureSuperAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap super admin: %w", err)
		}
		if created {
			logger.Info("super admin created", zap.Int64("user_id", u.ID), zap.String("email", u.Email))
		}
	}

	senders, closeSenders, err := buildSenders(cfg)
	if err != nil {
		return err
	}
	defer closeSenders()
	dispatcher, err := notify.NewDispatcher(backend, senders, notify.Options{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		MaxBackoff:   cfg.Outbox.MaxBackoff,
		MaxJitter:    time.Second,
	})
	if err != nil {
		return err
	}
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox dispatcher stopped", zap.Error(err))
		}
	}()

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	limiter, loginLimiter, closeLimiters, err := buildLimiters(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer closeLimiters()

	api := httpapi.New(httpapi.Deps{
		Auth:         svcs.Auth,
		Tenants:      svcs.Tenants,
		Staff:        svcs.Staff,
		Retail:       svcs.Retail,
		Sales:        svcs.Sales,
		Audit:        svcs.Audit,
		Ready:        backend,
		Events:       svcs.Events,
		Limiter:      limiter,
		LoginLimiter: loginLimiter,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Version:      version,

		TrustedProxies: proxies,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(svcs.Events.Close)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting salonhub-api",
			zap.String("version", version),
			zap.String("addr", srv.Addr),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	stop()
	<-dispatchDone
	logger.Info("stopped")
	return nil
}

// buildSenders logs every notification unless a real provider is configured.
func buildSenders(cfg *config.Config) (map[notify.Channel]notify.Sender, func(), error) {
	senders := map[notify.Channel]notify.Sender{
		notify.ChannelEmail: notify.LogSender{},
		notify.ChannelSMS:   notify.LogSender{},
	}
	closeFn := func() {}

	if cfg.SMTP.Enabled() {
		s, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, nil, err
		}
		senders[notify.ChannelEmail] = s
	}
	if cfg.AMQP.Enabled() {
		s, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, nil, err
		}
		senders[notify.ChannelSMS] = s
		closeFn = func() {
			if err := s.Close(); err != nil {
				obs.Logger().Warn("amqp close", zap.Error(err))
			}
		}
	}
	return senders, closeFn, nil
}

func buildLimiters(ctx context.Context, opts config.RateLimitOptions) (ratelimit.Limiter, ratelimit.Limiter, func(), error) {
	if opts.Storage == "redis" {
		client, err := ratelimit.DialRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() { _ = client.Close() }
		return ratelimit.NewRedis(client, "rl:api", opts.RPS, time.Second),
			ratelimit.NewRedis(client, "rl:login", opts.LoginPerMinute, time.Minute),
			closeFn, nil
	}
	general := ratelimit.NewMemory(float64(opts.RPS), opts.Burst)
	login := ratelimit.PerMinute(opts.LoginPerMinute)
	return general, login, func() {
		general.Close()
		login.Close()
	}, nil
}

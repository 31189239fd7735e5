package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kasaops/kasa-backend/internal/config"
	"github.com/kasaops/kasa-backend/internal/handler"
	"github.com/kasaops/kasa-backend/internal/service/alert"
	"github.com/kasaops/kasa-backend/internal/service/importer"
	"github.com/kasaops/kasa-backend/internal/service/location"
	"github.com/kasaops/kasa-backend/internal/service/menu"
	"github.com/kasaops/kasa-backend/internal/service/registry"
	"github.com/kasaops/kasa-backend/internal/service/reportlog"
	"github.com/kasaops/kasa-backend/internal/service/session"
	"github.com/kasaops/kasa-backend/internal/service/sms"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && level != zerolog.NoLevel {
		zerolog.SetGlobalLevel(level)
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	userRegistry := registry.NewService()
	reportLog := reportlog.NewService()
	locator := location.NewPrefixResolver(location.Seed())

	var gateway sms.Gateway
	if cfg.SMS.Enabled() {
		gateway = sms.NewAfricasTalkingGateway(sms.AfricasTalkingConfig{
			Username: cfg.SMS.Username,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
		})
		log.Info().Str("username", cfg.SMS.Username).Msg("SMS gateway configured")
	} else {
		gateway = sms.NewLogGateway()
		log.Warn().Msg("SMS credentials missing, alerts will only be logged")
	}

	var sessions session.Store
	if cfg.Session.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		sessions = session.NewRedisStore(redis.NewClient(opt), cfg.Session.TTL)
		log.Info().Msg("session store backed by redis")
	} else {
		sessions = session.NewMemoryStore()
	}

	alertSvc := alert.NewService(userRegistry, gateway)
	menuSvc := menu.NewService(sessions, userRegistry, reportLog, alertSvc, locator)

	router := handler.NewRouter(handler.Deps{
		Menu:       menuSvc,
		Registry:   userRegistry,
		Reports:    reportLog,
		Alerts:     alertSvc,
		Importer:   importer.New(userRegistry),
		SMSEnabled: cfg.SMS.Enabled(),
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("KASA backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

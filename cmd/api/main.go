package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "hotel_onboarding/internal/adapters/http_server"
	"hotel_onboarding/internal/adapters/observability"
	redisad "hotel_onboarding/internal/adapters/redis"
	"hotel_onboarding/internal/adapters/webhook"
	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
	"hotel_onboarding/internal/shared"
	mysqlstore "hotel_onboarding/internal/storage/mysql"
)

// allowAll grants every permission. The real checker lives in the auth
// service in front of this one; standalone deployments run open.
type allowAll struct{}

func (allowAll) CheckPermission(ctx context.Context, userID, hotelID int64, permission string) (bool, error) {
	return true, nil
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	store := mysqlstore.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var notifier domain.Notifier
	var audit domain.AuditSink
	if cfg.WebhookBase != "" {
		wh, err := webhook.New(cfg.WebhookBase, cfg.WebhookKey, cfg.WebhookRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("webhook client init failed")
		}
		notifier, audit = wh, wh
	}

	integrator := app.NewIntegrationService(store, store, notifier, cache)
	sessions := app.NewSessionService(store, store, allowAll{}, audit, integrator)
	preview := app.NewPreviewService(store, store, cache, cfg.CacheTTL)

	// background expiry sweep
	go sweepLoop(sessions, cfg.SweepInterval)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Sessions: sessions, Integration: integrator, Preview: preview})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

// sweepLoop abandons expired sessions on a fixed interval. The sweep is
// a single conditional update, so overlapping runs are harmless.
func sweepLoop(sessions *app.SessionService, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := sessions.SweepExpired(ctx); err != nil {
			log.Warn().Err(err).Msg("expiry sweep failed")
		}
		cancel()
	}
}

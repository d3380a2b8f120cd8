package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "tripquote/internal/adapters/http_server"
	"tripquote/internal/adapters/observability"
	redisad "tripquote/internal/adapters/redis"
	"tripquote/internal/adapters/salesapi"
	"tripquote/internal/app"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
	"tripquote/internal/schedule"
	"tripquote/internal/shared"
	"tripquote/internal/storage/memory"
	mysqlkv "tripquote/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	kv, closeKV := openBackend(ctx, cfg)
	defer closeKV()

	client, err := salesapi.New(cfg.SalesBase, cfg.SalesKey, cfg.SalesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize sales API client")
	}

	// deps
	store := draft.NewStore(kv, cfg.DraftBackend, draft.WithTimeout(cfg.StoreTimeout))
	sessions := app.NewSessionService(store, app.NewSubmissionService(client, cfg.CompanyID, cfg.CompanyEmail), schedule.Real{}, cfg.AutosaveWait)
	defer sessions.CloseAll()

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Sessions: sessions,
		Drafts:   app.NewDraftQueries(store),
		Status:   app.NewStatusService(client),
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.DraftBackend).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped, flushing open sessions")
}

// openBackend picks the draft KV named by DRAFT_BACKEND.
func openBackend(ctx context.Context, cfg shared.Config) (domain.KV, func()) {
	switch cfg.DraftBackend {
	case "redis":
		kv := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := kv.Ping(ctx); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping failed")
		}
		log.Info().Msg("redis connection ok")
		return kv, func() { _ = kv.Close() }
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		kv := mysqlkv.New(db)
		if err := kv.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		return kv, func() { _ = db.Close() }
	case "memory", "":
		log.Warn().Msg("drafts are kept in memory and lost on restart")
		return memory.New(), func() {}
	default:
		log.Fatal().Str("backend", cfg.DraftBackend).Msg("unknown DRAFT_BACKEND")
		return nil, nil
	}
}

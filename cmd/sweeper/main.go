package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"tripquote/internal/adapters/observability"
	redisad "tripquote/internal/adapters/redis"
	"tripquote/internal/app"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
	"tripquote/internal/shared"
	mysqlkv "tripquote/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("backend", cfg.DraftBackend).
		Int("workers", cfg.SweepWorkers).
		Dur("max_age", cfg.DraftMaxAge).
		Msg("sweeper starting")

	var kv domain.KV
	switch cfg.DraftBackend {
	case "redis":
		r := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer r.Close()
		if err := r.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("redis ping failed")
		}
		kv = r
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		kv = mysqlkv.New(db)
	default:
		// an in-memory store dies with its process; nothing to sweep
		log.Fatal().Str("backend", cfg.DraftBackend).Msg("sweeper needs DRAFT_BACKEND=redis or mysql")
	}

	store := draft.NewStore(kv, cfg.DraftBackend, draft.WithTimeout(cfg.StoreTimeout))
	rep, err := app.NewSweepService(store, cfg.DraftMaxAge, cfg.SweepWorkers).Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("sweep failed")
	}
	log.Info().
		Int("scanned", rep.Scanned).
		Int("removed", rep.Removed).
		Int("kept", rep.Kept).
		Int("unreadable", rep.Unreadable).
		Msg("sweep completed")
}

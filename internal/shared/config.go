package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	MetricsAddr  string
	DraftBackend string // memory|redis|mysql
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	SalesBase    string
	SalesKey     string
	SalesRPS     int
	CompanyID    string
	CompanyEmail string
	AutosaveWait time.Duration
	StoreTimeout time.Duration
	DraftMaxAge  time.Duration
	SweepWorkers int
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("reading .env")
	}
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		MetricsAddr:  env("METRICS_ADDR", ""),
		DraftBackend: env("DRAFT_BACKEND", "memory"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/tripquote?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		SalesBase:    env("SALES_API_BASE_URL", "http://localhost:5000/api"),
		SalesKey:     env("SALES_API_KEY", ""),
		SalesRPS:     atoi("SALES_API_RPS", 5),
		CompanyID:    env("COMPANY_ID", ""),
		CompanyEmail: env("COMPANY_EMAIL", ""),
		AutosaveWait: time.Duration(atoi("AUTOSAVE_DELAY_MS", 700)) * time.Millisecond,
		StoreTimeout: time.Duration(atoi("STORE_TIMEOUT_MS", 2000)) * time.Millisecond,
		DraftMaxAge:  time.Duration(atoi("DRAFT_MAX_AGE_HOURS", 720)) * time.Hour,
		SweepWorkers: atoi("SWEEP_WORKERS", 8),
	}
	if c.SalesKey == "" {
		log.Warn().Msg("SALES_API_KEY is empty")
	}
	if c.CompanyID == "" {
		log.Warn().Msg("COMPANY_ID is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StoreMongo = "mongo"
	StoreMySQL = "mysql"

	CacheStore = "store"
	CacheRedis = "redis"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string
	MongoURL    string
	DBName      string
	MySQLDSN    string

	CacheBackend string
	RedisAddr    string
	RedisDB      int
	RedisPass    string

	BookingAPIKey  string
	BookingAffID   string
	BookingBaseURL string
	ProviderRPS    int

	StripeAPIKey        string
	StripeWebhookSecret string

	IdentitySessionURL string
	CORSOrigins        []string
	GuestBookings      bool
	SecureCookies      bool

	SearchTTL  time.Duration
	DetailTTL  time.Duration
	SessionTTL time.Duration

	RabbitURL    string
	OTLPEndpoint string
	WarmWorkers  int
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8000"),
		MetricsAddr: env("METRICS_ADDR", ""),

		StoreDriver: strings.ToLower(env("STORE_DRIVER", StoreMongo)),
		MongoURL:    env("MONGO_URL", "mongodb://localhost:27017"),
		DBName:      env("DB_NAME", "wanderbook"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/wanderbook?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),

		CacheBackend: strings.ToLower(env("CACHE_BACKEND", CacheStore)),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),

		BookingAPIKey:  env("BOOKING_API_KEY", "YOUR_API_KEY_HERE"),
		BookingAffID:   env("BOOKING_AFFILIATE_ID", "YOUR_AFFILIATE_ID_HERE"),
		BookingBaseURL: env("BOOKING_API_BASE_URL", "https://demandapi-sandbox.booking.com/3.1"),
		ProviderRPS:    atoi("PROVIDER_RPS", 5),

		StripeAPIKey:        env("STRIPE_API_KEY", ""),
		StripeWebhookSecret: env("STRIPE_WEBHOOK_SECRET", ""),

		IdentitySessionURL: env("IDENTITY_SESSION_URL", "https://demobackend.emergentagent.com/auth/v1/env/oauth/session-data"),
		CORSOrigins:        splitList(env("CORS_ORIGINS", "*")),
		GuestBookings:      envBool("GUEST_BOOKINGS", true),
		SecureCookies:      envBool("SECURE_COOKIES", true),

		SearchTTL:  time.Duration(atoi("SEARCH_CACHE_TTL_SECONDS", 3600)) * time.Second,
		DetailTTL:  time.Duration(atoi("DETAIL_CACHE_TTL_SECONDS", 6*3600)) * time.Second,
		SessionTTL: time.Duration(atoi("SESSION_TTL_HOURS", 7*24)) * time.Hour,

		RabbitURL:    env("RABBIT_URL", ""),
		OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		WarmWorkers:  atoi("WARM_WORKERS", 4),
	}
	if c.StripeAPIKey != "" && c.StripeWebhookSecret == "" {
		log.Warn().Msg("STRIPE_WEBHOOK_SECRET is empty; stripe webhooks will be rejected")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

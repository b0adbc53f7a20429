package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings"
    "time"
)

// Auth verification modes.
const (
    AuthModeHS256 = "hs256" // shared-secret HMAC tokens
    AuthModeJWKS  = "jwks"  // ES256 tokens verified against the identity provider's JWKS
)

// Store drivers.
const (
    StoreMySQL  = "mysql"
    StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Optional integrations (Redis, RabbitMQ, S3) are
// configured elsewhere and degrade gracefully when absent.
type Config struct {
    Env      string // application environment (e.g. "dev", "prod")
    Port     string // HTTP port to listen on
    LogLevel string // slog level name

    StoreDriver string // "mysql" or "memory"
    DBUser      string // database username
    DBPass      string // database password (optional)
    DBHost      string // database host address
    DBPort      string // database port number
    DBName      string // database name

    AuthMode        string        // "hs256" or "jwks"
    JWTSecret       string        // HS256 secret (hs256 mode)
    SupabaseURL     string        // identity provider base URL (jwks mode)
    SupabaseAnonKey string        // apikey header sent to the JWKS endpoint
    JWKSTTL         time.Duration // how long fetched keys are trusted

    WebhookSecret string // shared secret expected in X-Webhook-Secret
    RabbitURL     string // AMQP URL; empty disables the push queue
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Which variables are
// required depends on STORE_DRIVER and AUTH_VERIFY_MODE.
func Load() Config {
    cfg := Config{
        Env:           must("APP_ENV"),  // environment (dev/test/prod)
        Port:          must("APP_PORT"), // port to bind the HTTP server
        LogLevel:      envStr("LOG_LEVEL", "info"),
        StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
        AuthMode:      strings.ToLower(envStr("AUTH_VERIFY_MODE", AuthModeHS256)),
        JWKSTTL:       envDur("JWKS_TTL", 10*time.Minute),
        WebhookSecret: must("WEBHOOK_SECRET"),
        RabbitURL:     rabbitURL(),
    }

    switch cfg.StoreDriver {
    case StoreMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case StoreMemory:
    default:
        log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
    }

    switch cfg.AuthMode {
    case AuthModeHS256:
        cfg.JWTSecret = must("JWT_SECRET")
    case AuthModeJWKS:
        cfg.SupabaseURL = strings.TrimRight(must("SUPABASE_URL"), "/")
        cfg.SupabaseAnonKey = must("SUPABASE_ANON_KEY")
    default:
        log.Fatalf("invalid AUTH_VERIFY_MODE: %q", cfg.AuthMode)
    }
    return cfg
}

// rabbitURL honours RABBITMQ_URL and the older AMQP_URL alias.
func rabbitURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

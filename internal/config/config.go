// Package config loads the service configuration from the environment.
package config

import (
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"

	"github.com/joho/godotenv" // godotenv loads a local .env file into the process environment
	"github.com/samber/oops"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The struct is built once at startup and passed
// by value; nothing below main reads the environment again.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DB      DBConfig
	Token   TokenConfig
	HTTP    HTTPConfig
	Gemini  GeminiConfig
	Cache   CacheConfig
	Redis   RedisConfig
	AMQPURL string // RabbitMQ URL for account events; empty disables publishing

	BcryptCost     int    // bcrypt cost for password hashing
	LogFormat      string // "json" or "text"
	MetricsEnabled bool   // expose /metrics
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// TokenConfig carries the signing secrets and lifetimes of both token kinds.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// HTTPConfig groups the boundary settings of the echo server.
type HTTPConfig struct {
	CORSOrigin   string
	CookieSecure bool
	BodyLimit    string
	StaticDir    string
}

// GeminiConfig configures the recommendation backend.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// LoadDotEnv loads variables from the given files (".env" when none are
// given) without overriding values already present in the environment.  A
// missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return oops.Code("CONFIG_INVALID").With("file", f).Wrap(err)
		}
	}
	return nil
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must(); the first missing or
// malformed value is reported as an error naming the key.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:  l.str("APP_ENV", "dev"),
		Port: l.str("PORT", "8000"),
		DB: DBConfig{
			User: l.must("DB_USER"),
			Pass: os.Getenv("DB_PASS"), // empty allowed
			Host: l.must("DB_HOST"),
			Port: l.str("DB_PORT", "3306"),
			Name: l.must("DB_NAME"),
		},
		Token: TokenConfig{
			AccessSecret:  l.must("ACCESS_TOKEN_SECRET"),
			AccessTTL:     l.dur("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
			RefreshSecret: l.must("REFRESH_TOKEN_SECRET"),
			RefreshTTL:    l.dur("REFRESH_TOKEN_EXPIRY", 10*24*time.Hour),
		},
		HTTP: HTTPConfig{
			CORSOrigin:   l.str("CORS_ORIGIN", "*"),
			CookieSecure: l.bool("COOKIE_SECURE", true),
			BodyLimit:    l.str("BODY_LIMIT", "16K"),
			StaticDir:    l.str("STATIC_DIR", "public"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  l.str("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Cache:          l.cache(),
		Redis:          l.redis(),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
		BcryptCost:     l.int("BCRYPT_COST", 10),
		LogFormat:      l.str("LOG_FORMAT", "json"),
		MetricsEnabled: l.bool("METRICS_ENABLED", true),
	}
	if l.err != nil {
		return Config{}, l.err
	}
	if cfg.Token.AccessSecret == cfg.Token.RefreshSecret {
		return Config{}, oops.Code("CONFIG_INVALID").
			Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	return cfg, nil
}

// loader remembers the first error so Load can read every key in one pass.
type loader struct{ err error }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.fail(oops.Code("CONFIG_INVALID").With("key", key).Errorf("missing required env var: %s", key))
		return ""
	}
	return v
}

func (l *loader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (l *loader) int(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail(oops.Code("CONFIG_INVALID").With("key", key).Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}

func (l *loader) dur(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := ParseDuration(s)
	if err != nil || d <= 0 {
		l.fail(oops.Code("CONFIG_INVALID").With("key", key).Errorf("invalid duration for %s: %q", key, s))
		return def
	}
	return d
}

func (l *loader) bool(key string, def bool) bool {
	switch s := strings.ToLower(strings.TrimSpace(os.Getenv(key))); s {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		l.fail(oops.Code("CONFIG_INVALID").With("key", key).Errorf("invalid bool for %s: %q", key, s))
		return def
	}
}

func (l *loader) fail(err error) {
	if l.err == nil {
		l.err = err
	}
}

// ParseDuration accepts Go duration syntax plus a whole-day suffix ("10d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

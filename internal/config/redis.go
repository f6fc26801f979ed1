package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// redis reads REDIS_ADDR, or REDIS_HOST and REDIS_PORT which win when both
// are set, plus REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func (l *loader) redis() RedisConfig {
	addr := l.str("REDIS_ADDR", "localhost:6379")
	if host, port := l.str("REDIS_HOST", ""), l.str("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:     addr,
		Password: l.str("REDIS_PASSWORD", ""),
		DB:       l.int("REDIS_DB", 0),
		TLS:      l.bool("REDIS_TLS", false),
	}
}

// NewRedisClient connects to redis and pings it.  Callers run without a
// cache when it fails.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_UNAVAILABLE").With("addr", cfg.Addr).Wrap(err)
	}
	return client, nil
}

package config

import (
	"strings"
	"time"
)

// CacheConfig configures the redis response cache in front of the
// recommendation endpoint.  It is inert when Enabled is false or no redis
// client could be created.
type CacheConfig struct {
	Enabled bool
	Methods map[string]bool // upper-case methods that are cached
	TTL     time.Duration
	// KeyStrategy lists the request parts hashed into the key, any of
	// "user", "method", "query" and "body" joined by underscores.  The route
	// is always included.
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int // larger responses are served but not stored
}

func (l *loader) cache() CacheConfig {
	return CacheConfig{
		Enabled:      l.bool("CACHE_ENABLED", true),
		Methods:      parseMethods(l.str("CACHE_METHODS", "POST")),
		TTL:          l.dur("CACHE_TTL", 10*time.Minute),
		KeyStrategy:  l.str("CACHE_KEY_STRATEGY", "method_route_body"),
		Prefix:       l.str("CACHE_PREFIX", "tripmate:cache"),
		MaxBodyBytes: l.int("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			m[p] = true
		}
	}
	return m
}

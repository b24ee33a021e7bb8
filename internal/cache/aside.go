package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"animeverse/internal/middleware"
	"animeverse/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Cache keys for the shared public views.
const (
	HomeKey              = "animeverse:home"
	CategoriesSidebarKey = "animeverse:sidebar:categories"
	TagsSidebarKey       = "animeverse:sidebar:tags"
)

// TTLs for cached views. Writes invalidate the keys, the TTL bounds view-count drift.
const (
	HomeTTL    = time.Minute
	SidebarTTL = 5 * time.Minute
)

// Aside serves dest from key when cached; otherwise it runs load, which must fill
// dest, and stores the result for ttl. Redis failures degrade to calling load.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	family := keyFamily(key)
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues(family, "hit").Inc()
			return nil
		}
		middleware.Logger.WarnContext(ctx, "Discarding undecodable cache entry", slog.String("key", key))
	case errors.Is(err, redis.Nil):
		observability.CacheLookups.WithLabelValues(family, "miss").Inc()
	default:
		observability.CacheLookups.WithLabelValues(family, "error").Inc()
	}

	if err := load(); err != nil {
		return err
	}

	payload, err := json.Marshal(dest)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := client.Set(ctx, key, payload, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes the given keys.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "Cache invalidation failed", slog.String("error", err.Error()))
	}
}

// InvalidateListings drops every cached view that lists posts or taxonomy counts.
func InvalidateListings(ctx context.Context) {
	Invalidate(ctx, HomeKey, CategoriesSidebarKey, TagsSidebarKey)
}

func keyFamily(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		return parts[1]
	}
	return key
}

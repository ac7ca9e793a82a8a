package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// EntitlementCache memoizes access decisions per (user, course). Entries live
// under a per-user version; Invalidate bumps the version so every cached
// decision for that user is orphaned at once and left to expire.
//
// Set takes the version its caller's Get observed. A decision computed
// before an Invalidate therefore lands under the old version and is never
// served.
type EntitlementCache interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (Lookup, error)
	Set(ctx context.Context, userID, courseID uuid.UUID, version int64, allowed bool) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
	Close() error
}

type Lookup struct {
	Allowed bool
	Hit     bool
	Version int64
}

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

type entitlementCache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewEntitlementCache connects to Redis. An empty address yields a cache that
// never hits, so callers always fall through to the database.
func NewEntitlementCache(log *logger.Logger, cfg Config) (EntitlementCache, *goredis.Client, error) {
	if log == nil {
		return nil, nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		log.Warn("REDIS_ADDR not set; entitlement cache disabled")
		return NopEntitlementCache(), nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewEntitlementCacheFromClient(log, rdb, cfg), rdb, nil
}

func NewEntitlementCacheFromClient(log *logger.Logger, rdb *goredis.Client, cfg Config) EntitlementCache {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = "cc:ent"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &entitlementCache{
		log:    log.With("service", "RedisEntitlementCache"),
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *entitlementCache) versionKey(userID uuid.UUID) string {
	return c.prefix + ":ver:" + userID.String()
}

func (c *entitlementCache) entryKey(userID, courseID uuid.UUID, version int64) string {
	return fmt.Sprintf("%s:%s:v%d:%s", c.prefix, userID, version, courseID)
}

func (c *entitlementCache) version(ctx context.Context, userID uuid.UUID) (int64, error) {
	raw, err := c.rdb.Get(ctx, c.versionKey(userID)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad entitlement version %q: %w", raw, err)
	}
	return v, nil
}

func (c *entitlementCache) Get(ctx context.Context, userID, courseID uuid.UUID) (Lookup, error) {
	if c == nil || c.rdb == nil {
		return Lookup{}, nil
	}
	ver, err := c.version(ctx, userID)
	if err != nil {
		return Lookup{}, err
	}
	raw, err := c.rdb.Get(ctx, c.entryKey(userID, courseID, ver)).Result()
	if errors.Is(err, goredis.Nil) {
		return Lookup{Version: ver}, nil
	}
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Allowed: raw == "1", Hit: true, Version: ver}, nil
}

func (c *entitlementCache) Set(ctx context.Context, userID, courseID uuid.UUID, version int64, allowed bool) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	val := "0"
	if allowed {
		val = "1"
	}
	return c.rdb.Set(ctx, c.entryKey(userID, courseID, version), val, c.ttl).Err()
}

func (c *entitlementCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Incr(ctx, c.versionKey(userID)).Err(); err != nil {
		c.log.Warn("entitlement invalidate failed", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (c *entitlementCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

type nopEntitlementCache struct{}

func NopEntitlementCache() EntitlementCache { return nopEntitlementCache{} }

func (nopEntitlementCache) Get(context.Context, uuid.UUID, uuid.UUID) (Lookup, error) {
	return Lookup{}, nil
}
func (nopEntitlementCache) Set(context.Context, uuid.UUID, uuid.UUID, int64, bool) error { return nil }
func (nopEntitlementCache) Invalidate(context.Context, uuid.UUID) error                  { return nil }
func (nopEntitlementCache) Close() error                                                 { return nil }

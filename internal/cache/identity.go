package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	apperrors "tickethub/internal/errors"
	"tickethub/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrMiss = errors.New("identity not cached")

// tombstone marks an identity deleted until it expires. It is never valid JSON
// for a user, so it cannot be confused with a cached identity.
const tombstone = "deleted"

type Config struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// IdentityCache keeps resolved users in Redis so the identity gate skips the
// database on hot paths. A nil *IdentityCache is a valid, always-missing cache.
type IdentityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdentityCache(cfg Config) (*IdentityCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newIdentityCache(rdb, cfg.TTL), nil
}

func newIdentityCache(client *redis.Client, ttl time.Duration) *IdentityCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &IdentityCache{client: client, ttl: ttl}
}

func identityKey(userID int64) string {
	return "identity:" + strconv.FormatInt(userID, 10)
}

func (c *IdentityCache) Get(ctx context.Context, userID int64) (*models.User, error) {
	if c == nil {
		return nil, ErrMiss
	}

	raw, err := c.client.Get(ctx, identityKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	if string(raw) == tombstone {
		return nil, apperrors.NotFoundf("user %d", userID)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("invalid identity in cache: %w", err)
	}
	return &user, nil
}

func (c *IdentityCache) Set(ctx context.Context, user *models.User) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	// SetNX never replaces a tombstone written by Invalidate after the
	// caller read the user from the database.
	return c.client.SetNX(ctx, identityKey(user.ID), raw, c.ttl).Err()
}

// Invalidate replaces the given identities with tombstones that live for one
// TTL, so a resolve that read the user before the delete cannot cache it again.
func (c *IdentityCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if c == nil || len(userIDs) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, id := range userIDs {
		pipe.Set(ctx, identityKey(id), tombstone, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *IdentityCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

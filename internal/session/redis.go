package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/funnel/pkg/types"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "funnel:session"

// RedisStore keeps the session under a single Redis key. The key expires
// with the session: at ExpiresAt when set, otherwise after ttl.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a RedisStore. An empty key uses DefaultRedisKey; a
// non-positive ttl stores sessions without expiry unless they carry one.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, key: key, ttl: ttl, now: time.Now}
}

// Dial connects to the Redis server named by url ("redis://host:port/db")
// and checks it answers.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

func (r *RedisStore) Load(ctx context.Context) (*types.Session, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	s, err := decode(data)
	if err != nil {
		_ = r.client.Del(ctx, r.key).Err()
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *types.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	ttl := r.ttl
	if s.ExpiresAt != nil {
		ttl = s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return types.ErrSessionExpired
		}
	}
	if err := r.client.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	return nil
}

package runlock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/teemow/inboxbrief/internal/logging"
)

// KeyPrefix namespaces lease keys in Redis.
const KeyPrefix = "inboxbrief:runlock:"

// releaseScript deletes the key only while it still holds our token, so an
// expired lease taken over by another run is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisClient is the subset of the go-redis client the locker needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// Redis keeps leases as Redis keys set with SET NX and a TTL, holding a
// random token per lease.
type Redis struct {
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis creates a Redis Locker. A ttl <= 0 uses DefaultTTL.
func NewRedis(client RedisClient, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient connects to the Redis server at url and checks it answers.
// go-redis internal logging is routed through logger.
func NewRedisClient(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redis.SetLogger(logging.NewRedisAdapter(logger))

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

// Acquire sets the lease key for name.
func (l *Redis) Acquire(ctx context.Context, name string) (Release, error) {
	key := KeyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, name)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The run's context may already be canceled.
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock",
					logging.Operation("runlock.release"),
					slog.String("key", key),
					logging.Err(err))
			}
		})
	}, nil
}

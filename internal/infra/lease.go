// README: Redis-backed leases that keep singleton jobs on one replica.
package infra

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Renew and Release only touch the key while this process still owns it.
var (
	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLease grants a key to one owner at a time with SET NX.
type RedisLease struct {
	redis *redis.Client
	owner string
}

func NewRedisLease(rdb *redis.Client) *RedisLease {
	host, _ := os.Hostname()
	return &RedisLease{redis: rdb, owner: fmt.Sprintf("%s:%d", host, os.Getpid())}
}

func (l *RedisLease) Owner() string { return l.owner }

func (l *RedisLease) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.redis.SetNX(ctx, key, l.owner, ttl).Result()
}

// Renew extends the TTL and reports false when the key has passed to
// another owner or expired.
func (l *RedisLease) Renew(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := renewScript.Run(ctx, l.redis, []string{key}, l.owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RedisLease) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.redis, []string{key}, l.owner).Err()
}

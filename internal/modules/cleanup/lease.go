package cleanup

import (
	"context"
	"fmt"
	"time"
)

const leaseKeyPrefix = "cleanup:sweep:%s"

// Lease grants one holder per key until the TTL lapses. *infra.RedisLease
// implements it.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// NoLease always grants. Used when no Redis is configured.
type NoLease struct{}

func (NoLease) Acquire(context.Context, string, time.Duration) (bool, error) { return true, nil }

func leaseKey(day time.Time) string {
	return fmt.Sprintf(leaseKeyPrefix, day.Format("2006-01-02"))
}

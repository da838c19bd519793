package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// GuardRepository holds the volatile anti-abuse counters. Losing them on a
// Redis restart only relaxes rate limits briefly; the durable suspicion
// score lives on the account row.
type GuardRepository interface {
	// StampAction sets the min-interval stamp if none is live. Returns
	// false when a stamp is still ticking, i.e. the caller acted too soon.
	StampAction(ctx context.Context, account string, interval time.Duration) (bool, error)

	// CountActionToday increments and returns the account's action count
	// for the current UTC day. The key expires at the next midnight.
	CountActionToday(ctx context.Context, account string, now time.Time) (int64, error)
}

type guardRepository struct {
	client *redis.Client
}

func NewGuardRepository(client *redis.Client) GuardRepository {
	return &guardRepository{client: client}
}

func (r *guardRepository) StampAction(ctx context.Context, account string, interval time.Duration) (bool, error) {
	key := fmt.Sprintf("guard:last:%s", account)
	ok, err := r.client.SetNX(ctx, key, "1", interval).Result()
	if err != nil {
		return false, fmt.Errorf("failed to stamp action: %w", err)
	}
	return ok, nil
}

func (r *guardRepository) CountActionToday(ctx context.Context, account string, now time.Time) (int64, error) {
	day := now.UTC().Format("20060102")
	key := fmt.Sprintf("guard:day:%s:%s", account, day)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count action: %w", err)
	}
	if count == 1 {
		midnight := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		if err := r.client.ExpireAt(ctx, key, midnight).Err(); err != nil {
			return 0, fmt.Errorf("failed to expire counter: %w", err)
		}
	}
	return count, nil
}

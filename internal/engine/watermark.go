package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// WatermarkStore guarantees at-most-once firing per (rule, task, threshold
// crossing) for the due-date scanner. The store keeps the last fired
// threshold per (rule, task); an already-crossed threshold stays suppressed
// for as long as scans keep observing it, however long that is.
type WatermarkStore interface {
	// FireOnce atomically claims the threshold for the key. It returns true
	// when no threshold or a different one was recorded; re-observing the
	// recorded threshold returns false and refreshes the TTL.
	FireOnce(ctx context.Context, key string, threshold time.Time, ttl time.Duration) (bool, error)

	// EvictRule discards every watermark belonging to the rule.
	EvictRule(ctx context.Context, ruleID string) error
}

const watermarkPrefix = "automation:wm:"

// WatermarkKey identifies one (rule, task) pair. The threshold is stored as
// the value rather than in the key, so a moved due date fires again while a
// re-observed crossing stays suppressed regardless of how long ago it fired.
func WatermarkKey(ruleID, taskID string) string {
	return ruleID + ":" + taskID
}

// RedisWatermarkStore backs watermarks with Redis so concurrent service
// replicas agree on who fired. An atomic SET-with-GET swaps in the observed
// threshold and returns the previous one; the TTL is refreshed on every
// observation and only has to outlive gaps where the crossing is no longer
// observed, such as scanner downtime.
type RedisWatermarkStore struct {
	client *redis.Client
}

func NewRedisWatermarkStore(client *redis.Client) *RedisWatermarkStore {
	return &RedisWatermarkStore{client: client}
}

func (s *RedisWatermarkStore) FireOnce(ctx context.Context, key string, threshold time.Time, ttl time.Duration) (bool, error) {
	value := strconv.FormatInt(threshold.Unix(), 10)
	prev, err := s.client.SetArgs(ctx, watermarkPrefix+key, value, redis.SetArgs{
		Get: true,
		TTL: ttl,
	}).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim watermark: %w", err)
	}
	return prev != value, nil
}

func (s *RedisWatermarkStore) EvictRule(ctx context.Context, ruleID string) error {
	pattern := watermarkPrefix + ruleID + ":*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan watermarks: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete watermarks: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// MemoryWatermarkStore is the single-replica fallback when Redis is not
// configured. It holds one entry per (rule, task) and ignores the TTL;
// entries are reclaimed through EvictRule when the rule is deleted.
type MemoryWatermarkStore struct {
	mu    sync.Mutex
	fired map[string]int64
}

func NewMemoryWatermarkStore() *MemoryWatermarkStore {
	return &MemoryWatermarkStore{fired: make(map[string]int64)}
}

func (s *MemoryWatermarkStore) FireOnce(_ context.Context, key string, threshold time.Time, _ time.Duration) (bool, error) {
	unix := threshold.Unix()
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.fired[key]; ok && last == unix {
		return false, nil
	}
	s.fired[key] = unix
	return true, nil
}

func (s *MemoryWatermarkStore) EvictRule(_ context.Context, ruleID string) error {
	prefix := ruleID + ":"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.fired {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.fired, key)
		}
	}
	return nil
}

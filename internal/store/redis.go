// Package store wraps the shared Redis instance that holds the dispatch
// queue, dedup markers, result cache, per-user history and the approved set.
// All access is per-key request/response; there are no multi-key
// transactions, so callers must tolerate read-after-write races.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/projectdiscovery/gologger"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey    = "queue:domains"
	approvedKey = "approved_domains"
)

// Store provides typed access to the shared key-value store
type Store struct {
	rdb        *redis.Client
	cacheTTL   time.Duration
	pendingTTL time.Duration
}

// New creates a store client from configuration
func New(cfg config.RedisConfig, cacheTTL, pendingTTL time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
	})

	return &Store{
		rdb:        rdb,
		cacheTTL:   cacheTTL,
		pendingTTL: pendingTTL,
	}
}

// NewWithClient creates a store around an existing Redis client
func NewWithClient(rdb *redis.Client, cacheTTL, pendingTTL time.Duration) *Store {
	return &Store{
		rdb:        rdb,
		cacheTTL:   cacheTTL,
		pendingTTL: pendingTTL,
	}
}

// HealthCheck verifies the store connection
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Enqueue appends a serialized task record to the dispatch queue tail
func (s *Store) Enqueue(ctx context.Context, payload string) error {
	if err := s.rdb.LPush(ctx, queueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout waiting for a task record. The pop delivers
// each record to exactly one caller; there is no acknowledgment or
// redelivery. Returns ok=false when the wait times out with an empty queue.
func (s *Store) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	result, err := s.rdb.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to pop task: %w", err)
	}
	// BRPOP returns [key, value]
	return result[1], true, nil
}

// QueueLength returns the number of queued task records
func (s *Store) QueueLength(ctx context.Context) (int64, error) {
	return s.rdb.LLen(ctx, queueKey).Result()
}

// ResetQueue drops all queued task records and pending markers
func (s *Store) ResetQueue(ctx context.Context) error {
	if err := s.rdb.Del(ctx, queueKey).Err(); err != nil {
		return fmt.Errorf("failed to reset queue: %w", err)
	}
	keys, err := s.rdb.Keys(ctx, "pending:*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return s.rdb.Del(ctx, keys...).Err()
	}
	return nil
}

// TryMarkPending atomically sets the dedup marker for (hostname, user).
// Returns false when a marker already exists, meaning a task for this pair
// is in flight. The TTL is a safety net against crashed workers leaking
// markers, not a correctness guarantee.
func (s *Store) TryMarkPending(ctx context.Context, domain string, userID int64) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, pendingKey(domain, userID), "1", s.pendingTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set pending marker: %w", err)
	}
	return ok, nil
}

// IsPending reports whether a dedup marker exists for (hostname, user)
func (s *Store) IsPending(ctx context.Context, domain string, userID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, pendingKey(domain, userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearPending removes the dedup marker, permitting resubmission
func (s *Store) ClearPending(ctx context.Context, domain string, userID int64) error {
	if err := s.rdb.Del(ctx, pendingKey(domain, userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear pending marker: %w", err)
	}
	return nil
}

// PendingCount returns the number of live dedup markers
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	keys, err := s.rdb.Keys(ctx, "pending:*").Result()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// CacheResult stores the full-mode report text for a hostname with the
// configured TTL
func (s *Store) CacheResult(ctx context.Context, domain, report string) error {
	if err := s.rdb.Set(ctx, resultKey(domain), report, s.cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// CachedResult returns the cached report text for a hostname, if present
func (s *Store) CachedResult(ctx context.Context, domain string) (string, bool, error) {
	report, err := s.rdb.Get(ctx, resultKey(domain)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read cached result: %w", err)
	}
	return report, true, nil
}

// ClearCache removes all cached results. Used by the daily sweep task.
func (s *Store) ClearCache(ctx context.Context) error {
	keys, err := s.rdb.Keys(ctx, "result:*").Result()
	if err != nil {
		return fmt.Errorf("failed to list cached results: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	gologger.Debug().Msgf("Cache sweep removed %d entries", len(keys))
	return nil
}

// RecordHistory prepends an entry to the user's history list, keeping the
// ten most recent entries
func (s *Store) RecordHistory(ctx context.Context, userID int64, entry string) error {
	key := historyKey(userID)
	if err := s.rdb.LPush(ctx, key, entry).Err(); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	if err := s.rdb.LTrim(ctx, key, 0, 9).Err(); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}
	return nil
}

// History returns the user's history, most recent first
func (s *Store) History(ctx context.Context, userID int64) ([]string, error) {
	return s.rdb.LRange(ctx, historyKey(userID), 0, -1).Result()
}

// AddApproved records a hostname into the durable approved set
func (s *Store) AddApproved(ctx context.Context, domain string) error {
	if err := s.rdb.SAdd(ctx, approvedKey, domain).Err(); err != nil {
		return fmt.Errorf("failed to record approved domain: %w", err)
	}
	return nil
}

// ApprovedDomains returns the approved set
func (s *Store) ApprovedDomains(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, approvedKey).Result()
}

func pendingKey(domain string, userID int64) string {
	return fmt.Sprintf("pending:%s:%d", domain, userID)
}

func resultKey(domain string) string {
	return fmt.Sprintf("result:%s", domain)
}

func historyKey(userID int64) string {
	return fmt.Sprintf("history:%d", userID)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "progress:snapshot:"
	watchedKey        = "progress:watched"
)

// SnapshotRepository caches aggregated order progress between requests and
// remembers which orders the dashboard has looked at recently.
type SnapshotRepository interface {
	Get(ctx context.Context, orderID int64) (progress.State, bool, error)
	Put(ctx context.Context, state progress.State) error
	Invalidate(ctx context.Context, orderID int64) error
	Touch(ctx context.Context, orderID int64, at time.Time) error
	Watched(ctx context.Context, since time.Time) ([]int64, error)
}

type redisSnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshotRepository(client *redis.Client, ttl time.Duration) SnapshotRepository {
	return &redisSnapshotRepository{client: client, ttl: ttl}
}

func snapshotKey(orderID int64) string {
	return snapshotKeyPrefix + strconv.FormatInt(orderID, 10)
}

func (r *redisSnapshotRepository) Get(ctx context.Context, orderID int64) (progress.State, bool, error) {
	raw, err := r.client.Get(ctx, snapshotKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return progress.State{}, false, nil
	}
	if err != nil {
		return progress.State{}, false, err
	}

	var state progress.State
	if err := json.Unmarshal(raw, &state); err != nil {
		// A snapshot written by an older build; treat as a miss.
		_ = r.client.Del(ctx, snapshotKey(orderID)).Err()
		return progress.State{}, false, nil
	}
	return state, true, nil
}

func (r *redisSnapshotRepository) Put(ctx context.Context, state progress.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return r.client.Set(ctx, snapshotKey(state.Order.ID), raw, r.ttl).Err()
}

func (r *redisSnapshotRepository) Invalidate(ctx context.Context, orderID int64) error {
	return r.client.Del(ctx, snapshotKey(orderID)).Err()
}

func (r *redisSnapshotRepository) Touch(ctx context.Context, orderID int64, at time.Time) error {
	return r.client.ZAdd(ctx, watchedKey, redis.Z{
		Score:  float64(at.Unix()),
		Member: strconv.FormatInt(orderID, 10),
	}).Err()
}

// Watched returns orders touched at or after since and forgets older ones.
func (r *redisSnapshotRepository) Watched(ctx context.Context, since time.Time) ([]int64, error) {
	cutoff := strconv.FormatInt(since.Unix(), 10)
	if err := r.client.ZRemRangeByScore(ctx, watchedKey, "-inf", "("+cutoff).Err(); err != nil {
		return nil, err
	}
	members, err := r.client.ZRangeByScore(ctx, watchedKey, &redis.ZRangeBy{Min: cutoff, Max: "+inf"}).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type memoryEntry struct {
	state     progress.State
	expiresAt time.Time
}

// memorySnapshotRepository backs the gateway when Redis is disabled.
type memorySnapshotRepository struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry
	watched map[int64]time.Time
}

func NewMemorySnapshotRepository(ttl time.Duration) SnapshotRepository {
	return newMemorySnapshotRepository(ttl, time.Now)
}

func newMemorySnapshotRepository(ttl time.Duration, now func() time.Time) *memorySnapshotRepository {
	return &memorySnapshotRepository{
		ttl:     ttl,
		now:     now,
		entries: make(map[int64]memoryEntry),
		watched: make(map[int64]time.Time),
	}
}

func (r *memorySnapshotRepository) Get(_ context.Context, orderID int64) (progress.State, bool, error) {
	r.mu.RLock()
	entry, ok := r.entries[orderID]
	r.mu.RUnlock()
	if !ok {
		return progress.State{}, false, nil
	}
	if r.ttl > 0 && !r.now().Before(entry.expiresAt) {
		r.mu.Lock()
		delete(r.entries, orderID)
		r.mu.Unlock()
		return progress.State{}, false, nil
	}
	return entry.state, true, nil
}

func (r *memorySnapshotRepository) Put(_ context.Context, state progress.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[state.Order.ID] = memoryEntry{state: state, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *memorySnapshotRepository) Invalidate(_ context.Context, orderID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, orderID)
	return nil
}

func (r *memorySnapshotRepository) Touch(_ context.Context, orderID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watched[orderID] = at
	return nil
}

func (r *memorySnapshotRepository) Watched(_ context.Context, since time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.watched))
	for id, at := range r.watched {
		if at.Before(since) {
			delete(r.watched, id)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"taxportal/internal/navigation"
)

const (
	snapKeyPrefix = "nav:snap:"
	genKeyPrefix  = "nav:gen:"
	// epochKey is bumped by Flush. A key's generation is its own counter
	// plus the epoch, so a flush invalidates every in-flight fetch.
	epochKey = "nav:epoch"

	// DefaultSnapshotTTL is how long a hierarchy snapshot stays cached.
	// It bounds how stale a visitor's categories can get without an
	// explicit invalidation.
	DefaultSnapshotTTL = 30 * time.Minute
)

var errStaleGeneration = errors.New("stale generation")

// SnapshotStore keeps hierarchy snapshots in Valkey. Each key has a
// generation counter next to it; SaveIfCurrent writes under WATCH so an
// Invalidate or Flush that lands mid-fetch wins.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore creates a snapshot store backed by client.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotStore{client: client, ttl: ttl}
}

// Load implements navigation.SnapshotStore.
func (s *SnapshotStore) Load(ctx context.Context, key string) (*navigation.Snapshot, uint64, error) {
	vals, err := s.client.MGet(ctx, snapKeyPrefix+key, genKeyPrefix+key, epochKey).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot load: %w", err)
	}

	gen, err := sumGens(vals[1], vals[2])
	if err != nil {
		return nil, 0, err
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, gen, nil
	}
	var snap navigation.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		slog.Warn("snapshot cache entry unreadable, ignoring", "key", key, "error", err)
		return nil, gen, nil
	}
	slog.Debug("snapshot cache hit", "key", key)
	return &snap, gen, nil
}

// SaveIfCurrent implements navigation.SnapshotStore.
func (s *SnapshotStore) SaveIfCurrent(ctx context.Context, key string, gen uint64, snap *navigation.Snapshot) (bool, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("snapshot marshal: %w", err)
	}

	genKey := genKeyPrefix + key
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, genKey, epochKey).Result()
		if err != nil {
			return err
		}
		current, err := sumGens(vals[0], vals[1])
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapKeyPrefix+key, payload, s.ttl)
			return nil
		})
		return err
	}, genKey, epochKey)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("snapshot save: %w", err)
	}
}

// Invalidate implements navigation.SnapshotStore.
func (s *SnapshotStore) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Del(ctx, snapKeyPrefix+key)
			pipe.Incr(ctx, genKeyPrefix+key)
			// Generations must outlive the snapshots they guard.
			pipe.Expire(ctx, genKeyPrefix+key, 2*s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("snapshot invalidate: %w", err)
	}
	return nil
}

// Flush removes every cached snapshot by scanning for the prefix. Used
// when the CMS announces a content change that affects all visitors.
// The epoch is bumped first so fetches started before the flush cannot
// save afterwards.
func (s *SnapshotStore) Flush(ctx context.Context) (int, error) {
	if err := s.client.Incr(ctx, epochKey).Err(); err != nil {
		return 0, fmt.Errorf("snapshot epoch: %w", err)
	}

	var cursor uint64
	var deleted int
	for {
		keys, next, err := s.client.Scan(ctx, cursor, snapKeyPrefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("snapshot scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("snapshot bulk delete: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("snapshot cache cleared", "deleted", deleted)
	}
	return deleted, nil
}

func sumGens(key, epoch any) (uint64, error) {
	g, err := parseGen(key)
	if err != nil {
		return 0, err
	}
	e, err := parseGen(epoch)
	if err != nil {
		return 0, err
	}
	return g + e, nil
}

func parseGen(v any) (uint64, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		if g == "" {
			return 0, nil
		}
		n, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("snapshot generation %q: %w", g, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("snapshot generation: unexpected %T", v)
	}
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/runlock/dlq"
	"github.com/xraph/runlock/id"
)

// AddDLQ upserts an entry under its jobID:executionID key and indexes it
// by dead-letter time. Re-adding the same execution overwrites, so the
// operation is idempotent.
func (s *Store) AddDLQ(ctx context.Context, e *dlq.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("runlock/redis: marshal dlq entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, dlqKey(e.Key()), data, 0)
	pipe.ZAdd(ctx, dlqIndexKey, goredis.Z{
		Score:  float64(e.DeadLetteredAt.UnixMilli()),
		Member: e.Key(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("runlock/redis: add dlq entry: %w", err)
	}
	return nil
}

// ListDLQ returns entries newest first.
func (s *Store) ListDLQ(ctx context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	keys, err := s.client.ZRevRange(ctx, dlqIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("runlock/redis: list dlq index: %w", err)
	}

	var entries []*dlq.Entry
	skipped := 0
	for _, k := range keys {
		e, getErr := s.getDLQByKey(ctx, k)
		if getErr != nil {
			// Index member without a backing entry (purged mid-scan).
			continue
		}
		if opts.JobID != "" && e.JobID != opts.JobID {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		entries = append(entries, e)
		if opts.Limit > 0 && len(entries) >= opts.Limit {
			break
		}
	}
	return entries, nil
}

// GetDLQ retrieves the entry for one execution.
func (s *Store) GetDLQ(ctx context.Context, jobID string, executionID id.ExecutionID) (*dlq.Entry, error) {
	return s.getDLQByKey(ctx, dlq.EntryKey(jobID, executionID))
}

// MarkReplayedDLQ stamps the entry's ReplayedAt.
func (s *Store) MarkReplayedDLQ(ctx context.Context, jobID string, executionID id.ExecutionID) error {
	entryKey := dlq.EntryKey(jobID, executionID)
	e, err := s.getDLQByKey(ctx, entryKey)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	e.ReplayedAt = &now

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("runlock/redis: marshal dlq entry: %w", err)
	}
	if err := s.client.Set(ctx, dlqKey(entryKey), data, 0).Err(); err != nil {
		return fmt.Errorf("runlock/redis: mark replayed %s: %w", entryKey, err)
	}
	return nil
}

// PurgeDLQ removes entries dead-lettered before the given time.
func (s *Store) PurgeDLQ(ctx context.Context, before time.Time) (int64, error) {
	cutoff := fmt.Sprintf("(%d", before.UnixMilli())
	keys, err := s.client.ZRangeByScore(ctx, dlqIndexKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("runlock/redis: purge dlq range: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for _, k := range keys {
		pipe.Del(ctx, dlqKey(k))
		pipe.ZRem(ctx, dlqIndexKey, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("runlock/redis: purge dlq: %w", err)
	}
	return int64(len(keys)), nil
}

// CountDLQ returns the total number of entries.
func (s *Store) CountDLQ(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, dlqIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("runlock/redis: count dlq: %w", err)
	}
	return n, nil
}

func (s *Store) getDLQByKey(ctx context.Context, entryKey string) (*dlq.Entry, error) {
	data, err := s.client.Get(ctx, dlqKey(entryKey)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("runlock/redis: dlq entry %s: not found", entryKey)
		}
		return nil, fmt.Errorf("runlock/redis: get dlq entry %s: %w", entryKey, err)
	}

	var e dlq.Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("runlock/redis: unmarshal dlq entry %s: %w", entryKey, err)
	}
	return &e, nil
}

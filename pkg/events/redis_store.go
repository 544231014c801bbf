package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisEventKeyPrefix = "events:record:"
	redisFailedSetKey   = "events:failed"
	redisDeadSetKey     = "events:dead"
)

// RedisStore keeps event records in Redis. SET NX on the record key is
// the idempotency claim, so concurrent deliveries of the same external
// id race on a single atomic write. Failed and dead-lettered ids live
// in sorted sets scored by receipt time for oldest-first listing.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithEventTTL bounds how long processed records are retained. Zero
// means keep forever.
func WithEventTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a Redis-backed event store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrStoreNil
	}
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func redisEventKey(externalID string) string {
	return redisEventKeyPrefix + externalID
}

func (s *RedisStore) Insert(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ok, err := s.client.SetNX(ctx, redisEventKey(event.ExternalID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if !ok {
		return ErrDuplicateEvent
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, externalID string) (*Event, error) {
	data, err := s.client.Get(ctx, redisEventKey(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &evt, nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, externalID string) error {
	return s.update(ctx, externalID, func(evt *Event) {
		evt.Status = StatusProcessed
		evt.LastError = nil
	})
}

func (s *RedisStore) MarkSkipped(ctx context.Context, externalID, reason string) error {
	return s.update(ctx, externalID, func(evt *Event) {
		evt.Status = StatusSkipped
		evt.LastError = &reason
	})
}

func (s *RedisStore) MarkFailed(ctx context.Context, externalID, errMsg string) error {
	return s.update(ctx, externalID, func(evt *Event) {
		evt.Status = StatusFailed
		evt.RetryCount++
		evt.LastError = &errMsg
	})
}

func (s *RedisStore) MarkDeadLetter(ctx context.Context, externalID string) error {
	return s.update(ctx, externalID, func(evt *Event) {
		evt.Status = StatusDeadLetter
	})
}

func (s *RedisStore) Requeue(ctx context.Context, externalID string) error {
	evt, err := s.Get(ctx, externalID)
	if err != nil {
		return err
	}
	if evt.Status != StatusDeadLetter {
		return ErrNotDeadLettered
	}
	return s.update(ctx, externalID, func(evt *Event) {
		evt.Status = StatusFailed
		evt.RetryCount = 0
		evt.LastError = nil
	})
}

// update rewrites the record and reconciles set membership with the
// resulting status in one pipeline.
func (s *RedisStore) update(ctx context.Context, externalID string, fn func(*Event)) error {
	evt, err := s.Get(ctx, externalID)
	if err != nil {
		return err
	}
	fn(evt)

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	score := float64(evt.ReceivedAt.UnixNano())
	member := redis.Z{Score: score, Member: externalID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisEventKey(externalID), data, s.ttl)
	switch evt.Status {
	case StatusFailed:
		pipe.ZAdd(ctx, redisFailedSetKey, member)
		pipe.ZRem(ctx, redisDeadSetKey, externalID)
	case StatusDeadLetter:
		pipe.ZRem(ctx, redisFailedSetKey, externalID)
		pipe.ZAdd(ctx, redisDeadSetKey, member)
	default:
		pipe.ZRem(ctx, redisFailedSetKey, externalID)
		pipe.ZRem(ctx, redisDeadSetKey, externalID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (s *RedisStore) ListFailed(ctx context.Context, belowRetries int8, limit int) ([]Event, error) {
	return s.listSet(ctx, redisFailedSetKey, limit, func(evt *Event) bool {
		return evt.Status == StatusFailed && evt.RetryCount < belowRetries
	})
}

func (s *RedisStore) ListDeadLetters(ctx context.Context, limit int) ([]Event, error) {
	return s.listSet(ctx, redisDeadSetKey, limit, func(evt *Event) bool {
		return evt.Status == StatusDeadLetter
	})
}

func (s *RedisStore) listSet(ctx context.Context, key string, limit int, keep func(*Event) bool) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.client.ZRange(ctx, key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	out := make([]Event, 0, len(ids))
	for _, id := range ids {
		evt, err := s.Get(ctx, id)
		if errors.Is(err, ErrEventNotFound) {
			// Record expired out from under the set; drop the stale membership.
			_ = s.client.ZRem(ctx, key, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		if keep(evt) {
			out = append(out, *evt)
		}
	}
	return out, nil
}

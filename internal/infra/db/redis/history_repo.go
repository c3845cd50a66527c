// Package redis keeps per-session detection history in Redis lists.
//
// Each session owns one list; new records are LPUSHed as msgpack blobs and
// the list is LTRIMmed to capacity in the same MULTI block, so index 0 is
// always the newest record.
package redis

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v7"
	"github.com/vmihailenco/msgpack/v5"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

const (
	historyPrefix  = "detector:history:"
	failurePrefix  = "detector:failures:"
	failureCap     = 100
	defaultListCap = 20
)

type HistoryRepository struct {
	client *redis.Client
}

// NewClient mirrors the options used by the rest of the stack.
func NewClient(address, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
}

func NewHistoryRepository(client *redis.Client) *HistoryRepository {
	return &HistoryRepository{client: client}
}

func historyKey(session string) string { return historyPrefix + session }

func (r *HistoryRepository) Append(ctx context.Context, rec *domain.Record, capacity int) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}
	key := historyKey(rec.SessionID)
	_, err = r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.LPush(key, data)
		if capacity > 0 {
			pipe.LTrim(key, 0, int64(capacity-1))
		}
		return nil
	})
	return err
}

func (r *HistoryRepository) Get(ctx context.Context, session string, id domain.RecordID) (*domain.Record, error) {
	records, err := r.load(ctx, session, -1)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *HistoryRepository) List(ctx context.Context, session string, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = defaultListCap
	}
	return r.load(ctx, session, int64(limit-1))
}

func (r *HistoryRepository) Summary(ctx context.Context, session string) (domain.Summary, error) {
	records, err := r.load(ctx, session, -1)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(records), nil
}

func (r *HistoryRepository) Clear(ctx context.Context, session string) error {
	return r.client.WithContext(ctx).Del(historyKey(session)).Err()
}

// Ping is used by the readiness probe.
func (r *HistoryRepository) Ping(ctx context.Context) error {
	return r.client.WithContext(ctx).Ping().Err()
}

func (r *HistoryRepository) load(ctx context.Context, session string, stop int64) ([]*domain.Record, error) {
	items, err := r.client.WithContext(ctx).LRange(historyKey(session), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Record, 0, len(items))
	for _, item := range items {
		var rec domain.Record
		if err := msgpack.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decoding history entry: %w", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

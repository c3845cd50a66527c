package redis

import (
	"context"

	"github.com/go-redis/redis/v7"
	"github.com/vmihailenco/msgpack/v5"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

type FailureRepository struct {
	client *redis.Client
}

func NewFailureRepository(client *redis.Client) *FailureRepository {
	return &FailureRepository{client: client}
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	data, err := msgpack.Marshal(f)
	if err != nil {
		return err
	}
	key := failurePrefix + f.SessionID
	_, err = r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.LPush(key, data)
		pipe.LTrim(key, 0, failureCap-1)
		return nil
	})
	return err
}

func (r *FailureRepository) ListBySession(ctx context.Context, session string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = defaultListCap
	}
	items, err := r.client.WithContext(ctx).LRange(failurePrefix+session, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Failure, 0, len(items))
	for _, item := range items {
		var f domain.Failure
		if err := msgpack.Unmarshal([]byte(item), &f); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, nil
}

package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

// maxFailuresPerSession bounds the in-memory failure log.
const maxFailuresPerSession = 100

type FailureRepository struct {
	mu       sync.Mutex
	sessions map[string][]*domain.Failure // newest first
}

func NewFailureRepository() *FailureRepository {
	return &FailureRepository{sessions: make(map[string][]*domain.Failure)}
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append([]*domain.Failure{f}, r.sessions[f.SessionID]...)
	if len(list) > maxFailuresPerSession {
		list = list[:maxFailuresPerSession]
	}
	r.sessions[f.SessionID] = list
	return nil
}

func (r *FailureRepository) ListBySession(ctx context.Context, session string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sessions[session]
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]*domain.Failure, len(list))
	copy(out, list)
	return out, nil
}

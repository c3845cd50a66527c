// Package memory keeps history and failures in process memory. It is the
// default backend and lives as long as the server process.
package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

type HistoryRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*domain.Record // newest first
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{sessions: make(map[string][]*domain.Record)}
}

// Append prepends r and drops the oldest records beyond capacity.
func (r *HistoryRepository) Append(ctx context.Context, rec *domain.Record, capacity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append([]*domain.Record{rec}, r.sessions[rec.SessionID]...)
	if capacity > 0 && len(list) > capacity {
		list = list[:capacity]
	}
	r.sessions[rec.SessionID] = list
	return nil
}

func (r *HistoryRepository) Get(ctx context.Context, session string, id domain.RecordID) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.sessions[session] {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *HistoryRepository) List(ctx context.Context, session string, limit int) ([]*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.sessions[session]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]*domain.Record, 0, len(list))
	for _, rec := range list {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *HistoryRepository) Summary(ctx context.Context, session string) (domain.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.Summarize(r.sessions[session]), nil
}

func (r *HistoryRepository) Clear(ctx context.Context, session string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, session)
	return nil
}

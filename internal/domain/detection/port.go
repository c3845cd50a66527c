package detection

import (
	"context"
	"encoding/json"
	"time"
)

// RawResult is the untouched provider answer, normalized later by Normalize.
type RawResult struct {
	Provider  string
	RequestID string
	Body      json.RawMessage
}

// Provider port (interface untuk hosted detection API)
type Provider interface {
	Name() string
	Detect(ctx context.Context, media *Media) (RawResult, error)
}

// HistoryRepository port (interface untuk persistence history)
type HistoryRepository interface {
	// Append stores r and evicts the oldest records of the session beyond capacity.
	Append(ctx context.Context, r *Record, capacity int) error
	Get(ctx context.Context, session string, id RecordID) (*Record, error)
	// List returns at most limit records, newest first.
	List(ctx context.Context, session string, limit int) ([]*Record, error)
	Summary(ctx context.Context, session string) (Summary, error)
	Clear(ctx context.Context, session string) error
}

// FailureRepository defines persistence for failed analyses
type FailureRepository interface {
	Save(ctx context.Context, f *Failure) error
	ListBySession(ctx context.Context, session string, limit int) ([]*Failure, error)
}

// MediaStore port (interface untuk penyimpanan media yang diupload)
type MediaStore interface {
	// Put stores the media under key and returns a URL usable as preview.
	Put(ctx context.Context, key string, media *Media) (string, error)
}

// Failure represents a persisted failed analysis
type Failure struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	File      string    `json:"file,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

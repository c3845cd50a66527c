package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO detection_failures
  (id, session_id, file_name, provider, phase, message, created_at)
VALUES (?,?,?,?,?,?,?)
`
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		f.ID, stringOrDash(f.SessionID), stringOrDash(f.File), stringOrDash(f.Provider),
		stringOrDash(string(f.Phase)), msg, created)
	return err
}

func (r *FailureRepository) ListBySession(ctx context.Context, session string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, session_id, file_name, provider, phase, message, created_at
FROM detection_failures
WHERE session_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Failure{}
	for rows.Next() {
		var f domain.Failure
		var phase string
		if err := rows.Scan(&f.ID, &f.SessionID, &f.File, &f.Provider, &phase, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Phase = domain.Phase(phase)
		out = append(out, &f)
	}
	return out, rows.Err()
}

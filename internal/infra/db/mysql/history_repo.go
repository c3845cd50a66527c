package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, session_id, file_name, prediction, confidence, display_time,
       COALESCE(preview_url,''), provider, request_id, media_type, size_bytes, result_json, created_at`

// Append insert record lalu buang record lama di luar capacity
func (r *HistoryRepository) Append(ctx context.Context, rec *domain.Record, capacity int) error {
	const insert = `
INSERT INTO detection_history
(id, session_id, file_name, prediction, confidence, display_time,
 preview_url, provider, request_id, media_type, size_bytes, result_json, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?);
`
	// keep only the newest `capacity` rows of the session
	const prune = `
DELETE FROM detection_history
WHERE session_id = ? AND seq NOT IN (
  SELECT seq FROM (
    SELECT seq FROM detection_history WHERE session_id = ? ORDER BY seq DESC LIMIT ?
  ) keep_rows
);`

	result := rec.Raw
	if strings.TrimSpace(result) == "" {
		// result_json column requires valid JSON; use empty object
		result = "{}"
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insert,
		rec.ID, rec.SessionID, stringOrDash(rec.File), string(rec.Prediction), rec.Confidence, rec.Time,
		rec.Preview, stringOrDash(rec.Provider), rec.RequestID, rec.MediaType, rec.SizeBytes, result, created,
	); err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}
	if capacity > 0 {
		if _, err := tx.ExecContext(ctx, prune, rec.SessionID, rec.SessionID, capacity); err != nil {
			return fmt.Errorf("pruning history: %w", err)
		}
	}
	return tx.Commit()
}

// Get by ID + Session
func (r *HistoryRepository) Get(ctx context.Context, session string, id domain.RecordID) (*domain.Record, error) {
	q := `SELECT ` + historyColumns + `
FROM detection_history
WHERE session_id=? AND id=? LIMIT 1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, session, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// List newest first
func (r *HistoryRepository) List(ctx context.Context, session string, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + historyColumns + `
FROM detection_history
WHERE session_id=? ORDER BY seq DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Summary counts predictions of the session
func (r *HistoryRepository) Summary(ctx context.Context, session string) (domain.Summary, error) {
	const q = `
SELECT COUNT(*),
       COALESCE(SUM(prediction='real'),0),
       COALESCE(SUM(prediction='fake'),0),
       COALESCE(SUM(prediction='deepfake'),0),
       COALESCE(SUM(prediction NOT IN ('real','fake','deepfake')),0),
       COALESCE(AVG(confidence),0)
FROM detection_history
WHERE session_id=?;`
	var s domain.Summary
	err := r.db.QueryRowContext(ctx, q, session).Scan(&s.Total, &s.Real, &s.Fake, &s.Deepfake, &s.Unknown, &s.AverageConfidence)
	return s, err
}

func (r *HistoryRepository) Clear(ctx context.Context, session string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM detection_history WHERE session_id=?;`, session)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var rec domain.Record
	var prediction string
	if err := row.Scan(
		&rec.ID, &rec.SessionID, &rec.File, &prediction, &rec.Confidence, &rec.Time,
		&rec.Preview, &rec.Provider, &rec.RequestID, &rec.MediaType, &rec.SizeBytes, &rec.Raw, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Prediction = domain.Prediction(prediction)
	rec.Percent = domain.Percent(rec.Confidence)
	return &rec, nil
}

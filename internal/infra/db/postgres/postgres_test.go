package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

var created = time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)

func TestAppendUsesSinglePrunePlaceholder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1,$2,$3,$4,$5,$6,")).
		WithArgs("r1", "s1", "clip.mp4", "deepfake", 0.7, "2026-10-16 08:00:00", "", "reality-defender", "rq", "video/mp4", int64(42), `{"a":1}`, created).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("ORDER BY seq DESC LIMIT $2")).
		WithArgs("s1", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := &domain.Record{
		ID: "r1", SessionID: "s1", File: "clip.mp4", Prediction: domain.PredictionDeepfake,
		Confidence: 0.7, Time: "2026-10-16 08:00:00", Provider: "reality-defender", RequestID: "rq",
		MediaType: "video/mp4", SizeBytes: 42, Raw: `{"a":1}`, CreatedAt: created,
	}
	require.NoError(t, NewHistoryRepository(db).Append(context.Background(), rec, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReturnsRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE session_id=$1 AND id=$2")).
		WithArgs("s1", "r1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "file_name", "prediction", "confidence", "display_time",
			"preview_url", "provider", "request_id", "media_type", "size_bytes", "result_json", "created_at",
		}).AddRow("r1", "s1", "a.png", "real", 0.6, "2026-10-16 08:00:00", "", "demo", "", "image/png", int64(1), "{}", created))

	rec, err := NewHistoryRepository(db).Get(context.Background(), "s1", "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionReal, rec.Prediction)
	assert.Equal(t, 60, rec.Percent)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestClearAndSummary(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM detection_history WHERE session_id=$1")).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE prediction='real')")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "real", "fake", "deepfake", "unknown", "avg"}).
			AddRow(0, 0, 0, 0, 0, 0.0))

	repo := NewHistoryRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Clear(ctx, "s1"))
	s, err := repo.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, s.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFailureListDefaultsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM detection_failures")).
		WithArgs("s1", 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "file_name", "provider", "phase", "message", "created_at"}).
			AddRow("f1", "s1", "a.png", "sightengine", "parse", "bad json", created))

	list, err := NewFailureRepository(db).ListBySession(context.Background(), "s1", -1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PhaseParse, list[0].Phase)
	assert.Equal(t, "bad json", list[0].Message)
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, EnsureSchema(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

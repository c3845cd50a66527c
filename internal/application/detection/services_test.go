package detection_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bryanwahyu/deepfake-detector/internal/application"
	appdetection "github.com/bryanwahyu/deepfake-detector/internal/application/detection"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/db/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	calls int
	body  string
	err   error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Detect(ctx context.Context, media *domain.Media) (domain.RawResult, error) {
	p.calls++
	if p.err != nil {
		return domain.RawResult{}, p.err
	}
	return domain.RawResult{Provider: "fake", RequestID: "req-1", Body: []byte(p.body)}, nil
}

type fakeMediaStore struct {
	keys []string
	err  error
}

func (s *fakeMediaStore) Put(ctx context.Context, key string, media *domain.Media) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.keys = append(s.keys, key)
	return "http://media.local/" + key, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n-image-bytes")

func newService(p domain.Provider) (*appdetection.Service, *application.FixedClock) {
	clock := &application.FixedClock{T: time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC)}
	return &appdetection.Service{
		Provider:     p,
		Repo:         memory.NewHistoryRepository(),
		FailureRepo:  memory.NewFailureRepository(),
		Clock:        clock,
		HistoryLimit: 3,
	}, clock
}

func TestAnalyzeWithoutFileMakesNoCall(t *testing.T) {
	p := &fakeProvider{body: `{"prediction":"real","confidence":0.9}`}
	svc, _ := newService(p)

	_, err := svc.Analyze(context.Background(), appdetection.AnalyzeCommand{SessionID: "s"})
	assert.ErrorIs(t, err, domain.ErrNoFile)
	assert.Equal(t, "Please choose a file first.", err.Error())
	assert.Equal(t, 0, p.calls)

	_, err = svc.Analyze(context.Background(), appdetection.AnalyzeCommand{
		SessionID: "s",
		Media:     &domain.Media{Filename: "empty.png"},
	})
	assert.ErrorIs(t, err, domain.ErrEmptyFile)
	assert.Equal(t, 0, p.calls)
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	p := &fakeProvider{body: `{"prediction":"real","confidence":0.9}`}
	svc, _ := newService(p)
	svc.MaxUploadBytes = 8

	_, err := svc.Analyze(context.Background(), appdetection.AnalyzeCommand{
		Media: &domain.Media{Filename: "big.png", Data: pngBytes},
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	svc.MaxUploadBytes = 0
	_, err = svc.Analyze(context.Background(), appdetection.AnalyzeCommand{
		Media: &domain.Media{Filename: "notes.txt", Data: []byte("plain text")},
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
	assert.Equal(t, 0, p.calls)
}

func TestAnalyzeAppendsRecord(t *testing.T) {
	p := &fakeProvider{body: `{"status":"success","genai":{"ai_generated":true,"confidence":0.876}}`}
	svc, _ := newService(p)
	store := &fakeMediaStore{}
	svc.Media = store
	ctx := context.Background()

	rec, err := svc.Analyze(ctx, appdetection.AnalyzeCommand{
		SessionID: "s1",
		Media:     &domain.Media{Filename: "face.png", Data: pngBytes},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, domain.PredictionFake, rec.Prediction)
	assert.Equal(t, 88, rec.Percent)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, "image/png", rec.MediaType)
	assert.Equal(t, "2026-10-16 08:00:00", rec.Time)
	require.Len(t, store.keys, 1)
	assert.Equal(t, "http://media.local/"+store.keys[0], rec.Preview)

	list, err := svc.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	report, err := svc.Report(ctx, "s1", rec.ID)
	require.NoError(t, err)
	assert.Contains(t, report, "Confidence: 88%")
}

func TestAnalyzePreviewFailureIsNotFatal(t *testing.T) {
	p := &fakeProvider{body: `{"prediction":"real","confidence":0.7}`}
	svc, _ := newService(p)
	svc.Media = &fakeMediaStore{err: errors.New("bucket gone")}

	rec, err := svc.Analyze(context.Background(), appdetection.AnalyzeCommand{
		Media: &domain.Media{Filename: "face.png", Data: pngBytes},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Preview)
	assert.Equal(t, appdetection.DefaultSession, rec.SessionID)
}

func TestAnalyzeProviderFailureIsRecorded(t *testing.T) {
	p := &fakeProvider{err: &domain.ProviderError{Provider: "fake", Phase: domain.PhaseUpload, StatusCode: 500, Err: errors.New("boom")}}
	svc, _ := newService(p)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, appdetection.AnalyzeCommand{
		SessionID: "s1",
		Media:     &domain.Media{Filename: "face.png", Data: pngBytes},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, 1, p.calls)

	failures, err := svc.Failures(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, domain.PhaseUpload, failures[0].Phase)
	assert.Equal(t, "fake", failures[0].Provider)

	list, err := svc.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	p := &fakeProvider{body: `{"status":"failure"}`}
	svc, _ := newService(p)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, appdetection.AnalyzeCommand{
		SessionID: "s1",
		Media:     &domain.Media{Filename: "face.png", Data: pngBytes},
	})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	failures, _ := svc.Failures(ctx, "s1", 10)
	require.Len(t, failures, 1)
	assert.Equal(t, domain.PhaseParse, failures[0].Phase)
}

func TestHistoryCapAndCSVInsertionOrder(t *testing.T) {
	p := &fakeProvider{}
	svc, clock := newService(p)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		p.body = fmt.Sprintf(`{"prediction":"fake","confidence":0.%d5}`, i)
		_, err := svc.Analyze(ctx, appdetection.AnalyzeCommand{
			SessionID: "s1",
			Media:     &domain.Media{Filename: fmt.Sprintf("f%d.png", i), Data: pngBytes},
		})
		require.NoError(t, err)
		clock.T = clock.T.Add(time.Minute)
	}

	list, err := svc.History(ctx, "s1", 100)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "f5.png", list[0].File)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, "s1", &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"f3.png", "fake", "35.0", "2026-10-16 08:02:00"}, rows[1])
	assert.Equal(t, []string{"f5.png", "fake", "55.0", "2026-10-16 08:04:00"}, rows[3])

	// exporting does not mutate history
	again, err := svc.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, "f5.png", again[0].File)

	sum, err := svc.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 3, sum.Fake)

	require.NoError(t, svc.Clear(ctx, "s1"))
	sum, err = svc.Summary(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Total)
}

func TestGetUnknownRecord(t *testing.T) {
	svc, _ := newService(&fakeProvider{})
	_, err := svc.Get(context.Background(), "s1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Report(context.Background(), "s1", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

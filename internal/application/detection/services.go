package detection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/deepfake-detector/internal/application"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/export"
)

const (
	DefaultHistoryLimit   = 20
	DefaultMaxUploadBytes = 50 << 20
	DefaultSession        = "default"
)

// Service implements use-cases untuk analisa media.
// Service is safe for concurrent use when its ports are.
type Service struct {
	Provider       domain.Provider
	Repo           domain.HistoryRepository
	FailureRepo    domain.FailureRepository // optional
	Media          domain.MediaStore        // optional
	Clock          application.Clock
	Logger         *zap.Logger
	HistoryLimit   int
	MaxUploadBytes int64
}

//
// ==== USE CASES ====
//

// AnalyzeCommand untuk satu upload
type AnalyzeCommand struct {
	SessionID string
	Media     *domain.Media
}

// Analyze validates the upload, calls the provider once and appends the
// normalized verdict to the session history. Nothing is retried.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Record, error) {
	session := sessionOrDefault(cmd.SessionID)
	if err := s.validate(cmd.Media); err != nil {
		return nil, err
	}
	media := cmd.Media
	log := s.logger().With(
		zap.String("session", session),
		zap.String("file", media.Filename),
		zap.String("provider", s.Provider.Name()),
	)

	raw, err := s.Provider.Detect(ctx, media)
	if err != nil {
		s.recordFailure(ctx, session, media.Filename, domain.PhaseOf(err, domain.PhaseRequest), err)
		log.Warn("provider request failed", zap.Error(err))
		return nil, err
	}

	verdict, err := domain.Normalize(raw.Body)
	if err != nil {
		s.recordFailure(ctx, session, media.Filename, domain.PhaseParse, err)
		log.Warn("provider response rejected", zap.Error(err), zap.ByteString("body", truncate(raw.Body, 512)))
		return nil, err
	}
	if verdict.RequestID == "" {
		verdict.RequestID = raw.RequestID
	}

	now := s.clock().Now()
	id := domain.RecordID(uuid.New().String())
	rec := domain.NewRecord(id, session, media, raw.Provider, verdict, string(raw.Body), now)

	if s.Media != nil {
		key := fmt.Sprintf("%s/%s/%s", session, id, path.Base(media.Filename))
		preview, err := s.Media.Put(ctx, key, media)
		if err != nil {
			// preview is optional, analysis still counts
			log.Warn("media upload failed", zap.Error(err))
		} else {
			rec.Preview = preview
		}
	}

	if err := s.Repo.Append(ctx, rec, s.historyLimit()); err != nil {
		s.recordFailure(ctx, session, media.Filename, domain.PhaseStore, err)
		return nil, fmt.Errorf("saving history: %w", err)
	}

	log.Info("analysis complete",
		zap.String("id", string(rec.ID)),
		zap.String("prediction", string(rec.Prediction)),
		zap.Int("percent", rec.Percent),
	)
	return rec, nil
}

func (s *Service) validate(m *domain.Media) error {
	if m == nil || strings.TrimSpace(m.Filename) == "" && len(m.Data) == 0 {
		return domain.ErrNoFile
	}
	if m.Size() == 0 {
		return domain.ErrEmptyFile
	}
	if m.Size() > s.maxUploadBytes() {
		return fmt.Errorf("%w: %d bytes (max %d)", domain.ErrFileTooLarge, m.Size(), s.maxUploadBytes())
	}
	m.DetectContentType()
	if m.Kind() == domain.MediaOther {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, m.ContentType)
	}
	return nil
}

// History returns up to limit records, newest first.
func (s *Service) History(ctx context.Context, session string, limit int) ([]*domain.Record, error) {
	if limit <= 0 || limit > s.historyLimit() {
		limit = s.historyLimit()
	}
	return s.Repo.List(ctx, sessionOrDefault(session), limit)
}

// Get ambil 1 record by id
func (s *Service) Get(ctx context.Context, session string, id domain.RecordID) (*domain.Record, error) {
	return s.Repo.Get(ctx, sessionOrDefault(session), id)
}

// Summary rekap prediksi untuk chart
func (s *Service) Summary(ctx context.Context, session string) (domain.Summary, error) {
	return s.Repo.Summary(ctx, sessionOrDefault(session))
}

// Clear drops the session history.
func (s *Service) Clear(ctx context.Context, session string) error {
	return s.Repo.Clear(ctx, sessionOrDefault(session))
}

// Failures lists recorded failures of the session, newest first.
func (s *Service) Failures(ctx context.Context, session string, limit int) ([]*domain.Failure, error) {
	if s.FailureRepo == nil {
		return []*domain.Failure{}, nil
	}
	return s.FailureRepo.ListBySession(ctx, sessionOrDefault(session), limit)
}

// ExportCSV writes the session history in insertion order.
func (s *Service) ExportCSV(ctx context.Context, session string, w io.Writer) error {
	list, err := s.Repo.List(ctx, sessionOrDefault(session), s.historyLimit())
	if err != nil {
		return err
	}
	return export.WriteCSV(w, export.InsertionOrder(list))
}

// Report renders the plain-text report of one record.
func (s *Service) Report(ctx context.Context, session string, id domain.RecordID) (string, error) {
	rec, err := s.Get(ctx, session, id)
	if err != nil {
		return "", err
	}
	return export.Report(rec), nil
}

func (s *Service) recordFailure(ctx context.Context, session, file string, phase domain.Phase, cause error) {
	if s.FailureRepo == nil {
		return
	}
	provider := ""
	var pe *domain.ProviderError
	if errors.As(cause, &pe) {
		provider = pe.Provider
	} else if s.Provider != nil {
		provider = s.Provider.Name()
	}
	f := &domain.Failure{
		ID:        uuid.New().String(),
		SessionID: session,
		File:      file,
		Provider:  provider,
		Phase:     phase,
		Message:   cause.Error(),
		CreatedAt: s.clock().Now(),
	}
	if err := s.FailureRepo.Save(ctx, f); err != nil {
		s.logger().Error("failed to persist failure", zap.Error(err))
	}
}

// helper

func (s *Service) historyLimit() int {
	if s.HistoryLimit <= 0 {
		return DefaultHistoryLimit
	}
	return s.HistoryLimit
}

func (s *Service) maxUploadBytes() int64 {
	if s.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return s.MaxUploadBytes
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func sessionOrDefault(session string) string {
	if strings.TrimSpace(session) == "" {
		return DefaultSession
	}
	return session
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

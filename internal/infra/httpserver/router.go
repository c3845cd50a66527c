package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appdetection "github.com/bryanwahyu/deepfake-detector/internal/application/detection"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/middleware"
)

// multipart bookkeeping on top of the file itself
const formOverhead = 1 << 20

type Options struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	APIKeys        map[string]string
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Checkers       map[string]middleware.HealthChecker
	MaxUploadBytes int64
}

type Router struct {
	svc      *appdetection.Service
	log      *zap.Logger
	maxBytes int64
}

func NewRouter(svc *appdetection.Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = appdetection.DefaultMaxUploadBytes
	}
	r := &Router{svc: svc, log: log, maxBytes: maxBytes}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(corsOptions(opts.AllowedOrigins)))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/metrics", middleware.MetricsHandler)

	// endpoints dari backend lama, selalu session default
	mux.Post("/api/detect", r.wrap(r.handleLegacyDetect))
	mux.Post("/analyze", r.wrap(r.handleAnalyze))

	mux.Route("/v1/{session}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidSession)
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Delete("/history", r.wrap(r.handleClear))
		rt.Get("/history.csv", r.wrap(r.handleExportCSV))
		rt.Get("/history/{id}", r.wrap(r.handleGet))
		rt.Get("/history/{id}/report", r.wrap(r.handleReport))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Get("/failures", r.wrap(r.handleFailures))
	})

	return mux
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}
	// credentials are not allowed together with a wildcard origin
	for _, o := range origins {
		if o == "*" {
			return opts
		}
	}
	opts.AllowCredentials = true
	return opts
}

// badRequest marks client mistakes outside the domain errors.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		code, msg := statusFor(err)
		if code >= http.StatusInternalServerError {
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		}
		http.Error(w, msg, code)
	}
}

func statusFor(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, br.msg
	case errors.Is(err, domain.ErrNoFile):
		return http.StatusBadRequest, domain.ErrNoFile.Error()
	case errors.Is(err, domain.ErrEmptyFile):
		return http.StatusBadRequest, domain.ErrEmptyFile.Error()
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "provider quota exceeded"
	case errors.Is(err, domain.ErrAnalysisFailed):
		return http.StatusBadGateway, domain.ErrAnalysisFailed.Error()
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "Upload failed: " + err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// readMedia pulls the uploaded file out of a multipart request.
// Field "file" is preferred, "media" is accepted as well.
func (r *Router) readMedia(w http.ResponseWriter, req *http.Request) (*domain.Media, error) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxBytes+formOverhead)
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: max %d bytes", domain.ErrFileTooLarge, r.maxBytes)
		}
		return nil, domain.ErrNoFile
	}

	file, header, err := req.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = req.FormFile("media")
	}
	if err != nil {
		return nil, domain.ErrNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", domain.ErrFileTooLarge, r.maxBytes)
	}
	return &domain.Media{
		Filename:    middleware.SanitizeFilename(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (r *Router) analyze(w http.ResponseWriter, req *http.Request, session string) (*domain.Record, error) {
	media, err := r.readMedia(w, req)
	if err != nil {
		return nil, err
	}
	done := middleware.StartAnalysis()
	defer done()

	rec, err := r.svc.Analyze(req.Context(), appdetection.AnalyzeCommand{SessionID: session, Media: media})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return nil, err
	}
	middleware.RecordVerdict(rec.Prediction.IsSynthetic())
	return rec, nil
}

// POST /v1/{session}/analyze and POST /analyze
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	session := chi.URLParam(req, "session")
	if session == "" {
		session = appdetection.DefaultSession
	}
	rec, err := r.analyze(w, req, session)
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// POST /api/detect
// Jawab format lama: {"message": ..., "confidence": <persen>}
func (r *Router) handleLegacyDetect(w http.ResponseWriter, req *http.Request) error {
	rec, err := r.analyze(w, req, appdetection.DefaultSession)
	if err != nil {
		return err
	}
	return writeJSON(w, map[string]any{
		"message":    "Analysis complete",
		"prediction": rec.Prediction,
		"confidence": rec.Percent,
	})
}

// GET /v1/{session}/history?limit=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit := middleware.ParseLimit(req.URL.Query().Get("limit"))
	list, err := r.svc.History(req.Context(), chi.URLParam(req, "session"), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

func recordID(req *http.Request) (domain.RecordID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRecordID(id); err != nil {
		return "", badRequest{msg: err.Error()}
	}
	return domain.RecordID(id), nil
}

// GET /v1/{session}/history/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	rec, err := r.svc.Get(req.Context(), chi.URLParam(req, "session"), id)
	if err != nil {
		return err
	}
	return writeJSON(w, rec)
}

// GET /v1/{session}/history/{id}/report
func (r *Router) handleReport(w http.ResponseWriter, req *http.Request) error {
	id, err := recordID(req)
	if err != nil {
		return err
	}
	report, err := r.svc.Report(req.Context(), chi.URLParam(req, "session"), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.txt"`, id))
	_, err = io.WriteString(w, report)
	return err
}

// GET /v1/{session}/history.csv
func (r *Router) handleExportCSV(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="detection_history.csv"`)
	return r.svc.ExportCSV(req.Context(), chi.URLParam(req, "session"), w)
}

// DELETE /v1/{session}/history
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	if err := r.svc.Clear(req.Context(), chi.URLParam(req, "session")); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/{session}/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	sum, err := r.svc.Summary(req.Context(), chi.URLParam(req, "session"))
	if err != nil {
		return err
	}
	return writeJSON(w, sum)
}

// GET /v1/{session}/failures?limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	limit := middleware.ParseLimit(req.URL.Query().Get("limit"))
	list, err := r.svc.Failures(req.Context(), chi.URLParam(req, "session"), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

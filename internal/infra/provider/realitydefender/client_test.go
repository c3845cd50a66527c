package realitydefender_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/realitydefender"
)

type fakeRD struct {
	srv       *httptest.Server
	uploaded  []byte
	uploadCT  string
	polls     int32
	readyAt   int32
	noRequest bool
}

func newFakeRD(t *testing.T) *fakeRD {
	f := &fakeRD{readyAt: 1}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/files/aws-presigned", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "face.jpg", body["fileName"])
		resp := map[string]any{"url": f.srv.URL + "/upload/abc"}
		if !f.noRequest {
			resp["request_id"] = "req-42"
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/upload/abc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		f.uploadCT = r.Header.Get("Content-Type")
		f.uploaded, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/media/users/req-42", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.polls, 1)
		status := "MANIPULATED"
		if n < f.readyAt {
			status = "ANALYZING"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"resultsSummary": map[string]any{
				"status":   status,
				"metadata": map[string]any{"finalScore": 91},
			},
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRD) client(maxPolls int) *realitydefender.Client {
	return realitydefender.New(realitydefender.Config{
		APIKey:            "secret",
		PresignedEndpoint: f.srv.URL + "/api/files/aws-presigned",
		ResultEndpoint:    f.srv.URL + "/api/media/users/{request_id}",
		PollInterval:      time.Millisecond,
		MaxPolls:          maxPolls,
	})
}

func media() *domain.Media {
	return &domain.Media{Filename: "face.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")}
}

func TestDetectFullFlow(t *testing.T) {
	f := newFakeRD(t)
	f.readyAt = 3

	raw, err := f.client(5).Detect(t.Context(), media())
	require.NoError(t, err)
	assert.Equal(t, realitydefender.Name, raw.Provider)
	assert.Equal(t, "req-42", raw.RequestID)
	assert.Equal(t, []byte("jpeg-bytes"), f.uploaded)
	assert.Equal(t, "image/jpeg", f.uploadCT)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.polls))

	v, err := domain.Normalize(raw.Body)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionFake, v.Prediction)
	assert.Equal(t, 91, v.Percent())
	assert.Equal(t, "req-42", v.RequestID)
}

func TestDetectStopsAtMaxPolls(t *testing.T) {
	f := newFakeRD(t)
	f.readyAt = 10

	raw, err := f.client(2).Detect(t.Context(), media())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.polls))

	v, err := domain.Normalize(raw.Body)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionUnknown, v.Prediction)
}

func TestDetectMissingRequestID(t *testing.T) {
	f := newFakeRD(t)
	f.noRequest = true

	_, err := f.client(1).Detect(t.Context(), media())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProvider)
	assert.Equal(t, domain.PhasePresign, domain.PhaseOf(err, ""))
	assert.Contains(t, err.Error(), "No request_id returned")
}

func TestDetectWithoutAPIKey(t *testing.T) {
	c := realitydefender.New(realitydefender.Config{})
	_, err := c.Detect(t.Context(), media())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REALITY_API_KEY not set")
}

func TestDetectUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := realitydefender.New(realitydefender.Config{APIKey: "k", PresignedEndpoint: srv.URL})
	_, err := c.Detect(t.Context(), media())
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kaboom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c = realitydefender.New(realitydefender.Config{APIKey: "k", PresignedEndpoint: bad.URL})
	_, err = c.Detect(t.Context(), media())
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusInternalServerError, pe.StatusCode)
	assert.Contains(t, err.Error(), "Server error 500: kaboom")
}

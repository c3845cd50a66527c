package openai_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	aiopenai "github.com/bryanwahyu/deepfake-detector/internal/infra/ai/openai"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func image() *domain.Media {
	return &domain.Media{Filename: "face.png", ContentType: "image/png", Data: []byte("png")}
}

func TestDetectSendsImageAndParsesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "data:image/png;base64,cG5n")
		assert.Contains(t, string(body), `"json_object"`)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion(`{"prediction":"deepfake","confidence":0.83,"reasoning":"blending seams"}`))
	}))
	defer srv.Close()

	c := aiopenai.NewClient("sk-test", "", srv.URL)
	raw, err := c.Detect(t.Context(), image())
	require.NoError(t, err)
	assert.Equal(t, "chatcmpl-1", raw.RequestID)

	v, err := domain.Normalize(raw.Body)
	require.NoError(t, err)
	assert.Equal(t, domain.PredictionDeepfake, v.Prediction)
	assert.Equal(t, 83, v.Percent())
}

func TestDetectRejectsVideo(t *testing.T) {
	c := aiopenai.NewClient("sk-test", "", "http://127.0.0.1:1")
	_, err := c.Detect(t.Context(), &domain.Media{Filename: "a.mp4", ContentType: "video/mp4", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
}

func TestDetectQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	c := aiopenai.NewClient("sk-test", "gpt-4o-mini", srv.URL)
	_, err := c.Detect(t.Context(), image())
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
}

func TestDetectMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion("not json"))
	}))
	defer srv.Close()

	c := aiopenai.NewClient("sk-test", "", srv.URL)
	_, err := c.Detect(t.Context(), image())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

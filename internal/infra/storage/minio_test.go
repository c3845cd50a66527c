package storage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/storage"
)

// fakeS3 answers just enough of the S3 protocol for BucketExists and PutObject.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestPutReturnsPresignedPreview(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	endpoint := strings.TrimPrefix(srv.URL, "http://")
	store, err := storage.New(ctx, endpoint, "us-east-1", "media", "access", "secret", false, time.Hour)
	require.NoError(t, err)

	media := &domain.Media{Filename: "face.png", ContentType: "image/png", Data: []byte("png-bytes")}
	preview, err := store.Put(ctx, "s1/r1/face.png", media)
	require.NoError(t, err)

	assert.Contains(t, preview, "/media/s1/r1/face.png")
	assert.Contains(t, preview, "X-Amz-Signature=")
	assert.Contains(t, preview, "X-Amz-Expires=3600")

	fake.mu.Lock()
	// body may be aws-chunked framed, the payload is in there either way
	stored := string(fake.objects["/media/s1/r1/face.png"])
	contentType := fake.types["/media/s1/r1/face.png"]
	fake.mu.Unlock()
	assert.Contains(t, stored, "png-bytes")
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, store.Ping(ctx))
}

package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdetection "github.com/bryanwahyu/deepfake-detector/internal/application/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/client"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/db/memory"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/httpserver"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/demo"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	svc := &appdetection.Service{
		Provider:    demo.New(7, 0),
		Repo:        memory.NewHistoryRepository(),
		FailureRepo: memory.NewFailureRepository(),
	}
	srv := httptest.NewServer(httpserver.NewRouter(svc, httpserver.Options{}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestClientRoundTrip(t *testing.T) {
	srv := newAPI(t)
	c := client.New(srv.URL, "cli")
	ctx := context.Background()

	png := writeFile(t, "face.png", []byte("\x89PNG\r\n\x1a\nbody"))
	rec, err := c.AnalyzeFile(ctx, png)
	require.NoError(t, err)
	assert.Equal(t, "face.png", rec.File)
	assert.Equal(t, "cli", rec.SessionID)
	assert.GreaterOrEqual(t, rec.Percent, 50)
	assert.LessOrEqual(t, rec.Percent, 99)

	list, err := c.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	sum, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)

	var csvOut bytes.Buffer
	require.NoError(t, c.ExportCSV(ctx, &csvOut))
	assert.True(t, strings.HasPrefix(csvOut.String(), "file,prediction,confidence,time\n"))

	var report bytes.Buffer
	require.NoError(t, c.Report(ctx, string(rec.ID), &report))
	assert.Contains(t, report.String(), "Deepfake Detection Report")

	require.NoError(t, c.Clear(ctx))
	list, err = c.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	failures, err := c.Failures(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestAnalyzeWithoutPathMakesNoRequest(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	_, err := client.New(srv.URL, "").AnalyzeFile(context.Background(), " ")
	require.ErrorIs(t, err, domain.ErrNoFile)
	assert.Zero(t, hits)
}

func TestAPIErrorCarriesPlainText(t *testing.T) {
	srv := newAPI(t)
	c := client.New(srv.URL, "cli")

	_, err := c.Analyze(context.Background(), "notes.txt", []byte("just text"))
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnsupportedMediaType, apiErr.StatusCode)

	err = c.Report(context.Background(), "3f1c6a36-5f55-4d59-9d77-1c1f4e0b2a10", &bytes.Buffer{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not found", apiErr.Message)
}

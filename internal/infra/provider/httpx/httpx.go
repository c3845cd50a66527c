// Package httpx holds the small HTTP helpers shared by provider adapters.
package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

// MaxResponseBytes caps how much of a provider answer is read.
const MaxResponseBytes = 4 << 20

// NewClient returns an http.Client with the given timeout (30s when zero).
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Fail wraps err as a ProviderError.
func Fail(provider string, phase domain.Phase, err error) error {
	return &domain.ProviderError{Provider: provider, Phase: phase, Err: err}
}

// ReadResponse reads the body and turns non-2xx answers into ProviderErrors.
// 429 maps onto ErrQuotaExceeded.
func ReadResponse(provider string, phase domain.Phase, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, Fail(provider, phase, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	var cause error
	if resp.StatusCode == http.StatusTooManyRequests {
		cause = domain.ErrQuotaExceeded
	} else {
		text := strings.TrimSpace(string(body))
		if len(text) > 300 {
			text = text[:300] + "..."
		}
		cause = errors.New(text)
	}
	return nil, &domain.ProviderError{Provider: provider, Phase: phase, StatusCode: resp.StatusCode, Err: cause}
}

// MultipartFile builds a multipart body with the media under fileField plus
// plain form fields.
func MultipartFile(fileField string, media *domain.Media, fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(fileField), escapeQuotes(media.Filename)))
	ct := media.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(media.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// Package client is a small HTTP client for the detector API, used by detectctl.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

const DefaultBaseURL = "http://localhost:8000"

// APIError is a non-2xx answer from the API; Message is the plain-text body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type Client struct {
	BaseURL string
	Session string
	APIKey  string
	HTTP    *http.Client
}

func New(baseURL, session string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if session == "" {
		session = "default"
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Session: session,
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *Client) endpoint(p string, q url.Values) string {
	u := fmt.Sprintf("%s/v1/%s%s", c.BaseURL, url.PathEscape(c.Session), p)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// AnalyzeFile uploads one file. An empty path fails before any request.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*domain.Record, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.ErrNoFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Analyze(ctx, filepath.Base(path), data)
}

func (c *Client) Analyze(ctx context.Context, filename string, data []byte) (*domain.Record, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/analyze", nil), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rec domain.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return &rec, nil
}

func (c *Client) History(ctx context.Context, limit int) ([]*domain.Record, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var list []*domain.Record
	return list, c.getJSON(ctx, c.endpoint("/history", q), &list)
}

func (c *Client) Summary(ctx context.Context) (domain.Summary, error) {
	var s domain.Summary
	return s, c.getJSON(ctx, c.endpoint("/summary", nil), &s)
}

func (c *Client) Failures(ctx context.Context, limit int) ([]*domain.Failure, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var list []*domain.Failure
	return list, c.getJSON(ctx, c.endpoint("/failures", q), &list)
}

// ExportCSV streams the session CSV into w.
func (c *Client) ExportCSV(ctx context.Context, w io.Writer) error {
	return c.stream(ctx, c.endpoint("/history.csv", nil), w)
}

// Report streams the text report of record id into w.
func (c *Client) Report(ctx context.Context, id string, w io.Writer) error {
	return c.stream(ctx, c.endpoint("/history/"+url.PathEscape(id)+"/report", nil), w)
}

func (c *Client) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("/history", nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func (c *Client) stream(ctx context.Context, u string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

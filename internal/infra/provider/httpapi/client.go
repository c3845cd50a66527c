// Package httpapi forwards uploads to another detection backend that speaks
// the multipart "file" protocol, e.g. POST {base}/analyze or {base}/api/detect.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/httpx"
)

const (
	Name        = "http"
	DefaultPath = "/analyze"
)

type Config struct {
	BaseURL string
	Path    string
	Timeout time.Duration
}

type Client struct {
	url  string
	http *http.Client
}

func New(cfg Config) *Client {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &Client{
		url:  strings.TrimRight(cfg.BaseURL, "/") + path,
		http: httpx.NewClient(cfg.Timeout),
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Detect(ctx context.Context, media *domain.Media) (domain.RawResult, error) {
	if strings.HasPrefix(c.url, "/") {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, errors.New("base_url not configured"))
	}
	body, contentType, err := httpx.MultipartFile("file", media, nil)
	if err != nil {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, err)
	}
	raw, err := httpx.ReadResponse(Name, domain.PhaseRequest, resp)
	if err != nil {
		return domain.RawResult{}, err
	}
	return domain.RawResult{Provider: Name, Body: raw}, nil
}

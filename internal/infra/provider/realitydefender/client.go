// Package realitydefender talks to the Reality Defender signed-URL API:
// request a presigned upload URL, PUT the media, then fetch the result.
package realitydefender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/httpx"
)

const (
	Name = "reality-defender"

	DefaultPresignedEndpoint = "https://api.prd.realitydefender.xyz/api/files/aws-presigned"
	DefaultResultEndpoint    = "https://api.prd.realitydefender.xyz/api/media/users/{request_id}"
)

type Config struct {
	APIKey            string
	PresignedEndpoint string
	ResultEndpoint    string // must contain {request_id}
	PollInterval      time.Duration
	MaxPolls          int
	Timeout           time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.PresignedEndpoint == "" {
		cfg.PresignedEndpoint = DefaultPresignedEndpoint
	}
	if cfg.ResultEndpoint == "" {
		cfg.ResultEndpoint = DefaultResultEndpoint
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, http: httpx.NewClient(timeout)}
}

func (c *Client) Name() string { return Name }

// Detect runs presign → upload → result and returns the backend envelope
// {provider, request_id, raw}.
func (c *Client) Detect(ctx context.Context, media *domain.Media) (domain.RawResult, error) {
	presigned, err := c.presign(ctx, media.Filename)
	if err != nil {
		return domain.RawResult{}, err
	}
	if err := c.upload(ctx, presigned.URL, media); err != nil {
		return domain.RawResult{}, err
	}
	if presigned.RequestID == "" {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhasePresign, errors.New("No request_id returned"))
	}
	result, err := c.result(ctx, presigned.RequestID)
	if err != nil {
		return domain.RawResult{}, err
	}

	envelope, err := json.Marshal(map[string]any{
		"provider":   Name,
		"request_id": presigned.RequestID,
		"raw":        result,
	})
	if err != nil {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseResult, err)
	}
	return domain.RawResult{Provider: Name, RequestID: presigned.RequestID, Body: envelope}, nil
}

type presignedURL struct {
	URL       string
	RequestID string
}

func (c *Client) presign(ctx context.Context, fileName string) (presignedURL, error) {
	if c.cfg.APIKey == "" {
		return presignedURL{}, httpx.Fail(Name, domain.PhasePresign, errors.New("REALITY_API_KEY not set"))
	}
	payload, _ := json.Marshal(map[string]string{"fileName": fileName})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.PresignedEndpoint, bytes.NewReader(payload))
	if err != nil {
		return presignedURL{}, httpx.Fail(Name, domain.PhasePresign, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return presignedURL{}, httpx.Fail(Name, domain.PhasePresign, err)
	}
	body, err := httpx.ReadResponse(Name, domain.PhasePresign, resp)
	if err != nil {
		return presignedURL{}, err
	}

	var doc struct {
		URL          string `json:"url"`
		PresignedURL string `json:"presigned_url"`
		SignedURL    string `json:"signedUrl"`
		RequestID    string `json:"request_id"`
		RequestIDAlt string `json:"requestId"`
		Response     struct {
			SignedURL string `json:"signedUrl"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return presignedURL{}, httpx.Fail(Name, domain.PhasePresign, fmt.Errorf("decoding presigned response: %w", err))
	}
	out := presignedURL{
		URL:       firstNonEmpty(doc.URL, doc.PresignedURL, doc.SignedURL, doc.Response.SignedURL),
		RequestID: firstNonEmpty(doc.RequestID, doc.RequestIDAlt),
	}
	if out.URL == "" {
		return presignedURL{}, httpx.Fail(Name, domain.PhasePresign, errors.New("Presigned URL missing"))
	}
	return out, nil
}

func (c *Client) upload(ctx context.Context, url string, media *domain.Media) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(media.Data))
	if err != nil {
		return httpx.Fail(Name, domain.PhaseUpload, err)
	}
	req.Header.Set("Content-Type", media.ContentType)
	req.ContentLength = media.Size()

	resp, err := c.http.Do(req)
	if err != nil {
		return httpx.Fail(Name, domain.PhaseUpload, err)
	}
	_, err = httpx.ReadResponse(Name, domain.PhaseUpload, resp)
	return err
}

// result fetches the analysis, polling while it is still running.
func (c *Client) result(ctx context.Context, requestID string) (map[string]any, error) {
	url := strings.ReplaceAll(c.cfg.ResultEndpoint, "{request_id}", requestID)
	var doc map[string]any
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, httpx.Fail(Name, domain.PhaseResult, err)
		}
		c.authorize(req)
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, httpx.Fail(Name, domain.PhaseResult, err)
		}
		body, err := httpx.ReadResponse(Name, domain.PhaseResult, resp)
		if err != nil {
			return nil, err
		}
		doc = nil
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, httpx.Fail(Name, domain.PhaseResult, fmt.Errorf("decoding result: %w", err))
		}
		if !stillRunning(doc) || attempt >= c.cfg.MaxPolls {
			return doc, nil
		}

		select {
		case <-ctx.Done():
			return nil, httpx.Fail(Name, domain.PhaseResult, ctx.Err())
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func stillRunning(doc map[string]any) bool {
	rs, ok := doc["resultsSummary"].(map[string]any)
	if !ok {
		return false
	}
	status, _ := rs["status"].(string)
	switch strings.ToUpper(status) {
	case "ANALYZING", "PROCESSING", "PENDING":
		return true
	}
	return false
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("X-API-KEY", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

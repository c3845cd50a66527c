package sightengine

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/httpx"
)

const (
	Name            = "sightengine"
	DefaultEndpoint = "https://api.sightengine.com/1.0/check.json"
	DefaultModels   = "genai"
)

type Config struct {
	APIUser   string
	APISecret string
	Endpoint  string
	Models    string
	Timeout   time.Duration
}

// Client posts media to the Sightengine check endpoint. The answer is
// returned as-is; a "failure" status is rejected during normalization.
type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Models == "" {
		cfg.Models = DefaultModels
	}
	return &Client{cfg: cfg, http: httpx.NewClient(cfg.Timeout)}
}

func (c *Client) Name() string { return Name }

func (c *Client) Detect(ctx context.Context, media *domain.Media) (domain.RawResult, error) {
	if c.cfg.APIUser == "" || c.cfg.APISecret == "" {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, errors.New("sightengine credentials not set"))
	}
	body, contentType, err := httpx.MultipartFile("media", media, map[string]string{
		"models":     c.cfg.Models,
		"api_user":   c.cfg.APIUser,
		"api_secret": c.cfg.APISecret,
	})
	if err != nil {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return domain.RawResult{}, httpx.Fail(Name, domain.PhaseRequest, err)
	}
	req.Header.Set("Content-Type", contentType)

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

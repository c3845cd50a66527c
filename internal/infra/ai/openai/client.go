package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/ai/prompt"
)

const (
	Name         = "openai"
	DefaultModel = "gpt-4o-mini"
	maxTokens    = 512
)

// Client classifies images with a vision-capable chat model.
type Client struct {
	*openai.Client
	Model string
}

// NewClient creates a client; baseURL may be empty for the public API.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Name() string { return Name }

func (c *Client) Detect(ctx context.Context, media *domain.Media) (domain.RawResult, error) {
	if media.Kind() != domain.MediaImage {
		return domain.RawResult{}, &domain.ProviderError{
			Provider: Name, Phase: domain.PhaseRequest,
			Err: fmt.Errorf("%w: openai provider only accepts images", domain.ErrUnsupportedMedia),
		}
	}
	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	dataURL := "data:" + media.ContentType + ";base64," + base64.StdEncoding.EncodeToString(media.Data)
	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt.GetUserPrompt(media.Filename)},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.RawResult{}, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return domain.RawResult{}, &domain.ProviderError{Provider: Name, Phase: domain.PhaseResult, Err: errors.New("empty completion")}
	}

	var out prompt.Classification
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return domain.RawResult{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	body, err := json.Marshal(out)
	if err != nil {
		return domain.RawResult{}, err
	}
	return domain.RawResult{Provider: Name, RequestID: resp.ID, Body: body}, nil
}

func classifyError(err error) error {
	pe := &domain.ProviderError{Provider: Name, Phase: domain.PhaseRequest, Err: err}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.HTTPStatusCode
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			pe.Err = fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, apiErr.Message)
		}
		return pe
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe.StatusCode = reqErr.HTTPStatusCode
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			pe.Err = domain.ErrQuotaExceeded
		}
	}
	return pe
}

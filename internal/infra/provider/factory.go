// Package provider selects the detection backend named in the config.
package provider

import (
	"fmt"

	"github.com/bryanwahyu/deepfake-detector/internal/config"
	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/ai/openai"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/demo"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/httpapi"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/realitydefender"
	"github.com/bryanwahyu/deepfake-detector/internal/infra/provider/sightengine"
)

// New builds the configured provider.
func New(cfg *config.Config) (domain.Provider, error) {
	p := cfg.Provider
	switch p.Name {
	case realitydefender.Name:
		return realitydefender.New(realitydefender.Config{
			APIKey:            p.RealityDefender.APIKey,
			PresignedEndpoint: p.RealityDefender.PresignedEndpoint,
			ResultEndpoint:    p.RealityDefender.ResultEndpoint,
			PollInterval:      p.RealityDefender.PollInterval,
			MaxPolls:          p.RealityDefender.MaxPolls,
			Timeout:           p.Timeout,
		}), nil
	case sightengine.Name:
		return sightengine.New(sightengine.Config{
			APIUser:   p.Sightengine.APIUser,
			APISecret: p.Sightengine.APISecret,
			Endpoint:  p.Sightengine.Endpoint,
			Models:    p.Sightengine.Models,
			Timeout:   p.Timeout,
		}), nil
	case httpapi.Name:
		return httpapi.New(httpapi.Config{
			BaseURL: p.HTTP.BaseURL,
			Path:    p.HTTP.Path,
			Timeout: p.Timeout,
		}), nil
	case openai.Name:
		if p.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		model := p.OpenAI.Model
		if model == "" {
			model = openai.DefaultModel
		}
		return openai.NewClient(p.OpenAI.APIKey, model, p.OpenAI.BaseURL), nil
	case demo.Name:
		return demo.New(p.Demo.Seed, p.Demo.Latency), nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.Name)
}

// Package demo is an offline provider that answers like the first prototype
// backend: {"message":"Analysis complete","confidence":<50..99>}.
package demo

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

const Name = "demo"

type Provider struct {
	mu         sync.Mutex
	randSource *rand.Rand
	latency    time.Duration
}

// New creates a demo provider. seed 0 picks a time-based seed.
func New(seed int64, latency time.Duration) *Provider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// dedicated random source supaya gak rebutan global rand
	return &Provider{
		randSource: rand.New(rand.NewSource(seed)),
		latency:    latency,
	}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Detect(ctx context.Context, media *domain.Media) (domain.RawResult, error) {
	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return domain.RawResult{}, &domain.ProviderError{Provider: Name, Phase: domain.PhaseRequest, Err: ctx.Err()}
		case <-time.After(p.latency):
		}
	}

	p.mu.Lock()
	confidence := 50 + p.randSource.Intn(50)
	p.mu.Unlock()

	body, err := json.Marshal(map[string]any{
		"message":    "Analysis complete",
		"confidence": confidence,
	})
	if err != nil {
		return domain.RawResult{}, err
	}
	return domain.RawResult{Provider: Name, Body: body}, nil
}

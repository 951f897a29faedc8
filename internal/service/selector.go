package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/provider"
)

// ErrNoProviders is returned when the configured chain is empty.
var ErrNoProviders = errors.New("no providers configured")

// ErrAllProvidersFailed is returned when every provider in the chain
// produced an error.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Attempt records one provider invocation during a scoring pass, whether
// it succeeded or not. Result and Err are mutually exclusive.
type Attempt struct {
	Slug   string
	Model  string
	Result *provider.Result
	Err    error
}

// Selector resolves the configured preference chain into provider calls
// under one of two strategies: first-success fallback, or consensus
// across every provider with the maximum score winning.
type Selector struct {
	factory ProviderFactory
	logger  zerolog.Logger
}

func NewSelector(factory ProviderFactory, logger zerolog.Logger) *Selector {
	return &Selector{factory: factory, logger: logger}
}

// Score runs the chain. In consensus mode every provider is invoked and
// the highest score wins; otherwise providers are tried in order until
// one succeeds. The returned attempts cover every invocation, including
// the winning one, in chain order.
func (s *Selector) Score(ctx context.Context, slugs []string, consensus bool, systemPrompt, userPrompt string) (*provider.Result, []Attempt, error) {
	if len(slugs) == 0 {
		return nil, nil, ErrNoProviders
	}

	var (
		attempts []Attempt
		best     *provider.Result
	)
	for _, slug := range slugs {
		p, err := s.factory.Create(ctx, slug)
		if err != nil {
			s.logger.Warn().Str("provider", slug).Err(err).Msg("provider unavailable")
			attempts = append(attempts, Attempt{Slug: slug, Err: err})
			continue
		}

		res, err := p.Analyze(ctx, systemPrompt, userPrompt)
		if err != nil {
			s.logger.Warn().Str("provider", slug).Str("model", p.Model()).Err(err).Msg("provider call failed")
			attempts = append(attempts, Attempt{Slug: slug, Model: p.Model(), Err: err})
			continue
		}

		attempts = append(attempts, Attempt{Slug: slug, Model: p.Model(), Result: res})
		if best == nil || res.Score > best.Score {
			best = res
		}
		if !consensus {
			break
		}
	}

	if best == nil {
		parts := make([]string, 0, len(attempts))
		for _, a := range attempts {
			parts = append(parts, fmt.Sprintf("%s: %v", a.Slug, a.Err))
		}
		return nil, attempts, fmt.Errorf("%w: %s", ErrAllProvidersFailed, strings.Join(parts, "; "))
	}
	return best, attempts, nil
}

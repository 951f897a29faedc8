package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// Settings resolves per-backend configuration. Values come from the
// settings store with secrets already decrypted; empty string means unset.
type Settings interface {
	ProviderAPIKey(ctx context.Context, slug string) (string, error)
	ProviderModel(ctx context.Context, slug string) (string, error)
	ProviderEndpoint(ctx context.Context, slug string) (string, error)
}

// backendSpec is the static shape of one supported slug.
type backendSpec struct {
	defaultModel string
	baseURL      string
	headers      map[string]string
	needsURL     bool
}

var backendSpecs = map[string]backendSpec{
	"openai": {
		defaultModel: "gpt-4o-mini",
	},
	"openrouter": {
		defaultModel: "meta-llama/llama-3.3-70b-instruct:free",
		baseURL:      "https://openrouter.ai/api/v1",
		headers: map[string]string{
			"HTTP-Referer": "https://spamanvil.dev",
			"X-Title":      "SpamAnvil",
		},
	},
	"featherless": {
		defaultModel: "meta-llama/Meta-Llama-3.1-8B-Instruct",
		baseURL:      "https://api.featherless.ai/v1",
	},
	"generic": {
		needsURL: true,
	},
	"anthropic": {
		defaultModel: "claude-sonnet-4-5-20250929",
	},
	"gemini": {
		defaultModel: "gemini-2.0-flash",
	},
}

// Slugs lists the supported backends in a stable order.
func Slugs() []string {
	return []string{"openai", "anthropic", "gemini", "openrouter", "featherless", "generic"}
}

// Factory builds providers on demand and maintains one circuit breaker per
// slug so a flapping backend fails fast while the rest keep serving.
type Factory struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewFactory(settings Settings) *Factory {
	return &Factory{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// apiKeyEnvVar returns the environment override name for a slug, for
// example SPAMANVIL_OPENAI_API_KEY. The environment wins over the store.
func apiKeyEnvVar(slug string) string {
	return "SPAMANVIL_" + strings.ToUpper(slug) + "_API_KEY"
}

func (f *Factory) resolveKey(ctx context.Context, slug string) (string, error) {
	if key := os.Getenv(apiKeyEnvVar(slug)); key != "" {
		return key, nil
	}
	return f.settings.ProviderAPIKey(ctx, slug)
}

// Overrides replaces stored configuration values for a one-off build,
// used by the connection-test endpoint to probe unsaved credentials.
type Overrides struct {
	APIKey   string
	Model    string
	Endpoint string
}

// Create resolves configuration for slug and returns a breaker-wrapped
// provider, or a ConfigError when a required value is missing.
func (f *Factory) Create(ctx context.Context, slug string) (Provider, error) {
	return f.CreateWithOverrides(ctx, slug, Overrides{})
}

// CreateWithOverrides is Create with per-field replacements; empty
// override fields fall back to the stored configuration.
func (f *Factory) CreateWithOverrides(ctx context.Context, slug string, ov Overrides) (Provider, error) {
	spec, ok := backendSpecs[slug]
	if !ok {
		return nil, fmt.Errorf("unknown provider slug %q", slug)
	}

	apiKey := ov.APIKey
	if apiKey == "" {
		var err error
		apiKey, err = f.resolveKey(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("resolve api key for %s: %w", slug, err)
		}
	}
	if apiKey == "" {
		return nil, &ConfigError{Slug: slug, Field: "api key"}
	}

	model := ov.Model
	if model == "" {
		var err error
		model, err = f.settings.ProviderModel(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("resolve model for %s: %w", slug, err)
		}
	}
	if model == "" {
		model = spec.defaultModel
	}
	if model == "" {
		return nil, &ConfigError{Slug: slug, Field: "model"}
	}

	endpoint := ov.Endpoint
	baseURL := spec.baseURL
	if endpoint != "" {
		baseURL = endpoint
	} else if spec.needsURL {
		var err error
		baseURL, err = f.settings.ProviderEndpoint(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("resolve endpoint for %s: %w", slug, err)
		}
		if baseURL == "" {
			return nil, &ConfigError{Slug: slug, Field: "endpoint URL"}
		}
	}

	var p Provider
	switch slug {
	case "anthropic":
		p = NewAnthropic(apiKey, model, endpoint)
	case "gemini":
		p = NewGemini(apiKey, model, endpoint)
	default:
		p = NewOpenAICompatible(slug, apiKey, model, baseURL, spec.headers)
	}
	return &breakerProvider{inner: p, breaker: f.breakerFor(slug)}, nil
}

func (f *Factory) breakerFor(slug string) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[slug]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        slug,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	f.breakers[slug] = cb
	return cb
}

// breakerProvider routes Analyze through the circuit breaker. Connection
// tests bypass it so that a probe can confirm recovery at any time.
type breakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

func (b *breakerProvider) Name() string  { return b.inner.Name() }
func (b *breakerProvider) Model() string { return b.inner.Model() }

func (b *breakerProvider) Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Analyze(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Result), nil
}

func (b *breakerProvider) TestConnection(ctx context.Context) (*TestResult, error) {
	return b.inner.TestConnection(ctx)
}

package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
)

type fakeSettings struct {
	keys      map[string]string
	models    map[string]string
	endpoints map[string]string
}

func (f *fakeSettings) ProviderAPIKey(_ context.Context, slug string) (string, error) {
	return f.keys[slug], nil
}

func (f *fakeSettings) ProviderModel(_ context.Context, slug string) (string, error) {
	return f.models[slug], nil
}

func (f *fakeSettings) ProviderEndpoint(_ context.Context, slug string) (string, error) {
	return f.endpoints[slug], nil
}

func TestFactoryCreateDefaults(t *testing.T) {
	f := NewFactory(&fakeSettings{keys: map[string]string{"openai": "sk-test"}})

	p, err := f.Create(context.Background(), "openai")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("name = %q", p.Name())
	}
	if p.Model() != "gpt-4o-mini" {
		t.Errorf("model = %q, want default gpt-4o-mini", p.Model())
	}
}

func TestFactoryModelOverride(t *testing.T) {
	f := NewFactory(&fakeSettings{
		keys:   map[string]string{"anthropic": "sk-test"},
		models: map[string]string{"anthropic": "claude-haiku-4-5"},
	})

	p, err := f.Create(context.Background(), "anthropic")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Model() != "claude-haiku-4-5" {
		t.Errorf("model = %q, want override", p.Model())
	}
}

func TestFactoryEnvKeyWins(t *testing.T) {
	t.Setenv("SPAMANVIL_GEMINI_API_KEY", "env-key")
	f := NewFactory(&fakeSettings{})

	if _, err := f.Create(context.Background(), "gemini"); err != nil {
		t.Fatalf("Create with env key: %v", err)
	}
}

func TestFactoryMissingKey(t *testing.T) {
	f := NewFactory(&fakeSettings{})

	_, err := f.Create(context.Background(), "openai")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Field != "api key" {
		t.Errorf("field = %q", cfgErr.Field)
	}
}

func TestFactoryGenericNeedsEndpoint(t *testing.T) {
	f := NewFactory(&fakeSettings{
		keys:   map[string]string{"generic": "sk-test"},
		models: map[string]string{"generic": "llama-3"},
	})

	_, err := f.Create(context.Background(), "generic")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Field != "endpoint URL" {
		t.Errorf("field = %q", cfgErr.Field)
	}
}

func TestFactoryGenericNeedsModel(t *testing.T) {
	f := NewFactory(&fakeSettings{
		keys:      map[string]string{"generic": "sk-test"},
		endpoints: map[string]string{"generic": "https://llm.internal/v1"},
	})

	_, err := f.Create(context.Background(), "generic")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %T, want *ConfigError", err)
	}
	if cfgErr.Field != "model" {
		t.Errorf("field = %q", cfgErr.Field)
	}
}

func TestFactoryUnknownSlug(t *testing.T) {
	f := NewFactory(&fakeSettings{})
	if _, err := f.Create(context.Background(), "cohere"); err == nil {
		t.Fatal("expected error for unknown slug")
	}
}

type failingProvider struct{}

func (failingProvider) Name() string  { return "failing" }
func (failingProvider) Model() string { return "m" }

func (failingProvider) Analyze(context.Context, string, string) (*Result, error) {
	return nil, &HTTPError{Provider: "failing", Status: 500, Body: "boom"}
}

func (failingProvider) TestConnection(context.Context) (*TestResult, error) {
	return &TestResult{Model: "m"}, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	f := NewFactory(&fakeSettings{})
	p := &breakerProvider{inner: failingProvider{}, breaker: f.breakerFor("failing")}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		var httpErr *HTTPError
		if _, err := p.Analyze(ctx, "s", "u"); !errors.As(err, &httpErr) {
			t.Fatalf("attempt %d: error = %v, want *HTTPError", i, err)
		}
	}

	_, err := p.Analyze(ctx, "s", "u")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("error = %v, want circuit open", err)
	}

	// Connection tests must keep working while the circuit is open.
	if _, err := p.TestConnection(ctx); err != nil {
		t.Errorf("TestConnection while open: %v", err)
	}
}

func TestBreakerReusedPerSlug(t *testing.T) {
	f := NewFactory(&fakeSettings{})
	if f.breakerFor("openai") != f.breakerFor("openai") {
		t.Error("breaker not reused for same slug")
	}
	if f.breakerFor("openai") == f.breakerFor("gemini") {
		t.Error("breaker shared across slugs")
	}
}

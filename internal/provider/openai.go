package provider

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatible scores through any chat-completions endpoint that
// speaks the OpenAI API shape. It backs the openai, openrouter,
// featherless and generic backends, differing only in base URL, default
// model and extra request headers.
type OpenAICompatible struct {
	slug   string
	model  string
	client *openai.Client
}

// headerTransport injects fixed headers into every request. OpenRouter
// attributes traffic through HTTP-Referer and X-Title.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

// NewOpenAICompatible builds a backend for the given slug. baseURL must
// point at the API root (the segment before /chat/completions); empty
// keeps the client's default OpenAI endpoint.
func NewOpenAICompatible(slug, apiKey, model, baseURL string, extraHeaders map[string]string) *OpenAICompatible {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	httpClient := newHTTPClient(nil)
	if len(extraHeaders) > 0 {
		httpClient.Transport = &headerTransport{base: httpClient.Transport, headers: extraHeaders}
	}
	cfg.HTTPClient = httpClient

	return &OpenAICompatible{
		slug:   slug,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *OpenAICompatible) Name() string  { return p.slug }
func (p *OpenAICompatible) Model() string { return p.model }

func (p *OpenAICompatible) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		// The client omits a temperature of exactly zero, so the smallest
		// nonzero value stands in for deterministic sampling.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", p.mapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &ParseError{Provider: p.slug, Detail: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAICompatible) mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Provider: p.slug, Status: apiErr.HTTPStatusCode, Body: excerpt(apiErr.Message, 200)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &HTTPError{Provider: p.slug, Status: reqErr.HTTPStatusCode, Body: excerpt(reqErr.Error(), 200)}
	}
	return &HTTPError{Provider: p.slug, Body: excerpt(err.Error(), 200)}
}

func (p *OpenAICompatible) Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
	start := time.Now()
	content, err := p.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	score, reason, err := parseModelOutput(p.slug, content)
	if err != nil {
		return nil, err
	}
	return &Result{
		Score:            score,
		Reason:           reason,
		Provider:         p.slug,
		Model:            p.model,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

func (p *OpenAICompatible) TestConnection(ctx context.Context) (*TestResult, error) {
	start := time.Now()
	content, err := p.complete(ctx, testSystemPrompt, testUserPrompt)
	if err != nil {
		return nil, err
	}
	if err := verifyTestOutput(p.slug, content); err != nil {
		return nil, err
	}
	return &TestResult{ResponseMS: time.Since(start).Milliseconds(), Model: p.model}, nil
}

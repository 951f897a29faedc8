package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

// Anthropic scores through the Messages API.
type Anthropic struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewAnthropic builds the backend. endpoint overrides the production URL
// and is empty outside tests.
func NewAnthropic(apiKey, model, endpoint string) *Anthropic {
	if endpoint == "" {
		endpoint = anthropicEndpoint
	}
	return &Anthropic{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   newHTTPClient(nil),
	}
}

func (p *Anthropic) Name() string  { return "anthropic" }
func (p *Anthropic) Model() string { return p.model }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Anthropic) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   maxOutputTokens,
		Temperature: 0,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", &ParseError{Provider: p.Name(), Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &HTTPError{Provider: p.Name(), Body: excerpt(err.Error(), 200)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &HTTPError{Provider: p.Name(), Body: excerpt(err.Error(), 200)}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &HTTPError{Provider: p.Name(), Status: resp.StatusCode, Body: excerpt(err.Error(), 200)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{Provider: p.Name(), Status: resp.StatusCode, Body: excerpt(string(respBody), 200)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ParseError{Provider: p.Name(), Detail: err.Error()}
	}
	if parsed.Error != nil {
		return "", &HTTPError{Provider: p.Name(), Status: resp.StatusCode, Body: excerpt(parsed.Error.Message, 200)}
	}
	if len(parsed.Content) == 0 {
		return "", &ParseError{Provider: p.Name(), Detail: "no content blocks in response"}
	}
	return parsed.Content[0].Text, nil
}

func (p *Anthropic) Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
	start := time.Now()
	content, err := p.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	score, reason, err := parseModelOutput(p.Name(), content)
	if err != nil {
		return nil, err
	}
	return &Result{
		Score:            score,
		Reason:           reason,
		Provider:         p.Name(),
		Model:            p.model,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

func (p *Anthropic) TestConnection(ctx context.Context) (*TestResult, error) {
	start := time.Now()
	content, err := p.complete(ctx, testSystemPrompt, testUserPrompt)
	if err != nil {
		return nil, err
	}
	if err := verifyTestOutput(p.Name(), content); err != nil {
		return nil, err
	}
	return &TestResult{ResponseMS: time.Since(start).Milliseconds(), Model: p.model}, nil
}

package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

const geminiEndpointFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Gemini scores through the generateContent API. responseMimeType pins the
// output to JSON so fence stripping is rarely needed here.
type Gemini struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGemini builds the backend. endpoint overrides the production URL and
// is empty outside tests.
func NewGemini(apiKey, model, endpoint string) *Gemini {
	if endpoint == "" {
		endpoint = fmt.Sprintf(geminiEndpointFormat, url.PathEscape(model))
	}
	return &Gemini{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   newHTTPClient(nil),
	}
}

func (p *Gemini) Name() string  { return "gemini" }
func (p *Gemini) Model() string { return p.model }

type geminiRequest struct {
	SystemInstruction geminiContent    `json:"systemInstruction"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  geminiGenConfig  `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Gemini) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:      0,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return "", &ParseError{Provider: p.Name(), Detail: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &HTTPError{Provider: p.Name(), Body: excerpt(err.Error(), 200)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

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

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &ParseError{Provider: p.Name(), Detail: err.Error()}
	}
	if parsed.Error != nil {
		return "", &HTTPError{Provider: p.Name(), Status: resp.StatusCode, Body: excerpt(parsed.Error.Message, 200)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &ParseError{Provider: p.Name(), Detail: "no candidate parts in response"}
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

func (p *Gemini) Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Result, error) {
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

func (p *Gemini) TestConnection(ctx context.Context) (*TestResult, error) {
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

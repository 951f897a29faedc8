// Package provider implements the uniform scoring interface over remote
// LLM APIs: request shaping, response parsing, score validation and
// connection testing for each supported backend.
package provider

import (
	"context"
	"net"
	"net/http"
	"time"
)

// requestTimeout bounds every provider HTTP call.
const requestTimeout = 30 * time.Second

// maxOutputTokens caps the model response; the expected output is a small
// JSON object.
const maxOutputTokens = 200

// Result is a validated provider verdict.
type Result struct {
	Score            int    `json:"score"`
	Reason           string `json:"reason,omitempty"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

// TestResult reports a successful connection test.
type TestResult struct {
	ResponseMS int64  `json:"response_ms"`
	Model      string `json:"model"`
}

// Provider is the contract every scoring backend implements. Analyze
// performs exactly one HTTP request and returns either a validated result
// or a typed failure from errors.go.
type Provider interface {
	Name() string
	Model() string
	Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Result, error)
	TestConnection(ctx context.Context) (*TestResult, error)
}

// Fixed trivial prompt pair used by connection tests.
const (
	testSystemPrompt = `You are a test assistant. Respond with exactly: {"status":"ok"}`
	testUserPrompt   = `Test connection. Respond with: {"status":"ok"}`
)

// newHTTPClient builds the shared tuned client used by the raw-HTTP
// providers and handed to the OpenAI-compatible client.
func newHTTPClient(transport http.RoundTripper) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	return &http.Client{
		Transport: transport,
		Timeout:   requestTimeout,
	}
}

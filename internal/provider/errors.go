package provider

import "fmt"

// ConfigError reports a provider that cannot be constructed because a
// required setting is absent.
type ConfigError struct {
	Slug  string
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %s: missing %s", e.Slug, e.Field)
}

// HTTPError reports a failed upstream request, either a transport failure
// or a non-2xx status. Body carries a truncated response excerpt.
type HTTPError struct {
	Provider string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("provider %s: request failed: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("provider %s: HTTP %d: %s", e.Provider, e.Status, e.Body)
}

// ParseError reports a well-formed HTTP response whose envelope did not
// contain the expected content field.
type ParseError struct {
	Provider string
	Detail   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %s: unexpected response shape: %s", e.Provider, e.Detail)
}

// InvalidJSONError reports model output that is not a JSON object after
// code fence stripping.
type InvalidJSONError struct {
	Provider string
	Raw      string
}

func (e *InvalidJSONError) Error() string {
	return fmt.Sprintf("provider %s: model output is not valid JSON: %s", e.Provider, e.Raw)
}

// MissingScoreError reports a JSON object with no integer score field.
type MissingScoreError struct {
	Provider string
}

func (e *MissingScoreError) Error() string {
	return fmt.Sprintf("provider %s: model output has no integer score", e.Provider)
}

// InvalidScoreError reports a score outside the 0 to 100 range.
type InvalidScoreError struct {
	Provider string
	Score    int
}

func (e *InvalidScoreError) Error() string {
	return fmt.Sprintf("provider %s: score %d out of range", e.Provider, e.Score)
}

package provider

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// maxReasonLength bounds the stored model explanation.
const maxReasonLength = 500

var (
	codeFenceOpen  = regexp.MustCompile("(?s)^```(?:json)?\\s*")
	codeFenceClose = regexp.MustCompile("\\s*```$")
)

// stripCodeFences removes a surrounding markdown code fence, which several
// models emit around JSON output despite instructions not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = codeFenceOpen.ReplaceAllString(s, "")
	s = codeFenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// parseModelOutput validates raw model text into a score and reason.
// The text must be a JSON object with a numeric "score" in [0, 100]; an
// optional string "reason" is truncated to maxReasonLength.
func parseModelOutput(providerName, raw string) (int, string, error) {
	cleaned := stripCodeFences(raw)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return 0, "", &InvalidJSONError{Provider: providerName, Raw: excerpt(cleaned, 200)}
	}

	rawScore, ok := payload["score"]
	if !ok {
		return 0, "", &MissingScoreError{Provider: providerName}
	}
	var scoreNum float64
	if err := json.Unmarshal(rawScore, &scoreNum); err != nil {
		return 0, "", &MissingScoreError{Provider: providerName}
	}
	score := int(scoreNum)
	if score < 0 || score > 100 {
		return 0, "", &InvalidScoreError{Provider: providerName, Score: score}
	}

	var reason string
	if rawReason, ok := payload["reason"]; ok {
		// Reason is optional and best effort; a non-string value is ignored.
		_ = json.Unmarshal(rawReason, &reason)
	}
	if len(reason) > maxReasonLength {
		reason = reason[:maxReasonLength]
	}

	return score, reason, nil
}

// verifyTestOutput checks a connection-test response for a JSON object.
// The score contract is not enforced here, only that the model answered
// with parseable JSON.
func verifyTestOutput(providerName, raw string) error {
	cleaned := stripCodeFences(raw)
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return &InvalidJSONError{Provider: providerName, Raw: excerpt(cleaned, 200)}
	}
	return nil
}

func excerpt(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// EvalLogEntry records one scoring attempt, terminal or intermediate.
// In consensus mode every provider's individual verdict is logged; in
// fallback mode each failed hop is logged before the next is tried.
type EvalLogEntry struct {
	ID               int64     `json:"id"`
	SubmissionID     uuid.UUID `json:"submission_id"`
	Score            *int      `json:"score,omitempty"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model,omitempty"`
	Reason           string    `json:"reason,omitempty"`
	HeuristicScore   *int      `json:"heuristic_score,omitempty"`
	HeuristicDetails string    `json:"heuristic_details,omitempty"`
	ProcessingTimeMS *int64    `json:"processing_time_ms,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

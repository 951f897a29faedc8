package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus mirrors the moderation state of a stored submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionSpam     SubmissionStatus = "spam"
)

// ParseSubmissionStatus converts a raw string to a SubmissionStatus.
func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	st := SubmissionStatus(s)
	switch st {
	case SubmissionPending, SubmissionApproved, SubmissionSpam:
		return st, nil
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// Submission is a user-submitted comment under moderation. OriginIP is the
// raw network origin; it is only ever persisted hashed (see OriginRecord).
type Submission struct {
	ID          uuid.UUID        `json:"id"`
	AuthorName  string           `json:"author_name"`
	AuthorEmail string           `json:"author_email"`
	AuthorURL   string           `json:"author_url,omitempty"`
	Content     string           `json:"content"`
	PostTitle   string           `json:"post_title,omitempty"`
	PostExcerpt string           `json:"post_excerpt,omitempty"`
	OriginIP    string           `json:"-"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

package entity

import "time"

// OriginRecord tracks spam signals from one network origin. The raw
// address is never stored: OriginHash is an irreversible SHA-256 and
// OriginDisplay is a partially masked rendering for the admin surface.
type OriginRecord struct {
	ID              int64      `json:"id"`
	OriginHash      string     `json:"-"`
	OriginDisplay   string     `json:"origin_display"`
	Attempts        int        `json:"attempts"`
	BlockedUntil    *time.Time `json:"blocked_until,omitempty"`
	EscalationLevel int        `json:"escalation_level"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Blocked reports whether the record carries an active block at t.
// An expired block leaves the record inert but preserved.
func (r *OriginRecord) Blocked(t time.Time) bool {
	return r.BlockedUntil != nil && r.BlockedUntil.After(t)
}

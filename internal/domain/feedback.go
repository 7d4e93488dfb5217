package domain

import "time"

// Feedback is an append-only satisfaction rating.
type Feedback struct {
	ID        string
	UserID    string
	SessionID *string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Satisfied reports whether the rating counts towards CSAT.
func (f Feedback) Satisfied() bool {
	return f.Rating >= 4
}

package model

import "time"

// Session binds a bearer token to one participant until ExpiresAt.
type Session struct {
	ID          int64       `json:"id"`
	Token       string      `json:"-"`
	Participant Participant `json:"participant"`
	ExpiresAt   time.Time   `json:"expires_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

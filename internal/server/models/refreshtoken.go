package models

import "time"

type RefreshToken struct {
	Token   string
	UserID  string
	Expires time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.Expires)
}

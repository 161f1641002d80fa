package model

import "time"

// GoogleProvider is the provider id stored with linked Google accounts.
const GoogleProvider = "google"

// CalendarScope is the OAuth scope required for read/write calendar access.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// Credential is the stored OAuth credential of a linked calendar account.
type Credential struct {
	UserID       string
	ProviderID   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
}

// Expired reports whether the access token is past its expiry at now.
// A zero expiry is treated as non-expiring.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// CanRefresh reports whether a refresh token is available.
func (c Credential) CanRefresh() bool { return c.RefreshToken != "" }

// RefreshedToken is the result of exchanging a refresh token.
type RefreshedToken struct {
	AccessToken string
	ExpiresAt   time.Time
	// RefreshToken is set only when the provider rotated it.
	RefreshToken string
}

// Apply folds a refresh result into the credential.
func (c Credential) Apply(t RefreshedToken) Credential {
	c.AccessToken = t.AccessToken
	c.ExpiresAt = t.ExpiresAt
	if t.RefreshToken != "" {
		c.RefreshToken = t.RefreshToken
	}
	return c
}

// TokenStatus is reported by GET /auth/token-status.
type TokenStatus struct {
	HasToken     bool `json:"hasToken"`
	NeedsRefresh bool `json:"needsRefresh"`
}

// Session maps an opaque session token to a user.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

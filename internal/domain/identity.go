package domain

import (
	"time"
)

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

// AuthMode tags how an Identity proves itself on later requests.
type AuthMode string

const (
	// AuthModeBearer sends the server-issued token in an Authorization header.
	AuthModeBearer AuthMode = "bearer"
	// AuthModeCredentialReplay resends the login triple with every message.
	// Legacy servers only; must be enabled explicitly.
	AuthModeCredentialReplay AuthMode = "credential-replay"
)

// Credentials is the login triple entered by the user.
type Credentials struct {
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"dob"`
	PIN         string    `json:"-"`
}

// DOB returns the date of birth in wire format, or "" when unset.
func (c Credentials) DOB() string {
	if c.DateOfBirth.IsZero() {
		return ""
	}
	return c.DateOfBirth.Format(DateLayout)
}

// Missing returns the names of absent fields in form order.
func (c Credentials) Missing() []string {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.DateOfBirth.IsZero() {
		missing = append(missing, "date of birth")
	}
	if c.PIN == "" {
		missing = append(missing, "pin")
	}
	return missing
}

// Identity is an authenticated user.
type Identity struct {
	UserID      string   `json:"userId"`
	DisplayName string   `json:"displayName"`
	Mode        AuthMode `json:"mode"`

	// Token is set in bearer mode.
	Token string `json:"-"`
	// TokenExpiresAt is zero when the token carries no readable expiry.
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitzero"`

	// Replay is set in credential-replay mode only.
	Replay *Credentials `json:"-"`
}

// Authenticated reports whether the identity came from a successful login.
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}

// HasCredential reports whether the identity can authenticate a request.
func (i Identity) HasCredential() bool {
	switch i.Mode {
	case AuthModeBearer:
		return i.Token != ""
	case AuthModeCredentialReplay:
		return i.Replay != nil
	default:
		return false
	}
}

// Expired reports whether the bearer token is known to have expired at now.
func (i Identity) Expired(now time.Time) bool {
	if i.Mode != AuthModeBearer || i.TokenExpiresAt.IsZero() {
		return false
	}
	return !now.Before(i.TokenExpiresAt)
}

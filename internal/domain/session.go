package domain

import "time"

// DefaultLanguage is used when no locale has been selected.
const DefaultLanguage = "en"

// Session is one login's conversational context.
type Session struct {
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	Language  string    `json:"language"`
	StartedAt time.Time `json:"startedAt"`

	// LowEntropyID is set when ID came from the non-cryptographic fallback.
	LowEntropyID bool `json:"lowEntropyId,omitempty"`
}

// Valid reports whether the session can carry a message.
func (s Session) Valid() bool {
	return s.ID != "" && s.Identity.HasCredential()
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserID accepts both string and numeric user ids on the wire.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id: expected string or number, got %s", data)
	}
	*u = UserID(n.String())
	return nil
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Name string `json:"name"`
	DOB  string `json:"dob"`
	PIN  string `json:"pin"`
}

// LoginResponse is the 200 body of POST /login.
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	UserID      UserID `json:"user_id"`
	Name        string `json:"name"`
}

// HistoryRecord is one stored exchange.
type HistoryRecord struct {
	Message  string `json:"message"`
	Response string `json:"response"`
}

// HistoryResponse is the 200 body of GET /chat/history/user/{id}.
type HistoryResponse struct {
	Messages []HistoryRecord `json:"messages"`
}

// ChatRequest is the body of POST /chat. The name/dob/pin fields are only
// filled in credential-replay mode.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Language  string `json:"language"`

	Name string `json:"name,omitempty"`
	DOB  string `json:"dob,omitempty"`
	PIN  string `json:"pin,omitempty"`
}

// ChatResponse is the 200 body of POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

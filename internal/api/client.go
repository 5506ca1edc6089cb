// Package api is the HTTP/JSON transport to the assistant service.
//
// It knows the wire format and turns transport failures into errs.Network and
// non-2xx responses into *StatusError. Deciding what a status means for a
// particular call is left to the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/logging"
	"github.com/soyeahso/medchat/internal/version"
)

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// StatusError is a non-2xx response.
type StatusError struct {
	Status int
	// Detail is the server-supplied explanation, if the body carried one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Client talks to the assistant service.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg config.APIConfig, log *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout()},
		log:     log.Sub("api"),
	}
}

// BaseURL returns the service address without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login posts the login triple.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the stored exchanges for userID. token may be empty.
func (c *Client) History(ctx context.Context, userID, token string) (*HistoryResponse, error) {
	var out HistoryResponse
	path := "/chat/history/user/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat sends one message. token may be empty in credential-replay mode.
func (c *Client) Chat(ctx context.Context, req ChatRequest, token string) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	start := time.Now()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return errs.Network(err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("http request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Status: resp.StatusCode, Detail: parseDetail(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Server(resp.StatusCode, "", fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// Classify maps an error from a credentialed call (history, chat) onto the
// client taxonomy: 401 is Unauthorized, any other status is a server error.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Status == http.StatusUnauthorized {
			return errs.Unauthorized(se.Status)
		}
		return errs.Server(se.Status, "", se)
	}
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Server(0, "", err)
}

// parseDetail extracts FastAPI-style {"detail": ...} messages. detail may be
// a string or a list of validation objects carrying "msg".
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		for _, item := range items {
			if item.Msg != "" {
				return item.Msg
			}
		}
	}
	return ""
}

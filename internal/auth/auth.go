// Package auth exchanges the login triple for an identity and mints the
// per-login session id.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/soyeahso/medchat/internal/api"
	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/logging"
)

// Result is a successful login.
type Result struct {
	Identity  domain.Identity
	SessionID string
	// LowEntropyID is set when SessionID came from the fallback generator.
	LowEntropyID bool
}

// Client performs logins. It never touches persisted state.
type Client struct {
	api    *api.Client
	replay bool
	log    *logging.Logger
}

// NewClient creates an auth client. cfg.LegacyCredentialReplay enables the
// credential-replay mode for servers that issue no token.
func NewClient(apiClient *api.Client, cfg config.APIConfig, log *logging.Logger) *Client {
	return &Client{
		api:    apiClient,
		replay: cfg.LegacyCredentialReplay,
		log:    log.Sub("auth"),
	}
}

// Login validates creds locally, posts them to the service, and returns the
// resulting identity together with a fresh session id.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*Result, error) {
	if missing := creds.Missing(); len(missing) > 0 {
		return nil, errs.Validation("missing %s", strings.Join(missing, ", "))
	}

	resp, err := c.api.Login(ctx, api.LoginRequest{
		Name: creds.Name,
		DOB:  creds.DOB(),
		PIN:  creds.PIN,
	})
	if err != nil {
		var se *api.StatusError
		if errors.As(err, &se) {
			c.log.Info().Int("status", se.Status).Msg("login rejected")
			return nil, errs.Auth(se.Status, se.Detail)
		}
		return nil, err
	}

	if resp.UserID == "" {
		return nil, errs.Server(200, "server returned no user id", nil)
	}

	id := domain.Identity{
		UserID:      string(resp.UserID),
		DisplayName: resp.Name,
	}

	switch {
	case resp.AccessToken != "":
		id.Mode = domain.AuthModeBearer
		id.Token = resp.AccessToken
		id.TokenExpiresAt = tokenExpiry(resp.AccessToken)
	case c.replay:
		c.log.Warn().Str("user_id", id.UserID).Msg("server issued no token; using legacy credential replay")
		id.Mode = domain.AuthModeCredentialReplay
		replay := creds
		id.Replay = &replay
	default:
		return nil, errs.Auth(200, "server did not issue an access token")
	}

	sid, lowEntropy := NewSessionID()
	if lowEntropy {
		c.log.Warn().Str("session_id", sid).Msg("secure random source unavailable; session id has low entropy")
	}

	c.log.Info().Str("user_id", id.UserID).Str("mode", string(id.Mode)).Msg("logged in")

	return &Result{
		Identity:     id,
		SessionID:    sid,
		LowEntropyID: lowEntropy,
	}, nil
}

// tokenExpiry reads the exp claim of a JWT without verifying the signature.
// The client never holds the signing key; the server still decides validity.
// Opaque or malformed tokens yield the zero time.
func tokenExpiry(token string) time.Time {
	claims := &jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(claims.ExpiresAt, 0).UTC()
}

package composer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/medchat/internal/api"
	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(t *testing.T, h http.HandlerFunc) (*Composer, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	log := logging.New(nil, "silent")
	return New(api.NewClient(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, log), log), &calls
}

func bearerSession() domain.Session {
	return domain.Session{
		ID:       "s-1",
		Language: "hi",
		Identity: domain.Identity{UserID: "u1", Mode: domain.AuthModeBearer, Token: "tok"},
	}
}

func TestSendBearer(t *testing.T) {
	c, calls := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]any{"message": "I have a headache", "session_id": "s-1", "language": "hi"}, raw)

		w.Write([]byte(`{"response":"**Rest** and hydrate."}`))
	})

	turn, err := c.Send(context.Background(), bearerSession(), "I have a headache")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, turn.Role)
	assert.Equal(t, "**Rest** and hydrate.", turn.Text)
	assert.Equal(t, domain.SourceLive, turn.Source)
	assert.Equal(t, 0, turn.Sequence)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendReplayPutsCredentialsInBody(t *testing.T) {
	c, _ := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ravi", req.Name)
		assert.Equal(t, "1985-12-03", req.DOB)
		assert.Equal(t, "9876", req.PIN)
		assert.Equal(t, "en", req.Language)

		w.Write([]byte(`{"response":"ok"}`))
	})

	sess := domain.Session{
		ID: "s-2",
		Identity: domain.Identity{
			UserID: "7",
			Mode:   domain.AuthModeCredentialReplay,
			Replay: &domain.Credentials{
				Name:        "Ravi",
				DateOfBirth: time.Date(1985, 12, 3, 0, 0, 0, 0, time.UTC),
				PIN:         "9876",
			},
		},
	}
	_, err := c.Send(context.Background(), sess, "hello")
	require.NoError(t, err)
}

func TestSendRejectedLocally(t *testing.T) {
	c, calls := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {})

	noID := bearerSession()
	noID.ID = ""
	noToken := bearerSession()
	noToken.Identity.Token = ""

	tests := []struct {
		name string
		sess domain.Session
		text string
	}{
		{"empty text", bearerSession(), ""},
		{"whitespace text", bearerSession(), " \n\t "},
		{"no session id", noID, "hi"},
		{"no credential", noToken, "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Send(context.Background(), tt.sess, tt.text)
			assert.True(t, errors.Is(err, errs.ErrValidation))
		})
	}
	assert.Equal(t, int32(0), calls.Load())
}

func TestSendExpiredToken(t *testing.T) {
	c, calls := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {})

	sess := bearerSession()
	sess.Identity.TokenExpiresAt = time.Now().Add(-time.Second)

	_, err := c.Send(context.Background(), sess, "hi")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Equal(t, int32(0), calls.Load())
}

func TestSendUnauthorized(t *testing.T) {
	c, calls := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Send(context.Background(), bearerSession(), "hi")
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
	assert.Equal(t, errs.MsgUnauthorized, errs.UserMessage(err, ""))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendServerFailureHidesCause(t *testing.T) {
	c, calls := newTestComposer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Traceback: KeyError 'openai_key'"}`))
	})

	_, err := c.Send(context.Background(), bearerSession(), "hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrServer))
	assert.Equal(t, errs.MsgUnavailable, errs.UserMessage(err, ""))
	assert.Equal(t, int32(1), calls.Load(), "no retries")

	var se *api.StatusError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Detail, "KeyError")
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	log := logging.New(nil, "silent")
	c := New(api.NewClient(config.APIConfig{BaseURL: url, TimeoutSeconds: 1}, log), log)

	_, err := c.Send(context.Background(), bearerSession(), "hi")
	assert.True(t, errors.Is(err, errs.ErrNetwork))
	assert.Equal(t, errs.MsgUnavailable, errs.UserMessage(err, ""))
}

// Package composer sends one user message and turns the reply into an
// assistant turn.
package composer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/soyeahso/medchat/internal/api"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/logging"
)

// Composer sends messages. Each Send makes at most one request.
type Composer struct {
	api *api.Client
	log *logging.Logger
	now func() time.Time
}

// New creates a composer.
func New(apiClient *api.Client, log *logging.Logger) *Composer {
	return &Composer{
		api: apiClient,
		log: log.Sub("composer"),
		now: time.Now,
	}
}

// Send posts text on behalf of sess and returns the assistant's reply as a
// live turn. The returned turn has Sequence 0; the caller assigns position.
//
// A 401 is returned as errs.KindUnauthorized. Every other failure carries
// errs.MsgUnavailable as its user message with the cause kept for logs.
func (c *Composer) Send(ctx context.Context, sess domain.Session, text string) (domain.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Turn{}, errs.Validation("message is empty")
	}
	if sess.ID == "" {
		return domain.Turn{}, errs.Validation("no session id")
	}
	if !sess.Identity.HasCredential() {
		return domain.Turn{}, errs.Validation("session has no credential")
	}
	if sess.Identity.Expired(c.now()) {
		c.log.Info().Str("session_id", sess.ID).Msg("token expired; not sending")
		return domain.Turn{}, errs.Unauthorized(0)
	}

	lang := sess.Language
	if lang == "" {
		lang = domain.DefaultLanguage
	}
	req := api.ChatRequest{
		Message:   text,
		SessionID: sess.ID,
		Language:  lang,
	}
	var token string
	switch sess.Identity.Mode {
	case domain.AuthModeCredentialReplay:
		r := sess.Identity.Replay
		req.Name, req.DOB, req.PIN = r.Name, r.DOB(), r.PIN
	default:
		token = sess.Identity.Token
	}

	resp, err := c.api.Chat(ctx, req, token)
	if err != nil {
		return domain.Turn{}, c.classify(sess, err)
	}

	c.log.Debug().Str("session_id", sess.ID).Str("language", lang).Msg("message answered")
	return domain.Turn{
		Role:   domain.RoleAssistant,
		Text:   resp.Response,
		Source: domain.SourceLive,
	}, nil
}

func (c *Composer) classify(sess domain.Session, err error) error {
	err = api.Classify(err)
	if errors.Is(err, errs.ErrUnauthorized) {
		c.log.Info().Str("session_id", sess.ID).Msg("credential rejected")
		return err
	}

	c.log.Warn().Err(err).Str("session_id", sess.ID).Msg("send failed")

	var e *errs.Error
	if errors.As(err, &e) {
		return &errs.Error{Kind: e.Kind, Message: errs.MsgUnavailable, Status: e.Status, Err: e}
	}
	return errs.Server(0, errs.MsgUnavailable, err)
}

// Package transcript rebuilds a user's conversation from server history.
package transcript

import (
	"context"
	"time"

	"github.com/soyeahso/medchat/internal/api"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/logging"
)

// Loader fetches stored exchanges and expands them into turns.
type Loader struct {
	api *api.Client
	log *logging.Logger
	now func() time.Time
}

// NewLoader creates a transcript loader.
func NewLoader(apiClient *api.Client, log *logging.Logger) *Loader {
	return &Loader{
		api: apiClient,
		log: log.Sub("transcript"),
		now: time.Now,
	}
}

// Load returns the server-held transcript for id in server order. Each stored
// exchange becomes a user turn followed by an assistant turn. An identity
// without a user id yields an empty transcript and no request is made.
func (l *Loader) Load(ctx context.Context, id domain.Identity) (*domain.Transcript, error) {
	if !id.Authenticated() {
		return &domain.Transcript{}, nil
	}
	if id.Expired(l.now()) {
		l.log.Info().Str("user_id", id.UserID).Msg("token expired; skipping history fetch")
		return nil, errs.Unauthorized(0)
	}

	resp, err := l.api.History(ctx, id.UserID, id.Token)
	if err != nil {
		err = api.Classify(err)
		l.log.Warn().Err(err).Str("user_id", id.UserID).Msg("history fetch failed")
		return nil, err
	}

	exchanges := make([]domain.Exchange, len(resp.Messages))
	for i, m := range resp.Messages {
		exchanges[i] = domain.Exchange{Message: m.Message, Response: m.Response}
	}

	l.log.Debug().Str("user_id", id.UserID).Int("exchanges", len(exchanges)).Msg("history loaded")
	return domain.NewTranscript(exchanges), nil
}

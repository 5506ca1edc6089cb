package credstore

import (
	"context"
	"strconv"
	"time"

	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/logging"
)

// Persisted field names.
const (
	FieldUserID         = "user_id"
	FieldUserName       = "user_name"
	FieldAuthMode       = "auth_mode"
	FieldAccessToken    = "access_token"
	FieldTokenExpiresAt = "token_expires_at"
	FieldSessionID      = "session_id"
	FieldLanguage       = "language"
	FieldStartedAt      = "started_at"
	FieldLowEntropy     = "low_entropy"
	FieldReplayName     = "replay_name"
	FieldReplayDOB      = "replay_dob"
	FieldReplayPIN      = "replay_pin"
)

// encode flattens sess into the persisted field set. Empty values are omitted.
func encode(sess domain.Session) map[string]string {
	id := sess.Identity
	f := map[string]string{
		FieldUserID:    id.UserID,
		FieldUserName:  id.DisplayName,
		FieldAuthMode:  string(id.Mode),
		FieldSessionID: sess.ID,
		FieldLanguage:  sess.Language,
	}
	if id.Token != "" {
		f[FieldAccessToken] = id.Token
	}
	if !id.TokenExpiresAt.IsZero() {
		f[FieldTokenExpiresAt] = id.TokenExpiresAt.UTC().Format(time.RFC3339)
	}
	if !sess.StartedAt.IsZero() {
		f[FieldStartedAt] = sess.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	if sess.LowEntropyID {
		f[FieldLowEntropy] = "true"
	}
	if id.Replay != nil {
		f[FieldReplayName] = id.Replay.Name
		f[FieldReplayDOB] = id.Replay.DOB()
		f[FieldReplayPIN] = id.Replay.PIN
	}
	for k, v := range f {
		if v == "" {
			delete(f, k)
		}
	}
	return f
}

// decode rebuilds a session from stored fields. ok is false when the record
// lacks what a session needs to carry a message.
func decode(f map[string]string) (sess *domain.Session, ok bool) {
	if f[FieldUserID] == "" || f[FieldSessionID] == "" {
		return nil, false
	}

	id := domain.Identity{
		UserID:      f[FieldUserID],
		DisplayName: f[FieldUserName],
		Mode:        domain.AuthMode(f[FieldAuthMode]),
		Token:       f[FieldAccessToken],
	}
	if id.Mode == "" {
		id.Mode = domain.AuthModeBearer
	}
	if v := f[FieldTokenExpiresAt]; v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			id.TokenExpiresAt = t
		}
	}
	if id.Mode == domain.AuthModeCredentialReplay {
		creds := domain.Credentials{Name: f[FieldReplayName], PIN: f[FieldReplayPIN]}
		if dob, err := time.Parse(domain.DateLayout, f[FieldReplayDOB]); err == nil {
			creds.DateOfBirth = dob
		}
		if len(creds.Missing()) == 0 {
			id.Replay = &creds
		}
	}

	s := &domain.Session{
		ID:       f[FieldSessionID],
		Identity: id,
		Language: f[FieldLanguage],
	}
	if s.Language == "" {
		s.Language = domain.DefaultLanguage
	}
	if v := f[FieldStartedAt]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			s.StartedAt = t
		}
	}
	s.LowEntropyID, _ = strconv.ParseBool(f[FieldLowEntropy])

	if !s.Valid() {
		return nil, false
	}
	return s, true
}

// resolve decodes fields and clears the store when they form an incomplete
// record.
func resolve(ctx context.Context, fields map[string]string, s Store, log *logging.Logger) (*domain.Session, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	sess, ok := decode(fields)
	if ok {
		return sess, nil
	}
	log.Warn().Int("fields", len(fields)).Msg("discarding incomplete stored session")
	if err := s.Clear(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

// Package session drives the login, history, conversation and logout
// lifecycle and owns the in-memory transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/medchat/internal/auth"
	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/credstore"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/hooks"
	"github.com/soyeahso/medchat/internal/logging"
)

// PlaceholderText replaces the assistant reply when a send fails.
const PlaceholderText = "Error: " + errs.MsgUnavailable + "."

// State is the controller's lifecycle position.
type State int

const (
	Anonymous State = iota
	Authenticating
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrNoSession is returned by Resume when nothing is stored.
	ErrNoSession = errors.New("no stored session")
	// ErrSendInFlight rejects a send while the previous one is pending.
	ErrSendInFlight = errors.New("a message is already being sent")
	// ErrNotActive rejects a send outside the Active state.
	ErrNotActive = errors.New("session is not active")
	// ErrBusy rejects a login or resume while a session is starting or active.
	ErrBusy = errors.New("a session is already in progress")
	// ErrSuperseded is returned when the session ended while a call was pending;
	// its result has been discarded.
	ErrSuperseded = errors.New("session ended before the request completed")
)

// Authenticator exchanges credentials for an identity.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*auth.Result, error)
}

// HistoryLoader fetches the stored transcript of an identity.
type HistoryLoader interface {
	Load(ctx context.Context, id domain.Identity) (*domain.Transcript, error)
}

// Sender sends one message on a session.
type Sender interface {
	Send(ctx context.Context, sess domain.Session, text string) (domain.Turn, error)
}

// Deps are the collaborators of a Controller. Hooks may be nil.
type Deps struct {
	Auth    Authenticator
	History HistoryLoader
	Sender  Sender
	Store   credstore.Store
	Hooks   *hooks.Manager
}

// Controller is safe for concurrent use. Network calls run without the lock
// held; their results are applied only if the session they started on is
// still current. Store writes go through syncStore, which writes whatever
// the current state is at the time it runs.
type Controller struct {
	deps    Deps
	welcome string
	log     *logging.Logger
	now     func() time.Time

	// storeMu serializes store writes. It is never acquired while mu is held.
	storeMu sync.Mutex

	mu         sync.Mutex
	state      State
	sess       *domain.Session
	transcript domain.Transcript
	sending    bool
	language   string
}

// New creates a controller in the Anonymous state.
func New(deps Deps, cfg config.SessionConfig, log *logging.Logger) *Controller {
	lang, err := NormalizeLanguage(cfg.Language)
	if err != nil || cfg.Language == "" {
		lang = domain.DefaultLanguage
	}
	return &Controller{
		deps:     deps,
		welcome:  cfg.Welcome,
		log:      log.Sub("session"),
		now:      time.Now,
		language: lang,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the current session, if any.
func (c *Controller) Session() (domain.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return domain.Session{}, false
	}
	return *c.sess, true
}

// Transcript returns a copy of the current turns.
func (c *Controller) Transcript() []domain.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Turns()
}

// Language returns the language new messages are sent with.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language
}

// Login authenticates, persists the new session and loads its history.
// On authentication failure the controller returns to Anonymous.
func (c *Controller) Login(ctx context.Context, creds domain.Credentials) error {
	if err := c.begin(); err != nil {
		return err
	}

	res, err := c.deps.Auth.Login(ctx, creds)
	if err != nil {
		c.abort()
		return err
	}

	c.mu.Lock()
	if c.state != Authenticating {
		c.mu.Unlock()
		return ErrSuperseded
	}
	sess := domain.Session{
		ID:           res.SessionID,
		Identity:     res.Identity,
		Language:     c.language,
		StartedAt:    c.now(),
		LowEntropyID: res.LowEntropyID,
	}
	c.sess = &sess
	c.mu.Unlock()

	if err := c.syncStore(ctx); err != nil {
		c.abortSession(sess.ID)
		return fmt.Errorf("saving session: %w", err)
	}
	if !c.current(sess.ID) {
		return ErrSuperseded
	}

	c.log.Info().Str("user_id", sess.Identity.UserID).Str("session_id", sess.ID).Msg("session started")
	c.emit(ctx, hooks.EventLogin, map[string]any{
		"user_id":     sess.Identity.UserID,
		"session_id":  sess.ID,
		"low_entropy": sess.LowEntropyID,
	})

	return c.loadHistory(ctx, sess)
}

// Resume restores the stored session and reloads its history. It returns
// ErrNoSession and stays Anonymous when nothing is stored.
func (c *Controller) Resume(ctx context.Context) error {
	if err := c.begin(); err != nil {
		return err
	}

	stored, err := c.deps.Store.Load(ctx)
	if err != nil {
		c.abort()
		return fmt.Errorf("loading session: %w", err)
	}
	if stored == nil {
		c.abort()
		return ErrNoSession
	}

	c.mu.Lock()
	if c.state != Authenticating {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.sess = stored
	if stored.Language != "" {
		c.language = stored.Language
	}
	c.mu.Unlock()

	c.log.Info().Str("user_id", stored.Identity.UserID).Str("session_id", stored.ID).Msg("session resumed")
	return c.loadHistory(ctx, *stored)
}

// Send appends text as a user turn, sends it, and appends the reply. A failed
// send appends a placeholder turn, which is returned with the error. An
// Unauthorized reply ends the session. Empty text is a no-op.
func (c *Controller) Send(ctx context.Context, text string) (domain.Turn, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Turn{}, errs.Validation("message is empty")
	}

	c.mu.Lock()
	if c.state != Active || c.sess == nil {
		c.mu.Unlock()
		return domain.Turn{}, ErrNotActive
	}
	if c.sending {
		c.mu.Unlock()
		return domain.Turn{}, ErrSendInFlight
	}
	c.sending = true
	sess := *c.sess
	c.transcript.Append(domain.RoleUser, text, domain.SourceLive)
	c.mu.Unlock()

	reply, sendErr := c.deps.Sender.Send(ctx, sess, text)

	c.mu.Lock()
	if c.state != Active || c.sess == nil || c.sess.ID != sess.ID {
		c.mu.Unlock()
		c.log.Debug().Str("session_id", sess.ID).Msg("discarding reply for ended session")
		return domain.Turn{}, ErrSuperseded
	}
	c.sending = false

	if errors.Is(sendErr, errs.ErrUnauthorized) {
		c.resetLocked(Ended)
		c.mu.Unlock()
		c.expire(ctx, sess)
		return domain.Turn{}, sendErr
	}

	if sendErr != nil {
		turn := c.transcript.Append(domain.RoleAssistant, PlaceholderText, domain.SourcePlaceholder)
		c.mu.Unlock()
		c.log.Warn().Err(sendErr).Str("session_id", sess.ID).Msg("message failed")
		c.emit(ctx, hooks.EventMessageFailed, map[string]any{
			"session_id": sess.ID,
			"kind":       string(errs.KindOf(sendErr)),
		})
		return turn, sendErr
	}

	turn := c.transcript.Append(domain.RoleAssistant, reply.Text, domain.SourceLive)
	c.mu.Unlock()
	c.emit(ctx, hooks.EventMessageSent, map[string]any{
		"session_id": sess.ID,
		"language":   sess.Language,
	})
	return turn, nil
}

// Logout clears stored credentials and discards the transcript. Calling it
// with no session is harmless.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	prev := c.sess
	if c.state != Anonymous {
		c.resetLocked(Ended)
	}
	c.mu.Unlock()

	if err := c.syncStore(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if prev != nil {
		c.log.Info().Str("session_id", prev.ID).Msg("logged out")
		c.emit(ctx, hooks.EventLogout, map[string]any{"session_id": prev.ID})
	}
	return nil
}

// SetLanguage changes the language of subsequent sends and persists it with
// the session. A send already in flight keeps the language it started with.
func (c *Controller) SetLanguage(ctx context.Context, lang string) (string, error) {
	tag, err := NormalizeLanguage(lang)
	if err != nil {
		return "", errs.Validation("unknown language %q", lang)
	}

	c.mu.Lock()
	prev := c.language
	c.language = tag
	hasSession := c.sess != nil
	if hasSession {
		c.sess.Language = tag
	}
	c.mu.Unlock()

	if hasSession {
		if err := c.syncStore(ctx); err != nil {
			return tag, fmt.Errorf("saving session: %w", err)
		}
	}
	if prev != tag {
		c.emit(ctx, hooks.EventLanguageChanged, map[string]any{"from": prev, "to": tag})
	}
	return tag, nil
}

// begin moves Anonymous or Ended to Authenticating.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Anonymous && c.state != Ended {
		return fmt.Errorf("%w (state %s)", ErrBusy, c.state)
	}
	c.resetLocked(Authenticating)
	return nil
}

// abort returns a failed start to Anonymous without touching the store.
func (c *Controller) abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Authenticating {
		c.resetLocked(Anonymous)
	}
}

// abortSession is abort limited to the session with the given id.
func (c *Controller) abortSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Authenticating && c.sess != nil && c.sess.ID == id {
		c.resetLocked(Anonymous)
	}
}

// syncStore brings the store in line with the controller: the current
// session is saved, and an ended or anonymous controller clears it. A start
// still waiting on authentication leaves the store alone. State is read
// after taking storeMu, so the last write matches the latest state.
func (c *Controller) syncStore(ctx context.Context) error {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	c.mu.Lock()
	state := c.state
	var sess *domain.Session
	if c.sess != nil {
		cp := *c.sess
		sess = &cp
	}
	c.mu.Unlock()

	switch {
	case sess != nil:
		return c.deps.Store.Save(ctx, *sess)
	case state == Authenticating:
		return nil
	default:
		return c.deps.Store.Clear(ctx)
	}
}

func (c *Controller) loadHistory(ctx context.Context, sess domain.Session) error {
	tr, err := c.deps.History.Load(ctx, sess.Identity)

	c.mu.Lock()
	if c.state != Authenticating || c.sess == nil || c.sess.ID != sess.ID {
		c.mu.Unlock()
		return ErrSuperseded
	}

	if errors.Is(err, errs.ErrUnauthorized) {
		c.resetLocked(Ended)
		c.mu.Unlock()
		c.expire(ctx, sess)
		return err
	}

	if err != nil {
		c.transcript.Reset(nil)
		c.state = Active
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("user_id", sess.Identity.UserID).Msg("history unavailable; starting with an empty transcript")
		c.emit(ctx, hooks.EventHistoryFailed, map[string]any{
			"session_id": sess.ID,
			"kind":       string(errs.KindOf(err)),
			"message":    errs.UserMessage(err, errs.MsgUnavailable),
		})
		return nil
	}

	c.transcript.Reset(tr)
	if c.transcript.Empty() {
		c.transcript.Append(domain.RoleAssistant, c.welcomeText(sess.Language), domain.SourceWelcome)
	}
	count := c.transcript.Count(domain.SourceHistory)
	c.state = Active
	c.mu.Unlock()

	c.emit(ctx, hooks.EventHistoryLoaded, map[string]any{
		"session_id": sess.ID,
		"turns":      count,
	})
	return nil
}

// expire clears the store after the server rejected the session's credential.
func (c *Controller) expire(ctx context.Context, sess domain.Session) {
	c.log.Info().Str("session_id", sess.ID).Msg("credential rejected; session ended")
	if err := c.syncStore(ctx); err != nil {
		c.log.Error().Err(err).Msg("failed to clear stored session")
	}
	c.emit(ctx, hooks.EventUnauthorized, map[string]any{"session_id": sess.ID})
}

func (c *Controller) current(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.sess.ID == id
}

// resetLocked drops the session and transcript and moves to state.
func (c *Controller) resetLocked(state State) {
	c.state = state
	c.sess = nil
	c.sending = false
	c.transcript.Reset(nil)
}

func (c *Controller) welcomeText(lang string) string {
	if c.welcome != "" {
		return c.welcome
	}
	return WelcomeText(lang)
}

func (c *Controller) emit(ctx context.Context, event string, data map[string]any) {
	c.deps.Hooks.Emit(ctx, event, data)
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/soyeahso/medchat/internal/api"
	"github.com/soyeahso/medchat/internal/auth"
	"github.com/soyeahso/medchat/internal/composer"
	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/credstore"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/hooks"
	"github.com/soyeahso/medchat/internal/logging"
	"github.com/soyeahso/medchat/internal/session"
	"github.com/soyeahso/medchat/internal/transcript"
)

// app bundles the wired components a command needs.
type app struct {
	ctrl  *session.Controller
	store credstore.Store
	hooks *hooks.Manager
}

// newApp wires the client from cfg. The caller must Close it.
func newApp(ctx context.Context, cfg config.Config, paths config.Paths, log *logging.Logger) (*app, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	store, err := credstore.Open(ctx, cfg.Credentials, paths, log)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API, log)
	hm := hooks.NewManager(log)

	ctrl := session.New(session.Deps{
		Auth:    auth.NewClient(client, cfg.API, log),
		History: transcript.NewLoader(client, log),
		Sender:  composer.New(client, log),
		Store:   store,
		Hooks:   hm,
	}, cfg.Session, log)

	return &app{ctrl: ctrl, store: store, hooks: hm}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// notifyOn prints user-facing notices for background session events.
func (a *app) notifyOn(out *printer) {
	a.hooks.On(hooks.EventHistoryFailed, "cli-notice", func(_ context.Context, p hooks.Payload) error {
		msg, _ := p.Data["message"].(string)
		out.Warn("Could not load previous messages: " + msg)
		return nil
	})
	a.hooks.On(hooks.EventLogin, "cli-notice", func(_ context.Context, p hooks.Payload) error {
		if low, _ := p.Data["low_entropy"].(bool); low {
			out.Warn("Warning: this session id was generated without a secure random source.")
		}
		return nil
	})
}

// resume restores the stored session or explains how to get one.
func (a *app) resume(ctx context.Context) error {
	err := a.ctrl.Resume(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return errors.New("not logged in; run `medchat login` first")
	}
	return err
}

// start resumes the stored session. When there is none, or the server has
// rejected it, it asks for credentials and logs in.
func (a *app) start(ctx context.Context, out *printer, prompt func() (domain.Credentials, error)) error {
	err := a.ctrl.Resume(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNoSession):
	case errors.Is(err, errs.ErrUnauthorized):
		out.Warn(errs.MsgUnauthorized)
	default:
		return err
	}

	creds, err := prompt()
	if err != nil {
		return err
	}
	return a.ctrl.Login(ctx, creds)
}

// describeError turns an error into the line shown to the user.
func describeError(err error) string {
	return errs.UserMessage(err, err.Error())
}

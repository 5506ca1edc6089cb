package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/errs"
	"github.com/soyeahso/medchat/internal/logging"
	"github.com/soyeahso/medchat/internal/session"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var input loginInput

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long: `Resume the stored session, or log in if there is none, then read
messages from the terminal. Lines starting with / are commands; type /help
to list them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := stdoutPrinter(cmd.OutOrStdout())

			a, err := newApp(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.notifyOn(out)

			prompt := func() (domain.Credentials, error) {
				return newStdinPrompter(cmd.OutOrStdout()).credentials(input, time.Now())
			}
			if err := a.start(ctx, out, prompt); err != nil {
				return err
			}

			sess, _ := a.ctrl.Session()
			out.Title(fmt.Sprintf("Chatting as %s (language %s). Type /help for commands.", displayName(sess.Identity), a.ctrl.Language()))
			fmt.Fprintln(out.out)
			out.Transcript(a.ctrl.Transcript())

			r := newREPL(a.ctrl, out, log)
			return r.run(ctx, paths.InputHistory)
		},
	}

	addLoginFlags(cmd, &input)
	return cmd
}

// repl drives one interactive chat over a controller.
type repl struct {
	ctrl *session.Controller
	out  *printer
	log  *logging.Logger
}

func newREPL(ctrl *session.Controller, out *printer, log *logging.Logger) *repl {
	return &repl{ctrl: ctrl, out: out, log: log.Sub("cli")}
}

func (r *repl) run(ctx context.Context, historyFile string) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			r.log.Debug().Err(err).Msg("saving input history")
			return
		}
		defer f.Close()
		line.WriteHistory(f)
	}()

	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal end the chat.
			fmt.Fprintln(r.out.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if !r.handle(ctx, input) {
			return nil
		}
	}
}

// handle processes one line of input and reports whether the chat goes on.
func (r *repl) handle(ctx context.Context, input string) bool {
	if strings.HasPrefix(input, "/") {
		return r.command(ctx, input)
	}

	// Ctrl+C while waiting for a reply cancels the request, not the chat.
	sendCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	reply, err := r.ctrl.Send(sendCtx, input)
	if err != nil {
		if reply.Source == domain.SourcePlaceholder {
			r.out.Turn(reply)
		}
		r.out.Error(err)
		return !errors.Is(err, errs.ErrUnauthorized)
	}
	r.out.Turn(reply)
	return true
}

func (r *repl) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit":
		return false

	case "/help":
		r.out.Notice(replHelp)

	case "/history":
		r.out.Transcript(r.ctrl.Transcript())

	case "/lang":
		if len(args) == 0 {
			r.out.Notice("Language: " + r.ctrl.Language())
			return true
		}
		tag, err := r.ctrl.SetLanguage(ctx, args[0])
		if err != nil {
			r.out.Error(err)
			return true
		}
		r.out.Notice("Language set to " + tag)

	case "/logout":
		if err := r.ctrl.Logout(ctx); err != nil {
			r.out.Error(err)
			return true
		}
		r.out.Notice("Logged out.")
		return false

	default:
		r.out.Warn(fmt.Sprintf("Unknown command %s. Type /help for commands.", name))
	}
	return true
}

const replHelp = `Commands:
  /lang [tag]   show or change the reply language (e.g. /lang hi)
  /history      print the conversation so far
  /logout       end the session and forget stored credentials
  /quit         leave the chat, keeping the session for next time`

func displayName(id domain.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.UserID
}

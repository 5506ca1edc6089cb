package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/soyeahso/medchat/internal/domain"
	"github.com/spf13/cobra"
)

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

func addLoginFlags(cmd *cobra.Command, in *loginInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "your name as registered")
	cmd.Flags().StringVar(&in.DOB, "dob", "", "date of birth, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.PIN, "pin", "", "PIN (prompted without echo when omitted)")
}

func newLoginCmd() *cobra.Command {
	var input loginInput

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Log in with your name, date of birth and PIN. Fields not given as
flags are prompted for; the PIN is read without echo on a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			out := stdoutPrinter(cmd.OutOrStdout())

			creds, err := newStdinPrompter(cmd.OutOrStdout()).credentials(input, time.Now())
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.notifyOn(out)

			if err := a.ctrl.Login(ctx, creds); err != nil {
				return err
			}

			sess, _ := a.ctrl.Session()
			out.Title("Logged in as " + displayName(sess.Identity))
			out.Notice(loginSummary(a.ctrl.Transcript()))
			return nil
		},
	}

	addLoginFlags(cmd, &input)
	return cmd
}

func loginSummary(turns []domain.Turn) string {
	n := 0
	for _, t := range turns {
		if t.Source == domain.SourceHistory && t.Role == domain.RoleUser {
			n++
		}
	}
	switch n {
	case 0:
		return "No previous messages. Run `medchat chat` to start."
	case 1:
		return "1 previous message. Run `medchat chat` to continue."
	default:
		return fmt.Sprintf("%d previous messages. Run `medchat chat` to continue.", n)
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			a, err := newApp(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.store.Load(ctx)
			if err != nil {
				return err
			}
			if err := a.ctrl.Logout(ctx); err != nil {
				return err
			}

			if stored == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s.\n", displayName(stored.Identity))
			return nil
		},
	}
}

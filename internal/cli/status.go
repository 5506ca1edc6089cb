package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/soyeahso/medchat/internal/config"
	"github.com/soyeahso/medchat/internal/credstore"
	"github.com/soyeahso/medchat/internal/domain"
	"github.com/soyeahso/medchat/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and stored session summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "medchat %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(w, "Config:  %s", paths.Config)
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprint(w, " (not found, using defaults)")
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "Data:    %s\n", paths.Data)
			fmt.Fprintln(w)

			printConfigSummary(w, cfg)

			ctx, stop := signalContext(cmd)
			defer stop()
			store, err := credstore.Open(ctx, cfg.Credentials, paths, log)
			if err != nil {
				fmt.Fprintf(w, "Session: store unavailable: %v\n", err)
			} else {
				defer store.Close()
				sess, err := store.Load(ctx)
				if err != nil {
					fmt.Fprintf(w, "Session: error loading: %v\n", err)
				} else {
					printSessionSummary(w, sess, time.Now())
				}
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(w, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(w, "  - %s\n", issue)
				}
			}
			return nil
		},
	}
}

func printConfigSummary(w io.Writer, cfg config.Config) {
	fmt.Fprintf(w, "API:     %s timeout=%s replay=%v\n",
		cfg.API.BaseURL, cfg.API.Timeout(), cfg.API.LegacyCredentialReplay)
	fmt.Fprintf(w, "Store:   %s\n", cfg.Credentials.Store)
	fmt.Fprintf(w, "Lang:    %s\n", cfg.Session.Language)
}

func printSessionSummary(w io.Writer, sess *domain.Session, now time.Time) {
	if sess == nil {
		fmt.Fprintln(w, "Session: not logged in")
		return
	}
	fmt.Fprintf(w, "Session: user=%s mode=%s language=%s started=%s\n",
		displayName(sess.Identity), sess.Identity.Mode, sess.Language,
		sess.StartedAt.Format(time.RFC3339))
	if exp := sess.Identity.TokenExpiresAt; !exp.IsZero() {
		state := "valid"
		if sess.Identity.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "Token:   %s until %s\n", state, exp.Format(time.RFC3339))
	}
	if sess.LowEntropyID {
		fmt.Fprintln(w, "Warning: session id was generated without a secure random source")
	}
}

package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send one message using the stored session and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			out := stdoutPrinter(cmd.OutOrStdout())

			a, err := newApp(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.notifyOn(out)

			if err := a.resume(ctx); err != nil {
				return err
			}
			if lang != "" {
				if _, err := a.ctrl.SetLanguage(ctx, lang); err != nil {
					return err
				}
			}

			reply, err := a.ctrl.Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			out.Turn(reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "reply language for this and later messages (e.g. en, hi)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the conversation history of the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()
			out := stdoutPrinter(cmd.OutOrStdout())

			a, err := newApp(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.notifyOn(out)

			if err := a.resume(ctx); err != nil {
				return err
			}
			out.Transcript(a.ctrl.Transcript())
			return nil
		},
	}
}

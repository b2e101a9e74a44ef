package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portal-chat/internal/models"
	"portal-chat/internal/notify"
	"portal-chat/internal/unread"
)

var follow bool

func init() {
	unreadCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep polling and print a line for every new message")
	rootCmd.AddCommand(unreadCmd)
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Show unread counts per conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEmail(); err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		w := unread.New(e.client, e.viewer.Email, unread.Options{
			Interval: e.cfg.UnreadPollInterval,
			Notifier: notify.Multi{
				notify.Func(func(_ context.Context, n models.Notification) error {
					_, err := fmt.Fprintf(out, "%s: %s\n", n.Title, n.Body)
					return err
				}),
				notify.Log{Logger: e.logger},
			},
			Permission: func() bool { return true },
			Icon:       e.cfg.NotificationIcon,
			Logger:     e.logger,
		})

		if err := w.Poll(cmd.Context()); err != nil {
			return err
		}
		for _, line := range formatCounts(w.Counts()) {
			fmt.Fprintln(out, line)
		}
		if !follow {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		w.Start(ctx)
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

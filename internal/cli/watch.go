package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portal-chat/internal/chat"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <conversation-or-order-id>",
	Short: "Follow a conversation until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		conv := chat.New(e.client, e.viewer, chat.Options{
			PollInterval:  e.cfg.ChatPollInterval,
			TypingTimeout: e.cfg.TypingTimeout,
			Renderer:      newPrinter(cmd.OutOrStdout()),
			Logger:        e.logger,
		})
		conv.Open(ctx, conversationArg(args[0]))
		<-ctx.Done()
		conv.Close(context.WithoutCancel(ctx))
		return nil
	},
}

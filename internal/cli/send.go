package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"portal-chat/internal/chat"
)

var editID string

func init() {
	sendCmd.Flags().StringVar(&editID, "edit", "", "replace the text of this message instead of sending a new one")
	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <conversation-or-order-id> <text...>",
	Short: "Send or edit a message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEmail(); err != nil {
			return err
		}
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		conv := openOnce(cmd, e, args[0])
		defer conv.Close(ctx)

		if editID != "" {
			if err := conv.Refresh(ctx); err != nil {
				return err
			}
			if err := conv.Edit(editID); err != nil {
				return err
			}
		}
		if err := conv.Compose(ctx, strings.Join(args[1:], " ")); err != nil {
			return err
		}
		if err := conv.Send(ctx); err != nil {
			return err
		}
		if editID != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "edited %s\n", editID)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
		}
		return nil
	},
}

// openOnce opens a conversation without rendering, for one-shot commands.
func openOnce(cmd *cobra.Command, e *env, arg string) *chat.Conversation {
	conv := chat.New(e.client, e.viewer, chat.Options{
		PollInterval:  e.cfg.ChatPollInterval,
		TypingTimeout: e.cfg.TypingTimeout,
		Logger:        e.logger,
	})
	conv.Open(cmd.Context(), conversationArg(arg))
	return conv
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"portal-chat/internal/chat"
)

var assumeYes bool

func init() {
	for _, c := range []*cobra.Command{deleteCmd, clearCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
		rootCmd.AddCommand(c)
	}
}

var deleteCmd = &cobra.Command{
	Use:   "delete <conversation-or-order-id> <message-id>",
	Short: "Delete a single message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		conv := openOnce(cmd, e, args[0])
		defer conv.Close(cmd.Context())

		err = conv.Delete(cmd.Context(), args[1], confirmer(cmd))
		return report(cmd, err, "deleted "+args[1])
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <conversation-or-order-id>",
	Short: "Delete the whole conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		conv := openOnce(cmd, e, args[0])
		defer conv.Close(cmd.Context())

		err = conv.Clear(cmd.Context(), confirmer(cmd))
		return report(cmd, err, "cleared")
	},
}

func confirmer(cmd *cobra.Command) chat.Confirmer {
	if assumeYes {
		return chat.Confirmed
	}
	return promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
}

func report(cmd *cobra.Command, err error, done string) error {
	if errors.Is(err, chat.ErrCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return nil
}

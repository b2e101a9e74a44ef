package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"portal-chat/internal/api"
	"portal-chat/internal/config"
	"portal-chat/internal/identity"
	"portal-chat/internal/models"
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "Terminal client for order conversations",
	Long: `chatctl talks to the portal backend directly. It can follow a
conversation, send and edit messages, and watch unread counts.`,
	SilenceUsage: true,
}

var globals struct {
	backend string
	token   string
	email   string
	role    string
	timeout time.Duration
	verbose bool
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globals.backend, "backend", "", "backend base URL (default $BACKEND_URL)")
	pf.StringVar(&globals.token, "token", "", "backend bearer token (default $BACKEND_TOKEN)")
	pf.StringVarP(&globals.email, "email", "e", "", "viewer email")
	pf.StringVarP(&globals.role, "role", "r", string(models.RoleCustomer), "viewer role: customer, agent or guest")
	pf.DurationVar(&globals.timeout, "timeout", 0, "backend request timeout (default $BACKEND_TIMEOUT)")
	pf.BoolVarP(&globals.verbose, "verbose", "v", false, "log backend failures to stderr")
}

// env bundles what every subcommand needs.
type env struct {
	cfg    config.Config
	client *api.Client
	viewer identity.Viewer
	logger *slog.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if globals.backend != "" {
		cfg.BackendURL = globals.backend
	}
	if globals.token != "" {
		cfg.BackendToken = globals.token
	}
	if globals.timeout > 0 {
		cfg.BackendTimeout = globals.timeout
	}

	role := models.Role(strings.ToLower(globals.role))
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", globals.role)
	}

	level := slog.LevelError
	if globals.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return &env{
		cfg:    cfg,
		client: api.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout),
		viewer: identity.Viewer{Email: globals.email, Role: role},
		logger: logger,
	}, nil
}

func requireEmail() error {
	if globals.email == "" {
		return fmt.Errorf("--email is required")
	}
	return nil
}

// conversationArg accepts either a conversation id or a bare order id.
func conversationArg(arg string) string {
	if models.OrderFromConversation(arg) != arg {
		return arg
	}
	return models.ConversationForOrder(arg)
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/initia-labs/corerpc/client"
	"github.com/initia-labs/corerpc/config"
	"github.com/initia-labs/corerpc/log"
	"github.com/initia-labs/corerpc/relay"
	"github.com/initia-labs/corerpc/sentry_integration"
)

func SetVersion(version, commit string) {
	config.SetBuildInfo(version, commit)
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "corerpc",
		Short:         "JSON-RPC client for Bitcoin Core compatible nodes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(callCmd())
	cmd.AddCommand(statusCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(tailCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", config.Version, config.CommitHash)
		},
	}
}

// session is the shared setup of every node-facing command.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	client *client.Client
}

func setup() (*session, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	logger := log.NewLogger(cfg)

	if err := sentry_integration.Init(cfg.GetSentryConfig()); err != nil {
		logger.Warn("failed to initialize sentry", slog.Any("error", err))
	}

	c, err := client.NewFromConfig(cfg, relay.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, client: c}, nil
}

// report sends a command failure to sentry before it is returned to cobra.
func (rt *session) report(err error) error {
	if err != nil {
		sentry_integration.CaptureCurrentHubException(err, sentry.LevelError)
		sentry_integration.Flush()
	}
	return err
}

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/initia-labs/corerpc/metrics"
	"github.com/initia-labs/corerpc/mq"
	"github.com/initia-labs/corerpc/watcher"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the chain tip",
		Long: `
Poll the node for its best block every WATCH_INTERVAL and log every change.

When RABBITMQ_HOST is set, tip changes are published to the RABBITMQ_STREAM super stream.
When METRICS_ENABLED is true, prometheus metrics are served on METRICS_PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}

			opts := []watcher.Option{watcher.WithMinServerVersion(rt.cfg.GetMinServerVersion())}
			if mqCfg := rt.cfg.GetRabbitMQConfig(); mqCfg != nil {
				publisher, err := mq.NewPublisher(*mqCfg)
				if err != nil {
					return rt.report(err)
				}
				defer publisher.Close() //nolint:errcheck
				opts = append(opts, watcher.WithPublisher(publisher))
			}
			w := watcher.New(rt.client, rt.logger, rt.cfg.GetWatchInterval(), opts...)

			metricsServer := metrics.NewServer(rt.cfg, rt.logger)

			// graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(metricsServer.Start)
			g.Go(func() error {
				return w.Run(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				rt.logger.Info("shutting down watcher...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(shutdownCtx); err != nil {
					rt.logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
				}
				return nil
			})

			return rt.report(g.Wait())
		},
	}

	return cmd
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/initia-labs/corerpc/config"
	"github.com/initia-labs/corerpc/log"
	"github.com/initia-labs/corerpc/mq"
	"github.com/initia-labs/corerpc/types"
)

func tailCmd() *cobra.Command {
	var (
		from string
		name string
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print tip events published by watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			mqCfg := cfg.GetRabbitMQConfig()
			if mqCfg == nil {
				return types.NewConfigError("RABBITMQ_HOST is required for tail", nil)
			}
			logger := log.NewLogger(cfg)

			sub, err := mq.NewSubscriber(*mqCfg, name, logger)
			if err != nil {
				return err
			}
			defer sub.Close() //nolint:errcheck

			var mu sync.Mutex
			out := json.NewEncoder(cmd.OutOrStdout())
			err = sub.Subscribe(from, func(m mq.Message) {
				mu.Lock()
				defer mu.Unlock()
				if err := out.Encode(m); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "last", `start position: "first", "last" or "height:<number>"`)
	cmd.Flags().StringVar(&name, "name", "corerpc-tail", "consumer group name")

	return cmd
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/initia-labs/corerpc/client"
	"github.com/initia-labs/corerpc/types"
)

type statusReport struct {
	Chain             string   `json:"chain"`
	Blocks            uint64   `json:"blocks"`
	Headers           uint64   `json:"headers"`
	BestBlockHash     string   `json:"bestblockhash"`
	InitialSync       bool     `json:"initialblockdownload"`
	Progress          float64  `json:"verificationprogress"`
	ServerVersion     string   `json:"server_version"`
	Subversion        string   `json:"subversion"`
	Connections       uint64   `json:"connections"`
	Uptime            uint64   `json:"uptime"`
	ActiveSoftforks   []string `json:"active_softforks"`
	SupportedByClient bool     `json:"supported"`
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a summary of the node state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}

			chainInfo, netInfo, uptime, err := fetchStatus(cmd.Context(), rt.client)
			if err != nil {
				return rt.report(err)
			}

			report := buildStatusReport(chainInfo, netInfo, uptime, rt.cfg.GetMinServerVersion())
			if !report.SupportedByClient {
				rt.logger.Warn("server is older than the minimum supported version",
					slog.String("server_version", report.ServerVersion),
					slog.String("min_version", rt.cfg.GetMinServerVersion()))
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	return cmd
}

// fetchStatus reads the node state with one getnetworkinfo call: its version
// feeds the getblockchaininfo decoding while uptime is fetched alongside.
func fetchStatus(ctx context.Context, c *client.Client) (*types.GetBlockchainInfoResult, *types.GetNetworkInfoResult, uint64, error) {
	var (
		chainInfo *types.GetBlockchainInfoResult
		netInfo   *types.GetNetworkInfoResult
		uptime    uint64
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if netInfo, err = c.GetNetworkInfo(ctx); err != nil {
			return err
		}
		chainInfo, err = c.GetBlockchainInfoAt(ctx, client.ServerVersion(netInfo.Version))
		return err
	})
	g.Go(func() error {
		var err error
		uptime, err = c.Uptime(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}
	return chainInfo, netInfo, uptime, nil
}

func buildStatusReport(chainInfo *types.GetBlockchainInfoResult, netInfo *types.GetNetworkInfoResult, uptime uint64, minVersion string) statusReport {
	version := client.ServerVersion(netInfo.Version)

	active := make([]string, 0, len(chainInfo.Softforks))
	for _, name := range slices.Sorted(maps.Keys(chainInfo.Softforks)) {
		if chainInfo.Softforks[name].Active {
			active = append(active, name)
		}
	}

	return statusReport{
		Chain:             chainInfo.Chain,
		Blocks:            chainInfo.Blocks,
		Headers:           chainInfo.Headers,
		BestBlockHash:     chainInfo.BestBlockHash,
		InitialSync:       chainInfo.InitialBlockDownload,
		Progress:          chainInfo.VerificationProgress,
		ServerVersion:     version.Semver(),
		Subversion:        netInfo.Subversion,
		Connections:       netInfo.Connections,
		Uptime:            uptime,
		ActiveSoftforks:   active,
		SupportedByClient: minVersion == "" || version.AtLeast(minVersion),
	}
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func callCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <method> [param...]",
		Short: "Call a JSON-RPC method and print its result",
		Long: `
Call a JSON-RPC method on the configured node and print the result as JSON.

Each param is parsed as JSON; params that are not valid JSON are sent as strings.
The node is configured with RPC_URL and RPC_USER/RPC_PASSWORD or RPC_COOKIE_FILE.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}

			var result json.RawMessage
			if err := rt.client.Call(cmd.Context(), args[0], parseParams(args[1:]), &result); err != nil {
				return rt.report(err)
			}

			out, err := formatResult(result)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	return cmd
}

func parseParams(raw []string) []any {
	params := make([]any, 0, len(raw))
	for _, p := range raw {
		if json.Valid([]byte(p)) {
			params = append(params, json.RawMessage(p))
		} else {
			params = append(params, p)
		}
	}
	return params
}

// formatResult indents objects and arrays and prints strings unquoted.
func formatResult(result json.RawMessage) (string, error) {
	if len(result) == 0 {
		return "null", nil
	}
	var s string
	if err := json.Unmarshal(result, &s); err == nil {
		return s, nil
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

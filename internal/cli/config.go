package cli

import (
	"encoding/json"
	"fmt"

	"github.com/haatos/secpipe/internal"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:          "config",
	Short:        "Show the server configuration",
	Long:         `Show the configuration persisted in config.json, creating it with defaults on first use.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		internal.InitializeConfiguration()
		b, err := json.MarshalIndent(internal.Config, "", "    ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

var (
	configQueueSize     int64
	configRetainRuns    int64
	configSSETimeoutSec int64
)

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the server configuration",
	Long: `Update one or more configuration values and persist them to config.json.
The server reads the file at startup, so a running server must be restarted
for changes to take effect.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		internal.InitializeConfiguration()
		cfg := *internal.Config
		if cmd.Flags().Changed("queue-size") {
			cfg.QueueSize = configQueueSize
		}
		if cmd.Flags().Changed("retain-runs") {
			cfg.RetainRuns = configRetainRuns
		}
		if cmd.Flags().Changed("sse-timeout") {
			cfg.SSETimeoutSec = configSSETimeoutSec
		}
		if err := internal.UpdateConfiguration(&cfg); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration updated")
		return nil
	},
}

func init() {
	configSetCmd.Flags().
		Int64Var(&configQueueSize, "queue-size", 0, "maximum number of queued runs")
	configSetCmd.Flags().
		Int64Var(&configRetainRuns, "retain-runs", 0, "runs kept per pipeline before pruning")
	configSetCmd.Flags().
		Int64Var(&configSSETimeoutSec, "sse-timeout", 0, "SSE stream deadline in seconds")

	configCmd.AddCommand(configSetCmd)
}

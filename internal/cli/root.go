package cli

import (
	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/logging"
	"github.com/haatos/secpipe/internal/settings"
	"github.com/haatos/secpipe/internal/util"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	logFormat string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "secpipe",
	Short: "secpipe runs security scan pipelines",
	Long: `secpipe executes security scan pipelines declared in YAML: ordered stages
of shell steps with scoped environments, vault-bound credentials, per-step
failure policies and artifact collection. Runs, credentials and API keys are
stored in a local SQLite database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if exists, _ := util.PathExists(internal.DotEnvPath); exists {
			settings.ReadDotenv(internal.DotEnvPath)
		}
		settings.Settings = settings.NewSettings()
		return logging.Initialize(logFormat, logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&logFormat, "log-format", logging.Tint, "log format (json, text, tint)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(credentialCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

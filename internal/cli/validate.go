package cli

import (
	"fmt"
	"os"

	"github.com/haatos/secpipe/internal/settings"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate pipeline definitions without running them",
	Long: `Validate a pipeline file, or every *.yml/*.yaml file in a directory.
With no argument the configured pipelines directory is validated.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings.Settings.PipelinesDir
		if len(args) == 1 {
			path = args[0]
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		var pipelines []*spec.Pipeline
		if info.IsDir() {
			pipelines, err = spec.LoadDir(path)
		} else {
			var p *spec.Pipeline
			p, err = spec.Load(path)
			pipelines = []*spec.Pipeline{p}
		}
		if err != nil {
			return err
		}

		for _, p := range pipelines {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d stages)\n", p.Name, len(p.Stages))
		}
		return nil
	},
}

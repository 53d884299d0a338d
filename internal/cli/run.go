package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/security"
	"github.com/haatos/secpipe/internal/service"
	"github.com/haatos/secpipe/internal/settings"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/haatos/secpipe/internal/store"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yml>",
	Short: "Execute a pipeline and wait for it to finish",
	Long: `Execute the given pipeline on the local machine (or its declared agent),
streaming masked output to stdout. The process exit status is 0 when the run
passes or tolerated continue-on-error steps failed, and 1 when the run fails.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := spec.Load(args[0])
		if err != nil {
			return err
		}

		db := store.InitDatabase(false)
		defer db.Close()
		store.RunMigrations(db)

		encrypter := security.NewAESEncrypter(security.NewVaultKey())
		pipelineSvc := service.NewPipelineService(
			[]*spec.Pipeline{p},
			store.NewRunSQLiteStore(db, db),
			store.NewCredentialSQLiteStore(db, db),
			encrypter,
			settings.Settings.WorkspaceDir,
			settings.Settings.ArtifactsDir,
		)

		ctx, stop := signal.NotifyContext(
			context.Background(), syscall.SIGINT, syscall.SIGTERM,
		)
		defer stop()

		run, err := pipelineSvc.CreateRun(ctx, p.Name)
		if err != nil {
			return err
		}
		startedOn := time.Now().UTC()
		if err := pipelineSvc.UpdateRunStartedOn(
			ctx, run.RunID, settings.Settings.WorkspaceDir, store.StatusRunning, &startedOn,
		); err != nil {
			return err
		}

		sink := func(out string) { fmt.Fprint(cmd.OutOrStdout(), out) }
		result, execErr := pipelineSvc.ExecuteRun(ctx, run, sink)

		status := store.StatusFailed
		var artifacts *string
		if result != nil {
			status = service.RunStatusFor(result, execErr)
			artifacts = service.MarshalArtifacts(result)
		}
		endedOn := time.Now().UTC()
		if err := pipelineSvc.UpdateRunEndedOn(
			context.Background(), run.RunID, status, artifacts, run.ReportPath, &endedOn,
		); err != nil {
			return err
		}

		if result == nil {
			return execErr
		}
		printRunSummary(cmd, run, result)
		if result.ExitCode() != 0 {
			return fmt.Errorf("pipeline '%s' failed", p.Name)
		}
		return nil
	},
}

func printRunSummary(cmd *cobra.Command, run *store.Run, result *engine.PipelineRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nrun %s finished: %s\n", result.RunID, result.Status)
	for _, stage := range result.Stages {
		fmt.Fprintf(out, "  %-30s %s\n", stage.Stage, stage.Status)
	}
	if run.ReportPath != nil {
		fmt.Fprintf(out, "report: %s\n", *run.ReportPath)
	}
}

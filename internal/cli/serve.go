package cli

import (
	"context"
	"log/slog"

	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/handler"
	"github.com/haatos/secpipe/internal/security"
	"github.com/haatos/secpipe/internal/service"
	"github.com/haatos/secpipe/internal/settings"
	"github.com/haatos/secpipe/internal/spec"
	"github.com/haatos/secpipe/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the secpipe API server",
	Long: `Start the HTTP API: trigger and cancel runs, stream masked run output and
status over SSE, download reports and artifact archives. Every request must
carry a stored API key. Pipelines with a schedule are run on their cron
expression.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		internal.InitializeConfiguration()

		pipelines, err := spec.LoadDir(settings.Settings.PipelinesDir)
		if err != nil {
			return err
		}

		rdb := store.InitDatabase(true)
		defer rdb.Close()
		rwdb := store.InitDatabase(false)
		defer rwdb.Close()
		store.RunMigrations(rwdb)

		encrypter := security.NewAESEncrypter(security.NewVaultKey())
		runStore := store.NewRunSQLiteStore(rdb, rwdb)
		credentialStore := store.NewCredentialSQLiteStore(rdb, rwdb)
		apiKeySvc := service.NewAPIKeyService(
			store.NewAPIKeySQLiteStore(rdb, rwdb),
			service.NewUUIDGen(),
		)
		pipelineSvc := service.NewPipelineService(
			pipelines,
			runStore,
			credentialStore,
			encrypter,
			settings.Settings.WorkspaceDir,
			settings.Settings.ArtifactsDir,
		)

		if err := pipelineSvc.PruneRuns(
			context.Background(), internal.Config.RetainRuns,
		); err != nil {
			slog.Error("err pruning old runs", "err", err)
		}

		outputClients := service.NewSSEClientMap[string]()
		statusClients := service.NewSSEClientMap[store.Run]()
		queue := service.NewRunQueue(
			pipelineSvc,
			settings.Settings.WorkspaceDir,
			int(internal.Config.QueueSize),
			outputClients,
			statusClients,
		)
		go queue.Start()
		defer queue.Close()

		scheduler := service.NewScheduler()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				slog.Error("err shutting down scheduler", "err", err)
			}
		}()
		if err := service.SchedulePipelines(scheduler, pipelineSvc, queue); err != nil {
			return err
		}
		scheduler.Start()

		e := setupEcho()
		api := e.Group("/api", handler.APIKeyAuth(apiKeySvc))
		handler.SetupPipelineRoutes(api, pipelineSvc, queue, outputClients, statusClients)

		slog.Info("starting server", "url", settings.Settings.BaseURL())
		internal.GracefulShutdown(e, settings.Settings.Port)
		return nil
	},
}

func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(
		middleware.Recover(),
		middleware.CORSWithConfig(internal.GetCORSConfig()),
		middleware.RateLimiterWithConfig(internal.GetRateLimiterConfig()),
	)
	return e
}

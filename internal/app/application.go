package app

import (
	"context"

	"go.uber.org/fx"

	usecase "github.com/tigerroll/trendline/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/trendline/pkg/batch/core/config"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// RunApplication loads the configuration, runs the configured job once and returns
// the process exit code.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) int {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return 1
	}

	logger.SetLogLevel(cfg.Surfin.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Surfin.System.Logging.Level)

	app := fx.New(
		fx.Supply(
			cfg,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		logger.Module,
		Module,

		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // jobLauncher *usecase.SimpleJobLauncher
			"",              // cfg *config.Config
			`name:"appCtx"`, // appCtx context.Context
		))),
	)

	if err := app.Start(context.Background()); err != nil {
		logger.Errorf("Application failed to start: %v", err)
		return 1
	}

	sig := <-app.Wait()

	if err := app.Stop(context.Background()); err != nil {
		logger.Errorf("Application failed to stop cleanly: %v", err)
		if sig.ExitCode == 0 {
			return 1
		}
	}
	return sig.ExitCode
}

// startJobExecution launches the job when the application starts and shuts the
// application down with the job's exit code once it finishes.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	jobLauncher *usecase.SimpleJobLauncher,
	cfg *config.Config,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go runJob(appCtx, jobLauncher, cfg.Surfin.Batch.JobName, shutdowner)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}

func runJob(ctx context.Context, jobLauncher *usecase.SimpleJobLauncher, jobName string, shutdowner fx.Shutdowner) {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in job execution: %v", r)
			exitCode = 1
		}
		logger.Infof("Requesting application shutdown after job completion.")
		if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	logger.Infof("Starting job '%s'...", jobName)
	jobExecution, err := jobLauncher.Launch(ctx, jobName, model.NewJobParameters())
	if err != nil {
		logger.Errorf("Failed to launch job '%s': %v", jobName, err)
		return
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status: %s, ExitStatus: %s",
		jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	exitCode = jobExecution.Status.ProcessExitCode()
}

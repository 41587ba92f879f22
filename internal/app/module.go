// Package app wires the trendline batch application.
package app

import (
	"go.uber.org/fx"

	appConfig "github.com/tigerroll/trendline/internal/config"
	"github.com/tigerroll/trendline/internal/job"
	"github.com/tigerroll/trendline/internal/step"
	gormadapter "github.com/tigerroll/trendline/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/trendline/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/trendline/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/trendline/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/trendline/pkg/batch/adapter/storage"
	"github.com/tigerroll/trendline/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/trendline/pkg/batch/adapter/storage/local"
	usecase "github.com/tigerroll/trendline/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/trendline/pkg/batch/core/config"
	jobRunner "github.com/tigerroll/trendline/pkg/batch/core/job/runner"
	infraMetrics "github.com/tigerroll/trendline/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/trendline/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/trendline/pkg/batch/listener/logging"
	listenerMetrics "github.com/tigerroll/trendline/pkg/batch/listener/metrics"
)

// Module provides everything the job needs. It expects a *config.Config to be supplied.
var Module = fx.Options(
	config.Module,
	appConfig.Module,
	infraMetrics.Module,

	// database
	gormadapter.Module,
	sqlite.Module,
	postgres.Module,
	mysql.Module,

	// storage
	storage.Module,
	local.Module,
	gcs.Module,

	inmemory.Module,
	jobRunner.Module,
	usecase.Module,
	logging.Module,
	listenerMetrics.Module,

	step.Module,
	job.Module,
)

// Package logging provides listeners that log job and step lifecycle events.
package logging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	port "github.com/tigerroll/trendline/pkg/batch/core/application/port"
	model "github.com/tigerroll/trendline/pkg/batch/core/domain/model"
	"github.com/tigerroll/trendline/pkg/batch/support/util/logger"
)

// --- Job Execution Listener ---

type LoggingJobListener struct{}

func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %s",
		jobExecution.JobName, jobExecution.ID, jobExecution.Parameters.String())
}

// AfterJob logs the final status and one line per step.
func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s, Duration: %s",
		jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus, elapsed(jobExecution.StartTime, jobExecution.EndTime))
	for _, se := range jobExecution.StepExecutions {
		logger.Infof("  Step %-18s %-9s read=%d write=%d filter=%d",
			se.StepName, se.Status, se.ReadCount, se.WriteCount, se.FilterCount)
	}
	for _, failure := range jobExecution.Failures {
		logger.Errorf("  Failure: %s", failure)
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct{}

func NewLoggingStepListener() *LoggingStepListener {
	return &LoggingStepListener{}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

// AfterStep logs the outcome and the step's ExecutionContext at DEBUG.
func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus)
	if logger.GetLogLevel() == logger.LevelDebug {
		logger.Debugf("  ExecutionContext: %s", describeContext(stepExecution.ExecutionContext))
	}
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)

func describeContext(ec model.ExecutionContext) string {
	keys := make([]string, 0, len(ec))
	for k := range ec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := ec.Get(k)
		fmt.Fprintf(&b, "%s=%v", k, v)
	}
	return b.String()
}

func elapsed(start time.Time, end *time.Time) time.Duration {
	if end == nil {
		return 0
	}
	return end.Sub(start).Round(time.Millisecond)
}

// Package pipeline holds the dataset shared by the steps of one job run.
package pipeline

import (
	"sync"

	"github.com/tigerroll/trendline/internal/domain/model"
)

// Stage names used in logs, ExecutionContext keys and the pipeline_rows_total metric.
const (
	StageJoin    = "join"
	StageClean   = "clean"
	StageFeature = "feature"
	StageLabel   = "label"
	StageExport  = "export"
	StageCorpus  = "corpus"
)

// Dataset is the in-memory hand-off between steps. The loader fills Joined, the
// cleaner replaces it with Rows, and each later step replaces Rows with its output.
type Dataset struct {
	mu     sync.Mutex
	joined []model.JoinedRow
	rows   []model.DatasetRow
}

// NewDataset creates an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{}
}

// Reset drops everything held by a previous run.
func (d *Dataset) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.joined = nil
	d.rows = nil
}

// SetJoined stores the loader output.
func (d *Dataset) SetJoined(rows []model.JoinedRow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.joined = rows
}

// Joined returns the loader output.
func (d *Dataset) Joined() []model.JoinedRow {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.joined
}

// SetRows replaces the current rows. The joined rows are released once rows exist.
func (d *Dataset) SetRows(rows []model.DatasetRow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows = rows
	d.joined = nil
}

// Rows returns the current rows.
func (d *Dataset) Rows() []model.DatasetRow {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rows
}

// Package dashboard serves the summary page, its JSON equivalent and the
// pipeline control endpoints.
package dashboard

import (
	"context"

	"student-analytics/internal/logging"
	"student-analytics/internal/pipeline"
	"student-analytics/internal/students"
)

// RecordSource reads the persisted student rows. *store.Connection
// implements it.
type RecordSource interface {
	ReadRecords(ctx context.Context) ([]students.Record, error)
}

type API struct {
	records RecordSource
	task    *pipeline.Task
	log     logging.Logger

	// runCtx outlives requests; runs started over HTTP use it.
	runCtx context.Context
}

// NewAPI wires the handlers. records or task may be nil; the matching
// endpoints then report the dependency as unavailable.
func NewAPI(runCtx context.Context, records RecordSource, task *pipeline.Task, log logging.Logger) *API {
	if log == nil {
		log = logging.Discard()
	}
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &API{
		records: records,
		task:    task,
		log:     log,
		runCtx:  runCtx,
	}
}

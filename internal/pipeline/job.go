package pipeline

import (
	"context"

	"student-analytics/internal/config"
	"student-analytics/internal/etl"
	"student-analytics/internal/logging"
	"student-analytics/internal/report"
	"student-analytics/internal/store"
)

// NewJob builds the production run: check the source, connect (with
// fallback), ETL and load, then export the reports. A missing source fails
// the run before the store is touched.
func NewJob(cfg config.Config, log logging.Logger) Job {
	return func(ctx context.Context) (Result, error) {
		if err := cfg.EnsureDirs(); err != nil {
			return Result{}, err
		}
		if err := etl.EnsureSource(cfg.Paths.Source); err != nil {
			log.Errorf("pipeline: %v", err)
			return Result{}, err
		}

		conn, err := store.Connect(ctx, cfg.Database, cfg.Paths.FallbackDB, log)
		if err != nil {
			return Result{}, err
		}
		defer conn.Close()

		table, err := etl.Run(ctx, cfg.Paths, conn, log)
		if err != nil {
			return Result{}, err
		}

		paths, err := report.Export(ctx, conn, cfg.Paths.ReportDir, log)
		if err != nil {
			return Result{}, err
		}

		result := Result{
			Rows:    table.Len(),
			Outcome: conn.Outcome.String(),
			Reports: paths,
		}
		if conn.Reason != nil {
			result.Reason = conn.Reason.Error()
		}
		return result, nil
	}
}

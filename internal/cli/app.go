// Package cli holds what the student-* commands share: the common flags,
// configuration loading, signal handling and terminal output.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"student-analytics/internal/config"
	"student-analytics/internal/ctlclient"
	"student-analytics/internal/pipeline"
	"student-analytics/internal/report"
	"student-analytics/internal/students"
)

// Options are the flags every command accepts.
type Options struct {
	Settings string
	EnvFile  string
	LogLevel string
}

func (o *Options) Register(fs *flag.FlagSet) {
	fs.StringVar(&o.Settings, "settings", os.Getenv("STUDENT_SETTINGS"), "optional YAML settings file")
	fs.StringVar(&o.EnvFile, "env-file", ".env", "dotenv file with database credentials")
	fs.StringVar(&o.LogLevel, "loglevel", "", "debug|info|warn|error|off (overrides LOG_LEVEL)")
}

// Load resolves the configuration. A -loglevel flag wins over every other
// source.
func (o Options) Load() (config.Config, error) {
	cfg, err := config.Load(o.Settings, o.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if level := strings.TrimSpace(o.LogLevel); level != "" {
		cfg.LogLevel = level
	}
	return cfg, nil
}

// Context is canceled on SIGINT or SIGTERM.
func Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Exit prints err and terminates with status 1. A nil err is a no-op.
func Exit(err error) {
	if err == nil {
		return
	}
	if kind, ok := students.KindOf(err); ok {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", kind, err)
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

func PrintStatus(out io.Writer, status pipeline.Status) {
	fmt.Fprintf(out, "state:    %s\n", status.State)
	fmt.Fprintf(out, "runs:     %d\n", status.Runs)
	if status.RunID != "" {
		fmt.Fprintf(out, "run id:   %s\n", status.RunID)
	}
	if status.Trigger != "" {
		fmt.Fprintf(out, "trigger:  %s\n", status.Trigger)
	}
	if status.StartedAt != nil {
		fmt.Fprintf(out, "started:  %s\n", status.StartedAt.Format(time.RFC3339))
	}
	if status.FinishedAt != nil {
		fmt.Fprintf(out, "finished: %s\n", status.FinishedAt.Format(time.RFC3339))
	}
	if status.Error != "" {
		fmt.Fprintf(out, "error:    %s\n", status.Error)
	}
	if r := status.Result; r != nil {
		fmt.Fprintf(out, "rows:     %d\n", r.Rows)
		fmt.Fprintf(out, "store:    %s\n", r.Outcome)
		if r.Reason != "" {
			fmt.Fprintf(out, "reason:   %s\n", r.Reason)
		}
		for _, path := range r.Reports {
			fmt.Fprintf(out, "report:   %s\n", path)
		}
	}
}

func PrintSummary(out io.Writer, s ctlclient.Summary) {
	fmt.Fprintf(out, "Total Students:      %d\n", s.Summary.Total)
	fmt.Fprintf(out, "Pass Rate:           %.1f%%\n", s.Summary.PassRate)
	fmt.Fprintf(out, "Average Final Grade: %.2f\n", s.Summary.AverageFinal)
	fmt.Fprintf(out, "Students Failing:    %d\n", s.Summary.Failed)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "sex  final_result  count")
	for _, row := range s.ByGender {
		fmt.Fprintf(out, "%-4s %-13s %d\n", row.Sex, row.Result, row.Count)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "age  avg_final")
	for _, row := range s.ByAge {
		fmt.Fprintf(out, "%-4d %s\n", row.Age, report.FormatAverage(row.AvgFinal))
	}
}

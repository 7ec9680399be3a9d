package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/youta-t/flarc"

	"student-analytics/internal/cli"
	"student-analytics/internal/ctlclient"
	"student-analytics/internal/pipeline"
)

type CommonFlags struct {
	Server  string        `flag:"server" help:"dashboard base URL"`
	Timeout time.Duration `flag:"timeout" help:"HTTP timeout"`
}

type RunFlags struct {
	Wait     bool          `flag:"wait" help:"wait until the run finishes"`
	Interval time.Duration `flag:"interval" help:"poll interval while waiting"`
}

func main() {
	logger := log.New(os.Stderr, "[student-ctl] ", log.LstdFlags)

	ctx, stop := cli.Context()
	defer stop()

	status, err := flarc.NewCommand(
		"Show the pipeline status of a running dashboard.",
		struct{}{},
		flarc.Args{},
		withClient(func(ctx context.Context, client *ctlclient.Client, cl flarc.Commandline[struct{}]) error {
			s, err := client.Status(ctx)
			if err != nil {
				return err
			}
			cli.PrintStatus(cl.Stdout(), s)
			return nil
		}),
	)
	if err != nil {
		logger.Fatal(err)
	}

	summary, err := flarc.NewCommand(
		"Show the student summary served by the dashboard.",
		struct{}{},
		flarc.Args{},
		withClient(func(ctx context.Context, client *ctlclient.Client, cl flarc.Commandline[struct{}]) error {
			s, err := client.Summary(ctx)
			if err != nil {
				return err
			}
			cli.PrintSummary(cl.Stdout(), s)
			return nil
		}),
	)
	if err != nil {
		logger.Fatal(err)
	}

	run, err := flarc.NewCommand(
		"Start a pipeline run on the dashboard.",
		RunFlags{Interval: time.Second},
		flarc.Args{},
		withClient(func(ctx context.Context, client *ctlclient.Client, cl flarc.Commandline[RunFlags]) error {
			flags := cl.Flags()
			if flags.Interval <= 0 {
				return fmt.Errorf("%w: --interval must be positive", flarc.ErrUsage)
			}

			s, err := client.Trigger(ctx)
			if err != nil {
				return err
			}
			if flags.Wait {
				if s, err = client.Wait(ctx, flags.Interval); err != nil {
					return err
				}
			}
			cli.PrintStatus(cl.Stdout(), s)
			if s.State == pipeline.Failed {
				return errors.New("pipeline run failed")
			}
			return nil
		}),
		flarc.WithDescription(`
Ask the dashboard to run ETL and reporting again.

A run already in progress is reported as a conflict. With --wait the command
polls until the run finishes and exits non-zero when it failed.
`),
	)
	if err != nil {
		logger.Fatal(err)
	}

	ctl, err := flarc.NewCommandGroup(
		"Control a running student dashboard.",
		CommonFlags{
			Server:  envOr("STUDENT_DASHBOARD_URL", "http://127.0.0.1:10000"),
			Timeout: 5 * time.Second,
		},
		flarc.WithSubcommand("status", status),
		flarc.WithSubcommand("summary", summary),
		flarc.WithSubcommand("run", run),
	)
	if err != nil {
		logger.Fatal(err)
	}

	os.Exit(flarc.Run(ctx, ctl, flarc.WithHelp(true)))
}

type clientTask[T any] func(ctx context.Context, client *ctlclient.Client, cl flarc.Commandline[T]) error

// withClient builds the dashboard client from the group's common flags.
func withClient[T any](task clientTask[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], params []any) error {
		var common CommonFlags
		found := false
		for _, p := range params {
			if v, ok := p.(CommonFlags); ok {
				common = v
				found = true
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		client := ctlclient.NewClient(common.Server, &http.Client{Timeout: common.Timeout})
		err := task(ctx, client, cl)
		switch {
		case errors.Is(err, ctlclient.ErrServiceUnavailable):
			return fmt.Errorf("dashboard unavailable at %s: %w", common.Server, err)
		case ctlclient.IsConflict(err):
			return fmt.Errorf("a pipeline run is already in progress: %w", err)
		}
		return err
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

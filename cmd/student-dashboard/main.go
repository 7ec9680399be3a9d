package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"

	"student-analytics/internal/cli"
	"student-analytics/internal/dashboard"
	"student-analytics/internal/logging"
	"student-analytics/internal/pipeline"
	"student-analytics/internal/store"
	"student-analytics/internal/watch"
)

const (
	sourceSettle    = 500 * time.Millisecond
	shutdownTimeout = 10 * time.Second
)

func main() {
	var opts cli.Options
	opts.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := opts.Load()
	cli.Exit(err)
	log := logging.New("student-dashboard", cfg.LogLevel)

	ctx, stop := cli.Context()
	defer stop()

	// An edited settings file stops the server; the supervisor restarts it
	// with the new configuration.
	if opts.Settings != "" {
		wctx, cancel, err := watch.UntilChanged(ctx, opts.Settings)
		cli.Exit(err)
		defer cancel()
		ctx = wctx
	}

	cli.Exit(cfg.EnsureDirs())

	conn, err := store.Connect(ctx, cfg.Database, cfg.Paths.FallbackDB, log)
	cli.Exit(err)
	defer conn.Close()

	task := pipeline.NewTask(pipeline.NewJob(cfg, log), log)
	if cfg.Dashboard.RunOnStart {
		if err := task.Start(ctx, "startup"); err != nil {
			log.Warnf("startup run: %v", err)
		}
	}

	if cfg.Dashboard.WatchSource {
		go func() {
			err := watch.OnChange(ctx, cfg.Paths.Source, sourceSettle, func(ev fsnotify.Event) {
				log.Infof("%s changed (%s)", ev.Name, ev.Op)
				if err := task.Start(ctx, "source changed"); err != nil {
					log.Warnf("source change ignored: %v", err)
				}
			})
			if err != nil {
				log.Warnf("source watcher stopped: %v", err)
			}
		}()
	}

	e := dashboard.NewRouter(dashboard.NewAPI(ctx, conn, task, log), cfg.LogLevel)

	go func() {
		<-ctx.Done()
		log.Infof("shutting down: %v", context.Cause(ctx))
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(sctx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("dashboard listening on %s (store: %s)", cfg.Dashboard.Addr, conn.Outcome)
	if err := e.Start(cfg.Dashboard.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("server failed: %v", err)
		stop()
		task.Wait()
		conn.Close()
		cli.Exit(err)
	}
	task.Wait()
}

package main

import (
	"flag"
	"fmt"
	"os"

	"student-analytics/internal/cli"
	"student-analytics/internal/etl"
	"student-analytics/internal/logging"
	"student-analytics/internal/store"
)

func main() {
	var opts cli.Options
	opts.Register(flag.CommandLine)
	skipDB := flag.Bool("skip-db", false, "only write the checkpoint file")
	flag.Parse()

	cfg, err := opts.Load()
	cli.Exit(err)
	log := logging.New("student-etl", cfg.LogLevel)

	ctx, stop := cli.Context()
	defer stop()

	cli.Exit(cfg.EnsureDirs())
	if err := etl.EnsureSource(cfg.Paths.Source); err != nil {
		log.Errorf("etl failed: %v", err)
		stop()
		cli.Exit(err)
	}

	var sink etl.Sink
	if !*skipDB {
		conn, err := store.Connect(ctx, cfg.Database, cfg.Paths.FallbackDB, log)
		cli.Exit(err)
		defer conn.Close()
		sink = conn
		log.Infof("loading into %s (%s)", conn.Target, conn.Outcome)
	}

	table, err := etl.Run(ctx, cfg.Paths, sink, log)
	if err != nil {
		log.Errorf("etl failed: %v", err)
		stop()
		cli.Exit(err)
	}
	fmt.Fprintf(os.Stdout, "ETL complete: %d rows, checkpoint %s\n", table.Len(), cfg.Paths.Checkpoint)
}

package main

import (
	"flag"
	"os"

	"student-analytics/internal/cli"
	"student-analytics/internal/logging"
	"student-analytics/internal/predict"
)

func main() {
	var opts cli.Options
	opts.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := opts.Load()
	cli.Exit(err)
	log := logging.New("student-train", cfg.LogLevel)

	ctx, stop := cli.Context()
	defer stop()

	if _, err := predict.Run(ctx, cfg.Model, cfg.Paths, os.Stdout, log); err != nil {
		log.Errorf("training failed: %v", err)
		stop()
		cli.Exit(err)
	}
}

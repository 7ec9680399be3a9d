package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"student-analytics/internal/cli"
	"student-analytics/internal/logging"
	"student-analytics/internal/report"
	"student-analytics/internal/store"
)

func main() {
	var opts cli.Options
	opts.Register(flag.CommandLine)
	xlsx := flag.Bool("xlsx", false, "also write both reports as one xlsx workbook")
	flag.Parse()

	cfg, err := opts.Load()
	cli.Exit(err)
	log := logging.New("student-report", cfg.LogLevel)

	ctx, stop := cli.Context()
	defer stop()

	conn, err := store.Connect(ctx, cfg.Database, cfg.Paths.FallbackDB, log)
	cli.Exit(err)
	defer conn.Close()

	paths, err := report.Export(ctx, conn, cfg.Paths.ReportDir, log)
	if err != nil {
		log.Errorf("report export failed: %v", err)
		conn.Close()
		cli.Exit(err)
	}
	if *xlsx {
		path := filepath.Join(cfg.Paths.ReportDir, report.WorkbookFile)
		if err := report.ExportWorkbook(ctx, conn, path); err != nil {
			conn.Close()
			cli.Exit(err)
		}
		paths = append(paths, path)
	}
	for _, path := range paths {
		fmt.Fprintln(os.Stdout, "wrote", path)
	}
}

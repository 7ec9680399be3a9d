package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"student-analytics/internal/cli"
	"student-analytics/internal/dataset"
	"student-analytics/internal/logging"
)

func main() {
	var opts cli.Options
	opts.Register(flag.CommandLine)
	url := flag.String("url", "", "dataset URL (default: configured source URL)")
	dest := flag.String("dest", "", "destination file (default: configured source path)")
	timeout := flag.Duration("timeout", 60*time.Second, "HTTP timeout")
	flag.Parse()

	cfg, err := opts.Load()
	cli.Exit(err)
	log := logging.New("student-fetch", cfg.LogLevel)

	if *url == "" {
		*url = cfg.Paths.SourceURL
	}
	if *dest == "" {
		*dest = cfg.Paths.Source
	}

	ctx, stop := cli.Context()
	defer stop()

	client := dataset.NewClient(&http.Client{Timeout: *timeout}, dataset.WithProgress(os.Stderr))
	log.Infof("downloading %s", *url)
	n, err := client.Fetch(ctx, *url, *dest)
	if err != nil {
		stop()
		cli.Exit(fmt.Errorf("fetch %s: %w", *url, err))
	}
	fmt.Fprintf(os.Stdout, "wrote %s (%d bytes)\n", *dest, n)
}

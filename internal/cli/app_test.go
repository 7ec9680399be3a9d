package cli

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"student-analytics/internal/ctlclient"
	"student-analytics/internal/pipeline"
	"student-analytics/internal/students"
)

func TestOptionsLoadAppliesLogLevelFlag(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(settings, []byte("logLevel: warn\n"), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	t.Setenv("LOG_LEVEL", "error")

	var opts Options
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	opts.Register(fs)
	if err := fs.Parse([]string{
		"-settings", settings,
		"-env-file", filepath.Join(dir, "missing.env"),
		"-loglevel", "debug",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := opts.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestOptionsLoadWithoutFlagKeepsEnvironment(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("LogLevel = %q, want error", cfg.LogLevel)
	}
}

func TestPrintStatus(t *testing.T) {
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(2 * time.Second)
	var out bytes.Buffer

	PrintStatus(&out, pipeline.Status{
		State:      pipeline.Succeeded,
		Trigger:    "startup",
		Runs:       1,
		StartedAt:  &started,
		FinishedAt: &finished,
		Result: &pipeline.Result{
			Rows:    395,
			Outcome: "fallback",
			Reason:  "database: configuration error",
			Reports: []string{"powerbi/passrate_by_gender.csv"},
		},
	})

	for _, want := range []string{
		"state:    succeeded",
		"started:  2024-05-01T10:00:00Z",
		"rows:     395",
		"store:    fallback",
		"report:   powerbi/passrate_by_gender.csv",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "error:") {
		t.Fatalf("successful run should not print an error:\n%s", out.String())
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	PrintSummary(&out, ctlclient.Summary{
		Summary:  students.Summary{Total: 3, Passed: 2, Failed: 1, PassRate: 66.67, AverageFinal: 10.33},
		ByGender: []students.GenderCount{{Sex: "F", Result: students.Pass, Count: 2}},
		ByAge:    []students.AgeAverage{{Age: 15, AvgFinal: 11}},
	})

	for _, want := range []string{
		"Pass Rate:           66.7%",
		"Students Failing:    1",
		"F    pass          2",
		"15   11.0",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

package predict

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"student-analytics/internal/config"
	"student-analytics/internal/forest"
	"student-analytics/internal/logging"
	"student-analytics/internal/students"
)

func writeCheckpoint(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "students_processed.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write checkpoint: %v", err)
	}
	return path
}

// syntheticCheckpoint produces rows where the label follows G2.
func syntheticCheckpoint(rows int) string {
	var b strings.Builder
	b.WriteString("sex,studytime,failures,absences,G1,G2,G3,final_result\n")
	for i := 0; i < rows; i++ {
		g2 := i % 20
		label := students.LabelFor(g2)
		fmt.Fprintf(&b, "F,%d,%d,%d,%d,%d,%d,%s\n", 1+i%4, i%3, i%11, g2, g2, g2, label)
	}
	return b.String()
}

func TestLoadDatasetMissingFeatureIsReported(t *testing.T) {
	dir := t.TempDir()
	path := writeCheckpoint(t, dir, "studytime,failures,absences,G1,final_result\n2,0,4,10,pass\n1,1,2,5,fail\n")

	_, err := LoadDataset(path, config.Default().Model.Features, students.ColLabel)
	if !errors.Is(err, students.KindFeatureValidation) {
		t.Fatalf("expected feature validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "G2") {
		t.Fatalf("expected error to list G2: %v", err)
	}
}

func TestValidateColumnsListsEveryMissingFeature(t *testing.T) {
	err := ValidateColumns([]string{"studytime", "final_result"}, []string{"studytime", "G1", "G2"}, "final_result")
	if !errors.Is(err, students.KindFeatureValidation) {
		t.Fatalf("expected feature validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "[G1, G2]") {
		t.Fatalf("expected both features listed: %v", err)
	}

	if err := ValidateColumns([]string{"G1"}, []string{"G1"}, "final_result"); !errors.Is(err, students.KindFeatureValidation) {
		t.Fatalf("expected missing target to be rejected, got %v", err)
	}
}

func TestLoadDatasetDerivesTarget(t *testing.T) {
	dir := t.TempDir()
	path := writeCheckpoint(t, dir, "G1,G2,final_result\n10,12,pass\n3,4,fail\n9,9,PASS\n")

	data, err := LoadDataset(path, []string{"G1", "G2"}, "final_result")
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if data.Len() != 3 || data.Y[0] != 1 || data.Y[1] != 0 || data.Y[2] != 0 {
		t.Fatalf("unexpected targets: %v", data.Y)
	}
	if data.X[0][1] != 12 {
		t.Fatalf("unexpected features: %v", data.X)
	}
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.csv"), []string{"G1"}, "final_result")
	if !errors.Is(err, students.KindSourceNotFound) {
		t.Fatalf("expected source-not-found error, got %v", err)
	}
}

func TestRunTrainsEvaluatesAndSaves(t *testing.T) {
	dir := t.TempDir()
	paths := config.Paths{
		Checkpoint: writeCheckpoint(t, dir, syntheticCheckpoint(200)),
		ModelFile:  filepath.Join(dir, "passfail_model.gob"),
	}
	model := config.Default().Model
	model.Trees = 20

	var out bytes.Buffer
	result, err := Run(context.Background(), model, paths, &out, logging.Discard())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.TrainRows != 160 || result.TestRows != 40 {
		t.Fatalf("split = %d/%d, want 160/40", result.TrainRows, result.TestRows)
	}
	if result.Report.Accuracy < 0.9 {
		t.Fatalf("accuracy = %.3f, want >= 0.9", result.Report.Accuracy)
	}
	for _, want := range []string{"MODEL EVALUATION RESULTS", "Accuracy:", "pass", "fail", "Confusion Matrix:", "Feature Importances:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}

	saved, err := forest.Load(paths.ModelFile)
	if err != nil {
		t.Fatalf("load saved model: %v", err)
	}
	if len(saved.Trees) != 20 {
		t.Fatalf("saved model has %d trees", len(saved.Trees))
	}
}

func TestRunStopsBeforeSplitOnMissingFeature(t *testing.T) {
	dir := t.TempDir()
	paths := config.Paths{
		Checkpoint: writeCheckpoint(t, dir, "studytime,failures,absences,G1,final_result\n1,0,0,12,pass\n"),
		ModelFile:  filepath.Join(dir, "passfail_model.gob"),
	}

	_, err := Run(context.Background(), config.Default().Model, paths, &bytes.Buffer{}, logging.Discard())
	if !errors.Is(err, students.KindFeatureValidation) || !strings.Contains(err.Error(), "G2") {
		t.Fatalf("expected validation error naming G2, got %v", err)
	}
	if _, statErr := os.Stat(paths.ModelFile); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("no model should be written, stat err = %v", statErr)
	}
}

package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"student-analytics/internal/etl"
	"student-analytics/internal/logging"
	"student-analytics/internal/store"
	"student-analytics/internal/students"
)

type fakeSource struct {
	genders    []students.GenderCount
	ages       []students.AgeAverage
	genderErr  error
	genderCall int
}

func (f *fakeSource) GenderPassCounts(context.Context) ([]students.GenderCount, error) {
	f.genderCall++
	return f.genders, f.genderErr
}

func (f *fakeSource) AverageGradeByAge(context.Context) ([]students.AgeAverage, error) {
	return f.ages, nil
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}

func TestExportWritesBothFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "powerbi")
	src := &fakeSource{
		genders: []students.GenderCount{
			{Sex: "F", Result: students.Pass, Count: 2},
			{Sex: "M", Result: students.Fail, Count: 1},
		},
		ages: []students.AgeAverage{{Age: 15, AvgFinal: 10.33}, {Age: 16, AvgFinal: 11}},
	}

	paths, err := Export(context.Background(), src, dir, logging.Discard())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected two paths, got %v", paths)
	}

	if got := readFile(t, filepath.Join(dir, GenderFile)); got != "sex,final_result,count\nF,pass,2\nM,fail,1\n" {
		t.Fatalf("unexpected gender report:\n%s", got)
	}
	if got := readFile(t, filepath.Join(dir, AgeFile)); got != "age,avg_final\n15,10.33\n16,11.0\n" {
		t.Fatalf("unexpected age report:\n%s", got)
	}
}

func TestExportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{genders: []students.GenderCount{{Sex: "F", Result: students.Pass, Count: 1}}}

	for i := 0; i < 2; i++ {
		if _, err := Export(context.Background(), src, dir, logging.Discard()); err != nil {
			t.Fatalf("Export #%d failed: %v", i+1, err)
		}
	}
	if got := readFile(t, filepath.Join(dir, GenderFile)); got != "sex,final_result,count\nF,pass,1\n" {
		t.Fatalf("report not overwritten:\n%s", got)
	}
}

func TestExportPropagatesQueryError(t *testing.T) {
	queryErr := errors.New("no such table: students")
	_, err := Export(context.Background(), &fakeSource{genderErr: queryErr}, t.TempDir(), logging.Discard())
	if !errors.Is(err, queryErr) {
		t.Fatalf("expected query error, got %v", err)
	}
}

func TestExportFromStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "students.db")
	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	conn := store.NewSQLiteConnection(db, dbPath, logging.Discard())
	defer conn.Close()

	raw, err := etl.Read(strings.NewReader("sex;age;G3\nF;16;12\nM;17;8\nF;16;10\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	table, err := etl.Clean(raw)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if err := conn.Load(ctx, table); err != nil {
		t.Fatalf("load: %v", err)
	}

	dir := t.TempDir()
	if _, err := Export(ctx, conn, dir, logging.Discard()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, GenderFile)); got != "sex,final_result,count\nF,pass,2\nM,fail,1\n" {
		t.Fatalf("unexpected gender report:\n%s", got)
	}
	if got := readFile(t, filepath.Join(dir, AgeFile)); got != "age,avg_final\n16,11.0\n17,8.0\n" {
		t.Fatalf("unexpected age report:\n%s", got)
	}
}

func TestFormatAverage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAgeAverages(&buf, []students.AgeAverage{{Age: 20, AvgFinal: 9.5}}); err != nil {
		t.Fatalf("WriteAgeAverages failed: %v", err)
	}
	if buf.String() != "age,avg_final\n20,9.5\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if FormatAverage(12) != "12.0" || FormatAverage(10.33) != "10.33" {
		t.Fatalf("unexpected formatting")
	}
}

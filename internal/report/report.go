// Package report exports the aggregate queries as flat CSV files.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"student-analytics/internal/logging"
	"student-analytics/internal/students"
)

const (
	GenderFile = "passrate_by_gender.csv"
	AgeFile    = "avg_grade_by_age.csv"
)

// Source runs the two fixed aggregate queries. *store.Connection implements it.
type Source interface {
	GenderPassCounts(ctx context.Context) ([]students.GenderCount, error)
	AverageGradeByAge(ctx context.Context) ([]students.AgeAverage, error)
}

// Export writes both report files into dir, overwriting earlier runs, and
// returns their paths.
func Export(ctx context.Context, src Source, dir string, log logging.Logger) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	genders, err := src.GenderPassCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	genderPath := filepath.Join(dir, GenderFile)
	if err := writeFile(genderPath, func(w io.Writer) error { return WriteGenderCounts(w, genders) }); err != nil {
		return nil, err
	}
	log.Infof("report: gender analysis exported to %s", genderPath)

	ages, err := src.AverageGradeByAge(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	agePath := filepath.Join(dir, AgeFile)
	if err := writeFile(agePath, func(w io.Writer) error { return WriteAgeAverages(w, ages) }); err != nil {
		return nil, err
	}
	log.Infof("report: age analysis exported to %s", agePath)

	return []string{genderPath, agePath}, nil
}

func WriteGenderCounts(w io.Writer, rows []students.GenderCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{students.ColSex, students.ColLabel, "count"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Sex, string(row.Result), strconv.Itoa(row.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteAgeAverages(w io.Writer, rows []students.AgeAverage) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{students.ColAge, "avg_final"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{strconv.Itoa(row.Age), FormatAverage(row.AvgFinal)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatAverage prints integral averages with one decimal ("11.0") and
// others with the digits they have ("10.33").
func FormatAverage(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

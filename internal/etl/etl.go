// Package etl reads the raw semicolon-delimited student table, cleans it,
// derives the pass/fail label and writes the checkpoint file.
package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"student-analytics/internal/config"
	"student-analytics/internal/logging"
	"student-analytics/internal/students"
)

const sourceDelimiter = ';'

// Sink persists a cleaned table. *store.Connection is the production sink.
type Sink interface {
	Load(ctx context.Context, table students.Table) error
}

// EnsureSource fails fast when the raw source file is absent.
func EnsureSource(path string) error {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return nil
	}
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return students.Errorf(students.KindSourceNotFound, "extract",
			"file not found: %s (download student-mat.csv from the UCI student performance dataset, or run student-fetch, and place it in %s)",
			path, filepath.Dir(path))
	}
	return fmt.Errorf("extract: stat %s: %w", path, err)
}

// Extract checks the source and reads it. Nothing is parsed when the file is missing.
func Extract(path string) (dataframe.DataFrame, error) {
	if err := EnsureSource(path); err != nil {
		return dataframe.DataFrame{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("extract: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a semicolon-delimited table with a header row. Every cell is
// kept as text; Clean decides the column types.
func Read(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(sourceDelimiter),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("extract: read source: %w", df.Err)
	}
	return df, nil
}

// Clean trims column names, coerces the grade columns to integers and
// appends the final_result label. Unparsable grades become 0. A source
// without G3 labels every row as a fail.
func Clean(raw dataframe.DataFrame) (students.Table, error) {
	if raw.Err != nil {
		return students.Table{}, raw.Err
	}

	rows := raw.Nrow()
	names := raw.Names()
	columns := make([]series.Series, 0, len(names)+1)
	types := make(map[string]students.ColumnType, len(names)+1)
	var finalGrades []int

	for _, name := range names {
		column := strings.TrimSpace(name)
		if column == students.ColLabel {
			// derived below, never carried from the source
			continue
		}
		cells := raw.Col(name).Records()

		if isGradeColumn(column) {
			grades := make([]int, len(cells))
			for i, cell := range cells {
				grades[i] = CoerceGrade(cell)
			}
			if column == students.ColG3 {
				finalGrades = grades
			}
			columns = append(columns, series.New(grades, series.Int, column))
			types[column] = students.ColumnInteger
			continue
		}

		columns = append(columns, series.New(cells, series.String, column))
		types[column] = inferColumnType(cells)
	}

	if finalGrades == nil {
		finalGrades = make([]int, rows)
	}
	labels := make([]string, len(finalGrades))
	for i, grade := range finalGrades {
		labels[i] = string(students.LabelFor(grade))
	}
	columns = append(columns, series.New(labels, series.String, students.ColLabel))
	types[students.ColLabel] = students.ColumnText

	frame := dataframe.New(columns...)
	if frame.Err != nil {
		return students.Table{}, fmt.Errorf("clean: %w", frame.Err)
	}
	return students.Table{Frame: frame, Types: types}, nil
}

// CoerceGrade parses a grade cell. Integral floats such as "12.0" are
// accepted. Negative and unparsable values become 0; values above
// math.MaxInt32 are clamped to it.
func CoerceGrade(cell string) int {
	value, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	switch {
	case math.IsNaN(value), value < 0:
		return 0
	case value > math.MaxInt32:
		return math.MaxInt32
	}
	return int(value)
}

func isGradeColumn(column string) bool {
	for _, grade := range students.GradeColumns {
		if column == grade {
			return true
		}
	}
	return false
}

// inferColumnType types a carried-through column. Empty cells are nulls
// and do not affect the result; an all-empty column is text.
func inferColumnType(cells []string) students.ColumnType {
	kind := students.ColumnInteger
	seen := false
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		seen = true
		if kind == students.ColumnInteger {
			if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
				continue
			}
			kind = students.ColumnReal
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return students.ColumnText
		}
	}
	if !seen {
		return students.ColumnText
	}
	return kind
}

// WriteCheckpoint overwrites path with the comma-delimited cleaned table,
// header included. Output depends only on the table.
func WriteCheckpoint(table students.Table, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := table.Frame.WriteCSV(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("checkpoint: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Run executes extract, clean, checkpoint and, when sink is non-nil, load.
func Run(ctx context.Context, paths config.Paths, sink Sink, log logging.Logger) (students.Table, error) {
	raw, err := Extract(paths.Source)
	if err != nil {
		log.Errorf("etl: %v", err)
		return students.Table{}, err
	}
	log.Infof("etl: loaded %d rows from %s", raw.Nrow(), paths.Source)

	table, err := Clean(raw)
	if err != nil {
		log.Errorf("etl: %v", err)
		return students.Table{}, err
	}

	if err := WriteCheckpoint(table, paths.Checkpoint); err != nil {
		log.Errorf("etl: %v", err)
		return students.Table{}, err
	}
	log.Infof("etl: cleaned data saved to %s", paths.Checkpoint)

	if sink == nil {
		return table, nil
	}
	if err := ctx.Err(); err != nil {
		return students.Table{}, err
	}
	if err := sink.Load(ctx, table); err != nil {
		log.Errorf("etl: load failed: %v", err)
		return students.Table{}, err
	}
	log.Infof("etl: finished, rows processed: %d", table.Len())
	return table, nil
}

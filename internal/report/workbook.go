package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"student-analytics/internal/students"
)

const (
	WorkbookFile = "student_reports.xlsx"

	GenderSheet = "passrate_by_gender"
	AgeSheet    = "avg_grade_by_age"
)

// ExportWorkbook runs both queries and writes the workbook to path.
func ExportWorkbook(ctx context.Context, src Source, path string) error {
	genders, err := src.GenderPassCounts(ctx)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	ages, err := src.AverageGradeByAge(ctx)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return writeFile(path, func(w io.Writer) error { return WriteWorkbook(w, genders, ages) })
}

// WriteWorkbook writes both aggregates as sheets of one xlsx workbook, with
// the same headers as the CSV files.
func WriteWorkbook(w io.Writer, genders []students.GenderCount, ages []students.AgeAverage) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1".
	if err := f.SetSheetName("Sheet1", GenderSheet); err != nil {
		return err
	}
	if err := writeRows(f, GenderSheet, []string{students.ColSex, students.ColLabel, "count"}, len(genders), func(i int) []any {
		return []any{genders[i].Sex, string(genders[i].Result), genders[i].Count}
	}); err != nil {
		return err
	}

	if _, err := f.NewSheet(AgeSheet); err != nil {
		return err
	}
	if err := writeRows(f, AgeSheet, []string{students.ColAge, "avg_final"}, len(ages), func(i int) []any {
		return []any{ages[i].Age, ages[i].AvgFinal}
	}); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []string, n int, row func(i int) []any) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"student-analytics/internal/students"
)

func (c *Connection) genderPassSQL() string {
	q := c.Dialect.Quote
	return fmt.Sprintf(
		`SELECT %[1]s, %[2]s, COUNT(*) AS count FROM %[3]s GROUP BY %[1]s, %[2]s ORDER BY %[1]s, %[2]s`,
		q(students.ColSex), q(students.ColLabel), q(TableName),
	)
}

func (c *Connection) averageByAgeSQL() string {
	q := c.Dialect.Quote
	return fmt.Sprintf(
		`SELECT %[1]s, ROUND(AVG(%[2]s), 2) AS avg_final FROM %[3]s GROUP BY %[1]s ORDER BY %[1]s`,
		q(students.ColAge), q(students.ColG3), q(TableName),
	)
}

// GenderPassCounts counts rows per sex and label, ordered by sex then label.
func (c *Connection) GenderPassCounts(ctx context.Context) ([]students.GenderCount, error) {
	rows, err := c.DB.QueryContext(ctx, c.genderPassSQL())
	if err != nil {
		return nil, fmt.Errorf("gender pass counts: %w", err)
	}
	defer rows.Close()

	var out []students.GenderCount
	for rows.Next() {
		var (
			item  students.GenderCount
			label string
		)
		if err := rows.Scan(&item.Sex, &label, &item.Count); err != nil {
			return nil, err
		}
		item.Result = students.Label(label)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseAge reads an age cell. The column is text when the source had a
// non-numeric age, so the value is scanned as a string; whole numbers,
// including "17.0", are accepted.
func parseAge(cell sql.NullString) (int, bool) {
	if !cell.Valid {
		return 0, false
	}
	s := strings.TrimSpace(cell.String)
	if age, err := strconv.Atoi(s); err == nil {
		return age, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// AverageGradeByAge averages G3 per age, rounded to two decimals. Groups
// whose age is not a whole number are left out.
func (c *Connection) AverageGradeByAge(ctx context.Context) ([]students.AgeAverage, error) {
	rows, err := c.DB.QueryContext(ctx, c.averageByAgeSQL())
	if err != nil {
		return nil, fmt.Errorf("average grade by age: %w", err)
	}
	defer rows.Close()

	var out []students.AgeAverage
	for rows.Next() {
		var (
			cell sql.NullString
			avg  sql.NullFloat64
		)
		if err := rows.Scan(&cell, &avg); err != nil {
			return nil, err
		}
		age, ok := parseAge(cell)
		if !ok {
			continue
		}
		out = append(out, students.AgeAverage{Age: age, AvgFinal: avg.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// text ages sort lexically in SQL
	sort.SliceStable(out, func(i, j int) bool { return out[i].Age < out[j].Age })
	return out, nil
}

// ReadRecords returns sex, age, final grade and label of every row.
func (c *Connection) ReadRecords(ctx context.Context) ([]students.Record, error) {
	q := c.Dialect.Quote
	query := fmt.Sprintf(`SELECT %s, %s, %s, %s FROM %s`,
		q(students.ColSex), q(students.ColAge), q(students.ColG3), q(students.ColLabel), q(TableName))

	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	var out []students.Record
	for rows.Next() {
		var (
			sex   sql.NullString
			age   sql.NullString
			grade sql.NullInt64
			label sql.NullString
		)
		if err := rows.Scan(&sex, &age, &grade, &label); err != nil {
			return nil, err
		}
		ageValue, _ := parseAge(age)
		out = append(out, students.Record{
			Sex:        sex.String,
			Age:        ageValue,
			FinalGrade: int(grade.Int64),
			Label:      students.ParseLabel(label.String),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Connection) CountRows(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.Dialect.Quote(TableName))
	if err := c.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"student-analytics/internal/students"
)

const (
	TableName      = "students"
	LabelIndexName = "idx_final_result"

	maxRowsPerInsert = 2000
)

// Load replaces the students table with table and (re)creates the label
// index. Index failures are logged and do not fail the load.
func (c *Connection) Load(ctx context.Context, table students.Table) error {
	if err := c.ReplaceTable(ctx, table); err != nil {
		return err
	}
	c.log.Infof("store: loaded %d rows into %s table %s", table.Len(), c.Dialect, TableName)

	if err := c.EnsureLabelIndex(ctx); err != nil {
		if students.IsFatal(err) {
			return err
		}
		c.log.Warnf("store: %v", err)
		return nil
	}
	c.log.Infof("store: index %s ready on %s", LabelIndexName, students.ColLabel)
	return nil
}

// ReplaceTable drops and recreates the students table and inserts every
// row in source order. The inserts always share one transaction; the DROP
// and CREATE join it only where the dialect has transactional DDL. MySQL
// commits DDL implicitly, so there the table is recreated first and a
// failed insert leaves it empty.
func (c *Connection) ReplaceTable(ctx context.Context, table students.Table) error {
	columns := table.Columns()
	if len(columns) == 0 {
		return fmt.Errorf("replace %s: table has no columns", TableName)
	}

	statements := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", c.Dialect.Quote(TableName)),
		c.createTableSQL(table),
	}
	if !c.Dialect.transactionalDDL() {
		for _, stmt := range statements {
			if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("replace %s: %w", TableName, err)
			}
		}
		statements = nil
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace %s: %w", TableName, err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("replace %s: %w", TableName, err)
		}
	}

	kinds := make([]students.ColumnType, len(columns))
	for i, column := range columns {
		kinds[i] = table.TypeOf(column)
	}

	rows := table.Rows()
	chunk := c.rowsPerInsert(len(columns))
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		query, args := c.insertSQL(columns, kinds, rows[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace %s: %w", TableName, err)
	}
	return nil
}

// EnsureLabelIndex creates the secondary index on final_result. Every
// failure comes back as a secondary-index error.
func (c *Connection) EnsureLabelIndex(ctx context.Context) error {
	stmt := c.Dialect.createIndexSQL(LabelIndexName, TableName, students.ColLabel)
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		if c.Dialect.isDuplicateIndex(err) {
			return students.Errorf(students.KindSecondaryIndex, "index "+LabelIndexName, "index may already exist: %v", err)
		}
		return students.NewError(students.KindSecondaryIndex, "index "+LabelIndexName, err)
	}
	return nil
}

func (c *Connection) createTableSQL(table students.Table) string {
	defs := make([]string, 0, len(table.Columns()))
	for _, column := range table.Columns() {
		defs = append(defs, c.Dialect.Quote(column)+" "+c.Dialect.columnType(column, table.TypeOf(column)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", c.Dialect.Quote(TableName), strings.Join(defs, ", "))
}

func (c *Connection) rowsPerInsert(columns int) int {
	limit := c.Dialect.maxParams() / columns
	if limit > maxRowsPerInsert {
		limit = maxRowsPerInsert
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

func (c *Connection) insertSQL(columns []string, kinds []students.ColumnType, rows [][]string) (string, []any) {
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = c.Dialect.Quote(column)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", c.Dialect.Quote(TableName), strings.Join(quoted, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	placeholders := make([]string, len(columns))
	for r, row := range rows {
		if r > 0 {
			b.WriteString(", ")
		}
		for i := range columns {
			args = append(args, cellValue(kinds[i], cellAt(row, i)))
			placeholders[i] = c.Dialect.Placeholder(len(args))
		}
		b.WriteString("(" + strings.Join(placeholders, ", ") + ")")
	}
	return b.String(), args
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// cellValue converts cell text to the value bound for its column kind.
// Empty numeric cells are NULL.
func cellValue(kind students.ColumnType, cell string) any {
	trimmed := strings.TrimSpace(cell)
	switch kind {
	case students.ColumnInteger:
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return v
		}
		return nil
	case students.ColumnReal:
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return v
		}
		return nil
	default:
		return cell
	}
}

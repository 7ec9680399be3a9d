package students

import (
	"github.com/go-gota/gota/dataframe"
)

type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInteger
	ColumnReal
)

func (c ColumnType) String() string {
	switch c {
	case ColumnInteger:
		return "integer"
	case ColumnReal:
		return "real"
	default:
		return "text"
	}
}

// Table is the cleaned, in-memory student table. Frame keeps source column
// order; Types records how each column is persisted.
type Table struct {
	Frame dataframe.DataFrame
	Types map[string]ColumnType
}

func (t Table) Columns() []string {
	return t.Frame.Names()
}

func (t Table) Len() int {
	return t.Frame.Nrow()
}

func (t Table) TypeOf(column string) ColumnType {
	if t.Types == nil {
		return ColumnText
	}
	return t.Types[column]
}

// Rows returns the cell text of every row in source order, without header.
func (t Table) Rows() [][]string {
	records := t.Frame.Records()
	if len(records) <= 1 {
		return nil
	}
	return records[1:]
}

func (t Table) HasColumn(column string) bool {
	for _, name := range t.Frame.Names() {
		if name == column {
			return true
		}
	}
	return false
}

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"student-analytics/internal/students"
)

// Dialect captures what differs between the supported databases.
type Dialect int

const (
	MySQL Dialect = iota + 1
	Postgres
	SQLite
)

const (
	mysqlDuplicateKeyName = 1061

	labelColumnType = "VARCHAR(8)"
)

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// Quote quotes an identifier. Postgres folds unquoted names to lower case,
// so G1..G3 must always be quoted.
func (d Dialect) Quote(ident string) string {
	if d == MySQL {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder returns the n-th (1-based) bind parameter.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (d Dialect) columnType(column string, kind students.ColumnType) string {
	if column == students.ColLabel {
		// MySQL cannot index TEXT without a prefix length
		return labelColumnType
	}
	switch kind {
	case students.ColumnInteger:
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case students.ColumnReal:
		switch d {
		case MySQL:
			return "DOUBLE"
		case Postgres:
			return "DOUBLE PRECISION"
		default:
			return "REAL"
		}
	default:
		return "TEXT"
	}
}

// maxParams is the bind parameter limit of one statement.
// transactionalDDL reports whether DROP/CREATE can be rolled back.
func (d Dialect) transactionalDDL() bool {
	return d != MySQL
}

func (d Dialect) maxParams() int {
	if d == SQLite {
		return 32766
	}
	return 65535
}

func (d Dialect) createIndexSQL(index, table, column string) string {
	if d == MySQL {
		// no IF NOT EXISTS for CREATE INDEX on MySQL
		return fmt.Sprintf("CREATE INDEX %s ON %s (%s)", d.Quote(index), d.Quote(table), d.Quote(column))
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", d.Quote(index), d.Quote(table), d.Quote(column))
}

// isDuplicateIndex recognises the "index already exists" failure of each driver.
func (d Dialect) isDuplicateIndex(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateKeyName
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.DuplicateTable
	}
	return d == SQLite && strings.Contains(err.Error(), "already exists")
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"student-analytics/internal/config"
	"student-analytics/internal/logging"
	"student-analytics/internal/students"
)

// Outcome tells which store a Connection ended up on.
type Outcome int

const (
	Connected Outcome = iota + 1
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Connected:
		return "connected"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Connection is an open store plus how it was obtained. Reason is set only
// for a Fallback and holds the error that caused it.
type Connection struct {
	DB      *sql.DB
	Dialect Dialect
	Outcome Outcome
	Reason  error
	Target  string

	log logging.Logger
}

func (c *Connection) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}

// Connect opens the primary database. When credentials are missing or the
// primary is unreachable it opens the embedded store at fallbackPath if
// db.Fallback is set, and fails otherwise.
func Connect(ctx context.Context, db config.Database, fallbackPath string, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.Discard()
	}
	if err := db.Validate(); err != nil {
		return fallback(db, fallbackPath, err, log)
	}

	conn, err := openPrimary(ctx, db)
	if err != nil {
		reason := students.NewError(students.KindConnectivity, "connect "+db.Driver+" "+db.Address(), err)
		return fallback(db, fallbackPath, reason, log)
	}
	conn.log = log
	log.Infof("store: connected to %s", conn.Target)
	return conn, nil
}

func fallback(db config.Database, path string, reason error, log logging.Logger) (*Connection, error) {
	if !db.Fallback {
		log.Errorf("store: %v", reason)
		return nil, reason
	}

	log.Warnf("store: primary database unavailable (%v); falling back to %s", reason, path)
	sqlDB, err := OpenSQLite(path)
	if err != nil {
		return nil, students.NewError(students.KindConnectivity, "open fallback "+path,
			fmt.Errorf("%w (primary: %v)", err, reason))
	}
	return &Connection{
		DB:      sqlDB,
		Dialect: SQLite,
		Outcome: Fallback,
		Reason:  reason,
		Target:  "sqlite " + path,
		log:     log,
	}, nil
}

func openPrimary(ctx context.Context, db config.Database) (*Connection, error) {
	var (
		sqlDB   *sql.DB
		dialect Dialect
	)
	switch db.Driver {
	case config.DriverPostgres:
		connConfig, err := pgx.ParseConfig(postgresURL(db))
		if err != nil {
			return nil, err
		}
		connConfig.ConnectTimeout = db.ConnectTimeout
		sqlDB = stdlib.OpenDB(*connConfig)
		dialect = Postgres
	default:
		cfg := mysql.NewConfig()
		cfg.User = db.User
		cfg.Passwd = db.Password
		cfg.Net = "tcp"
		cfg.Addr = db.Address()
		cfg.DBName = db.Name
		cfg.Timeout = db.ConnectTimeout
		connector, err := mysql.NewConnector(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB = sql.OpenDB(connector)
		dialect = MySQL
	}

	sqlDB.SetMaxIdleConns(db.PoolSize)
	sqlDB.SetMaxOpenConns(db.PoolSize + db.MaxOverflow)
	sqlDB.SetConnMaxLifetime(db.PoolRecycle)

	pingCtx := ctx
	if db.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, db.ConnectTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Connection{
		DB:      sqlDB,
		Dialect: dialect,
		Outcome: Connected,
		Target:  fmt.Sprintf("%s %s/%s", dialect, db.Address(), db.Name),
	}, nil
}

func postgresURL(db config.Database) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.User, db.Password),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   "/" + db.Name,
	}
	return u.String()
}

// OpenSQLite opens (creating if needed) the embedded store at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewSQLiteConnection wraps an already open embedded store as a primary
// connection.
func NewSQLiteConnection(db *sql.DB, target string, log logging.Logger) *Connection {
	if log == nil {
		log = logging.Discard()
	}
	return &Connection{
		DB:      db,
		Dialect: SQLite,
		Outcome: Connected,
		Target:  "sqlite " + target,
		log:     log,
	}
}

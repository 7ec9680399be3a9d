package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"student-analytics/internal/students"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	defaultHost         = "127.0.0.1"
	defaultMySQLPort    = 3306
	defaultPostgresPort = 5432
	defaultDashboard    = ":10000"
	defaultSourceURL    = "https://archive.ics.uci.edu/static/public/320/student+performance.zip"
)

// Config is built once at process start and handed to each component.
// Nothing below cmd/ reads the process environment.
type Config struct {
	Paths     Paths
	Database  Database
	Model     Model
	Dashboard Dashboard
	LogLevel  string
}

type Paths struct {
	DataDir    string
	ReportDir  string
	Source     string
	Checkpoint string
	ModelFile  string
	FallbackDB string
	SourceURL  string
}

type Database struct {
	Driver         string
	User           string
	Password       string
	Host           string
	Port           int
	Name           string
	PoolSize       int
	MaxOverflow    int
	PoolRecycle    time.Duration
	ConnectTimeout time.Duration
	Fallback       bool
}

type Model struct {
	Features        []string
	Target          string
	TestSize        float64
	RandomSeed      int64
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

type Dashboard struct {
	Addr        string
	WatchSource bool
	RunOnStart  bool
}

// Lookup resolves an environment key. os.LookupEnv in production.
type Lookup func(key string) (string, bool)

func Default() Config {
	dataDir := "data"
	return Config{
		Paths: Paths{
			DataDir:    dataDir,
			ReportDir:  "powerbi",
			Source:     filepath.Join(dataDir, "student-mat.csv"),
			Checkpoint: filepath.Join(dataDir, "students_processed.csv"),
			ModelFile:  filepath.Join(dataDir, "passfail_model.gob"),
			FallbackDB: filepath.Join(dataDir, "student_analytics.db"),
			SourceURL:  defaultSourceURL,
		},
		Database: Database{
			Driver:         DriverMySQL,
			Host:           defaultHost,
			Port:           defaultMySQLPort,
			PoolSize:       5,
			MaxOverflow:    10,
			PoolRecycle:    3600 * time.Second,
			ConnectTimeout: 5 * time.Second,
			Fallback:       true,
		},
		Model: Model{
			Features: []string{
				students.ColStudyTime,
				students.ColFailures,
				students.ColAbsences,
				students.ColG1,
				students.ColG2,
			},
			Target:          students.ColLabel,
			TestSize:        0.2,
			RandomSeed:      42,
			Trees:           100,
			MaxDepth:        10,
			MinSamplesSplit: 5,
			MinSamplesLeaf:  2,
		},
		Dashboard: Dashboard{
			Addr:        defaultDashboard,
			WatchSource: true,
			RunOnStart:  true,
		},
		LogLevel: "info",
	}
}

// Load resolves configuration from defaults, the optional YAML settings
// file, the optional .env file and the process environment, in that order.
// Empty paths skip the corresponding file; a missing .env is not an error.
func Load(settingsPath, envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, students.NewError(students.KindConfig, "load "+envFile, err)
	}
	return LoadWith(settingsPath, os.LookupEnv)
}

func LoadWith(settingsPath string, lookup Lookup) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(settingsPath) != "" {
		if err := applySettingsFile(&cfg, settingsPath); err != nil {
			return Config{}, students.NewError(students.KindConfig, "settings "+settingsPath, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, students.NewError(students.KindConfig, "environment", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup Lookup) error {
	if lookup == nil {
		return nil
	}
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	db := &cfg.Database
	if v, ok := get("DB_DRIVER"); ok {
		driver := strings.ToLower(v)
		if driver != DriverMySQL && driver != DriverPostgres {
			return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMySQL, DriverPostgres, v)
		}
		if driver != db.Driver && db.Port == defaultPortFor(db.Driver) {
			db.Port = defaultPortFor(driver)
		}
		db.Driver = driver
	}
	if v, ok := get("DB_USER"); ok {
		db.User = v
	}
	if v, ok := lookup("DB_PASS"); ok && v != "" {
		db.Password = v
	}
	if v, ok := get("DB_HOST"); ok {
		db.Host = v
	}
	if v, ok := get("DB_NAME"); ok {
		db.Name = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"DB_PORT", &db.Port},
		{"DB_POOL_SIZE", &db.PoolSize},
		{"DB_MAX_OVERFLOW", &db.MaxOverflow},
	}
	for _, item := range ints {
		v, ok := get(item.key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", item.key, v)
		}
		*item.dst = parsed
	}

	if v, ok := get("DB_POOL_RECYCLE"); ok {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds < 0 {
			return fmt.Errorf("DB_POOL_RECYCLE must be a number of seconds, got %q", v)
		}
		db.PoolRecycle = time.Duration(seconds) * time.Second
	}
	if v, ok := get("DB_CONNECT_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DB_CONNECT_TIMEOUT: %w", err)
		}
		db.ConnectTimeout = timeout
	}
	if v, ok := get("DB_FALLBACK"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DB_FALLBACK must be a boolean, got %q", v)
		}
		db.Fallback = enabled
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("DASHBOARD_ADDR"); ok {
		cfg.Dashboard.Addr = v
	}
	return nil
}

func defaultPortFor(driver string) int {
	if driver == DriverPostgres {
		return defaultPostgresPort
	}
	return defaultMySQLPort
}

// Validate reports the first missing required credential.
func (d Database) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"DB_USER", d.User},
		{"DB_PASS", d.Password},
		{"DB_NAME", d.Name},
	}
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			return students.Errorf(students.KindConfig, "database", "%s not found in environment variables", item.key)
		}
	}
	return nil
}

// Address is host:port of the primary database.
func (d Database) Address() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// EnsureDirs creates the data and report directories.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ReportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

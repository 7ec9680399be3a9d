package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// settingsFile mirrors the YAML settings file. Every field is optional;
// zero values keep the defaults.
type settingsFile struct {
	Paths     *pathsSettings     `yaml:"paths"`
	Database  *databaseSettings  `yaml:"database"`
	Model     *modelSettings     `yaml:"model"`
	Dashboard *dashboardSettings `yaml:"dashboard"`
	LogLevel  string             `yaml:"logLevel,omitempty"`
}

type pathsSettings struct {
	DataDir    string `yaml:"dataDir,omitempty"`
	ReportDir  string `yaml:"reportDir,omitempty"`
	Source     string `yaml:"source,omitempty"`
	Checkpoint string `yaml:"checkpoint,omitempty"`
	ModelFile  string `yaml:"model,omitempty"`
	FallbackDB string `yaml:"fallbackDB,omitempty"`
	SourceURL  string `yaml:"sourceURL,omitempty"`
}

// Credentials are deliberately absent: they come from the environment only.
type databaseSettings struct {
	Driver   string `yaml:"driver,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Fallback *bool  `yaml:"fallback,omitempty"`
}

type modelSettings struct {
	Features        []string `yaml:"features,omitempty"`
	Target          string   `yaml:"target,omitempty"`
	TestSize        float64  `yaml:"testSize,omitempty"`
	RandomSeed      *int64   `yaml:"randomSeed,omitempty"`
	Trees           int      `yaml:"trees,omitempty"`
	MaxDepth        int      `yaml:"maxDepth,omitempty"`
	MinSamplesSplit int      `yaml:"minSamplesSplit,omitempty"`
	MinSamplesLeaf  int      `yaml:"minSamplesLeaf,omitempty"`
}

type dashboardSettings struct {
	Addr        string `yaml:"addr,omitempty"`
	WatchSource *bool  `yaml:"watchSource,omitempty"`
	RunOnStart  *bool  `yaml:"runOnStart,omitempty"`
}

func applySettingsFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var settings settingsFile
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return err
	}
	return settings.apply(cfg)
}

func (s settingsFile) apply(cfg *Config) error {
	if p := s.Paths; p != nil {
		if p.DataDir != "" {
			// derived paths follow the data dir unless set explicitly below
			cfg.Paths.DataDir = p.DataDir
			cfg.Paths.Source = filepath.Join(p.DataDir, filepath.Base(cfg.Paths.Source))
			cfg.Paths.Checkpoint = filepath.Join(p.DataDir, filepath.Base(cfg.Paths.Checkpoint))
			cfg.Paths.ModelFile = filepath.Join(p.DataDir, filepath.Base(cfg.Paths.ModelFile))
			cfg.Paths.FallbackDB = filepath.Join(p.DataDir, filepath.Base(cfg.Paths.FallbackDB))
		}
		setString(&cfg.Paths.ReportDir, p.ReportDir)
		setString(&cfg.Paths.Source, p.Source)
		setString(&cfg.Paths.Checkpoint, p.Checkpoint)
		setString(&cfg.Paths.ModelFile, p.ModelFile)
		setString(&cfg.Paths.FallbackDB, p.FallbackDB)
		setString(&cfg.Paths.SourceURL, p.SourceURL)
	}

	if d := s.Database; d != nil {
		if d.Driver != "" {
			if d.Driver != DriverMySQL && d.Driver != DriverPostgres {
				return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMySQL, DriverPostgres, d.Driver)
			}
			cfg.Database.Driver = d.Driver
			cfg.Database.Port = defaultPortFor(d.Driver)
		}
		setString(&cfg.Database.Host, d.Host)
		if d.Port > 0 {
			cfg.Database.Port = d.Port
		}
		if d.Fallback != nil {
			cfg.Database.Fallback = *d.Fallback
		}
	}

	if m := s.Model; m != nil {
		if len(m.Features) > 0 {
			cfg.Model.Features = append([]string(nil), m.Features...)
		}
		setString(&cfg.Model.Target, m.Target)
		if m.TestSize != 0 {
			if m.TestSize <= 0 || m.TestSize >= 1 {
				return fmt.Errorf("model.testSize must be in (0, 1), got %v", m.TestSize)
			}
			cfg.Model.TestSize = m.TestSize
		}
		if m.RandomSeed != nil {
			cfg.Model.RandomSeed = *m.RandomSeed
		}
		setPositive(&cfg.Model.Trees, m.Trees)
		setPositive(&cfg.Model.MaxDepth, m.MaxDepth)
		setPositive(&cfg.Model.MinSamplesSplit, m.MinSamplesSplit)
		setPositive(&cfg.Model.MinSamplesLeaf, m.MinSamplesLeaf)
	}

	if d := s.Dashboard; d != nil {
		setString(&cfg.Dashboard.Addr, d.Addr)
		if d.WatchSource != nil {
			cfg.Dashboard.WatchSource = *d.WatchSource
		}
		if d.RunOnStart != nil {
			cfg.Dashboard.RunOnStart = *d.RunOnStart
		}
	}

	setString(&cfg.LogLevel, s.LogLevel)
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setPositive(dst *int, value int) {
	if value > 0 {
		*dst = value
	}
}

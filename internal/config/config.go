package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string        `yaml:"version" json:"version"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Tasks   TasksConfig   `yaml:"tasks" json:"tasks"`
	Billing BillingConfig `yaml:"billing" json:"billing"`
	Uploads UploadsConfig `yaml:"uploads" json:"uploads"`
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

type StoreConfig struct {
	// Backend is one of memory, file, sqlite.
	Backend    string `yaml:"backend" json:"backend"`
	DataDir    string `yaml:"data_dir" json:"data_dir"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

type TasksConfig struct {
	NotStartedLabel string `yaml:"not_started_label" json:"not_started_label"`
	// RollbackOnSuccessorFailure restores the completed task when its next
	// occurrence cannot be created.
	RollbackOnSuccessorFailure *bool `yaml:"rollback_on_successor_failure" json:"rollback_on_successor_failure"`
}

type BillingConfig struct {
	DefaultHourlyRate float64 `yaml:"default_hourly_rate" json:"default_hourly_rate"`
}

type UploadsConfig struct {
	Dir      string `yaml:"dir" json:"dir"`
	MaxBytes int64  `yaml:"max_bytes" json:"max_bytes"`
}

type LLMConfig struct {
	APIKey string `yaml:"api_key" json:"-"`
	Model  string `yaml:"model" json:"model"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

func (t TasksConfig) Rollback() bool {
	return t.RollbackOnSuccessorFailure == nil || *t.RollbackOnSuccessorFailure
}

func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Version) == "" {
		c.Version = "1"
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.Store.Backend) == "" {
		c.Store.Backend = "file"
	}
	if strings.TrimSpace(c.Store.DataDir) == "" {
		c.Store.DataDir = "data"
	}
	if strings.TrimSpace(c.Store.SQLitePath) == "" {
		c.Store.SQLitePath = c.Store.DataDir + "/harkflow.db"
	}
	if strings.TrimSpace(c.Tasks.NotStartedLabel) == "" {
		c.Tasks.NotStartedLabel = "Not Started"
	}
	if c.Billing.DefaultHourlyRate < 0 {
		c.Billing.DefaultHourlyRate = 0
	}
	if strings.TrimSpace(c.Uploads.Dir) == "" {
		c.Uploads.Dir = c.Store.DataDir + "/uploads"
	}
	if c.Uploads.MaxBytes <= 0 {
		c.Uploads.MaxBytes = 25 << 20
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = "gemini-2.5-flash"
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
}

// Load reads a YAML config file. A missing file yields defaults. Environment
// overrides are applied before defaults.
func Load(path string) (*Config, error) {
	var c Config
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}
	ApplyEnv(&c)
	c.ApplyDefaults()
	return &c, nil
}

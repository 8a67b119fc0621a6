package model

import (
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

type Config struct {
	Project      ProjectConfig      `yaml:"project"`
	Server       ServerConfig       `yaml:"server"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Assembler    AssemblerConfig    `yaml:"assembler"`
	Sources      SourcesConfig      `yaml:"sources"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ProjectConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type OrchestratorConfig struct {
	MaxRetries          int     `yaml:"max_retries"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// AttemptTimeoutSec bounds one executor attempt; 0 disables the timeout.
	// A timed-out attempt counts as a confidence-0 outcome.
	AttemptTimeoutSec int `yaml:"attempt_timeout_sec"`
	// NoiseTemperature drives the simulated-unreliability perturbation of the
	// default executor; 0 yields fully deterministic outcomes.
	NoiseTemperature float64 `yaml:"noise_temperature"`
}

type AssemblerConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

type SourcesConfig struct {
	// Dir is watched for dropped-in .txt/.md source files when Watch is set.
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{
		Project: ProjectConfig{
			Name:        "cascade",
			Description: "AI task orchestration engine",
		},
		Server: ServerConfig{
			Addr: "localhost:5000",
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:          2,
			ConfidenceThreshold: 0.6,
			AttemptTimeoutSec:   0,
			NoiseTemperature:    0.3,
		},
		Assembler: AssemblerConfig{
			ConfidenceThreshold: 0.6,
		},
		Sources: SourcesConfig{
			Dir:   "sources",
			Watch: false,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  15,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yamlv3.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator.max_retries must be non-negative, got %d", c.Orchestrator.MaxRetries)
	}
	if t := c.Orchestrator.ConfidenceThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("orchestrator.confidence_threshold must be in (0,1], got %g", t)
	}
	if t := c.Assembler.ConfidenceThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("assembler.confidence_threshold must be in (0,1], got %g", t)
	}
	if c.Orchestrator.NoiseTemperature < 0 || c.Orchestrator.NoiseTemperature > 1 {
		return fmt.Errorf("orchestrator.noise_temperature must be in [0,1], got %g", c.Orchestrator.NoiseTemperature)
	}
	return nil
}

// SampleDocument is substituted by the transport layer when no document has
// been uploaded, so demo runs always have source material to work against.
const SampleDocument = "This is sample content for demonstration purposes. " +
	"The AI Task Orchestration System separates planning from execution. " +
	"Workers process tasks independently with confidence scoring. " +
	"The assembler combines results and surfaces uncertainty explicitly. " +
	"Failures are isolated and visible. Retries are bounded. " +
	"Source-of-Truth data is preferred when available. " +
	"Model knowledge is used as a fallback for reasoning tasks."

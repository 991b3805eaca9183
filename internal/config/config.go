// Package config loads the assistant's configuration file.
//
// The file is YAML, lives at ~/.biome/config.yaml by default, and every
// field has a working default so a missing file is not an error. The
// API key is never stored in the file; the config names the
// environment variable that holds it.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	// DataDir roots every data file the assistant writes.
	DataDir string `yaml:"data_dir"`
	// AnalyticsPath is the training history database. Empty means
	// DataDir/training.db.
	AnalyticsPath string `yaml:"analytics_path"`
	// MemoryPath is the coaching journal database. Empty means
	// DataDir/journal.db.
	MemoryPath string `yaml:"memory_path"`
	// Persona leads chat replies when the model does not pick one.
	Persona string `yaml:"persona"`

	LLM       LLM       `yaml:"llm"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	WeakPoint WeakPoint `yaml:"weak_point"`
}

// LLM configures the model backend.
type LLM struct {
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never goes in the file.
	APIKeyEnv      string   `yaml:"api_key_env"`
	Model          string   `yaml:"model"`
	FallbackModels []string `yaml:"fallback_models"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Pipeline tunes the coaching pipeline budgets.
type Pipeline struct {
	StageTimeoutSeconds  int `yaml:"stage_timeout_seconds"`
	PlanAttempts         int `yaml:"plan_attempts"`
	AnalystRepairRetries int `yaml:"analyst_repair_retries"`
	MaxFindings          int `yaml:"max_findings"`
}

// WeakPoint tunes the weak-point detection baseline.
type WeakPoint struct {
	BaselineWeeks   int      `yaml:"baseline_weeks"`
	VolumeDropRatio float64  `yaml:"volume_drop_ratio"`
	MinWeeks        int      `yaml:"min_weeks"`
	FocusAreas      []string `yaml:"focus_areas"`
}

// Default returns the stock configuration, rooted under the user's
// home directory.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".biome")
	return Config{
		DataDir: dataDir,
		Persona: "Workout Specialist",
		LLM: LLM{
			BaseURL:        "https://api.groq.com/openai/v1",
			APIKeyEnv:      "GROQ_API_KEY",
			Model:          "llama-3.3-70b-versatile",
			TimeoutSeconds: 45,
		},
		Pipeline: Pipeline{
			StageTimeoutSeconds:  45,
			PlanAttempts:         2,
			AnalystRepairRetries: 1,
			MaxFindings:          20,
		},
		WeakPoint: WeakPoint{
			BaselineWeeks:   4,
			VolumeDropRatio: 0.7,
			MinWeeks:        2,
		},
	}
}

// DefaultPath is where LoadOrDefault looks for the file.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".biome", "config.yaml")
}

// Load reads and validates a config file. Fields absent from the file
// keep their defaults. Unknown keys are an error so typos surface
// instead of being silently ignored.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads the file at path, falling back to the defaults
// when it does not exist. Any other failure is still an error; a
// present-but-broken file should never be silently replaced.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate checks the tunables. Messages name the yaml key.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.LLM.APIKeyEnv == "" {
		return errors.New("llm.api_key_env must not be empty")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	if c.Pipeline.StageTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.stage_timeout_seconds must be positive, got %d", c.Pipeline.StageTimeoutSeconds)
	}
	if c.Pipeline.PlanAttempts < 1 {
		return fmt.Errorf("pipeline.plan_attempts must be at least 1, got %d", c.Pipeline.PlanAttempts)
	}
	if c.Pipeline.AnalystRepairRetries < 0 {
		return fmt.Errorf("pipeline.analyst_repair_retries must not be negative, got %d", c.Pipeline.AnalystRepairRetries)
	}
	if c.Pipeline.MaxFindings < 1 {
		return fmt.Errorf("pipeline.max_findings must be at least 1, got %d", c.Pipeline.MaxFindings)
	}
	if c.WeakPoint.BaselineWeeks < 1 {
		return fmt.Errorf("weak_point.baseline_weeks must be at least 1, got %d", c.WeakPoint.BaselineWeeks)
	}
	if c.WeakPoint.VolumeDropRatio <= 0 || c.WeakPoint.VolumeDropRatio > 1 {
		return fmt.Errorf("weak_point.volume_drop_ratio must be in (0, 1], got %g", c.WeakPoint.VolumeDropRatio)
	}
	if c.WeakPoint.MinWeeks < 1 {
		return fmt.Errorf("weak_point.min_weeks must be at least 1, got %d", c.WeakPoint.MinWeeks)
	}
	return nil
}

// APIKey resolves the model API key from the configured environment
// variable. Empty means no key, which selects the offline coach.
func (c Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// ResolvedAnalyticsPath is the training database location with the
// DataDir default applied.
func (c Config) ResolvedAnalyticsPath() string {
	if c.AnalyticsPath != "" {
		return c.AnalyticsPath
	}
	return filepath.Join(c.DataDir, "training.db")
}

// ResolvedMemoryPath is the journal database location with the DataDir
// default applied.
func (c Config) ResolvedMemoryPath() string {
	if c.MemoryPath != "" {
		return c.MemoryPath
	}
	return filepath.Join(c.DataDir, "journal.db")
}

// LLMTimeout is the request timeout as a duration.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// StageTimeout is the per-stage timeout as a duration.
func (c Config) StageTimeout() time.Duration {
	return time.Duration(c.Pipeline.StageTimeoutSeconds) * time.Second
}

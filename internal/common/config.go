package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is loaded once at the entry
// point and threaded into every component constructor; no other package reads
// the environment.
type Config struct {
	Model ModelConfig
	Paths PathConfig
}

// ModelConfig holds settings for the structuring service and its retry policy.
type ModelConfig struct {
	APIKey           string
	BaseURL          string
	AnthropicVersion string
	Model            string
	Temperature      float32
	MaxTokens        int
	Timeout          time.Duration
	RateLimitDelay   time.Duration
	ErrorDelay       time.Duration
	MaxRetries       int
}

// PathConfig holds all file and directory locations used by a run.
type PathConfig struct {
	PDFPath      string
	OutputPath   string
	BatchesDir   string
	LogsDir      string
	ProgressFile string
	FailedLog    string
}

// FileConfig is the optional YAML config file shape. Every field overrides the
// environment value when set; CLI flags override both.
type FileConfig struct {
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url"`
	Temperature    *float32 `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	RateLimitDelay string   `yaml:"rate_limit_delay"`
	ErrorDelay     string   `yaml:"error_delay"`
	MaxRetries     int      `yaml:"max_retries"`
	PDFPath        string   `yaml:"pdf_path"`
	OutputPath     string   `yaml:"output_path"`
	WorkDir        string   `yaml:"work_dir"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	workDir := getEnv("WORK_DIR", ".")
	return &Config{
		Model: ModelConfig{
			APIKey:           getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:          getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			AnthropicVersion: getEnv("ANTHROPIC_VERSION", "2023-06-01"),
			Model:            getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
			Temperature:      getEnvAsFloat32("TEMPERATURE", 0.0),
			MaxTokens:        getEnvAsInt("MAX_TOKENS", 4000),
			Timeout:          getEnvAsDuration("API_TIMEOUT", 90*time.Second),
			RateLimitDelay:   getEnvAsSeconds("RATE_LIMIT_DELAY", 1*time.Second),
			ErrorDelay:       getEnvAsSeconds("ERROR_DELAY", 5*time.Second),
			MaxRetries:       getEnvAsInt("MAX_RETRIES", 5),
		},
		Paths: pathsForWorkDir(workDir, getEnv("PDF_PATH", ""), getEnv("OUTPUT_PATH", "")),
	}
}

// ApplyFile overlays a YAML config file on top of c.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.Model != "" {
		c.Model.Model = fc.Model
	}
	if fc.BaseURL != "" {
		c.Model.BaseURL = fc.BaseURL
	}
	if fc.Temperature != nil {
		c.Model.Temperature = *fc.Temperature
	}
	if fc.MaxTokens > 0 {
		c.Model.MaxTokens = fc.MaxTokens
	}
	if fc.RateLimitDelay != "" {
		d, err := time.ParseDuration(fc.RateLimitDelay)
		if err != nil {
			return fmt.Errorf("parse rate_limit_delay: %w", err)
		}
		c.Model.RateLimitDelay = d
	}
	if fc.ErrorDelay != "" {
		d, err := time.ParseDuration(fc.ErrorDelay)
		if err != nil {
			return fmt.Errorf("parse error_delay: %w", err)
		}
		c.Model.ErrorDelay = d
	}
	if fc.MaxRetries > 0 {
		c.Model.MaxRetries = fc.MaxRetries
	}
	workDir := "."
	if fc.WorkDir != "" {
		workDir = fc.WorkDir
	} else if c.Paths.BatchesDir != "" {
		workDir = filepath.Dir(c.Paths.BatchesDir)
	}
	pdf := c.Paths.PDFPath
	if fc.PDFPath != "" {
		pdf = fc.PDFPath
	}
	out := c.Paths.OutputPath
	if fc.OutputPath != "" {
		out = fc.OutputPath
	}
	c.Paths = pathsForWorkDir(workDir, pdf, out)
	return nil
}

func pathsForWorkDir(workDir, pdfPath, outputPath string) PathConfig {
	if outputPath == "" {
		outputPath = filepath.Join(workDir, "questions.json")
	}
	return PathConfig{
		PDFPath:      pdfPath,
		OutputPath:   outputPath,
		BatchesDir:   filepath.Join(workDir, "batches"),
		LogsDir:      filepath.Join(workDir, "logs"),
		ProgressFile: filepath.Join(workDir, "processing_progress.json"),
		FailedLog:    filepath.Join(workDir, "failed_questions.log"),
	}
}

// EnsureDirectories creates the batch and log directories if missing.
func (p PathConfig) EnsureDirectories() error {
	for _, dir := range []string{p.BatchesDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsSeconds reads a bare float number of seconds, matching how the
// delay knobs have historically been set ("1.0", "5").
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Model.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", ErrInvalidInput)
	}
	if c.Paths.PDFPath == "" {
		return NewAppError("CONFIG_ERROR", "input PDF path is required", ErrInvalidInput)
	}
	if _, err := os.Stat(c.Paths.PDFPath); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("input PDF not found: %s", c.Paths.PDFPath), err)
	}
	if c.Model.MaxRetries < 1 {
		return NewAppError("CONFIG_ERROR", "MAX_RETRIES must be at least 1", ErrInvalidInput)
	}
	return nil
}

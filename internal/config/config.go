// Package config handles newsgraph configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	if path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return homeDir
	}
	return path
}

// Config holds all newsgraph configuration.
type Config struct {
	DataDir   string `mapstructure:"data_dir"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	KB       KBConfig       `mapstructure:"kb"`
	Pricing  map[string]PricingRate `mapstructure:"pricing"`
}

// PipelineConfig holds every tunable recognized by the extraction pipeline.
type PipelineConfig struct {
	ChunkSize           int     `mapstructure:"chunk_size"`
	ChunkOverlap        int     `mapstructure:"chunk_overlap"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MaxRetries          int     `mapstructure:"max_retries"`
	TimeoutSeconds      int     `mapstructure:"timeout_seconds"`
	ParallelProcessing  bool    `mapstructure:"parallel_processing"`
	WindowSize          int     `mapstructure:"window_size"`
	MinFrequencyForPMI  int     `mapstructure:"min_frequency_for_pmi"`
	Smoothing           float64 `mapstructure:"smoothing"`
	DailyCap            float64 `mapstructure:"daily_cap"`
	MonthlyCap          float64 `mapstructure:"monthly_cap"`
	BatchSize           int     `mapstructure:"batch_size"`
}

// OllamaConfig configures the local Ollama extractor.
type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	ModelA   string `mapstructure:"model_a"`
	ModelB   string `mapstructure:"model_b"`
}

// AnthropicConfig configures the Anthropic extractor/arbitrator.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig configures the OpenAI extractor.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// KBConfig holds knowledge-base enrichment configuration.
type KBConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	TTLDays     int    `mapstructure:"ttl_days"`
	RatePerMin  int    `mapstructure:"rate_per_min"`
	RedisAddr   string `mapstructure:"redis_addr"`
	UseRedis    bool   `mapstructure:"use_redis"`
}

// PricingRate is the per-1M-token rate for one provider:model pricing key.
type PricingRate struct {
	InputRate  float64 `mapstructure:"input_rate"`
	OutputRate float64 `mapstructure:"output_rate"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".newsgraph")

	return &Config{
		DataDir:   dataDir,
		LogLevel:  "info",
		LogFormat: "json",

		Pipeline: PipelineConfig{
			ChunkSize:           200,
			ChunkOverlap:        50,
			ConfidenceThreshold: 0.4,
			SimilarityThreshold: 0.75,
			MaxRetries:          3,
			TimeoutSeconds:      30,
			ParallelProcessing:  true,
			WindowSize:          2,
			MinFrequencyForPMI:  2,
			Smoothing:           1e-6,
			DailyCap:            10.0,
			MonthlyCap:          50.0,
			BatchSize:           10,
		},

		Ollama: OllamaConfig{
			Endpoint: "http://localhost:11434",
			ModelA:   "qwen2.5-coder:7b",
			ModelB:   "mistral:7b-instruct-q4_K_M",
		},

		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},

		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},

		KB: KBConfig{
			Enabled:    true,
			TTLDays:    30,
			RatePerMin: 50,
			RedisAddr:  "localhost:6379",
			UseRedis:   false,
		},

		Pricing: map[string]PricingRate{
			"ollama:*":         {InputRate: 0, OutputRate: 0},
			"anthropic:claude": {InputRate: 3.0, OutputRate: 15.0},
			"openai:gpt":       {InputRate: 2.5, OutputRate: 10.0},
		},
	}
}

// Load loads configuration from files and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("newsgraph")
	v.SetConfigType("yaml")

	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".newsgraph"))
	v.AddConfigPath("/etc/newsgraph")
	v.AddConfigPath(".")

	v.SetEnvPrefix("NEWSGRAPH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = expandPath(cfg.DataDir)

	return cfg, nil
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "newsgraph.db")
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "newsgraph.log")
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}

// ExtractorTimeout is the per-client wall-clock bound for ensemble calls.
func (c *Config) ExtractorTimeout() time.Duration {
	return time.Duration(c.Pipeline.TimeoutSeconds) * time.Second
}

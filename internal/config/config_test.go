package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel should be 'info', got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat should be 'json', got %s", cfg.LogFormat)
	}
}

func TestDefaultConfig_PipelineDefaults(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Pipeline

	if p.ChunkSize != 200 {
		t.Errorf("ChunkSize should be 200, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap != 50 {
		t.Errorf("ChunkOverlap should be 50, got %d", p.ChunkOverlap)
	}
	if p.ConfidenceThreshold != 0.4 {
		t.Errorf("ConfidenceThreshold should be 0.4, got %f", p.ConfidenceThreshold)
	}
	if p.SimilarityThreshold != 0.75 {
		t.Errorf("SimilarityThreshold should be 0.75, got %f", p.SimilarityThreshold)
	}
	if p.MaxRetries != 3 {
		t.Errorf("MaxRetries should be 3, got %d", p.MaxRetries)
	}
	if p.TimeoutSeconds != 30 {
		t.Errorf("TimeoutSeconds should be 30, got %d", p.TimeoutSeconds)
	}
	if !p.ParallelProcessing {
		t.Error("ParallelProcessing should default true")
	}
	if p.WindowSize != 2 {
		t.Errorf("WindowSize should be 2, got %d", p.WindowSize)
	}
	if p.MinFrequencyForPMI != 2 {
		t.Errorf("MinFrequencyForPMI should be 2, got %d", p.MinFrequencyForPMI)
	}
	if p.Smoothing != 1e-6 {
		t.Errorf("Smoothing should be 1e-6, got %g", p.Smoothing)
	}
	if p.DailyCap != 10.0 {
		t.Errorf("DailyCap should be 10.0, got %f", p.DailyCap)
	}
	if p.MonthlyCap != 50.0 {
		t.Errorf("MonthlyCap should be 50.0, got %f", p.MonthlyCap)
	}
}

func TestDefaultConfig_ProviderDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ollama.Endpoint != "http://localhost:11434" {
		t.Errorf("Ollama.Endpoint mismatch, got %s", cfg.Ollama.Endpoint)
	}
	if cfg.Ollama.ModelA == "" || cfg.Ollama.ModelB == "" {
		t.Error("Ollama.ModelA/ModelB should be set")
	}
	if cfg.Anthropic.Model == "" {
		t.Error("Anthropic.Model should be set")
	}
	if cfg.OpenAI.Model == "" {
		t.Error("OpenAI.Model should be set")
	}
}

func TestDefaultConfig_KBDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.KB.Enabled {
		t.Error("KB.Enabled should default true")
	}
	if cfg.KB.TTLDays != 30 {
		t.Errorf("KB.TTLDays should be 30, got %d", cfg.KB.TTLDays)
	}
	if cfg.KB.RatePerMin != 50 {
		t.Errorf("KB.RatePerMin should be 50, got %d", cfg.KB.RatePerMin)
	}
}

func TestDefaultConfig_PricingTable(t *testing.T) {
	cfg := DefaultConfig()

	entry, ok := cfg.Pricing["anthropic:claude"]
	if !ok {
		t.Fatal("expected anthropic:claude pricing entry")
	}
	if entry.InputRate != 3.0 || entry.OutputRate != 15.0 {
		t.Errorf("unexpected anthropic pricing: %+v", entry)
	}
}

func TestConfig_DatabasePath(t *testing.T) {
	cfg := DefaultConfig()

	dbPath := cfg.DatabasePath()
	if !strings.HasSuffix(dbPath, "newsgraph.db") {
		t.Errorf("DatabasePath should end with 'newsgraph.db', got %s", dbPath)
	}
	if !strings.Contains(dbPath, cfg.DataDir) {
		t.Errorf("DatabasePath should be within DataDir")
	}
}

func TestConfig_LogPath(t *testing.T) {
	cfg := DefaultConfig()

	logPath := cfg.LogPath()
	if !strings.HasSuffix(logPath, "newsgraph.log") {
		t.Errorf("LogPath should end with 'newsgraph.log', got %s", logPath)
	}
}

func TestConfig_EnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &Config{DataDir: tmpDir}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	info, err := os.Stat(tmpDir)
	if err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", tmpDir)
	}
}

func TestLoad_DefaultsWhenNoConfig(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.LogLevel == "" {
		t.Error("LogLevel should have default value")
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/.newsgraph", filepath.Join(homeDir, ".newsgraph")},
		{"~/", homeDir},
		{"~", homeDir},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, tt := range tests {
		result := expandPath(tt.input)
		if result != tt.expected {
			t.Errorf("expandPath(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestConfig_ExtractorTimeout(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ExtractorTimeout().Seconds() != 30 {
		t.Errorf("expected 30s extractor timeout, got %v", cfg.ExtractorTimeout())
	}
}

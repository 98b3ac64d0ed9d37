package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Refine.MaxTokens != 200 {
		t.Errorf("expected MaxTokens=200, got %d", cfg.Refine.MaxTokens)
	}
	if cfg.Refine.OverlapSentence != 3 {
		t.Errorf("expected OverlapSentence=3, got %d", cfg.Refine.OverlapSentence)
	}
	if cfg.Embedding.BatchSize != 64 {
		t.Errorf("expected BatchSize=64, got %d", cfg.Embedding.BatchSize)
	}
	if cfg.Retrieve.TopK != 8 {
		t.Errorf("expected TopK=8, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Retrieve.MinScore != 0.55 {
		t.Errorf("expected MinScore=0.55, got %f", cfg.Retrieve.MinScore)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("expected Backend=file, got %s", cfg.Store.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "doclens.yaml")

	content := `
refine:
  max_tokens: 128
retrieve:
  top_k: 4
store:
  backend: bolt
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Refine.MaxTokens != 128 {
		t.Errorf("expected MaxTokens=128, got %d", cfg.Refine.MaxTokens)
	}
	if cfg.Retrieve.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Store.Backend != "bolt" {
		t.Errorf("expected Backend=bolt, got %s", cfg.Store.Backend)
	}
	// Untouched sections keep their defaults.
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %s", cfg.Embedding.Model)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "doclens.yaml")

	content := `
store:
  backend: cassandra
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for unknown store backend")
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "doclens.yaml")

	content := `
embedding:
  batch_size: 16
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.BatchSize != 16 {
		t.Errorf("expected BatchSize=16, got %d", cfg.Embedding.BatchSize)
	}
}

func TestVectorDBPath(t *testing.T) {
	path := VectorDBPath("/home/user/.doclens")
	expected := filepath.Join("/home/user/.doclens", "vectors.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}

func TestLoggingLevelGates(t *testing.T) {
	tests := []struct {
		level        string
		showWarnings bool
		verbose      bool
	}{
		{"", true, false},
		{"info", true, false},
		{"debug", true, true},
		{"error", false, false},
	}
	for _, tt := range tests {
		l := LoggingConfig{Level: tt.level}
		if got := l.ShowWarnings(); got != tt.showWarnings {
			t.Errorf("level %q: ShowWarnings() = %v, want %v", tt.level, got, tt.showWarnings)
		}
		if got := l.Verbose(); got != tt.verbose {
			t.Errorf("level %q: Verbose() = %v, want %v", tt.level, got, tt.verbose)
		}
	}
}

func TestValidate_UnknownLoggingLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown logging level")
	}
}

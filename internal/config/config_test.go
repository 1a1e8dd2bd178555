package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_FILE_MB", "")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "")
	t.Setenv("NATS_SUBJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxFileMB != 10 {
		t.Fatalf("expected default max file size 10MB, got %d", cfg.MaxFileMB)
	}
	if cfg.MaxFileBytes() != 10<<20 {
		t.Fatalf("expected 10MiB in bytes, got %d", cfg.MaxFileBytes())
	}
	if cfg.FetchTimeoutSecs != 30 {
		t.Fatalf("expected default fetch timeout 30s, got %d", cfg.FetchTimeoutSecs)
	}
	if cfg.NATSSubject != "attachments.ingested" {
		t.Fatalf("expected default subject, got %q", cfg.NATSSubject)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_FILE_MB", "25")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("OLLAMA_VISION_MODEL", "llava:34b")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxFileMB != 25 {
		t.Fatalf("expected max file size override 25, got %d", cfg.MaxFileMB)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override 2.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.OllamaVisionModel != "llava:34b" {
		t.Fatalf("expected vision model override, got %q", cfg.OllamaVisionModel)
	}
}

func TestLoadYAMLFileThenEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "max_file_mb: 5\nblob_path: /tmp/blobs\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_FILE_MB", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BlobPath != "/tmp/blobs" {
		t.Fatalf("expected blob path from file, got %q", cfg.BlobPath)
	}
	if cfg.MaxFileMB != 15 {
		t.Fatalf("expected env to override file, got %d", cfg.MaxFileMB)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_FILE_MB", "not-a-number")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxFileMB != 10 {
		t.Fatalf("expected fallback max file size, got %d", cfg.MaxFileMB)
	}
	if cfg.RateLimitRPS != 10 {
		t.Fatalf("expected fallback rate limit, got %v", cfg.RateLimitRPS)
	}
}

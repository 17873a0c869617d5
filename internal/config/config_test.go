package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated")
	}

	if cfg.Extract.MetaName != "citation_abstract" {
		t.Errorf("expected meta name 'citation_abstract', got %q", cfg.Extract.MetaName)
	}

	if cfg.Fetch.Timeout != 15*time.Second {
		t.Errorf("expected 15s timeout, got %v", cfg.Fetch.Timeout)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
extract:
  stop_word: Bibliography
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Extract.StopWord != "Bibliography" {
		t.Errorf("expected stop word 'Bibliography', got %q", cfg.Extract.StopWord)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Extract.AnchorWord != "Abstract" {
		t.Errorf("expected default anchor word, got %q", cfg.Extract.AnchorWord)
	}
	if cfg.Fetch.UserAgent == "" {
		t.Error("expected default user agent")
	}
	if len(cfg.Feeds) != 0 {
		t.Errorf("expected no feeds, got %d", len(cfg.Feeds))
	}
}

func TestParseInvalidConfig(t *testing.T) {
	if _, err := parse([]byte("server: [unclosed")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Feeds) == 0 {
		t.Error("expected feeds to be populated from file")
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Extract.StopWord != "References" {
		t.Errorf("expected default stop word, got %q", cfg.Extract.StopWord)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, _ := parse(nil)
	env := map[string]string{
		"JOURNALS_DATA_DIR":   "/tmp/journals",
		"JOURNALS_LOG_LEVEL":  "debug",
		"JOURNALS_PORT":       "8123",
		"JOURNALS_TIMEOUT":    "3s",
		"JOURNALS_USER_AGENT": "custom",
	}
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetDataDir() != "/tmp/journals" {
		t.Errorf("unexpected data dir %q", cfg.GetDataDir())
	}
	if cfg.Logging.Level != "debug" || cfg.Server.Port != 8123 || cfg.Fetch.Timeout != 3*time.Second || cfg.Fetch.UserAgent != "custom" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}

	bad := map[string]string{"JOURNALS_PORT": "eighty"}
	if err := cfg.applyEnv(func(k string) string { return bad[k] }); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("JOURNALS_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("JOURNALS_TEST_DOTENV", "")
	os.Unsetenv("JOURNALS_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("JOURNALS_TEST_DOTENV"); got != "loaded" {
		t.Errorf("expected 'loaded', got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("expected missing .env to be ignored, got %v", err)
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

func TestExtractOptions(t *testing.T) {
	cfg, _ := parse(DefaultConfigYAML)
	opts := cfg.ExtractOptions()
	if len(opts.StopTags) != 1 || opts.StopTags[0] != "div" {
		t.Errorf("unexpected stop tags %v", opts.StopTags)
	}
	if cfg.FetchOptions().MaxBodyBytes != 8388608 {
		t.Errorf("unexpected body cap %d", cfg.FetchOptions().MaxBodyBytes)
	}
}

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasker/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TASKER_BACKEND", "TASKER_BASE_URL", "TASKER_TOKEN", "TASKER_GOOGLE_LIST",
		"TASKER_CACHE_DRIVER", "TASKER_CACHE_PATH", "DATABASE_URL",
		"TASKER_LOG_LEVEL", "TASKER_SERVE_ADDR", "TASKER_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := config.New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
	}
	if cfg.Backend != config.BackendREST {
		t.Errorf("Backend = %q, want %q", cfg.Backend, config.BackendREST)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.CachePath() != filepath.Join(dir, "tasks.json") {
		t.Errorf("CachePath = %q", cfg.CachePath())
	}
}

func TestNew_FileAndEnvLayering(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yml := `backend: google
google:
  list_id: work
cache:
  driver: sqlite
timeout: 2s
log_level: debug
`
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(yml), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKER_TIMEOUT", "750ms")

	cfg, err := config.New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Backend != config.BackendGoogle {
		t.Errorf("Backend = %q, want google", cfg.Backend)
	}
	if cfg.Google.ListID != "work" {
		t.Errorf("ListID = %q, want work", cfg.Google.ListID)
	}
	if cfg.Timeout != 750*time.Millisecond {
		t.Errorf("env should override file timeout, got %v", cfg.Timeout)
	}
	if cfg.CachePath() != filepath.Join(dir, "cache.db") {
		t.Errorf("sqlite CachePath = %q", cfg.CachePath())
	}
}

func TestNew_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("TASKER_TOKEN")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.EnvFile), []byte("TASKER_TOKEN=secret-from-dotenv\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TASKER_TOKEN") })

	cfg, err := config.New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.REST.Token != "secret-from-dotenv" {
		t.Errorf("Token = %q, want value from .env", cfg.REST.Token)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"backend", "backend: carrier-pigeon\n", "backend"},
		{"timeout", "timeout: 0s\n", "timeout"},
		{"log level", "log_level: loud\n", "log_level"},
		{"base url", "rest:\n  base_url: \"\"\n", "base_url"},
		{"yaml", "backend: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(tt.yml), 0600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, err := config.New(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := &config.Config{Dir: "/tmp/x"}
	if cfg.TokenPath() != filepath.Join("/tmp/x", "token.json") {
		t.Errorf("TokenPath = %q", cfg.TokenPath())
	}
	if cfg.OAuthClientPath() != filepath.Join("/tmp/x", "oauth_client.json") {
		t.Errorf("OAuthClientPath = %q", cfg.OAuthClientPath())
	}
	if cfg.HasToken() {
		t.Error("HasToken should be false for a missing dir")
	}
}

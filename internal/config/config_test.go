package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "picklight.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
data:
  root: /srv/picklight
server:
  listen: 0.0.0.0:9000
lights:
  timeout: 2s
metrics:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Data.Root != "/srv/picklight" {
		t.Errorf("unexpected data root: %s", cfg.Data.Root)
	}
	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("unexpected listen address: %s", cfg.Server.Listen)
	}
	if cfg.Lights.Timeout != 2*time.Second {
		t.Errorf("unexpected lights timeout: %s", cfg.Lights.Timeout)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should be enabled")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
data:
  root: ./data-root
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:8090" {
		t.Errorf("default listen address not applied: %s", cfg.Server.Listen)
	}
	if cfg.Lights.Timeout != 5*time.Second {
		t.Errorf("default lights timeout not applied: %s", cfg.Lights.Timeout)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should default to disabled")
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"wrong version", "version: \"2.0\"\ndata:\n  root: /tmp/x\n"},
		{"missing data root", "version: \"1.0\"\n"},
		{"negative timeout", "version: \"1.0\"\ndata:\n  root: /tmp/x\nlights:\n  timeout: -1s\n"},
		{"not yaml", "{{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected an error")
	}
}

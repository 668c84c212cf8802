package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "pilot.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Server.Address != defaultServerAddress {
		t.Fatalf("unexpected address %q", settings.Server.Address)
	}
	if settings.Storage.Backend != "bbolt" {
		t.Fatalf("unexpected backend %q", settings.Storage.Backend)
	}
	if settings.Storage.MaxConversations != defaultMaxConversations {
		t.Fatalf("unexpected cap %d", settings.Storage.MaxConversations)
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pilot.toml")
	content := `
[server]
address = "http://10.0.0.5:9000/"

[storage]
backend = "file"
max_conversations = 10

[logging]
level = "debug"

[debug]
stream_debug = true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Server.Address != "http://10.0.0.5:9000" {
		t.Fatalf("address not normalized: %q", settings.Server.Address)
	}
	if settings.Storage.Backend != "file" {
		t.Fatalf("unexpected backend %q", settings.Storage.Backend)
	}
	if settings.Storage.MaxConversations != 10 {
		t.Fatalf("unexpected cap %d", settings.Storage.MaxConversations)
	}
	if settings.Logging.Level != "debug" {
		t.Fatalf("unexpected level %q", settings.Logging.Level)
	}
	if !settings.Debug.StreamDebug {
		t.Fatalf("stream_debug not set")
	}
}

func TestLoadSettingsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pilot.toml")
	if err := os.WriteFile(path, []byte("[server\naddress="), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSettings(path); err == nil {
		t.Fatalf("expected error for malformed settings")
	}
}

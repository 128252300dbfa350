package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig parses the embedded example", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "replay.db" {
			t.Errorf("unexpected database path: %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("unexpected server port: %d", config.Server.Port)
		}
		if config.Sync.ChunkSize != 100 {
			t.Errorf("unexpected chunk size: %d", config.Sync.ChunkSize)
		}
		if config.Sync.RateLimit != 1.0 {
			t.Errorf("unexpected rate limit: %f", config.Sync.RateLimit)
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("reads a TOML file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := `
[credentials.spotify]
client_id = "cid"
client_secret = "secret"

[database]
path = "test.db"

[sync]
poll_interval_seconds = 60
`
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Credentials.Spotify.ClientID != "cid" {
				t.Errorf("unexpected client id: %s", config.Credentials.Spotify.ClientID)
			}
			if config.Database.Path != "test.db" {
				t.Errorf("unexpected database path: %s", config.Database.Path)
			}
			if config.Sync.PollInterval() != time.Minute {
				t.Errorf("unexpected poll interval: %v", config.Sync.PollInterval())
			}
		})

		t.Run("fails for a missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})

		t.Run("fails for malformed TOML", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			if err := os.WriteFile(path, []byte("not [valid"), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected parse error")
			}
		})
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		t.Run("writes the example config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")

			if err := CreateConfigFile(path); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("created config failed to parse: %v", err)
			}
			if config.Database.Path != "replay.db" {
				t.Errorf("unexpected database path: %s", config.Database.Path)
			}
		})

		t.Run("refuses to overwrite", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("existing"), 0644); err != nil {
				t.Fatalf("failed to write file: %v", err)
			}

			if err := CreateConfigFile(path); err == nil {
				t.Error("expected error for existing file")
			}
		})
	})

	t.Run("sync durations fall back to defaults", func(t *testing.T) {
		var sync SyncConfig

		if sync.PollInterval() != 2*time.Minute {
			t.Errorf("unexpected default poll interval: %v", sync.PollInterval())
		}
		if sync.ChunkDelay() != time.Second {
			t.Errorf("unexpected default chunk delay: %v", sync.ChunkDelay())
		}

		sync.PollIntervalSeconds = 30
		sync.ChunkDelayMillis = 250
		if sync.PollInterval() != 30*time.Second {
			t.Errorf("unexpected poll interval: %v", sync.PollInterval())
		}
		if sync.ChunkDelay() != 250*time.Millisecond {
			t.Errorf("unexpected chunk delay: %v", sync.ChunkDelay())
		}
	})
}

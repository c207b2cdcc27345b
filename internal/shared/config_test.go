package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./myflix.db" {
			t.Errorf("expected database path ./myflix.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}
		if config.API.BaseURL != "https://oscars2025-f0070acec0c4.herokuapp.com" {
			t.Errorf("unexpected api base url %s", config.API.BaseURL)
		}
		if config.API.Timeout() != 0 {
			t.Errorf("expected no default timeout, got %v", config.API.Timeout())
		}
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[api]
base_url = "http://localhost:9000"
timeout_seconds = 15
requests_per_second = 2.5

[database]
path = "/custom/path.db"

[server]
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.API.BaseURL != "http://localhost:9000" {
			t.Errorf("expected base url http://localhost:9000, got %s", config.API.BaseURL)
		}
		if config.API.Timeout() != 15*time.Second {
			t.Errorf("expected 15s timeout, got %v", config.API.Timeout())
		}
		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected default host to survive partial config, got %s", config.Server.Host)
		}
		if config.Server.Addr() != "127.0.0.1:8080" {
			t.Errorf("unexpected server addr %s", config.Server.Addr())
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		tc := []struct {
			name string
			body string
			want error
		}{
			{name: "malformed toml", body: "[api\nbase_url =", want: ErrInvalidConfig},
			{name: "empty base url", body: "[api]\nbase_url = \"\"\n", want: ErrInvalidConfig},
			{name: "negative rate", body: "[api]\nrequests_per_second = -1.0\n", want: ErrInvalidConfig},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tt.body), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("LoadOrDefault", func(t *testing.T) {
		config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected defaults for missing file, got %v", err)
		}
		if config.Database.Path != "./myflix.db" {
			t.Errorf("expected default database path, got %s", config.Database.Path)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

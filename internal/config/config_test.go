package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "casewire.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, `
version: "1.0"
instance: deadletter
listen: ":9090"
redis_url: "redis://localhost:6379"
sources:
  clustering:
    cooldown: 500ms
  synthesizer:
    cooldown: 10s
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "deadletter", cfg.Instance)
		assert.Equal(t, ":9090", cfg.Listen)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)

		cooldowns := cfg.Cooldowns()
		assert.Equal(t, 500*time.Millisecond, cooldowns["clustering"])
		assert.Equal(t, 10*time.Second, cooldowns["synthesizer"])
	})

	t.Run("listen defaults", func(t *testing.T) {
		path := writeConfig(t, `
version: "1.0"
instance: deadletter
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Listen)
		assert.Equal(t, ":8081", cfg.HealthListen)
		assert.Empty(t, cfg.RedisURL)
		assert.Empty(t, cfg.Cooldowns())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "version: [unterminated")
		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to parse YAML")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "wrong version",
			cfg:     Config{Version: "2.0", Instance: "x"},
			wantErr: "unsupported version",
		},
		{
			name:    "missing instance",
			cfg:     Config{Version: "1.0"},
			wantErr: "instance name is required",
		},
		{
			name: "bad cooldown",
			cfg: Config{Version: "1.0", Instance: "x", Sources: map[string]SourceConfig{
				"clustering": {Cooldown: "soonish"},
			}},
			wantErr: "invalid cooldown",
		},
		{
			name: "negative cooldown",
			cfg: Config{Version: "1.0", Instance: "x", Sources: map[string]SourceConfig{
				"clustering": {Cooldown: "-1s"},
			}},
			wantErr: "must not be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("default is valid", func(t *testing.T) {
		assert.NoError(t, Default("deadletter").Validate())
	})
}

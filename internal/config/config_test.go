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

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "sqlite"
dsn = "/var/lib/docstamp/docs.db"

[render]
command = "docx-render"
args = ["--template", "{template}"]
concurrency = 8
timeout = "90s"
number_key = "practical_number"
number_prefix = "Practical"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/docstamp/docs.db", cfg.Storage.DSN)
	assert.Equal(t, "output", cfg.Storage.Dir, "unset keys keep defaults")
	assert.Equal(t, "docx-render", cfg.Render.Command)
	assert.Equal(t, []string{"--template", "{template}"}, cfg.Render.Args)
	assert.Equal(t, 8, cfg.Render.Concurrency)
	assert.Equal(t, 90*time.Second, time.Duration(cfg.Render.Timeout))
	assert.Equal(t, "practical_number", cfg.Render.NumberKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", `[storage`},
		{"backend", "[storage]\nbackend = \"s3\""},
		{"concurrency", "[render]\nconcurrency = 0"},
		{"timeout", "[render]\ntimeout = \"soon\""},
		{"level", "[log]\nlevel = \"loud\""},
		{"empty dir", "[storage]\ndir = \"\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Render.Args = []string{"a", "b"}

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "2m0s")

	path := writeConfig(t, string(data))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".docstamp", "config.toml"), path)
}

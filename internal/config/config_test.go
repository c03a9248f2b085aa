package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "1 hour", cfg.Interval)
}

func TestLoadFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "db_path: /tmp/events.db\ntable_name: sensor_readings\ninterval: 24 hours\nverbose: false\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/events.db", cfg.DBPath)
	assert.Equal(t, "sensor_readings", cfg.TableName)
	assert.Equal(t, "24 hours", cfg.Interval)
	assert.False(t, cfg.Verbose)
}

func TestLoadFromFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"db_path": "/tmp/events.db", "table_name": "sensor_readings"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/events.db", cfg.DBPath)
	assert.Equal(t, "sensor_readings", cfg.TableName)
	// Fields absent from the JSON keep DefaultConfig's values.
	assert.Equal(t, "1 hour", cfg.Interval)
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("db_path = 1"), 0o600))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidate_RejectsEmptyFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty db_path", Config{TableName: "t", Interval: "1 hour"}},
		{"empty table_name", Config{DBPath: ":memory:", Interval: "1 hour"}},
		{"empty interval", Config{DBPath: ":memory:", TableName: "t"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cfg.Validate())
		})
	}
}

func TestLoadFromEnv_OverlaysNonEmptyValues(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("PARTITIONER_DB_PATH", "/data/events.db")
	t.Setenv("PARTITIONER_VERBOSE", "0")

	LoadFromEnv(cfg)

	assert.Equal(t, "/data/events.db", cfg.DBPath)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "events", cfg.TableName) // untouched by env
}

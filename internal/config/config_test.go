package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPopulatesStartTime(t *testing.T) {
	cfg := Default()
	assert.NotZero(t, cfg.Server.StartTime)
	assert.Equal(t, "mem-demo", cfg.Server.Name)
	assert.Equal(t, "0.0.0.0:7701", cfg.Transport.BindAddress)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
name = "custom"
id = 7

[transport]
bind_address = "127.0.0.1:9000"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom", cfg.Server.Name)
	assert.Equal(t, 7, cfg.Server.ID)
	assert.Equal(t, "127.0.0.1:9000", cfg.Transport.BindAddress)
	// Fields absent from the file keep their default value.
	assert.Equal(t, 50*time.Millisecond, cfg.Transport.TickRate)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

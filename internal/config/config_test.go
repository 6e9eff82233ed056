package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Room)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 54*time.Second, cfg.PingPeriod)
	assert.True(t, cfg.Media.Audio)
	assert.True(t, cfg.Media.AllowNoMedia)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	require.Len(t, cfg.ICEServers(), 1)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
room: from-file
name: file-name
log_level: debug
ice:
  servers: turn.example.com
media:
  video: false
`), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("MESHCALL_ICE_USERNAME", "env-user")
	t.Setenv("MESHCALL_ICE_CREDENTIAL", "env-pass")
	t.Setenv("MESHCALL_NAME", "env-name")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("room", "", "")
	require.NoError(t, fs.Parse([]string{"--room", "from-flag"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.Room)
	assert.Equal(t, "env-name", cfg.Name)
	assert.False(t, cfg.Media.Video)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())

	servers := cfg.ICEServers()
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"turn:turn.example.com"}, servers[0].URLs)
	assert.Equal(t, "env-user", servers[0].Username)
}

func TestConfig_LevelFallsBack(t *testing.T) {
	cfg := &Config{LogLevel: "nonsense"}
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

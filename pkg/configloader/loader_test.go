package configloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edgewire/telerelay"
)

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("APP_CAPACITY", "4096")
	t.Setenv("APP_SERVER_URL", "http://collector.local:8080/ingest")
	t.Setenv("APP_SPOOL_DIR", "/var/spool/telemetry")
	t.Setenv("APP_SEND_TIMEOUT", "5s")
	t.Setenv("APP_VERBOSE", "true")

	cfg, err := FromEnv("app")
	require.NoError(t, err)

	require.NotNil(t, cfg.Buffer)
	require.Equal(t, 4096, cfg.Buffer.Capacity())
	require.Equal(t, "http://collector.local:8080/ingest", cfg.ServerURL)
	require.Equal(t, "/var/spool/telemetry", cfg.SpoolDir)
	require.Equal(t, 5*time.Second, cfg.SendTimeout)
	require.True(t, cfg.Verbose)
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv("unset-prefix")
	require.NoError(t, err)

	require.NotNil(t, cfg.Buffer)
	require.Equal(t, telerelay.DefaultSlotCapacity, cfg.Buffer.Capacity())
	require.Equal(t, telerelay.DefaultSendTimeout, cfg.SendTimeout)
	require.False(t, cfg.Verbose)
}

func TestFromYAML(t *testing.T) {
	data := []byte(`
capacity: 1024
server_url: http://collector.local/ingest
spool_dir: spool
send_timeout: 2s
verbose: true
`)

	cfg, err := FromYAML(data)
	require.NoError(t, err)

	require.Equal(t, 1024, cfg.Buffer.Capacity())
	require.Equal(t, "http://collector.local/ingest", cfg.ServerURL)
	require.Equal(t, "spool", cfg.SpoolDir)
	require.Equal(t, 2*time.Second, cfg.SendTimeout)
	require.True(t, cfg.Verbose)
}

func TestFromYAMLInvalidCapacity(t *testing.T) {
	data := []byte(`
capacity: -1
`)

	_, err := FromYAML(data)
	require.Error(t, err)
}

func TestFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.yaml")
	configData := []byte(`
capacity: 2048
server_url: http://from-file.local/ingest
spool_dir: spool
`)

	err := os.WriteFile(configPath, configData, 0o600)
	require.NoError(t, err)

	t.Setenv("TELERELAY_SERVER_URL", "http://from-env.local/ingest")

	cfg, err := FromFile(configPath)
	require.NoError(t, err)

	require.Equal(t, 2048, cfg.Buffer.Capacity())
	require.Equal(t, "http://from-env.local/ingest", cfg.ServerURL)
	require.Equal(t, "spool", cfg.SpoolDir)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

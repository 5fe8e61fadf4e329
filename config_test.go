package telerelay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultSendTimeout, cfg.SendTimeout)
	assert.NotNil(t, cfg.Logger)
	assert.Nil(t, cfg.Buffer)
	assert.False(t, cfg.Verbose)
}

func TestConfigNormalize(t *testing.T) {
	buf, err := NewDoubleBuffer(8)
	require.NoError(t, err)

	t.Run("fills defaults", func(t *testing.T) {
		cfg := Config{
			Buffer:      buf,
			ServerURL:   "http://collector.local/ingest",
			SpoolDir:    t.TempDir(),
			SendTimeout: -time.Second,
		}

		require.NoError(t, cfg.normalize())
		assert.Equal(t, DefaultSendTimeout, cfg.SendTimeout)
		assert.NotNil(t, cfg.Logger)
	})

	t.Run("injected collaborators need no endpoint", func(t *testing.T) {
		cfg := Config{
			Buffer: buf,
			Sender: &mockSender{},
			Store:  newMemStore(),
		}

		require.NoError(t, cfg.normalize())
	})

	t.Run("rejects missing buffer", func(t *testing.T) {
		cfg := Config{ServerURL: "http://collector.local", SpoolDir: t.TempDir()}

		require.Error(t, cfg.normalize())
	})
}

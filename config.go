package telerelay

import (
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/hyp3rd/hyperlogger"
)

// DefaultSendTimeout is the default per-attempt timeout for the built-in
// HTTP sender.
const DefaultSendTimeout = 10 * time.Second

// Config holds the configuration for a Relay.
//
// Buffer is the only strictly required field. Sender and Store may be
// injected directly (tests, custom transports); when nil they are built
// from ServerURL and SpoolDir respectively.
type Config struct {
	// Buffer is the double buffer shared with the producer. The relay
	// borrows it, it never owns it.
	Buffer *DoubleBuffer
	// ServerURL is the collector endpoint. Used to build the default HTTP
	// sender when Sender is nil.
	ServerURL string
	// SpoolDir is the directory for spilled records. Used to build the
	// default file spool when Store is nil. Created if missing.
	SpoolDir string
	// Sender overrides the default HTTP sender.
	Sender Sender
	// Store overrides the default file spool.
	Store Store
	// SendTimeout bounds each send attempt of the default HTTP sender.
	// Ignored when Sender is set.
	SendTimeout time.Duration
	// Logger receives the relay's structured log output. A no-op logger is
	// used when nil.
	Logger hyperlogger.Logger
	// Verbose enables per-call debug logging of drain and retry activity.
	Verbose bool
}

// DefaultConfig returns a Config with default values. The caller still has
// to provide Buffer plus either ServerURL or Sender, and either SpoolDir or
// Store.
func DefaultConfig() Config {
	return Config{
		SendTimeout: DefaultSendTimeout,
		Logger:      hyperlogger.NewNoop(),
	}
}

// normalize fills defaults and reports configuration New cannot work with.
func (c *Config) normalize() error {
	if c.Buffer == nil {
		return ewrap.New("a shared double buffer is required")
	}

	if c.Sender == nil && c.ServerURL == "" {
		return ewrap.New("either a sender or a server URL is required")
	}

	if c.Store == nil && c.SpoolDir == "" {
		return ewrap.New("either a store or a spool directory is required")
	}

	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}

	if c.Logger == nil {
		c.Logger = hyperlogger.NewNoop()
	}

	return nil
}

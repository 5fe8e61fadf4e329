package configloader

import (
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/edgewire/telerelay"
)

type rawConfig struct {
	Capacity    *int           `mapstructure:"capacity"     yaml:"capacity"`
	ServerURL   string         `mapstructure:"server_url"   yaml:"server_url"`
	SpoolDir    string         `mapstructure:"spool_dir"    yaml:"spool_dir"`
	SendTimeout *time.Duration `mapstructure:"send_timeout" yaml:"send_timeout"`
	Verbose     *bool          `mapstructure:"verbose"      yaml:"verbose"`
}

func applyRaw(raw rawConfig) (*telerelay.Config, error) {
	cfg := telerelay.DefaultConfig()

	capacity := telerelay.DefaultSlotCapacity
	if raw.Capacity != nil {
		capacity = *raw.Capacity
	}

	buffer, err := telerelay.NewDoubleBuffer(capacity)
	if err != nil {
		return nil, ewrap.Wrap(err, "building shared buffer")
	}

	cfg.Buffer = buffer
	cfg.ServerURL = raw.ServerURL
	cfg.SpoolDir = raw.SpoolDir

	if raw.SendTimeout != nil {
		cfg.SendTimeout = *raw.SendTimeout
	}

	if raw.Verbose != nil {
		cfg.Verbose = *raw.Verbose
	}

	return &cfg, nil
}

func allKeys() []string {
	return []string{
		"capacity",
		"server_url",
		"spool_dir",
		"send_timeout",
		"verbose",
	}
}

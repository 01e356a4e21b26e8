// Package config holds the runtime settings, read from an optional TOML file
// and the command line.
package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/device/jack"
	"github.com/chabad360/midiosc/device/rtmidi"
	"github.com/chabad360/midiosc/logging"
	"github.com/chabad360/midiosc/midi"
)

// DefaultEndpoint is used by -s and -r when no address is given.
const DefaultEndpoint = "localhost:8953"

// Backends that may be selected. Which ones work depends on build tags.
var Backends = []string{"jack", "rtmidi", "loopback"}

// DefaultBackend is the first hardware backend built into the binary. Without
// either build tag it is still jack, so the failure names the missing tag.
func DefaultBackend() string {
	if !jack.Available && rtmidi.Available {
		return "rtmidi"
	}
	return "jack"
}

// BuiltBackends lists the backends that can be opened by this binary.
func BuiltBackends() []string {
	var out []string
	if jack.Available {
		out = append(out, "jack")
	}
	if rtmidi.Available {
		out = append(out, "rtmidi")
	}
	return append(out, "loopback")
}

// Unmatched policies.
var Policies = []string{"warn", "debug", "silent"}

// ErrNoTransport is returned when neither sending nor receiving is enabled.
var ErrNoTransport = errors.New("at least one of send or receive must be enabled")

// Config is the full runtime configuration.
type Config struct {
	// Name is the device client name.
	Name string
	// SendTo is the destination for events read from the device. Empty
	// disables sending.
	SendTo string
	// SendFrom is the local address the sending socket binds. Empty picks an
	// ephemeral port.
	SendFrom string
	// ReceiveFrom is the local address to read events from. Empty disables
	// receiving.
	ReceiveFrom string
	// Count is the number of ports per enabled direction.
	Count int
	// Backend selects the device implementation.
	Backend string

	// Address is the OSC address events are sent to and accepted from.
	Address string
	// AcceptBundles unpacks matching messages from OSC bundles.
	AcceptBundles bool
	// Unmatched controls how datagrams that carry no events are reported.
	Unmatched string
	// ReadTimeout bounds a single socket read.
	ReadTimeout time.Duration

	// QueueSize is the capacity of each direction's queue.
	QueueSize int
	// MaxEvents bounds the events per port and period.
	MaxEvents int

	// StatsInterval is how often counters are logged. Zero disables it.
	StatsInterval time.Duration
	// LogLevel is the minimum log level.
	LogLevel string
}

// Default returns the built-in configuration. Neither direction is enabled.
func Default() Config {
	return Config{
		Name:          "midiosc",
		Count:         1,
		Backend:       DefaultBackend(),
		Address:       midi.DefaultAddress,
		Unmatched:     "warn",
		ReadTimeout:   time.Second,
		QueueSize:     1024,
		MaxEvents:     bridge.DefaultMaxEvents,
		StatsInterval: bridge.DefaultStatsInterval,
		LogLevel:      "info",
	}
}

type fileConfig struct {
	Name          string `toml:"name"`
	SendTo        string `toml:"send_to"`
	SendFrom      string `toml:"send_from"`
	ReceiveFrom   string `toml:"receive_from"`
	Count         int    `toml:"count"`
	Backend       string `toml:"backend"`
	Address       string `toml:"address"`
	AcceptBundles bool   `toml:"accept_bundles"`
	Unmatched     string `toml:"unmatched"`
	ReadTimeout   string `toml:"read_timeout"`
	QueueSize     int    `toml:"queue_size"`
	MaxEvents     int    `toml:"max_events"`
	StatsInterval string `toml:"stats_interval"`
	LogLevel      string `toml:"log_level"`
}

// Load reads a TOML file over Default. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.overlay(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("name") {
		c.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("send_to") {
		c.SendTo = strings.TrimSpace(raw.SendTo)
	}
	if meta.IsDefined("send_from") {
		c.SendFrom = strings.TrimSpace(raw.SendFrom)
	}
	if meta.IsDefined("receive_from") {
		c.ReceiveFrom = strings.TrimSpace(raw.ReceiveFrom)
	}
	if meta.IsDefined("count") {
		c.Count = raw.Count
	}
	if meta.IsDefined("backend") {
		c.Backend = strings.TrimSpace(raw.Backend)
	}
	if meta.IsDefined("address") {
		c.Address = strings.TrimSpace(raw.Address)
	}
	if meta.IsDefined("accept_bundles") {
		c.AcceptBundles = raw.AcceptBundles
	}
	if meta.IsDefined("unmatched") {
		c.Unmatched = strings.TrimSpace(raw.Unmatched)
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return errors.Wrap(err, "parse read_timeout")
		}
		c.ReadTimeout = d
	}
	if meta.IsDefined("queue_size") {
		c.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("max_events") {
		c.MaxEvents = raw.MaxEvents
	}
	if meta.IsDefined("stats_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.StatsInterval))
		if err != nil {
			return errors.Wrap(err, "parse stats_interval")
		}
		c.StatsInterval = d
	}
	if meta.IsDefined("log_level") {
		c.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return nil
}

// Mode derives the bridge mode from the enabled directions.
func (c Config) Mode() (bridge.Mode, error) {
	switch {
	case c.SendTo != "" && c.ReceiveFrom != "":
		return bridge.ModeBoth, nil
	case c.SendTo != "":
		return bridge.ModeSend, nil
	case c.ReceiveFrom != "":
		return bridge.ModeReceive, nil
	default:
		return 0, ErrNoTransport
	}
}

// Validate checks every field.
func (c Config) Validate() error {
	if _, err := c.Mode(); err != nil {
		return err
	}
	switch {
	case c.Name == "":
		return errors.New("name must not be empty")
	case c.Count < 1 || c.Count > midi.MaxPorts:
		return errors.Errorf("count %d out of range [1, %d]", c.Count, midi.MaxPorts)
	case !contains(Backends, c.Backend):
		return errors.Errorf("unknown backend %q (want one of %s)", c.Backend, strings.Join(Backends, ", "))
	case !strings.HasPrefix(c.Address, "/"):
		return errors.Errorf("address %q must start with /", c.Address)
	case !contains(Policies, c.Unmatched):
		return errors.Errorf("unknown unmatched policy %q (want one of %s)", c.Unmatched, strings.Join(Policies, ", "))
	case c.ReadTimeout <= 0:
		return errors.Errorf("read timeout %v must be positive", c.ReadTimeout)
	case c.QueueSize < 1:
		return errors.Errorf("queue size %d must be positive", c.QueueSize)
	case c.MaxEvents < 1:
		return errors.Errorf("max events %d must be positive", c.MaxEvents)
	case c.StatsInterval < 0:
		return errors.Errorf("stats interval %v must not be negative", c.StatsInterval)
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return errors.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

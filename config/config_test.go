package config

import (
	"bytes"
	"flag"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/device/jack"
	"github.com/chabad360/midiosc/device/rtmidi"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "midiosc.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
name = "studio"
send_to = "10.0.0.2:9000"
send_from = " 0.0.0.0:9001 "
count = 4
stats_interval = "30s"
accept_bundles = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Name = "studio"
	want.SendTo = "10.0.0.2:9000"
	want.SendFrom = "0.0.0.0:9001"
	want.Count = 4
	want.StatsInterval = 30 * time.Second
	want.AcceptBundles = true
	assert.Equal(t, want, cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"syntax":   `name = `,
		"duration": `read_timeout = "soon"`,
		"unknown":  `colour = "blue"`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestMode(t *testing.T) {
	tests := []struct {
		send, recv string
		want       bridge.Mode
	}{
		{"a:1", "", bridge.ModeSend},
		{"", "a:1", bridge.ModeReceive},
		{"a:1", "a:2", bridge.ModeBoth},
	}
	for _, tt := range tests {
		got, err := Config{SendTo: tt.send, ReceiveFrom: tt.recv}.Mode()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := Config{}.Mode()
	assert.Equal(t, ErrNoTransport, err)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.SendTo = DefaultEndpoint
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"no_transport": func(c *Config) { c.SendTo = "" },
		"count_zero":   func(c *Config) { c.Count = 0 },
		"count_big":    func(c *Config) { c.Count = 256 },
		"backend":      func(c *Config) { c.Backend = "alsa" },
		"address":      func(c *Config) { c.Address = "midi" },
		"unmatched":    func(c *Config) { c.Unmatched = "loud" },
		"queue":        func(c *Config) { c.QueueSize = 0 },
		"max_events":   func(c *Config) { c.MaxEvents = 0 },
		"read_timeout": func(c *Config) { c.ReadTimeout = 0 },
		"stats":        func(c *Config) { c.StatsInterval = -time.Second },
		"log_level":    func(c *Config) { c.LogLevel = "chatty" },
		"name":         func(c *Config) { c.Name = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseOptionalEndpoints(t *testing.T) {
	tests := []struct {
		args       []string
		send, recv string
	}{
		{[]string{"-s"}, DefaultEndpoint, ""},
		{[]string{"-r"}, "", DefaultEndpoint},
		{[]string{"-s", "-r"}, DefaultEndpoint, DefaultEndpoint},
		{[]string{"-s=10.0.0.1:9000"}, "10.0.0.1:9000", ""},
		{[]string{"--receive-from=:7000"}, "", ":7000"},
		{[]string{"--send-to", "-r=0.0.0.0:1"}, DefaultEndpoint, "0.0.0.0:1"},
	}
	for _, tt := range tests {
		cfg, err := Parse("midiosc", tt.args, io.Discard)
		require.NoError(t, err, "%v", tt.args)
		assert.Equal(t, tt.send, cfg.SendTo, "%v", tt.args)
		assert.Equal(t, tt.recv, cfg.ReceiveFrom, "%v", tt.args)
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse("midiosc", []string{
		"-s", "-send-from", "127.0.0.1:9100", "-n", "deck", "-c", "3", "-backend", "loopback",
		"-address", "/deck/midi", "-queue", "64", "-unmatched", "silent",
		"-stats-interval", "0", "-log-level", "debug", "-accept-bundles",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "deck", cfg.Name)
	assert.Equal(t, "127.0.0.1:9100", cfg.SendFrom)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, "loopback", cfg.Backend)
	assert.Equal(t, "/deck/midi", cfg.Address)
	assert.Equal(t, 64, cfg.QueueSize)
	assert.Equal(t, "silent", cfg.Unmatched)
	assert.Equal(t, time.Duration(0), cfg.StatsInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.AcceptBundles)
}

func TestParseFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
name = "fromfile"
receive_from = ":9001"
count = 8
`)
	cfg, err := Parse("midiosc", []string{"-config", path, "-c", "2"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "fromfile", cfg.Name)
	assert.Equal(t, ":9001", cfg.ReceiveFrom)
	assert.Equal(t, 2, cfg.Count)
}

func TestParseUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"no_transport": {},
		"bad_flag":     {"-x"},
		"positional":   {"-s", "localhost:9000"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("midiosc", args, io.Discard)
			assert.Equal(t, ErrUsage, errors.Cause(err))
		})
	}
}

func TestParseInvalidValue(t *testing.T) {
	_, err := Parse("midiosc", []string{"-s", "-c", "300"}, io.Discard)
	require.Error(t, err)
	assert.NotEqual(t, ErrUsage, errors.Cause(err))
}

func TestParseHelp(t *testing.T) {
	_, err := Parse("midiosc", []string{"-h"}, io.Discard)
	assert.Equal(t, flag.ErrHelp, err)
}

func TestParseHelpListsBackends(t *testing.T) {
	var out bytes.Buffer
	_, err := Parse("midiosc", []string{"-h"}, &out)
	assert.Equal(t, flag.ErrHelp, err)
	assert.Contains(t, out.String(), "Backends in this build: ")
	assert.Contains(t, out.String(), "-tags jack")
}

func TestDefaultBackend(t *testing.T) {
	want := "jack"
	if !jack.Available && rtmidi.Available {
		want = "rtmidi"
	}
	assert.Equal(t, want, DefaultBackend())
	assert.Equal(t, want, Default().Backend)

	built := BuiltBackends()
	assert.Equal(t, "loopback", built[len(built)-1])
	assert.Equal(t, jack.Available, slices.Contains(built, "jack"))
	assert.Equal(t, rtmidi.Available, slices.Contains(built, "rtmidi"))
}

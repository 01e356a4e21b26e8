package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		ok   bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" WARNING ", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg)
	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.True(t, cfg.NoColor)
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	t.Setenv(EnvLogLevel, "nope")
	t.Setenv(EnvLogNoColor, "maybe")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnv(&cfg)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level)
	assert.False(t, cfg.NoColor)
}

func TestNewWritesAppField(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig(ProfileTest)
	cfg.Out = &buf
	logger := New("midiosc", cfg)

	logger.Info().Str("port", "input_0").Msg("registered")
	out := buf.String()
	assert.Contains(t, out, "registered")
	assert.Contains(t, out, "app=midiosc")
	assert.Contains(t, out, "port=input_0")
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig(ProfileTest)
	cfg.Out = &buf
	cfg.Level = zerolog.WarnLevel
	logger := New("midiosc", cfg)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestObserver(t *testing.T) {
	var buf bytes.Buffer
	o := Observer{Logger: ForTests(&buf)}
	o.OnInfo("port connected")
	o.OnError("xrun")
	assert.Contains(t, buf.String(), "DBG port connected")
	assert.Contains(t, buf.String(), "WRN xrun")
}

package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/device/loopback"
)

func TestNewPortTableNames(t *testing.T) {
	tests := []struct {
		mode    bridge.Mode
		inputs  []string
		outputs []string
	}{
		{bridge.ModeSend, []string{"input_0", "input_1"}, nil},
		{bridge.ModeReceive, nil, []string{"output_0", "output_1"}},
		{bridge.ModeBoth, []string{"input_0", "input_1"}, []string{"output_0", "output_1"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			table, err := bridge.NewPortTable(loopback.New("t", nil), 2, tt.mode)
			require.NoError(t, err)

			var in, out []string
			for _, p := range table.Inputs {
				in = append(in, p.Name())
			}
			for _, p := range table.Outputs {
				out = append(out, p.Name())
			}
			assert.Equal(t, tt.inputs, in)
			assert.Equal(t, tt.outputs, out)
		})
	}
}

func TestNewPortTableCount(t *testing.T) {
	for _, n := range []int{0, -1, 256} {
		_, err := bridge.NewPortTable(loopback.New("t", nil), n, bridge.ModeBoth)
		assert.Error(t, err, "count %d", n)
	}

	table, err := bridge.NewPortTable(loopback.New("t", nil), 255, bridge.ModeBoth)
	require.NoError(t, err)
	assert.Len(t, table.Inputs, 255)
	assert.Len(t, table.Outputs, 255)
}

func TestNewPortTableInvalidMode(t *testing.T) {
	_, err := bridge.NewPortTable(loopback.New("t", nil), 1, bridge.Mode(0))
	assert.Error(t, err)
}

func TestNewPortTableRegistrationError(t *testing.T) {
	dev := loopback.New("t", nil)
	require.NoError(t, dev.Close())

	_, err := bridge.NewPortTable(dev, 1, bridge.ModeSend)
	assert.ErrorIs(t, err, loopback.ErrClosed)
}

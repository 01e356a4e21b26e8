package bridge_test

import (
	"testing"

	"github.com/pkg/errors"
	metrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/device/loopback"
	"github.com/chabad360/midiosc/midi"
	"github.com/chabad360/midiosc/ring"
)

type fixture struct {
	dev      *loopback.Device
	ports    *bridge.PortTable
	outbound *ring.Queue[midi.Event]
	inbound  *ring.Queue[midi.Event]
	bridge   *bridge.Bridge
	stats    *bridge.Stats
}

func newFixture(t *testing.T, count int, mode bridge.Mode, opts bridge.Options) *fixture {
	t.Helper()
	f := &fixture{
		dev:      loopback.New("test", nil),
		outbound: ring.New[midi.Event](16),
		inbound:  ring.New[midi.Event](16),
	}
	ports, err := bridge.NewPortTable(f.dev, count, mode)
	require.NoError(t, err)
	f.ports = ports

	if opts.Stats == nil {
		opts.Stats = bridge.NewStats(metrics.NewRegistry())
	}
	f.stats = opts.Stats
	f.bridge, err = bridge.New(ports, f.outbound, f.inbound, opts)
	require.NoError(t, err)
	require.NoError(t, f.dev.Activate(f.bridge))
	return f
}

func drain(q *ring.Queue[midi.Event]) []midi.Event {
	var out []midi.Event
	for {
		e, ok := q.Poll()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func bytesOf(events []midi.Raw) [][]byte {
	var out [][]byte
	for i := range events {
		out = append(out, events[i].Bytes())
	}
	return out
}

func TestReceiveOnlyRoutesByPort(t *testing.T) {
	f := newFixture(t, 2, bridge.ModeReceive, bridge.Options{})
	require.Len(t, f.ports.Inputs, 0)
	require.Len(t, f.ports.Outputs, 2)

	require.True(t, f.inbound.Offer(midi.Event{Port: 1, Status: 0x90, Data1: 60, Data2: 100}))
	require.NoError(t, f.dev.Cycle(64))

	assert.Empty(t, f.dev.Output(0).Last())
	assert.Equal(t, [][]byte{{0x90, 60, 100}}, bytesOf(f.dev.Output(1).Last()))
	assert.Equal(t, 1, f.dev.Output(0).Writes())
	assert.Equal(t, 1, f.dev.Output(1).Writes())
	assert.Equal(t, int64(1), f.stats.Emitted.Count())
}

func TestSendOnlyTagsPort(t *testing.T) {
	f := newFixture(t, 1, bridge.ModeSend, bridge.Options{})
	require.Len(t, f.ports.Inputs, 1)
	require.Len(t, f.ports.Outputs, 0)

	f.dev.Input(0).PushBytes(0x80, 40, 0)
	require.NoError(t, f.dev.Cycle(64))

	assert.Equal(t, []midi.Event{{Port: 0, Status: 0x80, Data1: 40, Data2: 0}}, drain(f.outbound))
	assert.Equal(t, int64(1), f.stats.Forwarded.Count())
}

func TestBothModeTagsEachInput(t *testing.T) {
	f := newFixture(t, 3, bridge.ModeBoth, bridge.Options{})
	require.Len(t, f.ports.Inputs, 3)
	require.Len(t, f.ports.Outputs, 3)

	f.dev.Input(0).PushBytes(0x90, 1, 1)
	f.dev.Input(2).PushBytes(0x91, 2, 2)
	require.NoError(t, f.dev.Cycle(64))

	assert.Equal(t, []midi.Event{
		{Port: 0, Status: 0x90, Data1: 1, Data2: 1},
		{Port: 2, Status: 0x91, Data1: 2, Data2: 2},
	}, drain(f.outbound))
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, f.dev.Output(i).Writes(), "output %d", i)
	}
}

func TestInputOrderPreservedWithinPort(t *testing.T) {
	f := newFixture(t, 2, bridge.ModeSend, bridge.Options{})

	f.dev.Input(1).PushBytes(0x90, 1, 1)
	f.dev.Input(1).PushBytes(0x90, 2, 1)
	f.dev.Input(0).PushBytes(0xB0, 7, 3)
	f.dev.Input(1).PushBytes(0x80, 1, 0)
	require.NoError(t, f.dev.Cycle(64))

	var port1 []byte
	for _, e := range drain(f.outbound) {
		if e.Port == 1 {
			port1 = append(port1, e.Data1)
		} else {
			assert.Equal(t, midi.Event{Port: 0, Status: 0xB0, Data1: 7, Data2: 3}, e)
		}
	}
	assert.Equal(t, []byte{1, 2, 1}, port1)
}

func TestOutputOrderPreservedWithinPort(t *testing.T) {
	f := newFixture(t, 2, bridge.ModeReceive, bridge.Options{})
	for i := byte(0); i < 5; i++ {
		require.True(t, f.inbound.Offer(midi.Event{Port: midi.PortIndex(i % 2), Status: 0x90, Data1: i, Data2: 1}))
	}
	require.NoError(t, f.dev.Cycle(64))

	assert.Equal(t, [][]byte{{0x90, 0, 1}, {0x90, 2, 1}, {0x90, 4, 1}}, bytesOf(f.dev.Output(0).Last()))
	assert.Equal(t, [][]byte{{0x90, 1, 1}, {0x90, 3, 1}}, bytesOf(f.dev.Output(1).Last()))
}

func TestOutOfRangePortDropped(t *testing.T) {
	f := newFixture(t, 2, bridge.ModeReceive, bridge.Options{})

	require.True(t, f.inbound.Offer(midi.Event{Port: 5, Status: 0x90, Data1: 60, Data2: 100}))
	require.True(t, f.inbound.Offer(midi.Event{Port: 0, Status: 0x80, Data1: 60}))
	require.NoError(t, f.dev.Cycle(64))

	assert.Equal(t, [][]byte{{0x80, 60, 0}}, bytesOf(f.dev.Output(0).Last()))
	assert.Empty(t, f.dev.Output(1).Last())
	assert.Equal(t, int64(1), f.stats.DroppedPort.Count())

	// The bridge keeps going.
	require.True(t, f.inbound.Offer(midi.Event{Port: 1, Status: 0x90, Data1: 1, Data2: 1}))
	require.NoError(t, f.dev.Cycle(64))
	assert.Len(t, f.dev.Output(1).Last(), 1)
}

func TestUnsupportedInputCounted(t *testing.T) {
	f := newFixture(t, 1, bridge.ModeSend, bridge.Options{})

	f.dev.Input(0).PushBytes(0xF0, 0x7E, 0x7F, 0x09, 0x01, 0xF7)
	f.dev.Input(0).PushBytes(0xF8)
	f.dev.Input(0).PushBytes(0xC0, 5)
	require.NoError(t, f.dev.Cycle(64))

	assert.Equal(t, []midi.Event{{Port: 0, Status: 0xC0, Data1: 5}}, drain(f.outbound))
	assert.Equal(t, int64(2), f.stats.Unsupported.Count())
}

func TestOutboundFullDropsNewest(t *testing.T) {
	f := newFixture(t, 1, bridge.ModeSend, bridge.Options{})
	for i := 0; i < f.outbound.Cap()+3; i++ {
		f.dev.Input(0).PushBytes(0x90, byte(i), 1)
	}
	require.NoError(t, f.dev.Cycle(64))

	got := drain(f.outbound)
	require.Len(t, got, f.outbound.Cap())
	assert.Equal(t, byte(0), got[0].Data1)
	assert.Equal(t, byte(f.outbound.Cap()-1), got[len(got)-1].Data1)
	assert.Equal(t, int64(3), f.stats.DroppedOutbound.Count())
}

func TestOutputOverflowDropped(t *testing.T) {
	f := newFixture(t, 1, bridge.ModeReceive, bridge.Options{MaxEvents: 2})
	for i := byte(0); i < 4; i++ {
		require.True(t, f.inbound.Offer(midi.Event{Status: 0x90, Data1: i, Data2: 1}))
	}
	require.NoError(t, f.dev.Cycle(64))

	assert.Len(t, f.dev.Output(0).Last(), 2)
	assert.Equal(t, int64(2), f.stats.DroppedOverflow.Count())
}

func TestStopClearsOutputs(t *testing.T) {
	f := newFixture(t, 1, bridge.ModeBoth, bridge.Options{})
	f.bridge.Stop()
	assert.True(t, f.bridge.Stopped())

	f.dev.Input(0).PushBytes(0x90, 1, 1)
	require.True(t, f.inbound.Offer(midi.Event{Status: 0x90, Data1: 2, Data2: 1}))
	require.NoError(t, f.dev.Cycle(64))

	assert.Empty(t, drain(f.outbound))
	assert.Empty(t, f.dev.Output(0).Last())
	assert.Equal(t, 1, f.dev.Output(0).Writes())
}

type failingPort struct{ name string }

func (p failingPort) Name() string { return p.name }

func (p failingPort) WriteEvents(uint32, []midi.Raw) error {
	return errors.New("port gone")
}

func TestWriteErrorCounted(t *testing.T) {
	stats := bridge.NewStats(metrics.NewRegistry())
	ports := &bridge.PortTable{Outputs: []bridge.OutputPort{failingPort{"output_0"}}}
	inbound := ring.New[midi.Event](4)
	b, err := bridge.New(ports, nil, inbound, bridge.Options{Stats: stats})
	require.NoError(t, err)

	inbound.Offer(midi.Event{Status: 0x90, Data1: 1, Data2: 1})
	assert.NoError(t, b.Process(64))
	assert.NoError(t, b.Process(64))
	assert.Equal(t, int64(2), stats.WriteErrors.Count())
}

func TestNewValidatesQueues(t *testing.T) {
	f := newFixture(t, 1, bridge.ModeBoth, bridge.Options{})

	_, err := bridge.New(f.ports, nil, f.inbound, bridge.Options{})
	assert.Error(t, err)
	_, err = bridge.New(f.ports, f.outbound, nil, bridge.Options{})
	assert.Error(t, err)
	_, err = bridge.New(nil, f.outbound, f.inbound, bridge.Options{})
	assert.Error(t, err)
}

type staticInput struct{ events []midi.Raw }

func (p *staticInput) Name() string { return "input_0" }

func (p *staticInput) ReadEvents(_ uint32, dst []midi.Raw) []midi.Raw {
	return append(dst, p.events...)
}

type discardOutput struct{}

func (discardOutput) Name() string                          { return "output_0" }
func (discardOutput) WriteEvents(uint32, []midi.Raw) error { return nil }

func TestProcessDoesNotAllocate(t *testing.T) {
	in := &staticInput{events: []midi.Raw{
		midi.NewRaw(0, []byte{0x90, 60, 100}),
		midi.NewRaw(3, []byte{0x80, 60, 0}),
	}}
	ports := &bridge.PortTable{
		Inputs:  []bridge.InputPort{in},
		Outputs: []bridge.OutputPort{discardOutput{}},
	}
	q := ring.New[midi.Event](64)
	b, err := bridge.New(ports, q, q, bridge.Options{Stats: bridge.NewStats(metrics.NewRegistry())})
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(100, func() {
		_ = b.Process(64)
	})
	assert.Zero(t, allocs)
}

package bridge

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/midi"
	"github.com/chabad360/midiosc/ring"
)

// DefaultMaxEvents is the default number of events buffered per port and period.
const DefaultMaxEvents = 256

// Queue is the part of ring.Queue the realtime side may use.
type Queue interface {
	Offer(e midi.Event) bool
	Poll() (midi.Event, bool)
	Cap() int
}

var _ Queue = (*ring.Queue[midi.Event])(nil)

// Options configure a Bridge.
type Options struct {
	// MaxEvents bounds the events read from one input or written to one
	// output per period. Defaults to DefaultMaxEvents.
	MaxEvents int
	// Stats receives the counters. Defaults to NewStats(nil).
	Stats *Stats
}

// Bridge is the Processor that moves events between the ports and the queues.
type Bridge struct {
	ports    *PortTable
	outbound Queue
	inbound  Queue
	stats    *Stats

	in  []midi.Raw
	out [][]midi.Raw

	stopped atomic.Bool
}

// New creates a Bridge. outbound receives events read from ports.Inputs and
// may be nil when there are none; inbound feeds ports.Outputs and may be nil
// when there are none. All buffers are allocated here.
func New(ports *PortTable, outbound, inbound Queue, opts Options) (*Bridge, error) {
	if ports == nil {
		return nil, errors.New("bridge: nil port table")
	}
	if len(ports.Inputs) > 0 && outbound == nil {
		return nil, errors.New("bridge: input ports without an outbound queue")
	}
	if len(ports.Outputs) > 0 && inbound == nil {
		return nil, errors.New("bridge: output ports without an inbound queue")
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = DefaultMaxEvents
	}
	if opts.Stats == nil {
		opts.Stats = NewStats(nil)
	}

	b := &Bridge{
		ports:    ports,
		outbound: outbound,
		inbound:  inbound,
		stats:    opts.Stats,
		in:       make([]midi.Raw, 0, opts.MaxEvents),
		out:      make([][]midi.Raw, len(ports.Outputs)),
	}
	for i := range b.out {
		b.out[i] = make([]midi.Raw, 0, opts.MaxEvents)
	}
	return b, nil
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() *Stats {
	return b.stats
}

// Stop makes every following period forward nothing. Output ports are still
// cleared each period.
func (b *Bridge) Stop() {
	b.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (b *Bridge) Stopped() bool {
	return b.stopped.Load()
}

// Process runs one period. It is called from the device's realtime thread
// and always returns nil; failures only show up in the counters.
func (b *Bridge) Process(frames uint32) error {
	if b.stopped.Load() {
		for _, o := range b.ports.Outputs {
			if err := o.WriteEvents(frames, nil); err != nil {
				b.stats.WriteErrors.Inc(1)
			}
		}
		return nil
	}

	b.readInputs(frames)
	b.drainInbound()

	for i, o := range b.ports.Outputs {
		if err := o.WriteEvents(frames, b.out[i]); err != nil {
			b.stats.WriteErrors.Inc(1)
			continue
		}
		if n := len(b.out[i]); n > 0 {
			b.stats.Emitted.Inc(int64(n))
		}
	}
	return nil
}

func (b *Bridge) readInputs(frames uint32) {
	for i, p := range b.ports.Inputs {
		b.in = p.ReadEvents(frames, b.in[:0])
		for _, r := range b.in {
			e, ok := midi.FromRaw(midi.PortIndex(i), r)
			if !ok {
				b.stats.Unsupported.Inc(1)
				continue
			}
			if !b.outbound.Offer(e) {
				b.stats.DroppedOutbound.Inc(1)
				continue
			}
			b.stats.Forwarded.Inc(1)
		}
	}
}

// drainInbound sorts the waiting inbound events by output port. It takes at
// most one queue's worth so a busy producer can't hold the period open.
func (b *Bridge) drainInbound() {
	for i := range b.out {
		b.out[i] = b.out[i][:0]
	}
	if b.inbound == nil {
		return
	}

	for n := b.inbound.Cap(); n > 0; n-- {
		e, ok := b.inbound.Poll()
		if !ok {
			return
		}
		if int(e.Port) >= len(b.out) {
			b.stats.DroppedPort.Inc(1)
			continue
		}
		buf := b.out[e.Port]
		if len(buf) == cap(buf) {
			b.stats.DroppedOverflow.Inc(1)
			continue
		}
		b.out[e.Port] = append(buf, e.Raw(0))
	}
}

// Package loopback is an in-memory device. Events are pushed into its input
// ports by hand and collected from its output ports, and periods run when
// Cycle is called or on a timer while Run is active. With Echo set, whatever
// is written to output i comes back on input i in the next period.
package loopback

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/midi"
)

const (
	// DefaultFrames is the period size used by Run.
	DefaultFrames = 256
	// DefaultPeriod is the period duration used by Run, about 256 frames at 48kHz.
	DefaultPeriod = 5333 * time.Microsecond

	maxEmitted = 4096
)

var (
	// ErrActive is returned when ports are registered on an active device.
	ErrActive = errors.New("loopback: device is active")
	// ErrNotActive is returned by Cycle and Run before Activate.
	ErrNotActive = errors.New("loopback: device is not active")
	// ErrClosed is returned once the device is closed.
	ErrClosed = errors.New("loopback: device closed")
)

// Device is an in-memory bridge.Device.
type Device struct {
	Name   string
	Echo   bool
	Period time.Duration
	Frames uint32

	mu      sync.Mutex
	obs     bridge.Observer
	inputs  []*InputPort
	outputs []*OutputPort
	names   map[string]bool
	proc    bridge.Processor
	closed  bool
}

// New returns a device named name. obs may be nil.
func New(name string, obs bridge.Observer) *Device {
	if obs == nil {
		obs = bridge.NopObserver{}
	}
	return &Device{
		Name:   name,
		Period: DefaultPeriod,
		Frames: DefaultFrames,
		obs:    obs,
		names:  make(map[string]bool),
	}
}

// RegisterPort implements bridge.Device.
func (d *Device) RegisterPort(name string, dir bridge.Direction) (bridge.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return nil, ErrClosed
	case d.proc != nil:
		return nil, ErrActive
	case d.names[name]:
		return nil, errors.Errorf("loopback: port %q already registered", name)
	}

	var p bridge.Port
	switch dir {
	case bridge.Input:
		in := &InputPort{name: name}
		d.inputs = append(d.inputs, in)
		p = in
	case bridge.Output:
		out := &OutputPort{name: name}
		d.outputs = append(d.outputs, out)
		p = out
	default:
		return nil, errors.Errorf("loopback: invalid direction %v", dir)
	}
	d.names[name] = true
	d.obs.OnInfo("registered port " + d.Name + ":" + name)
	return p, nil
}

// Activate implements bridge.Device.
func (d *Device) Activate(p bridge.Processor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return ErrClosed
	case d.proc != nil:
		return ErrActive
	}
	d.proc = p
	d.obs.OnInfo("activated " + d.Name)
	return nil
}

// Close implements bridge.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.proc = nil
	d.obs.OnInfo("closed " + d.Name)
	return nil
}

// Active reports whether a processor is attached.
func (d *Device) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.proc != nil
}

// Input returns the i-th registered input port.
func (d *Device) Input(i int) *InputPort {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inputs[i]
}

// Output returns the i-th registered output port.
func (d *Device) Output(i int) *OutputPort {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outputs[i]
}

// Cycle runs a single period of the given size.
func (d *Device) Cycle(frames uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.closed:
		return ErrClosed
	case d.proc == nil:
		return ErrNotActive
	}

	for _, in := range d.inputs {
		in.begin()
	}
	if err := d.proc.Process(frames); err != nil {
		d.obs.OnError("process: " + err.Error())
	}
	if d.Echo {
		for i, out := range d.outputs {
			if i < len(d.inputs) {
				d.inputs[i].Push(out.Last()...)
			}
		}
	}
	return nil
}

// Run calls Cycle every Period until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	period := d.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	frames := d.Frames
	if frames == 0 {
		frames = DefaultFrames
	}

	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := d.Cycle(frames); err != nil {
				if errors.Cause(err) == ErrClosed {
					return nil
				}
				return err
			}
		}
	}
}

// InputPort is a loopback input. Pushed events are delivered in the next period.
type InputPort struct {
	name string

	mu      sync.Mutex
	pending []midi.Raw
	current []midi.Raw
}

func (p *InputPort) Name() string { return p.name }

// Push queues raw events for the next period.
func (p *InputPort) Push(events ...midi.Raw) {
	p.mu.Lock()
	p.pending = append(p.pending, events...)
	p.mu.Unlock()
}

// PushBytes queues one event given as raw bytes.
func (p *InputPort) PushBytes(b ...byte) {
	p.Push(midi.NewRaw(0, b))
}

func (p *InputPort) begin() {
	p.mu.Lock()
	p.current, p.pending = p.pending, p.current[:0]
	p.mu.Unlock()
}

// ReadEvents implements bridge.InputPort.
func (p *InputPort) ReadEvents(_ uint32, dst []midi.Raw) []midi.Raw {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.current)
	if free := cap(dst) - len(dst); n > free {
		n = free
	}
	return append(dst, p.current[:n]...)
}

// OutputPort is a loopback output that records what is written to it.
type OutputPort struct {
	name string

	mu      sync.Mutex
	writes  int
	last    []midi.Raw
	emitted []midi.Raw
}

func (p *OutputPort) Name() string { return p.name }

// WriteEvents implements bridge.OutputPort.
func (p *OutputPort) WriteEvents(_ uint32, events []midi.Raw) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	p.last = append(p.last[:0], events...)
	p.emitted = append(p.emitted, events...)
	if over := len(p.emitted) - maxEmitted; over > 0 {
		p.emitted = append(p.emitted[:0], p.emitted[over:]...)
	}
	return nil
}

// Writes is the number of WriteEvents calls so far.
func (p *OutputPort) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Last returns a copy of the events written in the most recent period.
func (p *OutputPort) Last() []midi.Raw {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]midi.Raw(nil), p.last...)
}

// Take returns and forgets everything written since the previous Take.
func (p *OutputPort) Take() []midi.Raw {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.emitted
	p.emitted = nil
	return out
}

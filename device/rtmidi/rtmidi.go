//go:build rtmidi

package rtmidi

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/midi"
	"github.com/chabad360/midiosc/ring"
)

// Available reports whether this build includes the backend.
const Available = true

// Device exposes one virtual rtmidi port per registered port and runs
// periods from a ticker.
type Device struct {
	Name   string
	Period time.Duration
	Frames uint32

	driver *rtmididrv.Driver
	obs    bridge.Observer

	mu      sync.Mutex
	proc    bridge.Processor
	inputs  []*inputPort
	outputs []*outputPort
}

// Open creates the rtmidi driver. Ports are named "<name> <port>".
func Open(name string, obs bridge.Observer) (bridge.Device, error) {
	if obs == nil {
		obs = bridge.NopObserver{}
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, errors.Wrap(err, "open rtmidi driver")
	}
	return &Device{
		Name:   name,
		Period: DefaultPeriod,
		Frames: DefaultFrames,
		driver: drv,
		obs:    obs,
	}, nil
}

// RegisterPort implements bridge.Device.
func (d *Device) RegisterPort(name string, dir bridge.Direction) (bridge.Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc != nil {
		return nil, errors.New("rtmidi: device is active")
	}

	full := d.Name + " " + name
	switch dir {
	case bridge.Input:
		in, err := d.driver.OpenVirtualIn(full)
		if err != nil {
			return nil, errors.Wrapf(err, "open virtual input %q", full)
		}
		p := &inputPort{name: name, in: in, queue: ring.New[midi.Raw](pendingEvents)}
		stop, err := in.Listen(p.receive, drivers.ListenConfig{
			OnErr: func(err error) { d.obs.OnError(full + ": " + err.Error()) },
		})
		if err != nil {
			in.Close()
			return nil, errors.Wrapf(err, "listen on %q", full)
		}
		p.stop = stop
		d.inputs = append(d.inputs, p)
		d.obs.OnInfo("opened virtual input " + full)
		return p, nil

	case bridge.Output:
		out, err := d.driver.OpenVirtualOut(full)
		if err != nil {
			return nil, errors.Wrapf(err, "open virtual output %q", full)
		}
		p := &outputPort{name: name, out: out}
		d.outputs = append(d.outputs, p)
		d.obs.OnInfo("opened virtual output " + full)
		return p, nil

	default:
		return nil, errors.Errorf("rtmidi: invalid direction %v", dir)
	}
}

// Activate implements bridge.Device. Periods start with Run.
func (d *Device) Activate(p bridge.Processor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc != nil {
		return errors.New("rtmidi: already active")
	}
	d.proc = p
	return nil
}

// Run calls the processor every Period until ctx is done.
func (d *Device) Run(ctx context.Context) error {
	d.mu.Lock()
	proc := d.proc
	d.mu.Unlock()
	if proc == nil {
		return errors.New("rtmidi: not active")
	}

	t := time.NewTicker(d.Period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := proc.Process(d.Frames); err != nil {
				d.obs.OnError("process: " + err.Error())
			}
		}
	}
}

// Close implements bridge.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.inputs {
		p.stop()
		p.in.Close()
	}
	for _, p := range d.outputs {
		p.out.Close()
	}
	d.inputs, d.outputs = nil, nil
	return errors.Wrap(d.driver.Close(), "close rtmidi driver")
}

type inputPort struct {
	name  string
	in    drivers.In
	stop  func()
	queue *ring.Queue[midi.Raw]
}

func (p *inputPort) Name() string { return p.name }

func (p *inputPort) receive(msg []byte, _ int32) {
	// A full queue means the bridge is far behind; the event is lost.
	p.queue.Offer(midi.NewRaw(0, msg))
}

// ReadEvents implements bridge.InputPort.
func (p *inputPort) ReadEvents(_ uint32, dst []midi.Raw) []midi.Raw {
	for len(dst) < cap(dst) {
		r, ok := p.queue.Poll()
		if !ok {
			break
		}
		dst = append(dst, r)
	}
	return dst
}

type outputPort struct {
	name string
	out  drivers.Out
}

func (p *outputPort) Name() string { return p.name }

// WriteEvents implements bridge.OutputPort. Events go out immediately.
func (p *outputPort) WriteEvents(_ uint32, events []midi.Raw) error {
	var first error
	for i := range events {
		b := events[i].Bytes()
		if len(b) == 0 {
			continue
		}
		if err := p.out.Send(b); err != nil && first == nil {
			first = err
		}
	}
	return first
}

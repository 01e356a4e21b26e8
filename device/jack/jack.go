//go:build jack

package jack

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	gojack "github.com/xthexder/go-jack"

	"github.com/chabad360/midiosc/bridge"
	"github.com/chabad360/midiosc/midi"
)

// Available reports whether this build includes the backend.
const Available = true

// ErrShutdown is returned by Run when the JACK server goes away.
var ErrShutdown = errors.New("jack: server shut down")

// Device is a JACK client.
type Device struct {
	client *gojack.Client
	obs    bridge.Observer

	mu       sync.Mutex
	proc     bridge.Processor
	shutdown chan struct{}
	once     sync.Once
}

// Open connects to a running JACK server as client name. JACK's own info
// and error messages are routed to obs.
func Open(name string, obs bridge.Observer) (bridge.Device, error) {
	if obs == nil {
		obs = bridge.NopObserver{}
	}
	gojack.SetInfoFunction(obs.OnInfo)
	gojack.SetErrorFunction(obs.OnError)

	client, status := gojack.ClientOpen(name, gojack.NoStartServer)
	if status != 0 {
		return nil, errors.Wrapf(gojack.StrError(status), "open jack client %q", name)
	}
	if client == nil {
		return nil, errors.Errorf("open jack client %q: no client", name)
	}

	d := &Device{
		client:   client,
		obs:      obs,
		shutdown: make(chan struct{}),
	}
	client.OnShutdown(func() {
		obs.OnError("jack server shut down")
		d.once.Do(func() { close(d.shutdown) })
	})
	return d, nil
}

// RegisterPort implements bridge.Device.
func (d *Device) RegisterPort(name string, dir bridge.Direction) (bridge.Port, error) {
	var p *gojack.Port
	switch dir {
	case bridge.Input:
		p = d.client.PortRegister(name, gojack.DEFAULT_MIDI_TYPE, gojack.PortIsInput, 0)
	case bridge.Output:
		p = d.client.PortRegister(name, gojack.DEFAULT_MIDI_TYPE, gojack.PortIsOutput, 0)
	default:
		return nil, errors.Errorf("jack: invalid direction %v", dir)
	}
	if p == nil {
		return nil, errors.Errorf("jack: could not register port %q", name)
	}
	if dir == bridge.Input {
		return &inputPort{port: p, name: name}, nil
	}
	return &outputPort{port: p, name: name}, nil
}

// Activate implements bridge.Device.
func (d *Device) Activate(p bridge.Processor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc != nil {
		return errors.New("jack: already active")
	}
	d.proc = p

	if code := d.client.SetProcessCallback(d.process); code != 0 {
		return errors.Wrap(gojack.StrError(code), "set process callback")
	}
	if code := d.client.Activate(); code != 0 {
		return errors.Wrap(gojack.StrError(code), "activate")
	}
	return nil
}

func (d *Device) process(frames uint32) int {
	if err := d.proc.Process(frames); err != nil {
		return 1
	}
	return 0
}

// Run waits until ctx is done or the server shuts down.
func (d *Device) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-d.shutdown:
		return ErrShutdown
	}
}

// Close implements bridge.Device.
func (d *Device) Close() error {
	if code := d.client.Close(); code != 0 {
		return errors.Wrap(gojack.StrError(code), "close jack client")
	}
	return nil
}

type inputPort struct {
	port *gojack.Port
	name string
}

func (p *inputPort) Name() string { return p.name }

// ReadEvents implements bridge.InputPort. go-jack copies every event into Go
// memory, so this is the one place a period allocates.
func (p *inputPort) ReadEvents(frames uint32, dst []midi.Raw) []midi.Raw {
	for _, ev := range p.port.GetMidiEvents(frames) {
		if len(dst) == cap(dst) {
			break
		}
		dst = append(dst, midi.NewRaw(ev.Time, ev.Buffer))
	}
	return dst
}

type outputPort struct {
	port *gojack.Port
	name string
	data gojack.MidiData
	buf  [3]byte
}

func (p *outputPort) Name() string { return p.name }

// WriteEvents implements bridge.OutputPort.
func (p *outputPort) WriteEvents(frames uint32, events []midi.Raw) error {
	p.port.MidiClearBuffer(frames)

	var failed int
	for i := range events {
		n := copy(p.buf[:], events[i].Bytes())
		if n == 0 {
			continue
		}
		p.data.Time = events[i].Time
		p.data.Buffer = p.buf[:n]
		if p.port.MidiEventWrite(&p.data, frames) != 0 {
			failed++
		}
	}
	if failed > 0 {
		return errWriteFailed
	}
	return nil
}

var errWriteFailed = errors.New("jack: midi event write failed")

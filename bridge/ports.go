package bridge

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/midi"
)

// Mode selects which directions are bridged.
type Mode int

const (
	// ModeSend forwards device input to the network.
	ModeSend Mode = iota + 1
	// ModeReceive forwards network input to the device.
	ModeReceive
	// ModeBoth does both.
	ModeBoth
)

// Sends reports whether input ports are registered.
func (m Mode) Sends() bool { return m == ModeSend || m == ModeBoth }

// Receives reports whether output ports are registered.
func (m Mode) Receives() bool { return m == ModeReceive || m == ModeBoth }

func (m Mode) String() string {
	switch m {
	case ModeSend:
		return "send"
	case ModeReceive:
		return "receive"
	case ModeBoth:
		return "both"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// PortTable holds the registered ports. Slice position is the PortIndex used
// on the wire. It is read only once built.
type PortTable struct {
	Inputs  []InputPort
	Outputs []OutputPort
}

// InputName is the device name of input port i.
func InputName(i int) string { return fmt.Sprintf("input_%d", i) }

// OutputName is the device name of output port i.
func OutputName(i int) string { return fmt.Sprintf("output_%d", i) }

// NewPortTable registers count ports per enabled direction on dev, inputs
// first, named input_<i> and output_<i>.
func NewPortTable(dev Device, count int, mode Mode) (*PortTable, error) {
	if count < 1 || count > midi.MaxPorts {
		return nil, errors.Errorf("port count %d out of range [1, %d]", count, midi.MaxPorts)
	}
	if !mode.Sends() && !mode.Receives() {
		return nil, errors.Errorf("invalid mode %v", mode)
	}

	t := &PortTable{}
	if mode.Sends() {
		t.Inputs = make([]InputPort, 0, count)
		for i := 0; i < count; i++ {
			p, err := dev.RegisterPort(InputName(i), Input)
			if err != nil {
				return nil, errors.Wrapf(err, "register %s", InputName(i))
			}
			in, ok := p.(InputPort)
			if !ok {
				return nil, errors.Errorf("register %s: %T is not an input port", InputName(i), p)
			}
			t.Inputs = append(t.Inputs, in)
		}
	}
	if mode.Receives() {
		t.Outputs = make([]OutputPort, 0, count)
		for i := 0; i < count; i++ {
			p, err := dev.RegisterPort(OutputName(i), Output)
			if err != nil {
				return nil, errors.Wrapf(err, "register %s", OutputName(i))
			}
			out, ok := p.(OutputPort)
			if !ok {
				return nil, errors.Errorf("register %s: %T is not an output port", OutputName(i), p)
			}
			t.Outputs = append(t.Outputs, out)
		}
	}
	return t, nil
}

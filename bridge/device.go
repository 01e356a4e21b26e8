// Package bridge moves MIDI events between a realtime device callback and the
// network workers.
//
// The device calls Process once per period. Process reads every input port
// into the outbound queue and writes everything waiting in the inbound queue
// to the output ports. It never blocks, allocates or logs.
package bridge

import (
	"fmt"

	"github.com/chabad360/midiosc/midi"
)

// Direction is the data direction of a device port as seen by the device.
type Direction int

const (
	// Input ports deliver events from the device bus.
	Input Direction = iota
	// Output ports emit events onto the device bus.
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Port is a registered device port.
type Port interface {
	Name() string
}

// InputPort is a port events are read from.
type InputPort interface {
	Port
	// ReadEvents appends the events of the current period, in time order, to
	// dst and returns it. It stops at cap(dst) and never allocates.
	ReadEvents(frames uint32, dst []midi.Raw) []midi.Raw
}

// OutputPort is a port events are written to.
type OutputPort interface {
	Port
	// WriteEvents replaces the port's events for the current period. An
	// empty events slice clears the period.
	WriteEvents(frames uint32, events []midi.Raw) error
}

// Processor is invoked by a Device once per period from its realtime thread.
type Processor interface {
	Process(frames uint32) error
}

// Device is an audio or MIDI backend that owns the realtime thread.
type Device interface {
	// RegisterPort creates a port. The returned value implements InputPort or
	// OutputPort according to dir.
	RegisterPort(name string, dir Direction) (Port, error)
	// Activate starts calling p once per period.
	Activate(p Processor) error
	// Close stops processing and releases the device.
	Close() error
}

// Observer receives informational and error messages from a device.
type Observer interface {
	OnInfo(msg string)
	OnError(msg string)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) OnInfo(string)  {}
func (NopObserver) OnError(string) {}

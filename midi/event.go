// Package midi holds the port-tagged MIDI event exchanged between the device
// bridge and the network workers, and its OSC wire codec.
package midi

import (
	"fmt"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
)

// MaxPorts is the largest number of ports per direction.
const MaxPorts = 255

// Status nibbles for the channel messages carried by the bridge.
const (
	NoteOff         byte = 0x80
	NoteOn          byte = 0x90
	PolyAftertouch  byte = 0xA0
	ControlChange   byte = 0xB0
	ProgramChange   byte = 0xC0
	ChannelPressure byte = 0xD0
	PitchBend       byte = 0xE0
)

// ErrInvalidEvent is returned for events that are not well formed channel messages.
var ErrInvalidEvent = errors.New("midi: invalid event")

// PortIndex identifies one input or one output port. Indexes are assigned in
// registration order and never change.
type PortIndex uint8

// Event is a channel message tagged with the port it came from or is going to.
type Event struct {
	Port   PortIndex
	Status byte
	Data1  byte
	Data2  byte
}

// Valid reports whether e is a channel message with 7-bit data bytes.
// It never allocates.
func (e Event) Valid() bool {
	return e.Status&0x80 != 0 && e.Status < 0xF0 && e.Data1&0x80 == 0 && e.Data2&0x80 == 0
}

// Validate is Valid with a descriptive error.
func (e Event) Validate() error {
	switch {
	case e.Status&0x80 == 0:
		return errors.Wrapf(ErrInvalidEvent, "status %#02x is a data byte", e.Status)
	case e.Status >= 0xF0:
		return errors.Wrapf(ErrInvalidEvent, "status %#02x is not a channel message", e.Status)
	case e.Data1&0x80 != 0 || e.Data2&0x80 != 0:
		return errors.Wrapf(ErrInvalidEvent, "data bytes %#02x %#02x out of range", e.Data1, e.Data2)
	}
	return nil
}

// Channel returns the zero based MIDI channel.
func (e Event) Channel() uint8 {
	return e.Status & 0x0F
}

// Size is the length of the message on the device: 2 for program change and
// channel pressure, 3 otherwise.
func (e Event) Size() int {
	switch e.Status & 0xF0 {
	case ProgramChange, ChannelPressure:
		return 2
	default:
		return 3
	}
}

// Bytes returns the three message bytes. Two byte messages have Data2 set to 0.
func (e Event) Bytes() [3]byte {
	return [3]byte{e.Status, e.Data1, e.Data2}
}

// Raw converts e to a device event at the given frame offset.
func (e Event) Raw(time uint32) Raw {
	return Raw{Time: time, Data: e.Bytes(), Len: uint8(e.Size())}
}

func (e Event) String() string {
	b := e.Bytes()
	return fmt.Sprintf("port %d: %s", e.Port, gomidi.Message(b[:e.Size()]))
}

// Raw is a single device event within one processing period. Data holds at
// most the first three bytes; Len is the length the device reported, capped
// at 255, so oversized (SysEx) events can be recognised and skipped.
type Raw struct {
	Time uint32
	Data [3]byte
	Len  uint8
}

// NewRaw copies b into a Raw at frame offset time.
func NewRaw(time uint32, b []byte) Raw {
	r := Raw{Time: time}
	copy(r.Data[:], b)
	if len(b) > 255 {
		r.Len = 255
	} else {
		r.Len = uint8(len(b))
	}
	return r
}

// Bytes returns the event bytes, or nil when the event doesn't fit in a Raw.
func (r *Raw) Bytes() []byte {
	if r.Len > 3 {
		return nil
	}
	return r.Data[:r.Len]
}

// FromRaw tags r with port. It reports false when r is not a complete channel
// message. It never allocates.
func FromRaw(port PortIndex, r Raw) (Event, bool) {
	if r.Len < 2 || r.Len > 3 {
		return Event{}, false
	}
	e := Event{Port: port, Status: r.Data[0], Data1: r.Data[1]}
	if r.Len == 3 {
		e.Data2 = r.Data[2]
	}
	if int(r.Len) != e.Size() || !e.Valid() {
		return Event{}, false
	}
	return e, true
}

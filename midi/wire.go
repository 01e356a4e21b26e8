package midi

import (
	"github.com/pkg/errors"

	"github.com/chabad360/midiosc/osc"
)

// DefaultAddress is the OSC address MIDI events are sent to and accepted from.
const DefaultAddress = "/midi"

var (
	// ErrAddressMismatch is returned for messages sent to another OSC address.
	ErrAddressMismatch = errors.New("midi: address mismatch")
	// ErrNotMessage is returned for bundles when bundles aren't accepted.
	ErrNotMessage = errors.New("midi: packet is not a message")
	// ErrNoEvents is returned for matching packets without any MIDI argument.
	ErrNoEvents = errors.New("midi: packet carries no MIDI arguments")
)

// Codec converts Events to OSC packets at a fixed address and back.
// The zero value uses DefaultAddress and rejects bundles.
type Codec struct {
	Address string
	// AcceptBundles unpacks matching messages from bundles, ignoring the time tag.
	AcceptBundles bool
}

// NewCodec returns a codec for addr, or DefaultAddress when addr is empty.
func NewCodec(addr string) *Codec {
	return &Codec{Address: addr}
}

// OSCAddress is the address in effect.
func (c *Codec) OSCAddress() string {
	if c.Address == "" {
		return DefaultAddress
	}
	return c.Address
}

// Message wraps e in an OSC message.
func (c *Codec) Message(e Event) *osc.Message {
	return osc.NewMessage(c.OSCAddress(), osc.MIDI{
		Port:   byte(e.Port),
		Status: e.Status,
		Data1:  e.Data1,
		Data2:  e.Data2,
	})
}

// Encode returns the datagram for e.
func (c *Codec) Encode(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b, err := c.Message(e).MarshalBinary()
	return b, errors.Wrap(err, "encode")
}

// Decode parses a datagram and returns the events it carries. It doesn't
// modify data.
func (c *Codec) Decode(data []byte) ([]Event, error) {
	p, err := osc.ParsePacket(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return c.Events(p)
}

// Events extracts every MIDI argument of a matching packet. Arguments of
// other types are skipped. A single invalid MIDI argument rejects the packet.
func (c *Codec) Events(p osc.Packet) ([]Event, error) {
	switch t := p.(type) {
	case *osc.Message:
		return c.messageEvents(t)

	case *osc.Bundle:
		if !c.AcceptBundles {
			return nil, ErrNotMessage
		}
		var out []Event
		for _, m := range t.Messages() {
			if m.Address != c.OSCAddress() {
				continue
			}
			evs, err := c.messageEvents(m)
			if err != nil && errors.Cause(err) != ErrNoEvents {
				return nil, err
			}
			out = append(out, evs...)
		}
		if len(out) == 0 {
			return nil, ErrNoEvents
		}
		return out, nil

	default:
		return nil, ErrNotMessage
	}
}

func (c *Codec) messageEvents(m *osc.Message) ([]Event, error) {
	if m.Address != c.OSCAddress() {
		return nil, errors.Wrapf(ErrAddressMismatch, "got %q, want %q", m.Address, c.OSCAddress())
	}

	var out []Event
	for _, arg := range m.Arguments {
		v, ok := arg.(osc.MIDI)
		if !ok {
			continue
		}
		e := Event{Port: PortIndex(v.Port), Status: v.Status, Data1: v.Data1, Data2: v.Data2}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, ErrNoEvents
	}
	return out, nil
}

package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Message represents a single OSC message. An OSC message consists of an OSC
// address pattern and zero or more arguments.
type Message struct {
	Address   string
	Arguments []interface{}
}

// Verify that Messages implements the Packet interface.
var _ Packet = (*Message)(nil)

// NewMessage returns a new Message. The address parameter is the OSC address.
func NewMessage(addr string, args ...interface{}) *Message {
	return &Message{Address: addr, Arguments: args}
}

// Clear clears the OSC address and all arguments, keeping the argument storage.
func (m *Message) Clear() {
	m.Address = ""
	m.Arguments = m.Arguments[:0]
}

// Append appends the given arguments to the arguments list.
func (m *Message) Append(args ...interface{}) error {
	for _, a := range args {
		if ToTypeTag(a) == TypeInvalid {
			return fmt.Errorf("Append: unsupported type: %T", a)
		}
	}
	m.Arguments = append(m.Arguments, args...)
	return nil
}

// TypeTags returns the type tag string.
func (m *Message) TypeTags() (string, error) {
	if m == nil {
		return "", fmt.Errorf("TypeTags: message is nil")
	}

	return GetTypeTag(m.Arguments)
}

// String implements the fmt.Stringer interface.
func (m *Message) String() string {
	if m == nil {
		return ""
	}

	tags, _ := m.TypeTags()

	strBuf := bufPool.Get().(*bytes.Buffer)
	defer bufPool.Put(strBuf)
	strBuf.Reset()

	strBuf.WriteString(m.Address)
	if len(tags) <= 1 {
		return strBuf.String()
	}

	strBuf.WriteByte(' ')
	strBuf.WriteString(tags)

	for _, arg := range m.Arguments {
		switch arg := arg.(type) {
		case bool, int32, int64, float32, float64, string:
			fmt.Fprintf(strBuf, " %v", arg)

		case nil:
			strBuf.WriteString(" Nil")

		case []byte:
			strBuf.WriteString(" blob")

		case Timetag:
			fmt.Fprintf(strBuf, " %d", arg.TimeTag())

		case MIDI:
			fmt.Fprintf(strBuf, " %s", arg)
		}
	}

	return strBuf.String()
}

// size returns the encoded length of the message.
func (m *Message) size() (int, error) {
	n := paddedStringSize(m.Address) + typeTagsSize(len(m.Arguments))
	for _, arg := range m.Arguments {
		switch t := arg.(type) {
		default:
			return 0, fmt.Errorf("MarshalBinary: unsupported type: %T", t)
		case bool, nil:
		case int32, float32, MIDI:
			n += bit32Size
		case int64, float64, Timetag:
			n += bit64Size
		case string:
			n += paddedStringSize(t)
		case []byte:
			n += bit32Size + len(t) + padBytesNeeded(len(t))
		}
	}
	return n, nil
}

// MarshalBinary implements the encoding.BinaryMarshaler interface. The
// message is encoded as:
// 1. OSC Address Pattern
// 2. OSC Type Tag String
// 3. OSC Arguments
func (m *Message) MarshalBinary() ([]byte, error) {
	size, err := m.size()
	if err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, fmt.Errorf("MarshalBinary: packet too large: %d", size)
	}

	b := make([]byte, size)
	if _, err = m.marshalInto(b); err != nil {
		return nil, err
	}
	return b, nil
}

// marshalInto writes the message into b, which must be at least m.size() bytes long.
func (m *Message) marshalInto(b []byte) (int, error) {
	n := writePaddedString(m.Address, b)

	tn, err := writeTypeTags(m.Arguments, b[n:])
	if err != nil {
		return 0, err
	}
	n += tn

	for _, arg := range m.Arguments {
		switch t := arg.(type) {
		case bool, nil:
			continue
		case int32:
			binary.BigEndian.PutUint32(b[n:], uint32(t))
			n += bit32Size
		case float32:
			binary.BigEndian.PutUint32(b[n:], math.Float32bits(t))
			n += bit32Size
		case MIDI:
			b[n], b[n+1], b[n+2], b[n+3] = t.Port, t.Status, t.Data1, t.Data2
			n += bit32Size
		case int64:
			binary.BigEndian.PutUint64(b[n:], uint64(t))
			n += bit64Size
		case float64:
			binary.BigEndian.PutUint64(b[n:], math.Float64bits(t))
			n += bit64Size
		case Timetag:
			binary.BigEndian.PutUint64(b[n:], uint64(t))
			n += bit64Size
		case string:
			n += writePaddedString(t, b[n:])
		case []byte:
			n += writeBlob(t, b[n:])
		}
	}

	return n, nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (m *Message) UnmarshalBinary(d []byte) error {
	data := make([]byte, len(d))
	copy(data, d)

	return m.unmarshalBinary(data)
}

// unmarshalBinary doesn't copy, strings and blobs share memory with data.
func (m *Message) unmarshalBinary(data []byte) error {
	if len(data) == 0 || data[0] != '/' {
		return fmt.Errorf("UnmarshalBinary: data not a valid OSC message")
	}

	if (len(data) % bit32Size) != 0 {
		return fmt.Errorf("UnmarshalBinary: data isn't mod 4")
	}

	// First, read the OSC address
	addr, n, err := parsePaddedString(data)
	if err != nil {
		return fmt.Errorf("UnmarshalBinary: %w", err)
	}

	m.Address = addr
	if err = m.parseArguments(data[n:]); err != nil {
		return fmt.Errorf("UnmarshalBinary: %w", err)
	}

	return nil
}

// parseArguments reads the type tag string and the arguments it describes.
func (m *Message) parseArguments(data []byte) error {
	m.Arguments = nil

	// Messages from very old implementations have no type tag string at all.
	if len(data) == 0 {
		return nil
	}

	typetags, n, err := parsePaddedString(data)
	if err != nil {
		return fmt.Errorf("parseArguments: %w", err)
	}
	data = data[n:]

	// If the typetag doesn't start with ',', it's not valid
	if len(typetags) == 0 || typetags[0] != ',' {
		return fmt.Errorf("unsupported typetag string: %q", typetags)
	}

	if len(typetags) > 1 {
		m.Arguments = make([]interface{}, 0, len(typetags)-1)
	}

	for _, c := range typetags[1:] {
		switch TypeTag(c) {
		default:
			return fmt.Errorf("unsupported typetag: %c", c)

		case TypeInt32:
			if len(data) < bit32Size {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, int32(binary.BigEndian.Uint32(data)))
			data = data[bit32Size:]

		case TypeFloat32:
			if len(data) < bit32Size {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, math.Float32frombits(binary.BigEndian.Uint32(data)))
			data = data[bit32Size:]

		case TypeMIDI:
			if len(data) < bit32Size {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, MIDI{Port: data[0], Status: data[1], Data1: data[2], Data2: data[3]})
			data = data[bit32Size:]

		case TypeInt64:
			if len(data) < bit64Size {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, int64(binary.BigEndian.Uint64(data)))
			data = data[bit64Size:]

		case TypeFloat64:
			if len(data) < bit64Size {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, math.Float64frombits(binary.BigEndian.Uint64(data)))
			data = data[bit64Size:]

		case TypeTimeTag:
			if len(data) < bit64Size {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, Timetag(binary.BigEndian.Uint64(data)))
			data = data[bit64Size:]

		case TypeString:
			str, n, err := parsePaddedString(data)
			if err != nil {
				return fmt.Errorf("parseArguments: %w", err)
			}
			m.Arguments = append(m.Arguments, str)
			data = data[n:]

		case TypeBlob:
			blob, n, err := parseBlob(data)
			if err != nil {
				return fmt.Errorf("parseArguments: %w", err)
			}
			if n > len(data) {
				return fmt.Errorf("parseArguments: %w", io.ErrUnexpectedEOF)
			}
			m.Arguments = append(m.Arguments, blob)
			data = data[n:]

		case TypeNil:
			m.Arguments = append(m.Arguments, nil)

		case TypeTrue:
			m.Arguments = append(m.Arguments, true)

		case TypeFalse:
			m.Arguments = append(m.Arguments, false)
		}
	}

	return nil
}

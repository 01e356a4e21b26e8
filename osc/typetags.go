package osc

import "fmt"

type TypeTag rune

const (
	TypeString  TypeTag = 's'
	TypeInt32   TypeTag = 'i'
	TypeInt64   TypeTag = 'h'
	TypeFloat32 TypeTag = 'f'
	TypeFloat64 TypeTag = 'd'
	TypeBlob    TypeTag = 'b'
	TypeTimeTag TypeTag = 't'
	TypeMIDI    TypeTag = 'm'
	TypeNil     TypeTag = 'N'
	TypeTrue    TypeTag = 'T'
	TypeFalse   TypeTag = 'F'
	TypeInvalid TypeTag = 0
)

// MIDI is the OSC 1.0 'm' argument. It is four bytes on the wire, from most
// to least significant: port id, status byte, data1, data2.
type MIDI struct {
	Port   byte
	Status byte
	Data1  byte
	Data2  byte
}

// String implements the fmt.Stringer interface.
func (m MIDI) String() string {
	return fmt.Sprintf("%d:%02x %02x %02x", m.Port, m.Status, m.Data1, m.Data2)
}

// ToTypeTag returns the OSC TypeTag for the given argument.
// Returns TypeInvalid if the argument type is unsupported.
func ToTypeTag(arg interface{}) TypeTag {
	switch t := arg.(type) {
	case bool:
		if t {
			return TypeTrue
		}
		return TypeFalse
	case nil:
		return TypeNil
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case string:
		return TypeString
	case []byte:
		return TypeBlob
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case Timetag:
		return TypeTimeTag
	case MIDI:
		return TypeMIDI
	default:
		return TypeInvalid
	}
}

// GetTypeTag returns the OSC TypeTag string for the given slice.
func GetTypeTag(i []interface{}) (string, error) {
	tt := make([]byte, typeTagsSize(len(i)))
	if _, err := writeTypeTags(i, tt); err != nil {
		return "", err
	}
	return string(tt[:len(i)+1]), nil
}

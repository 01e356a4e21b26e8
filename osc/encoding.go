package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"
)

////
// De/Encoding functions
////

// parseBlob parses an OSC blob from the blob byte array. Padding bytes are
// skipped and not returned.
func parseBlob(data []byte) ([]byte, int, error) {
	if len(data) < bit32Size {
		return nil, 0, fmt.Errorf("parseBlob: %w", io.ErrUnexpectedEOF)
	}

	// First, get the length
	blobLen := int(binary.BigEndian.Uint32(data[:bit32Size]))
	data = data[bit32Size:]

	if blobLen < 1 || blobLen > len(data) {
		return nil, 0, fmt.Errorf("parseBlob: invalid blob length %d", blobLen)
	}

	n := bit32Size + blobLen
	return data[:blobLen], n + padBytesNeeded(n), nil
}

// writeBlob writes the data byte array as an OSC blob into b. If the length
// of data isn't 32-bit aligned, padding bytes will be added.
func writeBlob(data []byte, b []byte) int {
	// Add the size of the blob
	binary.BigEndian.PutUint32(b[:bit32Size], uint32(len(data)))
	n := bit32Size

	// Write the data
	n += copy(b[n:], data)

	return n + writePadding(b[n:], padBytesNeeded(n))
}

// parsePaddedString reads a padded string from the given slice and returns the string and the number of bytes read.
// The returned string shares memory with data.
func parsePaddedString(data []byte) (string, int, error) {
	pos := bytes.IndexByte(data, 0)
	if pos == -1 {
		return "", 0, fmt.Errorf("parsePaddedString: %w", io.EOF)
	}

	n := pos + 1 + padBytesNeeded(pos+1)
	if n > len(data) {
		return "", 0, fmt.Errorf("parsePaddedString: %w", io.ErrUnexpectedEOF)
	}

	str := data[:pos]

	return *(*string)(unsafe.Pointer(&str)), n, nil
}

// writePaddedString writes a string with padding bytes to the buffer.
// Returns the number of written bytes.
func writePaddedString(str string, b []byte) int {
	// Write the string to the buffer
	n := copy(b, str)
	b[n] = 0
	n++

	return n + writePadding(b[n:], padBytesNeeded(n))
}

// writeTypeTags writes a typetag string to b.
func writeTypeTags(elems []interface{}, b []byte) (int, error) {
	b[0] = ','
	n := 1
	for _, elem := range elems {
		s := ToTypeTag(elem)
		if s == TypeInvalid {
			return n, fmt.Errorf("writeTypeTags: unsupported type: %T", elem)
		}
		b[n] = byte(s)
		n++
	}
	b[n] = 0
	n++

	return n + writePadding(b[n:], padBytesNeeded(n)), nil
}

// writePadding zeroes the first n bytes of b.
func writePadding(b []byte, n int) int {
	for i := 0; i < n; i++ {
		b[i] = 0
	}
	return n
}

// paddedStringSize is the encoded length of str, including terminator and padding.
func paddedStringSize(str string) int {
	n := len(str) + 1
	return n + padBytesNeeded(n)
}

// typeTagsSize is the encoded length of a typetag string for n arguments.
func typeTagsSize(n int) int {
	n += 2 // ',' and the terminator
	return n + padBytesNeeded(n)
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}

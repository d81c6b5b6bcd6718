// Package slot implements the fixed-layout binary form: 16-byte hybrid
// slots that hold small payloads inline and spill larger ones to a shared
// heap, plus the container codec that lowers value trees onto them.
package slot

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

const (
	// Size is the width of a slot in bytes.
	Size = 16
	// MaxInline is the largest payload a slot holds inline.
	MaxInline = 14

	markerInline = 0x00
	markerHeap   = 0xFF
)

// Slot is a 16-byte cell. The last byte discriminates the layout:
//
//	0x00 inline: byte 0 holds the payload length (0..14), bytes 1..1+len
//	     hold the payload, remaining bytes are zero.
//	0xFF heap:   bytes 0..4 hold a little-endian u32 heap offset, bytes
//	     4..8 a little-endian u32 length, bytes 8..15 are zero.
//
// Any other final byte is a corrupt slot.
type Slot [Size]byte

// DataTooLargeError reports an inline payload over the 14-byte limit.
// Oversized payloads are never silently promoted to the heap; the caller
// chooses the layout.
type DataTooLargeError struct {
	Size int
	Max  int
}

func (e *DataTooLargeError) Error() string {
	return fmt.Sprintf("slot: %d-byte payload exceeds inline capacity of %d", e.Size, e.Max)
}

// InvalidMarkerError reports a slot whose marker byte is neither the
// inline nor the heap discriminator.
type InvalidMarkerError struct {
	Marker byte
}

func (e *InvalidMarkerError) Error() string {
	return fmt.Sprintf("slot: invalid marker byte 0x%02X", e.Marker)
}

// Inline builds an inline slot from at most 14 bytes of payload.
func Inline(data []byte) (Slot, error) {
	var s Slot
	if len(data) > MaxInline {
		return s, &DataTooLargeError{Size: len(data), Max: MaxInline}
	}
	s[0] = byte(len(data))
	copy(s[1:], data)
	s[Size-1] = markerInline
	return s, nil
}

// HeapRef builds a heap slot pointing at [offset, offset+length) in the
// container heap.
func HeapRef(offset, length uint32) Slot {
	var s Slot
	binary.LittleEndian.PutUint32(s[0:4], offset)
	binary.LittleEndian.PutUint32(s[4:8], length)
	s[Size-1] = markerHeap
	return s
}

// Marker returns the discriminator byte.
func (s Slot) Marker() byte { return s[Size-1] }

// IsInline reports whether the slot holds its payload inline.
func (s Slot) IsInline() bool { return s.Marker() == markerInline }

// IsHeap reports whether the slot references the heap.
func (s Slot) IsHeap() bool { return s.Marker() == markerHeap }

// InlineBytes returns the inline payload. It fails on heap slots, on
// corrupt markers, and on corrupt length bytes.
func (s Slot) InlineBytes() ([]byte, error) {
	if !s.IsInline() {
		return nil, &InvalidMarkerError{Marker: s.Marker()}
	}
	n := int(s[0])
	if n > MaxInline {
		return nil, &DataTooLargeError{Size: n, Max: MaxInline}
	}
	return s[1 : 1+n], nil
}

// HeapRange returns the heap offset and length of a heap slot.
func (s Slot) HeapRange() (offset, length uint32, err error) {
	if !s.IsHeap() {
		return 0, 0, &InvalidMarkerError{Marker: s.Marker()}
	}
	return binary.LittleEndian.Uint32(s[0:4]), binary.LittleEndian.Uint32(s[4:8]), nil
}

// InlineString returns the inline payload as a string, with ok=false when
// the slot is not inline or the payload is not valid UTF-8.
func (s Slot) InlineString() (string, bool) {
	data, err := s.InlineBytes()
	if err != nil || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// MustInlineString is InlineString for payloads known to be valid.
// It panics on a heap slot, a corrupt slot, or invalid UTF-8.
func (s Slot) MustInlineString() string {
	str, ok := s.InlineString()
	if !ok {
		panic(fmt.Sprintf("slot: MustInlineString on invalid slot %x", s[:]))
	}
	return str
}

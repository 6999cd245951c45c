// Package wire is the binary framing the demonstration transport speaks:
// a small set of frame types carrying stream events and demand signals
// between a subscriber on one side of a connection and a publisher on
// the other. Frames are flyweights - every read operation works directly
// against the underlying byte slice.
package wire

import (
	"encoding/binary"
)

// Common for all frames

const (
	SizeOfInt           = 4
	SizeOfShort         = 2
	typeFieldOffset     = 0
	flagsFieldOffset    = typeFieldOffset + SizeOfShort
	streamIdFieldOffset = flagsFieldOffset + SizeOfShort
	FrameHeaderLength   = streamIdFieldOffset + SizeOfInt
)

const (
	// Subscriber to publisher
	FTSubscribe uint16 = 0x01
	FTRequestN  uint16 = 0x02
	FTCancel    uint16 = 0x03
	// Publisher to subscriber
	FTNext     uint16 = 0x04
	FTError    uint16 = 0x05
	FTComplete uint16 = 0x06
)

func EncodeHeader(buf []byte, flags uint16, ft uint16, streamId uint32) {
	PutUint16(buf, typeFieldOffset, ft)
	PutUint16(buf, flagsFieldOffset, flags)
	PutUint32(buf, streamIdFieldOffset, streamId)
}

func Flags(b []byte) uint16 {
	return Uint16(b, flagsFieldOffset)
}

func FrameType(b []byte) uint16 {
	return Uint16(b, typeFieldOffset)
}

func StreamID(b []byte) uint32 {
	return Uint32(b, streamIdFieldOffset)
}

// Below are general-ish utility methods used by the frame codecs

func PutUint16(b []byte, offset int, v uint16) {
	binary.BigEndian.PutUint16(b[offset:], v)
}

func PutUint32(b []byte, offset int, v uint32) {
	binary.BigEndian.PutUint32(b[offset:], v)
}

func Uint16(b []byte, offset int) uint16 {
	return binary.BigEndian.Uint16(b[offset:])
}

func Uint32(b []byte, offset int) uint32 {
	return binary.BigEndian.Uint32(b[offset:])
}

// Ensure the given pointer refers to a slice with at least the specified
// capacity, allocating a new underlying array if not, and limit its
// length to exactly that size. Buffers grow in 512-byte steps so a
// connection's scratch frame settles quickly instead of reallocating on
// every slightly-larger frame.
func ResizeSlice(slicePtr *[]byte, ensure int) []byte {
	slice := *slicePtr
	if ensure > cap(slice) {
		remainder := ensure % 512
		if remainder == 0 {
			*slicePtr = make([]byte, ensure)
		} else {
			*slicePtr = make([]byte, ensure+(512-remainder))
		}
	}

	*slicePtr = (*slicePtr)[:ensure]
	return *slicePtr
}

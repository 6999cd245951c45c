package wire

import "fmt"

// Frame-type specific encode/read operations. Each Encode resizes the
// frame's buffer to fit and overwrites it completely.

// Subscribe opens a stream: it names the published sequence the remote
// should attach to and carries the subscriber's initial demand.

const (
	subscribeInitialNOffset = FrameHeaderLength
	subscribeNameOffset     = subscribeInitialNOffset + SizeOfInt
)

func EncodeSubscribe(f *Frame, streamId uint32, initialN uint32, name string) *Frame {
	buf := ResizeSlice(&f.Buf, subscribeNameOffset+len(name))
	EncodeHeader(buf, 0, FTSubscribe, streamId)
	PutUint32(buf, subscribeInitialNOffset, initialN)
	copy(buf[subscribeNameOffset:], name)
	return f
}

func SubscribeInitialN(b []byte) uint32 {
	return Uint32(b, subscribeInitialNOffset)
}

func SubscribeName(b []byte) string {
	return string(b[subscribeNameOffset:])
}

func DescribeSubscribe(b []byte) string {
	return fmt.Sprintf("Subscribe{streamId=%d, name=%q, initialN=%d}",
		StreamID(b), SubscribeName(b), SubscribeInitialN(b))
}

// RequestN adds demand to an open stream.

const requestNFieldOffset = FrameHeaderLength

func EncodeRequestN(f *Frame, streamId uint32, requestN uint32) *Frame {
	buf := ResizeSlice(&f.Buf, requestNFieldOffset+SizeOfInt)
	EncodeHeader(buf, 0, FTRequestN, streamId)
	PutUint32(buf, requestNFieldOffset, requestN)
	return f
}

func RequestN(b []byte) uint32 {
	return Uint32(b, requestNFieldOffset)
}

func DescribeRequestN(b []byte) string {
	return fmt.Sprintf("RequestN{streamId=%d, n=%d}", StreamID(b), RequestN(b))
}

// Cancel tears an open stream down from the subscriber side.

func EncodeCancel(f *Frame, streamId uint32) *Frame {
	buf := ResizeSlice(&f.Buf, FrameHeaderLength)
	EncodeHeader(buf, 0, FTCancel, streamId)
	return f
}

// Next carries one element of an open stream.

const nextDataOffset = FrameHeaderLength

func EncodeNext(f *Frame, streamId uint32, data []byte) *Frame {
	buf := ResizeSlice(&f.Buf, nextDataOffset+len(data))
	EncodeHeader(buf, 0, FTNext, streamId)
	copy(buf[nextDataOffset:], data)
	return f
}

func NextData(b []byte) []byte {
	if len(b) == nextDataOffset {
		return nil
	}
	return b[nextDataOffset:]
}

func DescribeNext(b []byte) string {
	return fmt.Sprintf("Next{streamId=%d, data=[% x]}", StreamID(b), NextData(b))
}

// Error terminates an open stream with a failure.

const errorMessageOffset = FrameHeaderLength

func EncodeError(f *Frame, streamId uint32, message string) *Frame {
	buf := ResizeSlice(&f.Buf, errorMessageOffset+len(message))
	EncodeHeader(buf, 0, FTError, streamId)
	copy(buf[errorMessageOffset:], message)
	return f
}

func ErrorMessage(b []byte) string {
	return string(b[errorMessageOffset:])
}

func DescribeError(b []byte) string {
	return fmt.Sprintf("Error{streamId=%d, message=%q}", StreamID(b), ErrorMessage(b))
}

// Complete terminates an open stream cleanly.

func EncodeComplete(f *Frame, streamId uint32) *Frame {
	buf := ResizeSlice(&f.Buf, FrameHeaderLength)
	EncodeHeader(buf, 0, FTComplete, streamId)
	return f
}

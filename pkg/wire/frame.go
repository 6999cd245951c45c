package wire

import (
	"fmt"
	"io"
)

// Frame is the single data container for everything that crosses a
// connection; it can take the shape of any frame type in the protocol
// and is the structure connections re-use between reads. Type-specific
// fields are read via the codec functions alongside it.
type Frame struct {
	// Buf is sized to exactly fit the current frame
	Buf []byte
}

func (f *Frame) Type() uint16 {
	return FrameType(f.Buf)
}

func (f *Frame) StreamID() uint32 {
	return StreamID(f.Buf)
}

func (f *Frame) Flags() uint16 {
	return Flags(f.Buf)
}

// Make a copy of this frame. If target is nil a new frame is allocated,
// otherwise target's buffer is re-used, resized as needed.
func (f *Frame) Copy(target *Frame) *Frame {
	if target == nil {
		target = &Frame{Buf: make([]byte, len(f.Buf))}
	}
	ResizeSlice(&target.Buf, len(f.Buf))
	copy(target.Buf, f.Buf)
	return target
}

// Get a human-readable description of this frame
func (f *Frame) Describe() string {
	switch f.Type() {
	case FTSubscribe:
		return DescribeSubscribe(f.Buf)
	case FTRequestN:
		return DescribeRequestN(f.Buf)
	case FTCancel:
		return fmt.Sprintf("Cancel{streamId=%d}", f.StreamID())
	case FTNext:
		return DescribeNext(f.Buf)
	case FTError:
		return DescribeError(f.Buf)
	case FTComplete:
		return fmt.Sprintf("Complete{streamId=%d}", f.StreamID())
	default:
		return fmt.Sprintf("UnknownFrame{type=%d, contents=% x}", f.Type(), f.Buf)
	}
}

// FrameDecoder reads length-prefixed frames off a stream, re-using the
// target frame's buffer between reads.
type FrameDecoder struct {
	source io.Reader
}

func NewFrameDecoder(source io.Reader) *FrameDecoder {
	return &FrameDecoder{source}
}

func (d *FrameDecoder) Read(target *Frame) error {
	frameLength, err := d.readFrameLength(target)
	if err != nil {
		return err
	}
	if frameLength < FrameHeaderLength {
		return fmt.Errorf("frame of %d bytes is smaller than the %d-byte header", frameLength, FrameHeaderLength)
	}
	ResizeSlice(&target.Buf, frameLength)

	_, err = io.ReadFull(d.source, target.Buf)
	if err != nil {
		return fmt.Errorf("reading %d-byte frame body: %w", frameLength, err)
	}

	return nil
}

func (d *FrameDecoder) readFrameLength(target *Frame) (int, error) {
	ResizeSlice(&target.Buf, SizeOfInt)
	frameSizeSlice := target.Buf[:SizeOfInt]

	_, err := io.ReadFull(d.source, frameSizeSlice)
	if err != nil {
		return 0, err
	}

	frameLength := int(Uint32(target.Buf, 0) - SizeOfInt)
	return frameLength, nil
}

// FrameEncoder writes length-prefixed frames onto a stream.
type FrameEncoder struct {
	sink               io.Writer
	frameLengthScratch []byte
}

func NewFrameEncoder(sink io.Writer) *FrameEncoder {
	return &FrameEncoder{sink, make([]byte, SizeOfInt)}
}

func (e *FrameEncoder) Write(frame *Frame) error {
	if err := e.writeFrameLength(frame); err != nil {
		return err
	}
	_, err := e.sink.Write(frame.Buf)
	return err
}

func (e *FrameEncoder) writeFrameLength(frame *Frame) error {
	frameLength := uint32(len(frame.Buf) + SizeOfInt)
	PutUint32(e.frameLengthScratch, 0, frameLength)

	_, err := e.sink.Write(e.frameLengthScratch)
	return err
}

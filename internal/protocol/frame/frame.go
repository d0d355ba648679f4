package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	LengthLen uint16 = 2
	HeaderLen uint16 = 3
	// MTU is the largest frame the admin port accepts, header included.
	MTU uint16 = 1460
)

var (
	ErrStreamClosed  = errors.New("frame: stream closed")
	ErrShortHeader   = errors.New("frame: short length header")
	ErrShortFrame    = errors.New("frame: stream ended inside frame")
	ErrInvalidLength = errors.New("frame: declared length smaller than header")
	ErrFrameTooLarge = errors.New("frame: frame exceeds limit")
)

// Frame is one complete wire packet: type discriminant plus payload.
type Frame struct {
	Type    uint8
	Payload []byte
}

// Size is the encoded size of f including the 3-byte header.
func (f Frame) Size() int {
	return int(HeaderLen) + len(f.Payload)
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxFrameBytes uint16
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: MTU}
}

func (l Limits) max() int {
	if l.MaxFrameBytes == 0 {
		return int(MTU)
	}
	return int(l.MaxFrameBytes)
}

// ReadFrame reads the next frame from r. Zero-length keep-alive frames are
// skipped. A clean end of stream before any length byte yields ErrStreamClosed.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var lenBuf [LengthLen]byte
	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return Frame{}, ErrStreamClosed
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrShortHeader
			}
			return Frame{}, err
		}
		length := DecodeHeader(lenBuf[:])
		if length == 0 {
			continue
		}
		if length < HeaderLen {
			return Frame{}, fmt.Errorf("%w: %d", ErrInvalidLength, length)
		}
		if int(length) > limits.max() {
			return Frame{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, limits.max())
		}

		body := make([]byte, length-LengthLen)
		if _, err := io.ReadFull(r, body); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrShortFrame
			}
			return Frame{}, err
		}
		return Frame{Type: body[0], Payload: body[1:]}, nil
	}
}

// WriteFrame writes f as a single buffer so a frame is never interleaved.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	buf, err := Encode(f, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// Encode returns the full wire form of f.
func Encode(f Frame, limits Limits) ([]byte, error) {
	size := f.Size()
	if size > limits.max() {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, size, limits.max())
	}
	buf := make([]byte, 0, size)
	buf = append(buf, EncodeHeader(uint16(size))...)
	buf = append(buf, f.Type)
	buf = append(buf, f.Payload...)
	return buf, nil
}

func EncodeHeader(length uint16) []byte {
	buf := make([]byte, LengthLen)
	binary.LittleEndian.PutUint16(buf, length)
	return buf
}

func DecodeHeader(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b[:LengthLen])
}

package protocol

import (
	"fmt"

	"github.com/danmuck/ottdctl/internal/protocol/frame"
	"github.com/danmuck/ottdctl/internal/protocol/wire"
)

// Encode returns the complete frame for p, length prefix included. version is
// the negotiated admin protocol version; it only affects version-dependent
// layouts.
func Encode(p Packet, version uint8) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrInvalidArgument)
	}
	w := wire.NewWriter(64)
	p.encode(w, version)
	return frame.Encode(frame.Frame{Type: uint8(p.Type()), Payload: w.Bytes()}, frame.DefaultLimits())
}

// Decode parses payload as packet type t. Trailing bytes beyond the known
// layout are ignored so newer servers can append fields.
func Decode(t PacketType, payload []byte, version uint8) (Packet, error) {
	p, _, err := decode(t, payload, version)
	return p, err
}

// DecodeFrame is Decode for a frame read off the wire.
func DecodeFrame(f frame.Frame, version uint8) (Packet, error) {
	return Decode(PacketType(f.Type), f.Payload, version)
}

func decode(t PacketType, payload []byte, version uint8) (Packet, int, error) {
	fn, ok := registry[t]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownPacket, uint8(t))
	}
	r := wire.NewReader(payload)
	p := fn(r, version)
	if err := r.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrMalformedPacket, t, err)
	}
	return p, r.Remaining(), nil
}

package protocol

import "errors"

var (
	ErrUnknownPacket   = errors.New("protocol: unknown packet type")
	ErrMalformedPacket = errors.New("protocol: malformed packet")
	ErrInvalidArgument = errors.New("protocol: invalid argument")
)

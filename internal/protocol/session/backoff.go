package session

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/danmuck/ottdctl/internal/protocol/frame"
)

var (
	ErrWrongPassword = errors.New("session: wrong password")
	ErrClosedByPeer  = errors.New("session: connection closed by server")
)

// Reason classifies why a session ended.
type Reason int

const (
	ReasonOther Reason = iota
	ReasonUnknownHost
	ReasonCannotConnect
	ReasonIOError
	ReasonWrongPassword
	ReasonInterrupted
)

func (r Reason) String() string {
	switch r {
	case ReasonUnknownHost:
		return "unknown_host"
	case ReasonCannotConnect:
		return "cannot_connect"
	case ReasonIOError:
		return "io_error"
	case ReasonWrongPassword:
		return "wrong_password"
	case ReasonInterrupted:
		return "interrupted"
	default:
		return "other"
	}
}

// Classify maps a dial, read or handshake failure onto a Reason.
func Classify(err error) Reason {
	if err == nil {
		return ReasonOther
	}
	if errors.Is(err, ErrWrongPassword) {
		return ReasonWrongPassword
	}
	if errors.Is(err, ErrClosedByPeer) || errors.Is(err, frame.ErrStreamClosed) || errors.Is(err, io.EOF) {
		return ReasonInterrupted
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonUnknownHost
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ReasonCannotConnect
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, frame.ErrShortHeader) || errors.Is(err, frame.ErrShortFrame) ||
		errors.Is(err, frame.ErrInvalidLength) || errors.Is(err, frame.ErrFrameTooLarge) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ReasonIOError
	}
	return ReasonOther
}

// NextBackoffDelay returns the fixed delay before the next connect attempt.
// There is no growth and no jitter; the client retries until closed.
func NextBackoffDelay(cfg BackoffConfig, reason Reason) time.Duration {
	switch reason {
	case ReasonUnknownHost, ReasonCannotConnect, ReasonIOError, ReasonWrongPassword:
		return cfg.Long
	case ReasonInterrupted:
		return cfg.Short
	default:
		return cfg.Default
	}
}

package session

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrOutboxClosed = errors.New("session: outbox closed")
	ErrStaleSession = errors.New("session: frame belongs to a previous connection")
)

// Outbox is the unbounded outbound frame queue. It has two FIFO lanes:
// session frames (join, subscription replay) always go first; caller
// commands are held until Release and held again by Hold.
//
// Session frames are tagged with the connection generation they were built
// for. Hold starts a new generation, so frames for a dead connection are
// never written to its successor.
type Outbox struct {
	mu       sync.Mutex
	session  [][]byte
	commands [][]byte
	gen      uint64
	open     bool
	closed   bool
	notify   chan struct{}
}

func NewOutbox() *Outbox {
	return &Outbox{notify: make(chan struct{}, 1)}
}

func (o *Outbox) signal() {
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// PushSession queues a frame for connection generation gen.
func (o *Outbox) PushSession(gen uint64, frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	if gen != o.gen {
		return ErrStaleSession
	}
	o.session = append(o.session, frame)
	o.signal()
	return nil
}

// PushCommand queues a caller frame. It is delivered once the lane is open.
func (o *Outbox) PushCommand(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutboxClosed
	}
	o.commands = append(o.commands, frame)
	if o.open {
		o.signal()
	}
	return nil
}

// Release opens the command lane.
func (o *Outbox) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = true
	o.signal()
}

// Hold closes the command lane, drops pending session frames and returns
// the generation for the next connection.
func (o *Outbox) Hold() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open = false
	o.session = nil
	o.gen++
	return o.gen
}

// Generation is the connection generation session frames must carry.
func (o *Outbox) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// Len reports the queued frames per lane.
func (o *Outbox) Len() (session, commands int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.session), len(o.commands)
}

func (o *Outbox) pop() ([]byte, bool) {
	if len(o.session) > 0 {
		f := o.session[0]
		o.session[0] = nil
		o.session = o.session[1:]
		return f, true
	}
	if o.open && len(o.commands) > 0 {
		f := o.commands[0]
		o.commands[0] = nil
		o.commands = o.commands[1:]
		return f, true
	}
	return nil, false
}

// Next blocks until a frame is deliverable, the outbox is closed, or ctx ends.
func (o *Outbox) Next(ctx context.Context) ([]byte, error) {
	for {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return nil, ErrOutboxClosed
		}
		if f, ok := o.pop(); ok {
			more := len(o.session) > 0 || (o.open && len(o.commands) > 0)
			o.mu.Unlock()
			if more {
				o.signal()
			}
			return f, nil
		}
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-o.notify:
		}
	}
}

// Close wakes the consumer; frames still queued are dropped.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.session = nil
	o.commands = nil
	o.signal()
}

// Package admin is the OpenTTD admin port client.
//
// A Client owns two goroutines: the run loop (dial, read, handshake,
// dispatch, backoff) and the writer (drains the outbox onto the socket).
// Listeners are called synchronously from the run loop, in registration
// order; a listener must not block for long or it stalls the read side.
package admin

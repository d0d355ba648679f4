// Package session owns the admin connection lifecycle primitives.
//
// Ownership boundary:
// - session state machine (join -> protocol -> welcome -> active)
// - subscription registry replayed after every handshake
// - two-lane outbound queue consumed by the writer loop
// - failure classification and retry delays
// - transport settings (timeouts, optional TLS)
package session

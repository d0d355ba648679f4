// Package protocol owns the admin wire contract.
//
// Ownership boundary:
// - packet types and enums
// - per-packet encode/decode (wire primitives live in wire, framing in frame)
// - the type id -> decoder registry
package protocol

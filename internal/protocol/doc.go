// Package protocol owns the External Control wire contract.
//
// Ownership boundary:
// - command and return-code numbering
// - handshake activation table
// - request/handshake encoding and response envelope decoding
package protocol

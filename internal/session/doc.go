// Package session holds transport reliability tunables: connect, handshake,
// read and write timeouts plus the connect-retry backoff curve.
//
// The base protocol has no timeouts; every field here is opt-in hardening and
// zero values preserve the original blocking behavior.
package session

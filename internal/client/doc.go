// Package client is the typed, handle-based API over the External Control
// protocol: one Client per connection, Machine handles cached by name, and
// peripheral handles (Adc, Gpio, SysBus, BusContext) that route every
// operation through the owning Client.
//
// The Client serializes command execution: at most one request/response cycle
// is in flight on the socket at any instant. Asynchronous operations run on
// their own goroutine but acquire the same lock before touching the socket.
package client

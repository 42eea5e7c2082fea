package protocol

import "errors"

var (
	ErrTruncated          = errors.New("protocol: truncated response")
	ErrTooManyActivations = errors.New("protocol: activation table exceeds u16 count")
	ErrUnknownReturnCode  = errors.New("protocol: unrecognized return code")
	ErrEchoMismatch       = errors.New("protocol: echoed command does not match request")
	ErrAsyncEvent         = errors.New("protocol: async event not supported on command channel")
)

// Recoverable reports whether a decode error is a protocol-level anomaly the
// connection survives, as opposed to a transport failure that kills it.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnknownReturnCode) ||
		errors.Is(err, ErrEchoMismatch) ||
		errors.Is(err, ErrAsyncEvent)
}

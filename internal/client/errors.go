package client

import "fmt"

// Code classifies a client failure. CodeNone is the distinguished "no error"
// value; it never appears inside a returned *Error.
type Code int

const (
	CodeNone Code = iota
	CodeConnectionFailed
	CodeFatal
	CodeRemoteFatal
	CodeNotConnected
	CodeHandshakeRejected
	CodeHandshakeRequired
	CodeTimeout
	CodeCommandFailed
	CodeInvalidCommand
	CodeNotFound
	CodeProtocolAnomaly
	CodeBadResponse
	CodePeripheralInit
	CodeInvalidArgument
)

func (c Code) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeConnectionFailed:
		return "connection_failed"
	case CodeFatal:
		return "fatal"
	case CodeRemoteFatal:
		return "remote_fatal"
	case CodeNotConnected:
		return "not_connected"
	case CodeHandshakeRejected:
		return "handshake_rejected"
	case CodeHandshakeRequired:
		return "handshake_required"
	case CodeTimeout:
		return "timeout"
	case CodeCommandFailed:
		return "command_failed"
	case CodeInvalidCommand:
		return "invalid_command"
	case CodeNotFound:
		return "not_found"
	case CodeProtocolAnomaly:
		return "protocol_anomaly"
	case CodeBadResponse:
		return "bad_response"
	case CodePeripheralInit:
		return "peripheral_init"
	case CodeInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is the structured (code, message) failure pair every operation
// reports. Two errors match under errors.Is when their codes match, so the
// sentinels below double as comparison targets.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrConnectionFailed  = &Error{Code: CodeConnectionFailed, Message: "connection failed"}
	ErrFatal             = &Error{Code: CodeFatal, Message: "fatal transport error"}
	ErrRemoteFatal       = &Error{Code: CodeRemoteFatal, Message: "server reported fatal error"}
	ErrNotConnected      = &Error{Code: CodeNotConnected, Message: "not connected"}
	ErrHandshakeRejected = &Error{Code: CodeHandshakeRejected, Message: "handshake rejected"}
	ErrHandshakeRequired = &Error{Code: CodeHandshakeRequired, Message: "handshake required"}
	ErrTimeout           = &Error{Code: CodeTimeout, Message: "operation timed out"}
	ErrCommandFailed     = &Error{Code: CodeCommandFailed, Message: "command failed"}
	ErrInvalidCommand    = &Error{Code: CodeInvalidCommand, Message: "invalid command"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrProtocolAnomaly   = &Error{Code: CodeProtocolAnomaly, Message: "protocol anomaly"}
	ErrBadResponse       = &Error{Code: CodeBadResponse, Message: "unexpected response shape"}
	ErrPeripheralInit    = &Error{Code: CodePeripheralInit, Message: "peripheral init failed"}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

func errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

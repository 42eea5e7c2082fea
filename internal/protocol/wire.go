package protocol

import "encoding/hex"

// Request frame magic bytes, first two bytes of every command frame.
const (
	MagicHi byte = 'R'
	MagicLo byte = 'E'
)

// RequestHeaderLen is magic(2) + command(1) + payload length(4).
const RequestHeaderLen = 7

// MaxActivations bounds the handshake table; the count is sent as u16.
const MaxActivations = 65535

// Command identifies one External Control operation.
type Command uint8

const (
	// CommandAny is never sent on the wire; it disables echo validation
	// when passed to ReadResponse.
	CommandAny Command = 0x00

	CommandRunFor     Command = 0x01
	CommandGetTime    Command = 0x02
	CommandGetMachine Command = 0x03
	CommandAdc        Command = 0x04
	CommandGpio       Command = 0x05
	CommandSystemBus  Command = 0x06
)

func (c Command) String() string {
	switch c {
	case CommandAny:
		return "any"
	case CommandRunFor:
		return "run_for"
	case CommandGetTime:
		return "get_time"
	case CommandGetMachine:
		return "get_machine"
	case CommandAdc:
		return "adc"
	case CommandGpio:
		return "gpio"
	case CommandSystemBus:
		return "system_bus"
	default:
		return "unknown"
	}
}

// ReturnCode is the first byte of every response envelope. The code decides
// which fields follow it on the wire.
type ReturnCode uint8

const (
	CodeCommandFailed      ReturnCode = 0 // code, command, data
	CodeFatalError         ReturnCode = 1 // code, command, data
	CodeInvalidCommand     ReturnCode = 2 // code, command
	CodeSuccessWithData    ReturnCode = 3 // code, command, data
	CodeSuccessWithoutData ReturnCode = 4 // code, command
	CodeOkHandshake        ReturnCode = 5 // code
	CodeAsyncEvent         ReturnCode = 6 // code, command, callback id, data
)

func (rc ReturnCode) String() string {
	switch rc {
	case CodeCommandFailed:
		return "command_failed"
	case CodeFatalError:
		return "fatal_error"
	case CodeInvalidCommand:
		return "invalid_command"
	case CodeSuccessWithData:
		return "success_with_data"
	case CodeSuccessWithoutData:
		return "success_without_data"
	case CodeOkHandshake:
		return "ok_handshake"
	case CodeAsyncEvent:
		return "async_event"
	default:
		return "unknown"
	}
}

// Activation pairs one command with the 8-bit protocol version the session
// activates it at.
type Activation struct {
	Command Command
	Version uint8
}

// DefaultActivations is the fixed ordered table sent on every handshake.
func DefaultActivations() []Activation {
	return []Activation{
		{CommandRunFor, 0x00},
		{CommandGetTime, 0x00},
		{CommandGetMachine, 0x00},
		{CommandAdc, 0x00},
		{CommandGpio, 0x01},
		{CommandSystemBus, 0x00},
	}
}

// DumpBytes renders a payload as lowercase hex for diagnostics.
func DumpBytes(b []byte) string {
	return hex.EncodeToString(b)
}

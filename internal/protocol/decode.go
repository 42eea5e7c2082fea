package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Response is one decoded response envelope. For CodeCommandFailed and
// CodeFatalError the payload carries a textual diagnostic.
type Response struct {
	Code    ReturnCode
	Echo    Command
	Payload []byte
}

// ReadResponse decodes a single response envelope from r. Reads are made with
// io.ReadFull, so a peer fragmenting the response decodes identically to one
// delivering it whole.
//
// If expect is not CommandAny and the envelope carries an echoed command, a
// mismatch returns ErrEchoMismatch and the payload is discarded. Errors for
// which Recoverable reports true leave the connection usable; anything else
// means the stream is broken.
func ReadResponse(r io.Reader, expect Command) (Response, error) {
	code, err := readByte(r)
	if err != nil {
		return Response{}, err
	}

	switch rc := ReturnCode(code); rc {
	case CodeOkHandshake:
		return Response{Code: rc}, nil

	case CodeCommandFailed, CodeFatalError, CodeSuccessWithData:
		echo, err := readByte(r)
		if err != nil {
			return Response{}, err
		}
		payload, err := readSized(r)
		if err != nil {
			return Response{}, err
		}
		if err := validateEcho(Command(echo), expect); err != nil {
			return Response{}, err
		}
		return Response{Code: rc, Echo: Command(echo), Payload: payload}, nil

	case CodeInvalidCommand, CodeSuccessWithoutData:
		echo, err := readByte(r)
		if err != nil {
			return Response{}, err
		}
		if err := validateEcho(Command(echo), expect); err != nil {
			return Response{}, err
		}
		return Response{Code: rc, Echo: Command(echo)}, nil

	case CodeAsyncEvent:
		return Response{}, ErrAsyncEvent

	default:
		return Response{}, fmt.Errorf("%w: 0x%02x", ErrUnknownReturnCode, code)
	}
}

func validateEcho(echo, expect Command) error {
	if expect == CommandAny || echo == expect {
		return nil
	}
	return fmt.Errorf("%w: sent %s, server echoed %s", ErrEchoMismatch, expect, echo)
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, truncated(err)
	}
	return b[0], nil
}

func readSized(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, truncated(err)
	}
	size := binary.LittleEndian.Uint32(lenBuf[:])
	if size == 0 {
		return nil, nil
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, truncated(err)
	}
	return payload, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

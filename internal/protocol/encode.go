package protocol

import (
	"encoding/binary"
	"fmt"
)

// EncodeRequest builds one command frame: magic, command byte, u32 LE payload
// length, then the raw payload.
func EncodeRequest(cmd Command, payload []byte) []byte {
	buf := make([]byte, RequestHeaderLen+len(payload))
	buf[0] = MagicHi
	buf[1] = MagicLo
	buf[2] = byte(cmd)
	binary.LittleEndian.PutUint32(buf[3:7], uint32(len(payload)))
	copy(buf[RequestHeaderLen:], payload)
	return buf
}

// EncodeHandshake builds the activation buffer: u16 LE pair count followed by
// (command, version) pairs in table order.
func EncodeHandshake(activations []Activation) ([]byte, error) {
	if len(activations) > MaxActivations {
		return nil, fmt.Errorf("%w: %d pairs", ErrTooManyActivations, len(activations))
	}
	buf := make([]byte, 2, 2+2*len(activations))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(activations)))
	for _, a := range activations {
		buf = append(buf, byte(a.Command), a.Version)
	}
	return buf, nil
}

package client

import (
	"encoding/binary"
	"math"
)

// Little-endian payload builders. Every command payload in the protocol is a
// flat concatenation of these shapes.

func appendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

func appendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func appendF64(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
}

// appendString writes a u32 LE length prefix followed by the raw bytes.
func appendString(buf []byte, s string) []byte {
	buf = appendU32(buf, uint32(len(s)))
	return append(buf, s...)
}

// appendPeripheralHeader is the common prefix of every peripheral command:
// i32 LE machine descriptor, op byte, length-prefixed peripheral path.
func appendPeripheralHeader(buf []byte, descriptor int32, op byte, path string) []byte {
	buf = appendU32(buf, uint32(descriptor))
	buf = append(buf, op)
	return appendString(buf, path)
}

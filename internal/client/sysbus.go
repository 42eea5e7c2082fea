package client

import (
	"encoding/binary"

	"github.com/simforge/extctl/internal/protocol"
)

// AccessWidth is the byte granularity of one bus access. WidthMultiByte
// selects the variable-length form used by ReadBytes/WriteBytes.
type AccessWidth uint8

const (
	WidthMultiByte AccessWidth = 0
	WidthByte      AccessWidth = 1
	WidthWord      AccessWidth = 2
	WidthDWord     AccessWidth = 4
	WidthQWord     AccessWidth = 8
)

func (w AccessWidth) String() string {
	switch w {
	case WidthMultiByte:
		return "multi"
	case WidthByte:
		return "byte"
	case WidthWord:
		return "word"
	case WidthDWord:
		return "dword"
	case WidthQWord:
		return "qword"
	default:
		return "invalid"
	}
}

// ParseAccessWidth maps a width name to its wire value.
func ParseAccessWidth(raw string) (AccessWidth, error) {
	switch raw {
	case "byte", "1":
		return WidthByte, nil
	case "word", "2":
		return WidthWord, nil
	case "dword", "4":
		return WidthDWord, nil
	case "qword", "8":
		return WidthQWord, nil
	default:
		return 0, errorf(CodeInvalidArgument, "unknown access width %q", raw)
	}
}

// Bus sub-operations.
const (
	busOpRead  byte = 0
	busOpWrite byte = 1
)

// SysBus is the system-bus peripheral handle.
type SysBus struct {
	machine *Machine
	path    string
}

func (s *SysBus) Path() string {
	return s.path
}

// GetBusContext scopes bus accesses to one address space by node path.
func (s *SysBus) GetBusContext(nodePath string) (*BusContext, error) {
	if err := validatePeripheralPath("bus context", nodePath); err != nil {
		return nil, err
	}
	return &BusContext{bus: s, nodePath: nodePath}, nil
}

// BusContext is an address-space-scoped handle for width-qualified reads and
// writes. It owns no connection state; everything routes through the owning
// machine's client.
type BusContext struct {
	bus      *SysBus
	nodePath string
}

func (b *BusContext) NodePath() string {
	return b.nodePath
}

// request builds the common bus payload prefix: peripheral header, node path,
// width byte, u64 LE address.
func (b *BusContext) request(op byte, width AccessWidth, address uint64) []byte {
	payload := appendPeripheralHeader(nil, b.bus.machine.descriptor, op, b.bus.path)
	payload = appendString(payload, b.nodePath)
	payload = append(payload, byte(width))
	return appendU64(payload, address)
}

// Read performs one fixed-width read. The reply carries exactly width bytes,
// little-endian.
func (b *BusContext) Read(address uint64, width AccessWidth) (uint64, error) {
	if !fixedWidth(width) {
		return 0, errorf(CodeInvalidArgument, "bus read: width %s requires ReadBytes", width)
	}
	reply, err := b.bus.machine.client.Execute(protocol.CommandSystemBus, b.request(busOpRead, width, address))
	if err != nil {
		return 0, err
	}
	if len(reply) != int(width) {
		return 0, errorf(CodeBadResponse, "bus read: expected %d-byte payload, got %d bytes", width, len(reply))
	}
	var full [8]byte
	copy(full[:], reply)
	return binary.LittleEndian.Uint64(full[:]), nil
}

// Write performs one fixed-width write. The value is sent in exactly width
// bytes and must fit.
func (b *BusContext) Write(address uint64, width AccessWidth, value uint64) error {
	if !fixedWidth(width) {
		return errorf(CodeInvalidArgument, "bus write: width %s requires WriteBytes", width)
	}
	if width != WidthQWord && value>>(8*uint(width)) != 0 {
		return errorf(CodeInvalidArgument, "bus write: value 0x%x does not fit in %s access", value, width)
	}
	payload := b.request(busOpWrite, width, address)
	var full [8]byte
	binary.LittleEndian.PutUint64(full[:], value)
	payload = append(payload, full[:width]...)
	_, err := b.bus.machine.client.Execute(protocol.CommandSystemBus, payload)
	return err
}

// ReadBytes performs one multi-byte read of n bytes.
func (b *BusContext) ReadBytes(address uint64, n int) ([]byte, error) {
	if n <= 0 {
		return nil, errorf(CodeInvalidArgument, "bus read: byte count %d must be positive", n)
	}
	payload := b.request(busOpRead, WidthMultiByte, address)
	payload = appendU32(payload, uint32(n))
	reply, err := b.bus.machine.client.Execute(protocol.CommandSystemBus, payload)
	if err != nil {
		return nil, err
	}
	if len(reply) != n {
		return nil, errorf(CodeBadResponse, "bus read: expected %d bytes, got %d", n, len(reply))
	}
	return reply, nil
}

// WriteBytes performs one multi-byte write.
func (b *BusContext) WriteBytes(address uint64, data []byte) error {
	if len(data) == 0 {
		return errorf(CodeInvalidArgument, "bus write: empty data")
	}
	payload := b.request(busOpWrite, WidthMultiByte, address)
	payload = appendU32(payload, uint32(len(data)))
	payload = append(payload, data...)
	_, err := b.bus.machine.client.Execute(protocol.CommandSystemBus, payload)
	return err
}

func fixedWidth(w AccessWidth) bool {
	switch w {
	case WidthByte, WidthWord, WidthDWord, WidthQWord:
		return true
	default:
		return false
	}
}

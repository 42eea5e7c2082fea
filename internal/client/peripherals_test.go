package client

import (
	"encoding/binary"
	"errors"
	"math"
	"net"
	"testing"

	"github.com/simforge/extctl/internal/protocol"
	"github.com/simforge/extctl/internal/testutil/testlog"
)

// parsePeripheralHeader consumes the common prefix of a peripheral payload:
// i32 LE machine descriptor, op byte, length-prefixed path. It returns the
// remaining op-specific bytes.
func parsePeripheralHeader(t *testing.T, payload []byte, wantDesc int32, wantOp byte, wantPath string) []byte {
	t.Helper()
	if len(payload) < 9 {
		t.Fatalf("peripheral payload too short: %d bytes", len(payload))
	}
	desc := int32(binary.LittleEndian.Uint32(payload[:4]))
	if desc != wantDesc {
		t.Fatalf("descriptor: got %d want %d", desc, wantDesc)
	}
	if payload[4] != wantOp {
		t.Fatalf("op: got %d want %d", payload[4], wantOp)
	}
	pathLen := binary.LittleEndian.Uint32(payload[5:9])
	rest := payload[9:]
	if int(pathLen) > len(rest) {
		t.Fatalf("path length %d exceeds remaining %d bytes", pathLen, len(rest))
	}
	if got := string(rest[:pathLen]); got != wantPath {
		t.Fatalf("path: got %q want %q", got, wantPath)
	}
	return rest[pathLen:]
}

// machinePeer serves a handshake, one get_machine with the given descriptor,
// and then hands remaining requests to handle.
func machinePeer(t *testing.T, descriptor int32, handle func(conn net.Conn, cmd protocol.Command, payload []byte) (bool, error)) uint16 {
	t.Helper()
	return startPeer(t, func(conn net.Conn) error {
		if err := serveHandshake(conn); err != nil {
			return err
		}
		cmd, _, err := readRequest(conn)
		if err != nil {
			return err
		}
		if cmd != protocol.CommandGetMachine {
			return errors.New("expected get_machine first")
		}
		if err := writeResponse(conn, protocol.CodeSuccessWithData, cmd, descriptorReply(descriptor)); err != nil {
			return err
		}
		for {
			cmd, payload, err := readRequest(conn)
			if err != nil {
				return err
			}
			done, err := handle(conn, cmd, payload)
			if err != nil || done {
				return err
			}
		}
	})
}

func TestAdcOperations(t *testing.T) {
	testlog.Start(t)
	const desc = int32(11)
	step := 0
	port := machinePeer(t, desc, func(conn net.Conn, cmd protocol.Command, payload []byte) (bool, error) {
		if cmd != protocol.CommandAdc {
			return false, errors.New("expected adc command")
		}
		step++
		switch step {
		case 1:
			parsePeripheralHeader(t, payload, desc, adcOpChannelCount, "adc0")
			return false, writeResponse(conn, protocol.CodeSuccessWithData, cmd, descriptorReply(4))
		case 2:
			rest := parsePeripheralHeader(t, payload, desc, adcOpGetValue, "adc0")
			if binary.LittleEndian.Uint32(rest) != 2 {
				return false, errors.New("expected channel 2")
			}
			value := binary.LittleEndian.AppendUint64(nil, math.Float64bits(3.3))
			return false, writeResponse(conn, protocol.CodeSuccessWithData, cmd, value)
		default:
			rest := parsePeripheralHeader(t, payload, desc, adcOpSetValue, "adc0")
			if binary.LittleEndian.Uint32(rest[:4]) != 1 {
				return false, errors.New("expected channel 1")
			}
			if math.Float64frombits(binary.LittleEndian.Uint64(rest[4:])) != 1.8 {
				return false, errors.New("expected value 1.8")
			}
			return true, writeResponse(conn, protocol.CodeSuccessWithoutData, cmd, nil)
		}
	})

	c := handshaken(t, port)
	m, err := c.GetMachine("m1")
	if err != nil {
		t.Fatalf("get machine: %v", err)
	}
	adc, err := m.GetAdc("adc0")
	if err != nil {
		t.Fatalf("get adc: %v", err)
	}

	count, err := adc.ChannelCount()
	if err != nil {
		t.Fatalf("channel count: %v", err)
	}
	if count != 4 {
		t.Fatalf("channel count: got %d want 4", count)
	}
	v, err := adc.ChannelValue(2)
	if err != nil {
		t.Fatalf("channel value: %v", err)
	}
	if v != 3.3 {
		t.Fatalf("channel value: got %v want 3.3", v)
	}
	if err := adc.SetChannelValue(1, 1.8); err != nil {
		t.Fatalf("set channel value: %v", err)
	}

	if _, err := adc.ChannelValue(-1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative channel: expected ErrInvalidArgument, got %v", err)
	}
}

func TestGpioStateRoundTrips(t *testing.T) {
	testlog.Start(t)
	const desc = int32(3)
	step := 0
	port := machinePeer(t, desc, func(conn net.Conn, cmd protocol.Command, payload []byte) (bool, error) {
		if cmd != protocol.CommandGpio {
			return false, errors.New("expected gpio command")
		}
		step++
		switch step {
		case 1:
			rest := parsePeripheralHeader(t, payload, desc, gpioOpGetState, "gpio0")
			if binary.LittleEndian.Uint32(rest) != 5 {
				return false, errors.New("expected pin 5")
			}
			return false, writeResponse(conn, protocol.CodeSuccessWithData, cmd, []byte{byte(GpioHigh)})
		default:
			rest := parsePeripheralHeader(t, payload, desc, gpioOpSetState, "gpio0")
			if binary.LittleEndian.Uint32(rest[:4]) != 7 || rest[4] != byte(GpioLow) {
				return false, errors.New("expected pin 7 driven low")
			}
			return true, writeResponse(conn, protocol.CodeSuccessWithoutData, cmd, nil)
		}
	})

	c := handshaken(t, port)
	m, err := c.GetMachine("m1")
	if err != nil {
		t.Fatalf("get machine: %v", err)
	}
	gpio, err := m.GetGpio("gpio0")
	if err != nil {
		t.Fatalf("get gpio: %v", err)
	}

	state, err := gpio.State(5)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state != GpioHigh {
		t.Fatalf("state: got %s want high", state)
	}
	if err := gpio.SetState(7, GpioLow); err != nil {
		t.Fatalf("set state: %v", err)
	}
}

func TestGpioCallbackRegistry(t *testing.T) {
	testlog.Start(t)
	g := &Gpio{path: "gpio0", callbacks: make(map[int]GpioCallback)}

	var order []string
	h1, err := g.RegisterStateChangeCallback(func(pin int, state GpioState) {
		order = append(order, "first")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	h2, err := g.RegisterStateChangeCallback(func(pin int, state GpioState) {
		order = append(order, "second")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("handles must be distinct")
	}

	g.DispatchStateChange(2, GpioHigh)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("dispatch order: %v", order)
	}

	if err := g.UnregisterStateChangeCallback(h1); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	order = nil
	g.DispatchStateChange(2, GpioLow)
	if len(order) != 1 || order[0] != "second" {
		t.Fatalf("dispatch after unregister: %v", order)
	}

	if err := g.UnregisterStateChangeCallback(h1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double unregister: expected ErrNotFound, got %v", err)
	}
	if _, err := g.RegisterStateChangeCallback(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("nil callback: expected ErrInvalidArgument, got %v", err)
	}
}

func TestBusContextReadWrite(t *testing.T) {
	testlog.Start(t)
	const desc = int32(21)
	step := 0
	port := machinePeer(t, desc, func(conn net.Conn, cmd protocol.Command, payload []byte) (bool, error) {
		if cmd != protocol.CommandSystemBus {
			return false, errors.New("expected system_bus command")
		}
		step++
		switch step {
		case 1:
			rest := parsePeripheralHeader(t, payload, desc, busOpRead, "sysbus")
			nodeLen := binary.LittleEndian.Uint32(rest[:4])
			rest = rest[4:]
			if string(rest[:nodeLen]) != "sysbus.sram" {
				return false, errors.New("unexpected node path")
			}
			rest = rest[nodeLen:]
			if AccessWidth(rest[0]) != WidthDWord {
				return false, errors.New("expected dword width")
			}
			if binary.LittleEndian.Uint64(rest[1:9]) != 0x2000_0000 {
				return false, errors.New("unexpected address")
			}
			return false, writeResponse(conn, protocol.CodeSuccessWithData, cmd,
				binary.LittleEndian.AppendUint32(nil, 0xCAFEBABE))
		case 2:
			rest := parsePeripheralHeader(t, payload, desc, busOpWrite, "sysbus")
			nodeLen := binary.LittleEndian.Uint32(rest[:4])
			rest = rest[4+nodeLen:]
			if AccessWidth(rest[0]) != WidthWord {
				return false, errors.New("expected word width")
			}
			if binary.LittleEndian.Uint16(rest[9:11]) != 0xBEEF {
				return false, errors.New("unexpected word value")
			}
			return false, writeResponse(conn, protocol.CodeSuccessWithoutData, cmd, nil)
		default:
			rest := parsePeripheralHeader(t, payload, desc, busOpRead, "sysbus")
			nodeLen := binary.LittleEndian.Uint32(rest[:4])
			rest = rest[4+nodeLen:]
			if AccessWidth(rest[0]) != WidthMultiByte {
				return false, errors.New("expected multi-byte width")
			}
			if binary.LittleEndian.Uint32(rest[9:13]) != 3 {
				return false, errors.New("expected 3-byte count")
			}
			return true, writeResponse(conn, protocol.CodeSuccessWithData, cmd, []byte{1, 2, 3})
		}
	})

	c := handshaken(t, port)
	m, err := c.GetMachine("m1")
	if err != nil {
		t.Fatalf("get machine: %v", err)
	}
	bus, err := m.GetSysBus("sysbus")
	if err != nil {
		t.Fatalf("get sysbus: %v", err)
	}
	bc, err := bus.GetBusContext("sysbus.sram")
	if err != nil {
		t.Fatalf("get bus context: %v", err)
	}

	v, err := bc.Read(0x2000_0000, WidthDWord)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 0xCAFEBABE {
		t.Fatalf("read value: got 0x%x", v)
	}
	if err := bc.Write(0x2000_0004, WidthWord, 0xBEEF); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := bc.ReadBytes(0x2000_0008, 3)
	if err != nil {
		t.Fatalf("read bytes: %v", err)
	}
	if len(data) != 3 || data[0] != 1 || data[2] != 3 {
		t.Fatalf("read bytes: got % x", data)
	}
}

func TestBusContextArgumentValidation(t *testing.T) {
	testlog.Start(t)
	bc := &BusContext{bus: &SysBus{machine: &Machine{}, path: "sysbus"}, nodePath: "sysbus.sram"}

	if _, err := bc.Read(0, WidthMultiByte); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("multi-byte Read: expected ErrInvalidArgument, got %v", err)
	}
	if err := bc.Write(0, AccessWidth(3), 1); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("invalid width: expected ErrInvalidArgument, got %v", err)
	}
	if err := bc.Write(0, WidthByte, 0x1FF); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("overflowing value: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := bc.ReadBytes(0, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("zero count: expected ErrInvalidArgument, got %v", err)
	}
	if err := bc.WriteBytes(0, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty write: expected ErrInvalidArgument, got %v", err)
	}
}

func TestPeripheralPathValidation(t *testing.T) {
	testlog.Start(t)
	m := &Machine{}
	if _, err := m.GetAdc("  "); !errors.Is(err, ErrPeripheralInit) {
		t.Fatalf("empty adc path: expected ErrPeripheralInit, got %v", err)
	}
	if _, err := m.GetGpio(""); !errors.Is(err, ErrPeripheralInit) {
		t.Fatalf("empty gpio path: expected ErrPeripheralInit, got %v", err)
	}
	if _, err := m.GetSysBus(""); !errors.Is(err, ErrPeripheralInit) {
		t.Fatalf("empty sysbus path: expected ErrPeripheralInit, got %v", err)
	}
}

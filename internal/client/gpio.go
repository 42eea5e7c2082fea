package client

import (
	"sync"

	"github.com/simforge/extctl/internal/protocol"
)

// GpioState is one pin level.
type GpioState uint8

const (
	GpioLow  GpioState = 0
	GpioHigh GpioState = 1
)

func (s GpioState) String() string {
	if s == GpioHigh {
		return "high"
	}
	return "low"
}

// GpioCallback observes one pin state change.
type GpioCallback func(pin int, state GpioState)

// GPIO sub-operations.
const (
	gpioOpGetState byte = 0
	gpioOpSetState byte = 1
)

// Gpio is a GPIO peripheral handle. The callback registry is local dispatch
// bookkeeping only: how the server multiplexes async state-change events onto
// the connection is not covered by the activated protocol version, so
// DispatchStateChange is exposed for whatever pump eventually feeds it.
type Gpio struct {
	machine *Machine
	path    string

	cbMu       sync.Mutex
	nextHandle int
	order      []int
	callbacks  map[int]GpioCallback
}

func (g *Gpio) Path() string {
	return g.path
}

// State reads one pin.
func (g *Gpio) State(pin int) (GpioState, error) {
	if pin < 0 {
		return GpioLow, errorf(CodeInvalidArgument, "gpio pin %d: must be non-negative", pin)
	}
	payload := appendPeripheralHeader(nil, g.machine.descriptor, gpioOpGetState, g.path)
	payload = appendU32(payload, uint32(pin))
	reply, err := g.machine.client.Execute(protocol.CommandGpio, payload)
	if err != nil {
		return GpioLow, err
	}
	if len(reply) != 1 {
		return GpioLow, errorf(CodeBadResponse, "gpio state: expected 1-byte payload, got %d bytes", len(reply))
	}
	switch reply[0] {
	case byte(GpioLow):
		return GpioLow, nil
	case byte(GpioHigh):
		return GpioHigh, nil
	default:
		return GpioLow, errorf(CodeBadResponse, "gpio state: invalid level 0x%02x", reply[0])
	}
}

// SetState drives one pin.
func (g *Gpio) SetState(pin int, state GpioState) error {
	if pin < 0 {
		return errorf(CodeInvalidArgument, "gpio pin %d: must be non-negative", pin)
	}
	if state != GpioLow && state != GpioHigh {
		return errorf(CodeInvalidArgument, "gpio state %d: must be low (0) or high (1)", state)
	}
	payload := appendPeripheralHeader(nil, g.machine.descriptor, gpioOpSetState, g.path)
	payload = appendU32(payload, uint32(pin))
	payload = append(payload, byte(state))
	_, err := g.machine.client.Execute(protocol.CommandGpio, payload)
	return err
}

// RegisterStateChangeCallback adds a listener and returns its handle id.
// Registration is local only; it does not itself change server behavior.
func (g *Gpio) RegisterStateChangeCallback(cb GpioCallback) (int, error) {
	if cb == nil {
		return 0, errorf(CodeInvalidArgument, "gpio callback must not be nil")
	}
	g.cbMu.Lock()
	defer g.cbMu.Unlock()
	g.nextHandle++
	handle := g.nextHandle
	g.order = append(g.order, handle)
	g.callbacks[handle] = cb
	return handle, nil
}

// UnregisterStateChangeCallback removes a listener by handle id.
func (g *Gpio) UnregisterStateChangeCallback(handle int) error {
	g.cbMu.Lock()
	defer g.cbMu.Unlock()
	if _, ok := g.callbacks[handle]; !ok {
		return errorf(CodeNotFound, "gpio callback handle %d not registered", handle)
	}
	delete(g.callbacks, handle)
	for i, h := range g.order {
		if h == handle {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return nil
}

// DispatchStateChange invokes registered callbacks in registration order.
// Callbacks run outside the registry lock.
func (g *Gpio) DispatchStateChange(pin int, state GpioState) {
	g.cbMu.Lock()
	ordered := make([]GpioCallback, 0, len(g.order))
	for _, h := range g.order {
		if cb, ok := g.callbacks[h]; ok {
			ordered = append(ordered, cb)
		}
	}
	g.cbMu.Unlock()

	for _, cb := range ordered {
		cb(pin, state)
	}
}

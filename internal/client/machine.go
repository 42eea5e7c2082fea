package client

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/simforge/extctl/internal/protocol"
)

// machineEntry is one cache slot: a non-owning reference plus the number of
// handles GetMachine has handed out for it.
type machineEntry struct {
	machine *Machine
	refs    int
}

// Machine is a handle to one remote machine. Handles for the same name are
// shared: repeated GetMachine calls return the same Machine while any caller
// still holds one. Each GetMachine must be balanced by one Release.
type Machine struct {
	client     *Client
	name       string
	descriptor int32

	metaMu   sync.RWMutex
	metadata map[string]string
}

// GetMachine looks a machine up by name. The reply must be exactly four
// bytes, a little-endian signed descriptor; negative means not found.
func (c *Client) GetMachine(name string) (*Machine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply, err := c.executeLocked(protocol.CommandGetMachine, appendString(nil, name))
	if err != nil {
		return nil, err
	}
	if len(reply) != 4 {
		return nil, errorf(CodeBadResponse, "get_machine: expected 4-byte descriptor, got %d bytes", len(reply))
	}
	descriptor := int32(binary.LittleEndian.Uint32(reply))
	if descriptor < 0 {
		return nil, errorf(CodeNotFound, "machine %q not found", name)
	}

	if entry, ok := c.machines[name]; ok {
		if entry.machine.descriptor == descriptor {
			entry.refs++
			return entry.machine, nil
		}
		// The server reassigned the name to a different instance. The stale
		// entry must not shadow it; live handles keep their old descriptor.
		c.log.Warn().Str("machine", name).
			Int32("cached", entry.machine.descriptor).
			Int32("received", descriptor).
			Msg("descriptor changed, replacing cache entry")
		delete(c.machines, name)
	}

	m := &Machine{
		client:     c,
		name:       name,
		descriptor: descriptor,
		metadata:   make(map[string]string),
	}
	c.machines[name] = &machineEntry{machine: m, refs: 1}
	return m, nil
}

// Release drops one reference obtained from GetMachine. The cache entry is
// reclaimed when the last reference goes; the next lookup builds a fresh
// handle.
func (m *Machine) Release() {
	c := m.client
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.machines[m.name]
	if !ok || entry.machine != m {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(c.machines, m.name)
	}
}

func (m *Machine) Name() string {
	return m.name
}

func (m *Machine) Descriptor() int32 {
	return m.descriptor
}

// Metadata reads a local metadata value. Metadata is client-side bookkeeping
// shared by every handle alias of this machine.
func (m *Machine) Metadata(key string) (string, bool) {
	m.metaMu.RLock()
	defer m.metaMu.RUnlock()
	v, ok := m.metadata[key]
	return v, ok
}

func (m *Machine) SetMetadata(key, value string) {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	m.metadata[key] = value
}

func (m *Machine) RunFor(duration uint64, unit TimeUnit) error {
	return m.client.RunFor(duration, unit)
}

func (m *Machine) AsyncRunFor(duration uint64, unit TimeUnit) *RunHandle {
	return m.client.AsyncRunFor(duration, unit)
}

func (m *Machine) GetTime(unit TimeUnit) (uint64, error) {
	return m.client.GetCurrentTime(unit)
}

// GetAdc resolves an ADC peripheral by path relative to this machine.
func (m *Machine) GetAdc(path string) (*Adc, error) {
	if err := validatePeripheralPath("adc", path); err != nil {
		return nil, err
	}
	return &Adc{machine: m, path: path}, nil
}

// GetGpio resolves a GPIO peripheral by path relative to this machine.
func (m *Machine) GetGpio(path string) (*Gpio, error) {
	if err := validatePeripheralPath("gpio", path); err != nil {
		return nil, err
	}
	return &Gpio{machine: m, path: path, callbacks: make(map[int]GpioCallback)}, nil
}

// GetSysBus resolves the system bus by path relative to this machine.
func (m *Machine) GetSysBus(path string) (*SysBus, error) {
	if err := validatePeripheralPath("sysbus", path); err != nil {
		return nil, err
	}
	return &SysBus{machine: m, path: path}, nil
}

func validatePeripheralPath(kind, path string) error {
	if strings.TrimSpace(path) == "" {
		return errorf(CodePeripheralInit, "%s: empty peripheral path", kind)
	}
	return nil
}

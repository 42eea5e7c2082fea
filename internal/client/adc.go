package client

import (
	"encoding/binary"
	"math"

	"github.com/simforge/extctl/internal/protocol"
)

// ADC sub-operations, first field after the peripheral header.
const (
	adcOpChannelCount byte = 0
	adcOpGetValue     byte = 1
	adcOpSetValue     byte = 2
)

// Adc is an ADC peripheral handle. Channel values are float64 on the wire
// (f64 LE), matching the simulator's volt-level injection interface.
type Adc struct {
	machine *Machine
	path    string
}

func (a *Adc) Path() string {
	return a.path
}

// ChannelCount reads the number of channels the peripheral exposes.
func (a *Adc) ChannelCount() (int, error) {
	payload := appendPeripheralHeader(nil, a.machine.descriptor, adcOpChannelCount, a.path)
	reply, err := a.machine.client.Execute(protocol.CommandAdc, payload)
	if err != nil {
		return 0, err
	}
	if len(reply) != 4 {
		return 0, errorf(CodeBadResponse, "adc channel count: expected 4-byte payload, got %d bytes", len(reply))
	}
	count := int32(binary.LittleEndian.Uint32(reply))
	if count < 0 {
		return 0, errorf(CodeBadResponse, "adc channel count: negative count %d", count)
	}
	return int(count), nil
}

// ChannelValue reads one channel.
func (a *Adc) ChannelValue(channel int) (float64, error) {
	if channel < 0 {
		return 0, errorf(CodeInvalidArgument, "adc channel %d: must be non-negative", channel)
	}
	payload := appendPeripheralHeader(nil, a.machine.descriptor, adcOpGetValue, a.path)
	payload = appendU32(payload, uint32(channel))
	reply, err := a.machine.client.Execute(protocol.CommandAdc, payload)
	if err != nil {
		return 0, err
	}
	if len(reply) != 8 {
		return 0, errorf(CodeBadResponse, "adc channel value: expected 8-byte payload, got %d bytes", len(reply))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(reply)), nil
}

// SetChannelValue injects a value into one channel.
func (a *Adc) SetChannelValue(channel int, value float64) error {
	if channel < 0 {
		return errorf(CodeInvalidArgument, "adc channel %d: must be non-negative", channel)
	}
	payload := appendPeripheralHeader(nil, a.machine.descriptor, adcOpSetValue, a.path)
	payload = appendU32(payload, uint32(channel))
	payload = appendF64(payload, value)
	_, err := a.machine.client.Execute(protocol.CommandAdc, payload)
	return err
}

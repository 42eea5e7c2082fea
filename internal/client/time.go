package client

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/simforge/extctl/internal/protocol"
)

// TimeUnit is the divisor applied to the server's microsecond counter.
type TimeUnit uint64

const (
	Microseconds TimeUnit = 1
	Milliseconds TimeUnit = 1000
	Seconds      TimeUnit = 1000000
)

func (u TimeUnit) String() string {
	switch u {
	case Microseconds:
		return "us"
	case Milliseconds:
		return "ms"
	case Seconds:
		return "s"
	default:
		return fmt.Sprintf("1/%d s", uint64(u))
	}
}

// ParseTimeUnit maps a unit name to its divisor.
func ParseTimeUnit(raw string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "us", "micro", "microseconds":
		return Microseconds, nil
	case "ms", "milli", "milliseconds":
		return Milliseconds, nil
	case "s", "sec", "seconds":
		return Seconds, nil
	default:
		return 0, errorf(CodeInvalidArgument, "unknown time unit %q", raw)
	}
}

// RunFor advances simulated time by duration in the given unit. The wire
// payload is the duration as a u64 LE microsecond count; durations whose
// microsecond product does not fit in 64 bits are rejected.
func (c *Client) RunFor(duration uint64, unit TimeUnit) error {
	if unit == 0 {
		return errorf(CodeInvalidArgument, "run_for: zero time unit")
	}
	if duration > math.MaxUint64/uint64(unit) {
		return errorf(CodeInvalidArgument, "run_for: %d %s overflows the microsecond counter", duration, unit)
	}
	payload := appendU64(nil, duration*uint64(unit))
	_, err := c.Execute(protocol.CommandRunFor, payload)
	return err
}

// GetCurrentTimeMicroseconds reads the server's 8-byte little-endian
// microsecond counter.
func (c *Client) GetCurrentTimeMicroseconds() (uint64, error) {
	payload, err := c.Execute(protocol.CommandGetTime, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) != 8 {
		return 0, errorf(CodeBadResponse, "get_time: expected 8-byte payload, got %d bytes", len(payload))
	}
	return binary.LittleEndian.Uint64(payload), nil
}

// GetCurrentTime converts the microsecond counter by integer division.
func (c *Client) GetCurrentTime(unit TimeUnit) (uint64, error) {
	us, err := c.GetCurrentTimeMicroseconds()
	if err != nil {
		return 0, err
	}
	if unit == 0 {
		return 0, errorf(CodeInvalidArgument, "get_time: zero time unit")
	}
	return us / uint64(unit), nil
}

package client

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simforge/extctl/internal/logging"
	"github.com/simforge/extctl/internal/observability"
	"github.com/simforge/extctl/internal/protocol"
	"github.com/simforge/extctl/internal/session"
	"github.com/simforge/extctl/internal/transport"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 5555
)

type Config struct {
	Host    string
	Port    uint16
	Session session.Config
}

func DefaultConfig() Config {
	return Config{
		Host:    DefaultHost,
		Port:    DefaultPort,
		Session: session.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Host) == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	c.Session = c.Session.WithDefaults()
	return c
}

// Client is one External Control connection. The mutex serializes command
// round trips and guards the handshake flag and machine cache; the cache is
// only consulted between command executions, never while one is in flight.
type Client struct {
	cfg Config
	log zerolog.Logger

	mu         sync.Mutex
	tr         *transport.Transport
	handshaken bool
	machines   map[string]*machineEntry
}

// Connect dials the endpoint, retrying per the session backoff config.
// A client that fails to connect is unusable; this is the one unrecoverable
// startup condition.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	logger := logging.New("client")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var attempt int
	for {
		attempt++
		tr, err := transport.Connect(ctx, cfg.Host, cfg.Port, cfg.Session)
		if err == nil {
			observability.RecordConnection(true)
			return &Client{
				cfg:      cfg,
				log:      logger,
				tr:       tr,
				machines: make(map[string]*machineEntry),
			}, nil
		}

		logger.Warn().Int("attempt", attempt).Str("host", cfg.Host).Uint16("port", cfg.Port).
			Err(err).Msg("dial failed")
		if attempt >= cfg.Session.MaxConnectAttempts {
			observability.RecordConnection(false)
			return nil, errorf(CodeConnectionFailed, "connect %s:%d: %v", cfg.Host, cfg.Port, err)
		}
		delay := cfg.Session.Backoff.RetryDelay(attempt, rng)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			observability.RecordConnection(false)
			return nil, errorf(CodeConnectionFailed, "connect %s:%d: %v", cfg.Host, cfg.Port, ctx.Err())
		case <-timer.C:
		}
	}
}

// Close disconnects. Closing an already-closed client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.teardownLocked()
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tr != nil && c.tr.Connected()
}

func (c *Client) teardownLocked() error {
	c.handshaken = false
	if c.tr == nil {
		return nil
	}
	return c.tr.Close()
}

// Handshake sends the fixed activation table and reads the single-byte
// result. It must succeed before any command is sent; a rejection leaves the
// connection open and the caller decides whether to retry. Once negotiated,
// further calls return nil without touching the wire.
func (c *Client) Handshake() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tr == nil || !c.tr.Connected() {
		return errorf(CodeNotConnected, "handshake: not connected")
	}
	// The activation table is sent once per connection; repeating it against
	// a negotiated session is a no-op.
	if c.handshaken {
		return nil
	}

	buf, err := protocol.EncodeHandshake(protocol.DefaultActivations())
	if err != nil {
		return errorf(CodeInvalidArgument, "handshake: %v", err)
	}
	if err := c.tr.Send(buf); err != nil {
		c.handshaken = false
		observability.RecordHandshake(false)
		return errorf(CodeFatal, "handshake send: %v", err)
	}
	reply, err := c.tr.ReceiveTimeout(1, c.cfg.Session.HandshakeTimeout)
	if err != nil {
		c.handshaken = false
		observability.RecordHandshake(false)
		return errorf(CodeFatal, "handshake receive: %v", err)
	}
	if reply[0] != byte(protocol.CodeOkHandshake) {
		observability.RecordHandshake(false)
		c.log.Warn().Uint8("raw", reply[0]).Msg("handshake rejected")
		return errorf(CodeHandshakeRejected, "handshake rejected: server replied 0x%02x", reply[0])
	}

	c.handshaken = true
	observability.RecordHandshake(true)
	c.log.Debug().Msg("handshake activated")
	return nil
}

// Execute performs one command round trip: encode, send, decode, validate
// echo. Transport failures mark the client disconnected.
func (c *Client) Execute(cmd protocol.Command, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executeLocked(cmd, payload)
}

func (c *Client) executeLocked(cmd protocol.Command, payload []byte) ([]byte, error) {
	if c.tr == nil || !c.tr.Connected() {
		return nil, errorf(CodeNotConnected, "%s: not connected", cmd)
	}
	if !c.handshaken {
		return nil, errorf(CodeHandshakeRequired, "%s: handshake has not completed", cmd)
	}

	start := time.Now()
	out, err := c.roundTripLocked(cmd, payload)
	observability.RecordCommand(cmd.String(), time.Since(start), err == nil)
	return out, err
}

func (c *Client) roundTripLocked(cmd protocol.Command, payload []byte) ([]byte, error) {
	if err := c.tr.Send(protocol.EncodeRequest(cmd, payload)); err != nil {
		_ = c.teardownLocked()
		return nil, errorf(CodeFatal, "%s send: %v", cmd, err)
	}

	resp, err := protocol.ReadResponse(c.tr, cmd)
	if err != nil {
		if protocol.Recoverable(err) {
			c.log.Warn().Str("command", cmd.String()).Err(err).Msg("protocol anomaly")
			return nil, errorf(CodeProtocolAnomaly, "%s: %v", cmd, err)
		}
		_ = c.teardownLocked()
		if isTimeout(err) {
			return nil, errorf(CodeTimeout, "%s receive: %v", cmd, err)
		}
		return nil, errorf(CodeFatal, "%s receive: %v", cmd, err)
	}

	switch resp.Code {
	case protocol.CodeSuccessWithData:
		return resp.Payload, nil
	case protocol.CodeSuccessWithoutData:
		return nil, nil
	case protocol.CodeCommandFailed:
		return nil, errorf(CodeCommandFailed, "%s failed: %s", cmd, diagnostic(resp.Payload))
	case protocol.CodeFatalError:
		return nil, errorf(CodeRemoteFatal, "%s: server fatal: %s", cmd, diagnostic(resp.Payload))
	case protocol.CodeInvalidCommand:
		return nil, errorf(CodeInvalidCommand, "server rejected %s as invalid", cmd)
	default:
		return nil, errorf(CodeProtocolAnomaly, "%s: unexpected return code %s in command response", cmd, resp.Code)
	}
}

// diagnostic renders an error payload: textual when printable, hex otherwise.
func diagnostic(payload []byte) string {
	if len(payload) == 0 {
		return "(no diagnostic)"
	}
	for _, b := range payload {
		if (b < 0x20 || b > 0x7E) && b != '\n' && b != '\t' {
			return protocol.DumpBytes(payload)
		}
	}
	return strings.TrimSpace(string(payload))
}

func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

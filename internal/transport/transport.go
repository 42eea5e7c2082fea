// Package transport owns one blocking TCP socket with full-buffer send and
// receive semantics. It has no knowledge of the protocol above it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simforge/extctl/internal/session"
)

var (
	ErrConnectFailed = errors.New("transport: unable to connect")
	ErrNotConnected  = errors.New("transport: not connected")
	ErrSendFailed    = errors.New("transport: send failed")
	ErrReceiveFailed = errors.New("transport: receive failed")
)

// Transport is one live TCP connection. A failed Send or Receive tears the
// connection down; no partial-frame state survives across calls.
type Transport struct {
	mu           sync.Mutex
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Connect resolves host and attempts each candidate address in order,
// returning a transport over the first connection that succeeds.
func Connect(ctx context.Context, host string, port uint16, cfg session.Config) (*Transport, error) {
	cfg = cfg.WithDefaults()
	portStr := strconv.Itoa(int(port))

	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %q: %v", ErrConnectFailed, host, err)
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	var lastErr error
	for _, addr := range addrs {
		target := net.JoinHostPort(addr.IP.String(), portStr)
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			log.Debug().Str("addr", target).Err(err).Msg("transport: candidate dial failed")
			lastErr = err
			continue
		}
		return &Transport{
			conn:         conn,
			readTimeout:  cfg.ReadTimeout,
			writeTimeout: cfg.WriteTimeout,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s port %s: %v", ErrConnectFailed, host, portStr, lastErr)
}

// Connected reports whether the socket is still open.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Send writes the whole buffer or tears the connection down.
func (t *Transport) Send(p []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	if t.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	for sent := 0; sent < len(p); {
		n, err := conn.Write(p[sent:])
		if err != nil || n == 0 {
			_ = t.Close()
			if err == nil {
				err = io.ErrShortWrite
			}
			return fmt.Errorf("%w after %d/%d bytes: %v", ErrSendFailed, sent+n, len(p), err)
		}
		sent += n
	}
	return nil
}

// Receive reads exactly n bytes or tears the connection down.
func (t *Transport) Receive(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := io.ReadFull(t, buf)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("%w after %d/%d bytes: %v", ErrReceiveFailed, got, n, err)
	}
	return buf, nil
}

// ReceiveTimeout reads exactly n bytes under an explicit deadline, ignoring
// the configured read timeout. A failed read tears the connection down.
func (t *Transport) ReceiveTimeout(n int, d time.Duration) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}
	if d > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(d))
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(conn, buf)
	if err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("%w after %d/%d bytes: %v", ErrReceiveFailed, got, n, err)
	}
	return buf, nil
}

// Read implements io.Reader so response decoding can run directly against the
// socket. Unlike Receive it does not tear down on error; the caller decides.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrNotConnected
	}
	if t.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}
	return conn.Read(p)
}

// Close is idempotent: closing an already-closed transport is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

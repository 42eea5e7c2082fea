package client

import (
	"context"

	"github.com/google/uuid"
)

// RunHandle resolves to the outcome of an asynchronous RunFor. The error is
// valid once Done is closed.
type RunHandle struct {
	id   string
	done chan struct{}
	err  error
}

func (h *RunHandle) ID() string {
	return h.id
}

func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Err returns the run outcome. Only meaningful after Done is closed.
func (h *RunHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return errorf(CodeInvalidArgument, "run %s still in flight", h.id)
	}
}

// Wait blocks until the run resolves or ctx is cancelled. Cancellation
// abandons the wait, not the run: the command cannot be recalled once sent.
func (h *RunHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

// AsyncRunFor executes RunFor on its own goroutine. The run serializes
// against concurrent synchronous calls through the connection lock; it does
// not run in parallel at the wire level.
func (c *Client) AsyncRunFor(duration uint64, unit TimeUnit) *RunHandle {
	h := &RunHandle{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	go func() {
		h.err = c.RunFor(duration, unit)
		close(h.done)
	}()
	return h
}

package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Call when the worker has not completed
	// its readiness handshake.
	ErrNotReady = errors.New("worker not ready")

	// ErrDisconnected is the failure assigned to every pending call when
	// the worker terminates, expectedly or not.
	ErrDisconnected = errors.New("worker disconnected")

	// ErrInitTimeout is returned by Start when no ready line arrives
	// within the ready timeout. The process is left running but the
	// bridge is unusable; the caller decides whether to kill it.
	ErrInitTimeout = errors.New("worker initialization timeout")
)

// WorkerError is a business-logic failure reported by the worker in the
// "error" field of a response line.
type WorkerError struct {
	Message string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker error: %s", e.Message)
}

// Package bridge owns the long-lived OS-automation worker subprocess and
// provides a call/response abstraction over its line-delimited JSON stdio
// protocol.
//
// The worker prints exactly one {"type":"ready"} line at startup, any number
// of {"type":"log"} diagnostics, and otherwise one response object per host
// request, in request order. The bridge correlates responses to calls by
// that FIFO order; an incrementing "id" field is embedded in each outbound
// line for the worker's own logging, but is not used for matching.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rakshithsajjan/invisible-ai-sidekick/internal/config"
)

// State is the lifecycle state of the worker process.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Response is a decoded worker response line.
type Response map[string]any

type callResult struct {
	resp Response
	err  error
}

// pendingCall is one outstanding request slot, fulfilled exactly once in
// submission order.
type pendingCall struct {
	id int64
	ch chan callResult
}

// Bridge manages one worker subprocess. At most one worker is live per
// Bridge instance.
type Bridge struct {
	command      string
	args         []string
	readyTimeout time.Duration

	nextID atomic.Int64

	mu           sync.Mutex
	state        State
	cmd          *exec.Cmd
	stdin        io.WriteCloser
	pending      []*pendingCall
	readyCh      chan struct{}
	readySeen    bool
	initTimedOut bool
	shuttingDown bool
	onDisconnect func(reason string)
}

// New creates a Bridge for the configured worker command. The worker is not
// spawned until Start.
func New(cfg config.WorkerConfig) *Bridge {
	timeout := cfg.ReadyTimeout.Duration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Bridge{
		command:      cfg.Command,
		args:         cfg.Args,
		readyTimeout: timeout,
		state:        StateIdle,
	}
}

// OnDisconnect registers a handler invoked once when the worker terminates,
// with a short reason ("shutdown" or "exit"). Must be set before Start.
func (b *Bridge) OnDisconnect(fn func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onDisconnect = fn
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start spawns the worker with the inherited environment and blocks until
// the ready line is observed or the ready timeout elapses. On timeout the
// process is left running and the bridge stays unusable: a late ready line
// does not transition it to Ready.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.cmd != nil && b.state != StateTerminated {
		timedOut := b.initTimedOut
		b.mu.Unlock()
		if timedOut {
			// The process is still up but never became Ready; a repeat
			// Start must not report success.
			return ErrInitTimeout
		}
		slog.Debug("worker already started")
		return nil
	}

	cmd := exec.Command(b.command, b.args...)
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("worker stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("worker stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		b.mu.Unlock()
		return fmt.Errorf("spawn worker: %w", err)
	}

	b.cmd = cmd
	b.stdin = stdin
	b.state = StateStarting
	b.readySeen = false
	b.initTimedOut = false
	b.shuttingDown = false
	b.readyCh = make(chan struct{})
	readyCh := b.readyCh
	b.mu.Unlock()

	stdoutDone := make(chan struct{})
	go b.readStdout(stdout, stdoutDone)
	go b.readStderr(stderr)
	go b.reap(cmd, stdoutDone)

	select {
	case <-readyCh:
		return nil
	case <-time.After(b.readyTimeout):
		b.mu.Lock()
		b.initTimedOut = true
		b.mu.Unlock()
		return ErrInitTimeout
	case <-ctx.Done():
		b.mu.Lock()
		b.initTimedOut = true
		b.mu.Unlock()
		return ctx.Err()
	}
}

// Call serializes msg as one JSON line, writes it to the worker, and blocks
// until the matching response arrives. Calls complete in submission order.
// No per-call timeout is enforced here; callers needing a deadline wrap the
// call. A copy of msg is sent with an incrementing "id" field added.
func (b *Bridge) Call(msg map[string]any) (Response, error) {
	b.mu.Lock()
	if b.state != StateReady {
		state := b.state
		b.mu.Unlock()
		return nil, fmt.Errorf("%w (state %s)", ErrNotReady, state)
	}

	out := make(map[string]any, len(msg)+1)
	for k, v := range msg {
		out[k] = v
	}
	out["id"] = b.nextID.Add(1)

	line, err := json.Marshal(out)
	if err != nil {
		b.mu.Unlock()
		return nil, fmt.Errorf("marshal worker message: %w", err)
	}

	pc := &pendingCall{id: out["id"].(int64), ch: make(chan callResult, 1)}
	b.pending = append(b.pending, pc)

	// Write under the lock so wire order matches queue order.
	_, werr := b.stdin.Write(append(line, '\n'))
	if werr != nil {
		b.removePending(pc)
		b.mu.Unlock()
		return nil, fmt.Errorf("write to worker: %w", werr)
	}
	b.mu.Unlock()

	result := <-pc.ch
	return result.resp, result.err
}

// removePending drops pc from the queue. Caller holds b.mu.
func (b *Bridge) removePending(pc *pendingCall) {
	for i, p := range b.pending {
		if p == pc {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			return
		}
	}
}

// Shutdown forcibly terminates the worker, fails every pending call with
// ErrDisconnected, and transitions to Terminated. Idempotent.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	if b.cmd == nil || b.state == StateTerminated {
		b.mu.Unlock()
		return
	}
	b.shuttingDown = true
	proc := b.cmd.Process
	b.mu.Unlock()

	if proc != nil {
		_ = proc.Kill()
	}

	b.terminate("shutdown")
}

// terminate moves the bridge to Terminated (once), failing all pending
// calls and notifying the disconnect handler.
func (b *Bridge) terminate(reason string) {
	b.mu.Lock()
	if b.state == StateTerminated {
		b.mu.Unlock()
		return
	}
	b.state = StateTerminated
	drained := b.pending
	b.pending = nil
	handler := b.onDisconnect
	b.mu.Unlock()

	for _, pc := range drained {
		pc.ch <- callResult{err: ErrDisconnected}
	}

	if handler != nil {
		handler(reason)
	}
}

// reap waits for process exit and handles unexpected termination. The
// stdout scanner must finish first: Wait closes the pipes, and a response
// line written just before exit has to reach its pending call before the
// queue is drained with ErrDisconnected.
func (b *Bridge) reap(cmd *exec.Cmd, stdoutDone <-chan struct{}) {
	<-stdoutDone
	err := cmd.Wait()

	b.mu.Lock()
	expected := b.shuttingDown
	b.mu.Unlock()

	if expected {
		// Shutdown already drained the queue; terminate is a no-op here.
		b.terminate("shutdown")
		return
	}

	if err != nil {
		slog.Warn("worker exited", "error", err)
	} else {
		slog.Warn("worker exited cleanly without shutdown")
	}
	b.terminate("exit")
}

func (b *Bridge) readStdout(r io.Reader, done chan<- struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r)
	// UI state dumps can be large.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		b.handleLine(line)
	}
}

func (b *Bridge) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		slog.Warn("worker stderr", "line", scanner.Text())
	}
}

// handleLine processes one stdout line from the worker.
func (b *Bridge) handleLine(line []byte) {
	var msg Response
	if err := json.Unmarshal(line, &msg); err != nil {
		slog.Warn("worker line is not JSON, dropping", "line", string(line))
		return
	}

	switch msg["type"] {
	case "ready":
		b.handleReady()
		return
	case "log":
		if m, ok := msg["message"].(string); ok {
			slog.Info("worker log", "message", m)
		}
		return
	}

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		slog.Warn("worker response with no pending call, dropping", "line", string(line))
		return
	}
	pc := b.pending[0]
	b.pending = b.pending[1:]
	b.mu.Unlock()

	if errMsg, ok := msg["error"].(string); ok && errMsg != "" {
		pc.ch <- callResult{err: &WorkerError{Message: errMsg}}
		return
	}
	pc.ch <- callResult{resp: msg}
}

func (b *Bridge) handleReady() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readySeen {
		// Duplicate ready lines are ignored.
		return
	}
	b.readySeen = true

	if b.state != StateStarting || b.initTimedOut {
		slog.Warn("late ready line ignored", "state", b.state.String())
		return
	}

	b.state = StateReady
	close(b.readyCh)
}

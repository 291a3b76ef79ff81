// Package claudecli spawns the Claude Code CLI in non-interactive
// stream-json mode and demultiplexes its stdout into typed events.
// A Driver is single-shot and owned by exactly one request.
package claudecli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clawdbot/claudebridge/internal/streamjson"
)

// DefaultTimeout bounds a single CLI run.
const DefaultTimeout = 5 * time.Minute

// DefaultBinary is the upstream CLI executable name.
const DefaultBinary = "claude"

// ErrNotInstalled distinguishes a missing CLI executable from other spawn
// failures so the HTTP layer can answer with installation guidance.
var ErrNotInstalled = errors.New(
	"claude CLI not found; install it with: npm install -g @anthropic-ai/claude-code")

// TimeoutError reports driver timer expiry.
type TimeoutError struct {
	// After is the configured timeout that elapsed.
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("claude CLI timed out after %s", e.After)
}

// Kind labels a driver event.
type Kind string

const (
	// KindDelta is an incremental text fragment.
	KindDelta Kind = "content_delta"
	// KindAssistant is a complete assistant message.
	KindAssistant Kind = "assistant"
	// KindResult is the terminal result event.
	KindResult Kind = "result"
	// KindFrame is any other parsed stream-json frame.
	KindFrame Kind = "frame"
	// KindRaw is a stdout line that failed JSON parsing.
	KindRaw Kind = "raw"
	// KindError is a driver-level failure (currently only timeout).
	KindError Kind = "error"
	// KindClose reports process exit; always the final event.
	KindClose Kind = "close"
)

// Event is one entry on the driver's event feed.
type Event struct {
	// Kind labels the event.
	Kind Kind
	// DeltaText is the text fragment for KindDelta.
	DeltaText string
	// Assistant is populated for KindAssistant.
	Assistant *streamjson.AssistantEvent
	// Result is populated for KindResult.
	Result *streamjson.ResultEvent
	// Raw is the original line for KindRaw and KindFrame.
	Raw string
	// Err is populated for KindError.
	Err error
	// ExitCode is populated for KindClose; -1 when the process was signaled.
	ExitCode int
}

// Spec describes a single CLI invocation.
type Spec struct {
	// Prompt is the flattened prompt, passed as a trailing argument.
	Prompt string
	// Model is the CLI model alias (opus, sonnet, haiku).
	Model string
	// SessionID optionally resumes an upstream session.
	SessionID string
	// Dir is the working directory; empty means inherit.
	Dir string
	// Timeout overrides DefaultTimeout when positive.
	Timeout time.Duration
}

// Driver runs one CLI subprocess and exposes its event feed.
type Driver struct {
	// binary is the executable name or path.
	binary string
	// logger records driver diagnostics.
	logger *zap.Logger

	// cmd is the running subprocess.
	cmd *exec.Cmd
	// events is the typed event feed, closed after KindClose.
	events chan Event
	// timer arms at spawn and disarms at close or kill.
	timer *time.Timer
	// killed reports that kill or timeout fired.
	killed atomic.Bool
	// running reports that the subprocess has not closed yet.
	running atomic.Bool
	// started guards the single-shot Start contract.
	started atomic.Bool
	// killOnce makes Kill idempotent.
	killOnce sync.Once

	// emitMu serializes sends against feed closure.
	emitMu sync.Mutex
	// closed reports that the feed has been closed.
	closed bool

	// stderrMu guards stderr.
	stderrMu sync.Mutex
	// stderr captures diagnostic output; never promoted to events.
	stderr []byte
}

// New constructs a Driver for the given executable.
func New(binary string, logger *zap.Logger) *Driver {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		binary: binary,
		logger: logger,
		events: make(chan Event, 64),
	}
}

// Events returns the typed event feed. The channel is closed after the
// KindClose event; consumers must drain it to completion.
func (d *Driver) Events() <-chan Event {
	return d.events
}

// IsRunning reports whether the subprocess is still alive.
func (d *Driver) IsRunning() bool {
	return d.running.Load()
}

// Start spawns the CLI with the fixed stream-json argument set. The prompt
// travels as an argument vector entry, never through a shell, and stdin is
// closed immediately.
func (d *Driver) Start(spec Spec) error {
	if d.started.Swap(true) {
		return errors.New("driver already started")
	}

	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--verbose",
		"--include-partial-messages",
		"--model", spec.Model,
		"--no-session-persistence",
	}
	if spec.SessionID != "" {
		args = append(args, "--session-id", spec.SessionID)
	}
	args = append(args, spec.Prompt)

	cmd := exec.Command(d.binary, args...)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stderr = stderrWriter{driver: d}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w (looked for %q)", ErrNotInstalled, d.binary)
		}
		return fmt.Errorf("spawn claude CLI: %w", err)
	}

	d.cmd = cmd
	d.running.Store(true)

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d.timer = time.AfterFunc(timeout, func() {
		d.killed.Store(true)
		d.logger.Warn("claude CLI timed out", zap.Duration("after", timeout))
		d.emit(Event{Kind: KindError, Err: &TimeoutError{After: timeout}})
		d.terminate()
	})

	go d.readLoop(stdout)
	return nil
}

// Kill terminates the subprocess. It is idempotent: the terminate signal is
// sent exactly once and the timer is disarmed.
func (d *Driver) Kill() {
	d.killOnce.Do(func() {
		d.killed.Store(true)
		if d.timer != nil {
			d.timer.Stop()
		}
		d.terminate()
	})
}

// Stderr returns the captured diagnostic output so far.
func (d *Driver) Stderr() string {
	d.stderrMu.Lock()
	defer d.stderrMu.Unlock()
	return string(d.stderr)
}

// readLoop frames stdout into lines, classifies each one, and finishes with
// a KindClose event before closing the feed.
func (d *Driver) readLoop(stdout io.Reader) {
	var framer streamjson.LineFramer
	buffer := make([]byte, 32*1024)

	for {
		n, err := stdout.Read(buffer)
		if n > 0 {
			for _, line := range framer.Push(buffer[:n]) {
				d.emitLine(line)
			}
		}
		if err != nil {
			break
		}
	}

	if line, ok := framer.Flush(); ok {
		d.emitLine(line)
	}

	exitCode := 0
	if err := d.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.running.Store(false)

	d.emitMu.Lock()
	d.events <- Event{Kind: KindClose, ExitCode: exitCode}
	d.closed = true
	close(d.events)
	d.emitMu.Unlock()
}

// emit places an event on the feed unless it has already been closed.
func (d *Driver) emit(event Event) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	if d.closed {
		return
	}
	d.events <- event
}

// emitLine classifies one framed line and places it on the feed. Parse
// failures surface as KindRaw; framing never aborts.
func (d *Driver) emitLine(line []byte) {
	classified, ok := streamjson.Classify(line)
	if !ok {
		d.emit(Event{Kind: KindRaw, Raw: string(line)})
		return
	}
	switch classified.Kind {
	case streamjson.KindContentDelta:
		d.emit(Event{Kind: KindDelta, DeltaText: classified.DeltaText, Raw: classified.Raw})
	case streamjson.KindAssistant:
		d.emit(Event{Kind: KindAssistant, Assistant: classified.Assistant, Raw: classified.Raw})
	case streamjson.KindResult:
		d.emit(Event{Kind: KindResult, Result: classified.Result, Raw: classified.Raw})
	default:
		d.emit(Event{Kind: KindFrame, Raw: classified.Raw})
	}
}

// terminate sends SIGTERM to the subprocess when it is still alive.
func (d *Driver) terminate() {
	if d.cmd == nil || d.cmd.Process == nil {
		return
	}
	if err := d.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		d.logger.Debug("terminate claude CLI", zap.Error(err))
	}
}

// stderrWriter appends subprocess diagnostics to the driver's capture.
type stderrWriter struct {
	driver *Driver
}

// Write implements io.Writer with a capped capture buffer.
func (w stderrWriter) Write(p []byte) (int, error) {
	const maxCapture = 64 * 1024
	w.driver.stderrMu.Lock()
	defer w.driver.stderrMu.Unlock()
	if len(w.driver.stderr) < maxCapture {
		w.driver.stderr = append(w.driver.stderr, p...)
	}
	return len(p), nil
}

// isNotFound reports whether a spawn error means the executable is missing.
func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}

package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
	"time"
)

// DefaultMaxOutput caps each captured stream.
const DefaultMaxOutput = 4 << 20

// TruncationMarker is appended to a stream that hit its cap.
const TruncationMarker = "\n[output truncated]"

// waitDelay bounds how long Wait blocks on pipes held open by a killed
// process's children after the context is done.
const waitDelay = 2 * time.Second

// Output is what a finished (or killed) process printed.
type Output struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
}

// CommandExecutor is an interface for executing system commands
type CommandExecutor interface {
	// Execute runs a command and blocks until it exits or ctx is done.
	// A non-nil Output is returned whenever the process was started.
	Execute(ctx context.Context, name string, args ...string) (*Output, error)

	// LookPath searches for an executable in the directories named by the PATH
	LookPath(file string) (string, error)
}

// SystemExecutor implements CommandExecutor using os/exec
type SystemExecutor struct {
	maxOutput int
}

// NewSystemExecutor creates a SystemExecutor. maxOutput <= 0 uses DefaultMaxOutput.
func NewSystemExecutor(maxOutput int) *SystemExecutor {
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}
	return &SystemExecutor{maxOutput: maxOutput}
}

// Execute runs a command with separate, capped stdout and stderr capture.
// The process is killed when ctx is done; the returned error is then ctx.Err().
func (e *SystemExecutor) Execute(ctx context.Context, name string, args ...string) (*Output, error) {
	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	runErr := cmd.Wait()

	out := &Output{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  cmd.ProcessState.ExitCode(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return out, exitErr
	}
	return out, runErr
}

// LookPath searches for an executable
func (e *SystemExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// cappedBuffer keeps the first limit bytes written and silently drops the
// rest so a chatty process never blocks on a full pipe.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + TruncationMarker
	}
	return b.buf.String()
}

// MockExecutor is a mock implementation for testing
type MockExecutor struct {
	ExecuteFunc  func(ctx context.Context, name string, args ...string) (*Output, error)
	LookPathFunc func(file string) (string, error)

	mu    sync.Mutex
	Calls []CommandCall
}

// CommandCall records a command execution for verification
type CommandCall struct {
	Name string
	Args []string
}

// Execute records the call and delegates to ExecuteFunc.
func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) (*Output, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, CommandCall{Name: name, Args: append([]string(nil), args...)})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, name, args...)
	}
	return &Output{}, nil
}

// LookPath calls the mock function
func (m *MockExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	return "/usr/bin/" + file, nil
}

// CallCount returns the number of recorded Execute calls.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent Execute call.
func (m *MockExecutor) LastCall() (CommandCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return CommandCall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

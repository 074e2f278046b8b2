package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ksyq12/sslops/internal/errors"
	"github.com/ksyq12/sslops/internal/executor"
	"github.com/ksyq12/sslops/internal/logger"
	"github.com/ksyq12/sslops/internal/metrics"
)

// Defaults applied by NewGateway to zero Config fields.
const (
	DefaultSSHBinary      = "ssh"
	DefaultConnectTimeout = 10 * time.Second
	DefaultTimeout        = 2 * time.Minute
)

// transportExitCode is the status ssh(1) exits with on its own failures.
const transportExitCode = 255

var hostKeyWarning sync.Once

// Config controls how a Gateway invokes ssh.
type Config struct {
	SSHBinary      string
	ConnectTimeout time.Duration
	DefaultTimeout time.Duration
	// KeyDir is where private keys are staged. Empty means os.TempDir().
	KeyDir string
}

// Options tune a single Execute call.
type Options struct {
	// Timeout bounds the whole ssh process. Zero uses Config.DefaultTimeout.
	Timeout time.Duration
	// Elevated runs the command through sudo unless the login user is root.
	Elevated bool
}

// Result is the outcome of one remote command.
type Result struct {
	ID        string
	Succeeded bool
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// Gateway executes commands on remote hosts. It is safe for concurrent use.
type Gateway struct {
	exec    executor.CommandExecutor
	cfg     Config
	metrics *metrics.Metrics
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMetrics records every execution on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a Gateway that spawns processes through exec.
func NewGateway(exec executor.CommandExecutor, cfg Config, opts ...Option) *Gateway {
	if cfg.SSHBinary == "" {
		cfg.SSHBinary = DefaultSSHBinary
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}

	g := &Gateway{exec: exec, cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}

	hostKeyWarning.Do(func() {
		logger.Warn("ssh host key verification is disabled (StrictHostKeyChecking=no); remote targets are trusted as configured")
	})
	return g
}

// Execute runs command on target and waits for it to finish or time out.
func (g *Gateway) Execute(ctx context.Context, target HostTarget, command string, opts Options) (*Result, error) {
	res, err := g.execute(ctx, target, command, opts)

	var d time.Duration
	if res != nil {
		d = res.Duration
	}
	g.metrics.ObserveExecution(outcomeOf(err), d)
	return res, err
}

func (g *Gateway) execute(ctx context.Context, target HostTarget, command string, opts Options) (*Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(command) == "" {
		return nil, errors.Validation("remote command is empty")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = g.cfg.DefaultTimeout
	}

	binary, err := g.exec.LookPath(g.cfg.SSHBinary)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransport, "ssh client not found", err)
	}

	material, err := keyMaterial(target)
	if err != nil {
		return nil, err
	}

	var keyPath, fingerprint string
	if len(material) > 0 {
		key, err := stageKey(g.cfg.KeyDir, material)
		if err != nil {
			return nil, err
		}
		defer key.Remove()
		keyPath, fingerprint = key.Path, key.Fingerprint
	}

	elevate := opts.Elevated && !target.IsRoot()
	args := sshArgs(target, g.cfg.ConnectTimeout, keyPath, WrapCommand(command, elevate))

	res := &Result{ID: uuid.NewString()}
	logger.DebugFields("remote execution", map[string]interface{}{
		"id":          res.ID,
		"target":      target.String(),
		"elevated":    elevate,
		"timeout":     timeout.String(),
		"fingerprint": fingerprint,
	})

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, runErr := g.exec.Execute(runCtx, binary, args...)
	res.Duration = time.Since(start)

	if out != nil {
		res.Stdout = out.Stdout
		res.Stderr = out.Stderr
		res.ExitCode = out.ExitCode
		res.Truncated = out.Truncated
	}

	err = classify(runCtx, res, out, runErr, timeout)
	logger.DebugFields("remote execution finished", map[string]interface{}{
		"id":        res.ID,
		"exit_code": res.ExitCode,
		"duration":  res.Duration.String(),
		"outcome":   outcomeOf(err),
	})
	if out == nil && !res.TimedOut {
		return nil, err
	}
	return res, err
}

func classify(runCtx context.Context, res *Result, out *executor.Output, runErr error, timeout time.Duration) error {
	if ctxErr := runCtx.Err(); ctxErr != nil {
		res.TimedOut = ctxErr == context.DeadlineExceeded
		res.ExitCode = -1
		msg := fmt.Sprintf("remote command timed out after %s", timeout)
		if !res.TimedOut {
			msg = "remote command cancelled"
		}
		return errors.Remote(errors.ErrCodeTimeout, msg, firstNonEmpty(res.Stderr, res.Stdout), ctxErr)
	}
	if out == nil {
		return errors.Wrap(errors.ErrCodeTransport, "failed to start ssh", runErr)
	}
	if runErr == nil && out.ExitCode == 0 {
		res.Succeeded = true
		return nil
	}

	output := firstNonEmpty(res.Stderr, res.Stdout)
	if res.ExitCode == transportExitCode {
		return errors.Remote(errors.ErrCodeTransport, "ssh connection failed", output, runErr)
	}
	return errors.Remote(errors.ErrCodeRemoteCommand, fmt.Sprintf("remote command exited with status %d", res.ExitCode), output, runErr)
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ToLower(string(errors.CodeOf(err)))
}

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/mcoot/fiteval/internal/metrics"
	"github.com/mcoot/fiteval/internal/model"
)

// Config holds evaluator process settings
type Config struct {
	// Command is the executable, resolved through PATH
	Command string `env:"COMMAND, default=python"`
	// Args are passed before the test type and asset path
	Args    []string `env:"ARGS, default=eval_script.py"`
	WorkDir string   `env:"WORKDIR"`

	Timeout        time.Duration `env:"TIMEOUT, default=15m"`
	WaitDelay      time.Duration `env:"WAIT_DELAY, default=5s"`
	MaxOutputBytes int           `env:"MAX_OUTPUT_BYTES, default=4194304"`

	// MaxConcurrent caps simultaneous evaluations; 0 means unlimited
	MaxConcurrent int `env:"MAX_CONCURRENT, default=0"`
	// TestTypes bounds the test_type metric label; others are reported as "other"
	TestTypes []string `env:"TEST_TYPES, default=squats,pushups,jumps,hexagon"`
}

// DefaultConfig returns default evaluator configuration
func DefaultConfig() Config {
	return Config{
		Command:        "python",
		Args:           []string{"eval_script.py"},
		Timeout:        15 * time.Minute,
		WaitDelay:      5 * time.Second,
		MaxOutputBytes: 4 << 20,
		TestTypes:      []string{"squats", "pushups", "jumps", "hexagon"},
	}
}

// Invoker runs the external evaluator for one asset and always removes the asset afterwards
type Invoker struct {
	command        string
	args           []string
	workDir        string
	timeout        time.Duration
	waitDelay      time.Duration
	maxOutputBytes int
	logger         *slog.Logger
}

// NewInvoker creates an Invoker
func NewInvoker(cfg Config, logger *slog.Logger) *Invoker {
	def := DefaultConfig()
	if cfg.Command == "" {
		cfg.Command = def.Command
		if cfg.Args == nil {
			cfg.Args = def.Args
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = def.WaitDelay
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = def.MaxOutputBytes
	}
	return &Invoker{
		command:        cfg.Command,
		args:           slices.Clone(cfg.Args),
		workDir:        cfg.WorkDir,
		timeout:        cfg.Timeout,
		waitDelay:      cfg.WaitDelay,
		maxOutputBytes: cfg.MaxOutputBytes,
		logger:         logger,
	}
}

// Invoke runs `command args... testType assetPath` without a shell.
//
// Cancellation of ctx does not stop the process: it runs until it exits or
// the configured timeout elapses. assetPath is removed on every return path.
func (i *Invoker) Invoke(ctx context.Context, testType, assetPath string) (*model.RawOutput, error) {
	defer i.Cleanup(assetPath)

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.timeout)
	defer cancel()

	args := append(slices.Clone(i.args), testType, assetPath)
	cmd := exec.CommandContext(runCtx, i.command, args...)
	cmd.Dir = i.workDir
	cmd.WaitDelay = i.waitDelay

	stdout := newCappedBuffer(i.maxOutputBytes)
	stderr := newCappedBuffer(i.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	i.logger.DebugContext(ctx, "starting evaluator", "command", i.command, "test_type", testType, "path", assetPath)

	start := time.Now()
	runErr := cmd.Run()
	out := &model.RawOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if stdout.Truncated() || stderr.Truncated() {
		i.logger.WarnContext(ctx, "evaluator output truncated", "limit_bytes", i.maxOutputBytes)
	}

	if runErr == nil || errors.Is(runErr, exec.ErrWaitDelay) {
		return out, nil
	}
	return out, i.classify(runCtx, runErr, out)
}

func (i *Invoker) classify(runCtx context.Context, runErr error, out *model.RawOutput) *InvocationError {
	details := func(err error) string {
		if out.Stderr != "" {
			return out.Stderr
		}
		return err.Error()
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err := fmt.Errorf("timed out after %s: %w", i.timeout, runErr)
		return &InvocationError{Kind: Timeout, Details: details(err), ExitCode: out.ExitCode, Err: err}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return &InvocationError{Kind: NonZeroExit, Details: details(runErr), ExitCode: exitErr.ExitCode(), Err: runErr}
	}

	return &InvocationError{Kind: SpawnFailure, Details: details(runErr), ExitCode: -1, Err: runErr}
}

// Cleanup removes an uploaded asset. Failures are logged and counted, never returned.
func (i *Invoker) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.CleanupFailuresTotal.Inc()
		i.logger.Warn("failed to remove uploaded asset", "path", path, "error", err)
	}
}

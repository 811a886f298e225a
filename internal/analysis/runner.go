// Package analysis runs the external quality-analysis tool against acquired
// session artifacts.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/fileutil"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
)

// Request describes one tool invocation.
type Request struct {
	Video      string
	Transcript string
	Output     string
	Timeout    time.Duration
	// LogPath receives the tool's stdout and stderr when set.
	LogPath string
}

// Result describes a tool run that exited on its own.
type Result struct {
	ExitCode int
	Duration time.Duration
	// OutputTail holds the last bytes of combined output.
	OutputTail string
}

// Runner invokes the analysis tool. It returns an error only when the tool
// could not be started, timed out, or was cancelled; a non-zero exit is
// reported through Result.ExitCode.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

const (
	defaultKillGrace = 5 * time.Second
	// defaultOutputDrain bounds how long Wait keeps copying output after the
	// tool exits while a stray child still holds its stdout.
	defaultOutputDrain = 3 * time.Second
)

// ExecRunner runs `<command...> --input VIDEO [--transcript T] --output_report OUT`
// in its own process group.
type ExecRunner struct {
	command     []string
	killGrace   time.Duration
	outputDrain time.Duration
	logger      *slog.Logger
}

// NewExecRunner constructs a runner for the configured command.
func NewExecRunner(command []string, logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecRunner{
		command:     append([]string(nil), command...),
		killGrace:   defaultKillGrace,
		outputDrain: defaultOutputDrain,
		logger:      logger,
	}
}

// Run starts the tool and waits for it, terminating the whole process group
// on timeout or cancellation.
func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	if len(r.command) == 0 {
		return Result{}, services.Wrap(services.ErrConfiguration, "analysis", "run", "analysis.command is empty", nil)
	}
	args := append([]string(nil), r.command[1:]...)
	args = append(args, "--input", req.Video)
	if req.Transcript != "" {
		args = append(args, "--transcript", req.Transcript)
	}
	args = append(args, "--output_report", req.Output)

	tail := &fileutil.Tail{Limit: 4096}
	var out io.Writer = tail
	if req.LogPath != "" {
		logFile, err := os.OpenFile(req.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return Result{}, services.Wrap(services.ErrTransient, "analysis", "run", "Failed to open tool log", err)
		}
		defer logFile.Close()
		out = io.MultiWriter(logFile, tail)
	}

	cmd := exec.Command(r.command[0], args...) //nolint:gosec
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = r.outputDrain

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "analysis", "run", "Failed to start analysis tool", err)
	}
	logging.WithContext(ctx, r.logger).Debug("analysis tool started",
		logging.Int("pid", cmd.Process.Pid),
		logging.String("command", strings.Join(cmd.Args, " ")),
	)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timeout <-chan time.Time
	if req.Timeout > 0 {
		timer := time.NewTimer(req.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		res := Result{Duration: time.Since(start), OutputTail: tail.String()}
		if errors.Is(err, exec.ErrWaitDelay) {
			// The tool exited but left children holding its output; reap them.
			_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "analysis tool left children running", "analysis_orphans",
				logging.Int("pid", cmd.Process.Pid),
				logging.String(logging.FieldImpact, "stray processes were killed after the tool exited"),
			)
			res.ExitCode = cmd.ProcessState.ExitCode()
			return res, nil
		}
		if err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				return res, services.Wrap(services.ErrExternalTool, "analysis", "run", "analysis tool failed", err)
			}
			res.ExitCode = exitErr.ExitCode()
		}
		return res, nil
	case <-timeout:
		r.terminate(cmd.Process.Pid, done)
		return Result{ExitCode: -1, Duration: time.Since(start), OutputTail: tail.String()},
			services.Wrap(services.ErrTimeout, "analysis", "run", fmt.Sprintf("analysis timed out after %s", req.Timeout), nil)
	case <-ctx.Done():
		r.terminate(cmd.Process.Pid, done)
		return Result{ExitCode: -1, Duration: time.Since(start), OutputTail: tail.String()}, ctx.Err()
	}
}

// terminate sends SIGTERM to the process group, escalating to SIGKILL after
// the grace period, and waits for the leader to be reaped.
func (r *ExecRunner) terminate(pid int, done <-chan error) {
	_ = unix.Kill(-pid, unix.SIGTERM)
	select {
	case <-done:
		return
	case <-time.After(r.killGrace):
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
	<-done
}

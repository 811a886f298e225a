package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/fileutil"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
)

// HelperLogName is the helper output log written into the session directory.
const HelperLogName = "acquisition.log"

// FolderFetcher downloads every reachable file of a remote folder into dir.
type FolderFetcher interface {
	Fetch(ctx context.Context, link, dir string) error
}

// ExecFolderFetcher runs the external folder helper as
// `<command...> --drive_link LINK --output_dir DIR`.
type ExecFolderFetcher struct {
	command []string
	logger  *slog.Logger
}

// NewExecFolderFetcher constructs a fetcher around the helper command.
func NewExecFolderFetcher(command []string, logger *slog.Logger) *ExecFolderFetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecFolderFetcher{command: append([]string(nil), command...), logger: logger}
}

// Fetch runs the helper and waits for it to exit.
func (f *ExecFolderFetcher) Fetch(ctx context.Context, link, dir string) error {
	if len(f.command) == 0 {
		return services.Wrap(services.ErrConfiguration, "acquisition", "folder helper", "acquisition.folder_helper is empty", nil)
	}
	logFile, err := os.OpenFile(filepath.Join(dir, HelperLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return services.Wrap(services.ErrTransient, "acquisition", "folder helper", "Failed to open helper log", err)
	}
	defer logFile.Close()

	tail := &fileutil.Tail{Limit: 2048}
	out := io.MultiWriter(logFile, tail)

	args := append(append([]string(nil), f.command[1:]...), "--drive_link", link, "--output_dir", dir)
	cmd := exec.CommandContext(ctx, f.command[0], args...) //nolint:gosec
	cmd.Stdout = out
	cmd.Stderr = out

	logging.WithContext(ctx, f.logger).Debug("folder helper started",
		logging.String("command", strings.Join(cmd.Args, " ")),
		logging.String("output_dir", dir),
	)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := fmt.Sprintf("folder helper exited with status %d", exitErr.ExitCode())
			if detail := lastLine(tail.String()); detail != "" {
				msg += ": " + detail
			}
			return services.Wrap(services.ErrTransfer, "acquisition", "folder helper", msg, nil)
		}
		return services.Wrap(services.ErrExternalTool, "acquisition", "folder helper", "Failed to start folder helper", err)
	}
	return nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

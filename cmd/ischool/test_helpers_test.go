package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/analysis"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/daemon"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/testsupport"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workflow"
)

type folderStub struct{}

func (folderStub) Fetch(_ context.Context, _ string, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "recording.mp4"), make([]byte, 1024), 0o644)
}

type toolStub struct{}

func (toolStub) Run(_ context.Context, req analysis.Request) (analysis.Result, error) {
	if err := os.WriteFile(req.Output, []byte("report"), 0o644); err != nil {
		return analysis.Result{}, err
	}
	return analysis.Result{Duration: time.Millisecond}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *sessions.Store
	daemon     *daemon.Daemon
	apiURL     string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "ischool", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	mgr, err := workflow.NewManager(cfg, store, events.NewHub(128), logging.NewNop(),
		workflow.WithFolderFetcher(folderStub{}),
		workflow.WithRunner(toolStub{}),
	)
	if err != nil {
		t.Fatalf("workflow.NewManager: %v", err)
	}
	d, err := daemon.New(cfg, store, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		apiURL:     "http://" + d.Addr(),
		configPath: configPath,
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--api", e.apiURL, "--config", e.configPath}, args...))
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nsessions_dir = %q\nlog_dir = %q\nenv_file = \"\"\napi_bind = %q\n",
		cfg.Paths.DataDir,
		cfg.Paths.SessionsDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
	)
	testsupport.WriteBytes(t, path, []byte(content))
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

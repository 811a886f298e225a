package analysis_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/analysis"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/testsupport"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// stubRunner simulates the tool: it optionally writes the report and
// returns the configured exit code or error.
type stubRunner struct {
	exitCode    int
	writeReport bool
	err         error
	calls       atomic.Int32
	last        analysis.Request
}

func (s *stubRunner) Run(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	s.calls.Add(1)
	s.last = req
	if s.writeReport {
		if err := os.WriteFile(req.Output, []byte("score: 9"), 0o644); err != nil {
			return analysis.Result{}, err
		}
	}
	if s.err != nil {
		return analysis.Result{ExitCode: -1}, s.err
	}
	return analysis.Result{ExitCode: s.exitCode, Duration: time.Second, OutputTail: "done\n"}, nil
}

type fixture struct {
	cfg   *config.Config
	store *sessions.Store
	hub   *events.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.QuotaMaxRetries = 2
	return &fixture{cfg: cfg, store: testsupport.MustOpenStore(t, cfg), hub: events.NewHub(64)}
}

// readySession creates a session with a local video in its artifact dir.
func (f *fixture) readySession(t *testing.T, id string) *sessions.Session {
	t.Helper()
	return testsupport.MustCreate(t, f.store, id, func(s *sessions.Session) {
		dir := sessions.ArtifactDir(f.cfg.Paths.SessionsDir, s)
		video := filepath.Join(dir, "video.mp4")
		testsupport.WriteFile(t, video, 2048)
		s.MarkDownloading(dir)
		s.MarkAcquired(video, "")
	})
}

func (f *fixture) get(t *testing.T, id string) *sessions.Session {
	t.Helper()
	s, err := f.store.Get(context.Background(), id)
	if err != nil || s == nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return s
}

func (f *fixture) analyzer(r analysis.Runner) *analysis.Analyzer {
	return analysis.NewAnalyzer(f.cfg, f.store, f.hub, r, logging.NewNop())
}

func TestAnalyzeSuccess(t *testing.T) {
	f := newFixture(t)
	f.readySession(t, "S1")
	runner := &stubRunner{writeReport: true}

	if err := f.analyzer(runner).Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	got := f.get(t, "S1")
	if got.Lifecycle != sessions.LifecycleCompleted || got.Analysis != sessions.AnalysisCompleted {
		t.Fatalf("unexpected state %s/%s", got.Lifecycle, got.Analysis)
	}
	if !strings.HasSuffix(got.ReportRef, "S1_Quality_Report_RAG.txt") {
		t.Fatalf("report = %s", got.ReportRef)
	}
	if _, ok := got.AnalysisDuration(); !ok {
		t.Fatal("expected analysis timing to be recorded")
	}
	if filepath.Base(runner.last.LogPath) != analysis.ToolLogName {
		t.Fatalf("log path = %s", runner.last.LogPath)
	}
}

func TestAnalyzeUsesDirectoryPinnedAtAcquisition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testsupport.MustCreate(t, f.store, "S9", func(s *sessions.Session) {
		s.TutorID = ""
		dir := sessions.ArtifactDir(f.cfg.Paths.SessionsDir, s)
		video := filepath.Join(dir, "video.mp4")
		testsupport.WriteFile(t, video, 2048)
		s.MarkDownloading(dir)
		s.MarkAcquired(video, "")
	})

	// A later upload supplies the tutor while the session waits for analysis.
	merged := f.get(t, "S9")
	merged.TutorID = "T1"
	if err := f.store.UpdateDescriptive(ctx, merged); err != nil {
		t.Fatalf("UpdateDescriptive: %v", err)
	}

	if err := f.analyzer(&stubRunner{writeReport: true}).Analyze(ctx, &workqueue.Job{Key: "S9"}, "S9"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	got := f.get(t, "S9")
	if got.Lifecycle != sessions.LifecycleCompleted {
		t.Fatalf("lifecycle = %s, error = %q", got.Lifecycle, got.Error)
	}
	wantDir := filepath.Join(f.cfg.Paths.SessionsDir, "unassigned", "S9")
	if filepath.Dir(got.ReportRef) != wantDir {
		t.Fatalf("report %s written outside %s", got.ReportRef, wantDir)
	}
}

func TestAnalyzeRequiresBothExitZeroAndReport(t *testing.T) {
	tests := []struct {
		name   string
		runner *stubRunner
		want   string
	}{
		{"exit zero without report", &stubRunner{exitCode: 0}, "analysis tool exited without producing a report"},
		{"report with non-zero exit", &stubRunner{exitCode: 1, writeReport: true}, "analysis tool exited with status 1: done"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.readySession(t, "S1")
			err := f.analyzer(tt.runner).Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1")
			if !errors.Is(err, services.ErrExternalTool) {
				t.Fatalf("expected tool error, got %v", err)
			}
			got := f.get(t, "S1")
			if got.Lifecycle != sessions.LifecycleFailed || got.Analysis != sessions.AnalysisFailed {
				t.Fatalf("unexpected state %s/%s", got.Lifecycle, got.Analysis)
			}
			if got.Error != tt.want {
				t.Fatalf("error = %q, want %q", got.Error, tt.want)
			}
		})
	}
}

func TestAnalyzeTimeoutIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.readySession(t, "S1")
	runner := &stubRunner{err: services.Wrap(services.ErrTimeout, "analysis", "run", "analysis timed out after 5s", nil)}

	err := f.analyzer(runner).Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if got := f.get(t, "S1"); got.Lifecycle != sessions.LifecycleFailed || got.Error != "analysis timed out after 5s" {
		t.Fatalf("unexpected session %s %q", got.Lifecycle, got.Error)
	}
}

func TestAnalyzeFailsFastWithoutVideo(t *testing.T) {
	f := newFixture(t)
	testsupport.MustCreate(t, f.store, "S1", func(s *sessions.Session) {
		s.MarkAcquired(filepath.Join(t.TempDir(), "gone.mp4"), "")
		if err := os.MkdirAll(sessions.ArtifactDir(f.cfg.Paths.SessionsDir, s), 0o755); err != nil {
			t.Fatal(err)
		}
	})
	runner := &stubRunner{writeReport: true}

	err := f.analyzer(runner).Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if runner.calls.Load() != 0 {
		t.Fatal("tool must not run without a video")
	}
	if got := f.get(t, "S1"); got.Error != "video file not found" {
		t.Fatalf("error = %q", got.Error)
	}
}

func TestAnalyzeFailsFastWithoutDirectory(t *testing.T) {
	f := newFixture(t)
	testsupport.MustCreate(t, f.store, "S1", func(s *sessions.Session) { s.MarkAcquired("/nowhere/v.mp4", "") })

	err := f.analyzer(&stubRunner{}).Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1")
	if !errors.Is(err, services.ErrNotFound) || !strings.Contains(f.get(t, "S1").Error, "session directory not found") {
		t.Fatalf("expected directory error, got %v / %q", err, f.get(t, "S1").Error)
	}
}

func TestAnalyzeQuotaDefersThenFails(t *testing.T) {
	f := newFixture(t)
	f.readySession(t, "S1")
	runner := &stubRunner{exitCode: f.cfg.Analysis.QuotaExitCode}
	an := f.analyzer(runner)

	for attempt := 1; attempt <= 2; attempt++ {
		err := an.Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1")
		if !errors.Is(err, analysis.ErrDeferred) || !errors.Is(err, services.ErrQuota) {
			t.Fatalf("attempt %d: expected deferral, got %v", attempt, err)
		}
		got := f.get(t, "S1")
		if !got.Ready() || got.QuotaAttempts != attempt || got.Error == "" {
			t.Fatalf("attempt %d: unexpected session %s attempts=%d error=%q", attempt, got.StatusLabel(), got.QuotaAttempts, got.Error)
		}
	}

	err := an.Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1")
	if !errors.Is(err, services.ErrQuota) || errors.Is(err, analysis.ErrDeferred) {
		t.Fatalf("expected terminal quota failure, got %v", err)
	}
	if got := f.get(t, "S1"); got.Lifecycle != sessions.LifecycleFailed {
		t.Fatalf("expected failed, got %s", got.Lifecycle)
	}
}

func TestAnalyzePublishesEvents(t *testing.T) {
	f := newFixture(t)
	f.readySession(t, "S1")
	if err := f.analyzer(&stubRunner{writeReport: true}).Analyze(context.Background(), &workqueue.Job{Key: "S1"}, "S1"); err != nil {
		t.Fatal(err)
	}
	evts, _ := f.hub.Tail(0)
	if len(evts) != 2 {
		t.Fatalf("expected analyzing and completed events, got %d", len(evts))
	}
	if evts[0].Session.Analysis != sessions.AnalysisAnalyzing || evts[1].Session.Analysis != sessions.AnalysisCompleted {
		t.Fatalf("unexpected event order %s -> %s", evts[0].Session.Analysis, evts[1].Session.Analysis)
	}
}

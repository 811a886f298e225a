package sessions_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := testsupport.MustCreate(t, store, "T1_20250105_10am", func(s *sessions.Session) {
		s.TutorName = "Jane Doe"
		s.SourceLink = "https://cdn.example.com/rec.mp4"
	})
	if created.Lifecycle != sessions.LifecyclePending || created.Acquisition != sessions.AcquisitionPending {
		t.Fatalf("unexpected initial statuses: %+v", created)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if created.TutorName != "Jane Doe" {
		t.Fatalf("unexpected tutor name %q", created.TutorName)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing session, got %v %v", missing, err)
	}

	if err := store.Create(ctx, sessions.New("T1_20250105_10am")); !errors.Is(err, sessions.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestScopedUpdatesDoNotClobberEachOther(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreate(t, store, "S1", nil)

	// Two stale copies, as held by the pipeline and by ingestion.
	pipelineCopy, _ := store.Get(ctx, "S1")
	mergeCopy, _ := store.Get(ctx, "S1")

	pipelineCopy.MarkDownloading("/data/unassigned/S1")
	pipelineCopy.Progress = 40
	if err := store.UpdatePipeline(ctx, pipelineCopy); err != nil {
		t.Fatalf("UpdatePipeline: %v", err)
	}

	mergeCopy.TutorName = "Filled Later"
	mergeCopy.TutorID = "T7"
	if err := store.UpdateDescriptive(ctx, mergeCopy); err != nil {
		t.Fatalf("UpdateDescriptive: %v", err)
	}

	got, _ := store.Get(ctx, "S1")
	if got.Acquisition != sessions.AcquisitionDownloading || got.Progress != 40 {
		t.Fatalf("descriptive write clobbered pipeline state: %+v", got)
	}
	if got.WorkDir != "/data/unassigned/S1" {
		t.Fatalf("pinned work dir lost: %q", got.WorkDir)
	}
	if dir := sessions.ArtifactDir("/data", got); dir != "/data/unassigned/S1" {
		t.Fatalf("artifact dir followed the merged tutor: %q", dir)
	}
	if got.TutorName != "Filled Later" {
		t.Fatalf("pipeline write clobbered descriptive state: %q", got.TutorName)
	}
}

func TestUpdateAuditIsIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreate(t, store, "S1", nil)
	s, _ := store.Get(ctx, "S1")
	now := time.Now().UTC().Truncate(time.Second)
	s.Audit = sessions.Audit{Comments: "clear pacing", Approved: true, AuditedAt: &now, Status: "reviewed"}
	s.Error = "must not persist"
	if err := store.UpdateAudit(ctx, s); err != nil {
		t.Fatalf("UpdateAudit: %v", err)
	}

	got, _ := store.Get(ctx, "S1")
	if !got.Audit.Approved || got.Audit.Comments != "clear pacing" || got.Audit.AuditedAt == nil || !got.Audit.AuditedAt.Equal(now) {
		t.Fatalf("unexpected audit: %+v", got.Audit)
	}
	if got.Error != "" {
		t.Fatalf("audit write touched pipeline column: %q", got.Error)
	}
}

func TestUpdateMissingSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.UpdatePipeline(context.Background(), sessions.New("ghost"))
	if !errors.Is(err, sessions.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestListFiltersAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustCreate(t, store, "A", nil)
	testsupport.MustCreate(t, store, "B", func(s *sessions.Session) { s.MarkAcquired("/v.mp4", "") })
	testsupport.MustCreate(t, store, "C", func(s *sessions.Session) { s.MarkAcquisitionFailed("boom") })

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}

	pending, err := store.List(ctx, sessions.LifecyclePending)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending sessions, got %d", len(pending))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Ready != 1 || stats.ByLifecycle[sessions.LifecycleFailed] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestAnalysisDurationsAndRemove(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	start := time.Now().Add(-90 * time.Second)
	testsupport.MustCreate(t, store, "done", func(s *sessions.Session) {
		s.MarkAnalyzing(start)
		s.MarkAnalyzed("/r.txt", start.Add(90*time.Second))
	})
	testsupport.MustCreate(t, store, "running", func(s *sessions.Session) { s.MarkAnalyzing(start) })

	durations, err := store.AnalysisDurations(ctx, 10)
	if err != nil {
		t.Fatalf("AnalysisDurations: %v", err)
	}
	if len(durations) != 1 || durations[0].Round(time.Second) != 90*time.Second {
		t.Fatalf("unexpected durations: %v", durations)
	}

	removed, err := store.Remove(ctx, "done")
	if err != nil || !removed {
		t.Fatalf("Remove: %v %v", removed, err)
	}
	removed, _ = store.Remove(ctx, "done")
	if removed {
		t.Fatal("expected second remove to report false")
	}
}

func TestReopenPreservesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.MustCreate(t, store, "persisted", nil)
	store.Close()

	reopened := testsupport.MustOpenStore(t, cfg)
	got, err := reopened.Get(context.Background(), "persisted")
	if err != nil || got == nil {
		t.Fatalf("expected session after reopen: %v", err)
	}
	if reopened.Path() != filepath.Join(cfg.Paths.DataDir, "sessions.db") {
		t.Fatalf("unexpected db path %q", reopened.Path())
	}
}

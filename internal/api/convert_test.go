package api

import (
	"testing"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/ingest"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workflow"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

func TestFromSessionReadyAndDuration(t *testing.T) {
	s := sessions.New("s1")
	s.TutorID = "T1"
	s.MarkAcquired("/data/s1/video.mp4", "")
	dto := FromSession(s)
	if dto.Status != "pending(ready)" || dto.Lifecycle != "pending" {
		t.Fatalf("unexpected status %q lifecycle %q", dto.Status, dto.Lifecycle)
	}
	if dto.AnalysisSeconds != 0 {
		t.Fatalf("expected no duration before analysis, got %v", dto.AnalysisSeconds)
	}

	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	s.MarkAnalyzing(start)
	s.MarkAnalyzed("/data/s1/report.txt", start.Add(90*time.Second))
	dto = FromSession(s)
	if dto.Status != "completed" || dto.AnalysisSeconds != 90 {
		t.Fatalf("unexpected completed dto: %+v", dto)
	}
	if dto.Audit.AuditedAt != "" {
		t.Fatalf("expected empty audit timestamp, got %q", dto.Audit.AuditedAt)
	}
}

func TestFromSessionFailedAnalysisHasNoDuration(t *testing.T) {
	s := sessions.New("s2")
	start := time.Now()
	s.MarkAnalyzing(start)
	s.MarkAnalysisFailed("tool exited 2", start.Add(time.Second))
	dto := FromSession(s)
	if dto.AnalysisSeconds != 0 || dto.Error != "tool exited 2" {
		t.Fatalf("unexpected failed dto: %+v", dto)
	}
}

func TestFromSessionNil(t *testing.T) {
	if dto := FromSession(nil); dto.ID != "" {
		t.Fatalf("expected zero value, got %+v", dto)
	}
}

func TestFromStatusSummary(t *testing.T) {
	until := time.Date(2024, 3, 5, 10, 0, 0, 0, time.FixedZone("X", 3600))
	summary := workflow.StatusSummary{
		Running: true,
		Queues: []workqueue.Status{
			{Pipeline: "acquisition", Queued: 2, WorkerBudget: 3},
			{Pipeline: "analysis", Paused: true, PausedUntil: &until},
		},
		Sessions: sessions.Stats{
			Total:       3,
			Ready:       1,
			ByLifecycle: map[sessions.Lifecycle]int{sessions.LifecyclePending: 2, sessions.LifecycleFailed: 1},
		},
		Analysis:  workflow.DurationSummary{Samples: 4, Mean: 12.5, Median: 10, P90: 20},
		Recovered: workflow.RecoveryReport{Acquisition: 1, Stranded: []string{"s9"}},
		LastError: "boom",
	}
	dto := FromStatusSummary(summary)
	if len(dto.Queues) != 2 || dto.Queues[0].WorkerBudget != 3 {
		t.Fatalf("unexpected queues: %+v", dto.Queues)
	}
	if dto.Queues[1].PausedUntil != "2024-03-05T09:00:00.000Z" {
		t.Fatalf("expected UTC pause timestamp, got %q", dto.Queues[1].PausedUntil)
	}
	if dto.Sessions.ByLifecycle["failed"] != 1 || dto.Sessions.Ready != 1 {
		t.Fatalf("unexpected stats: %+v", dto.Sessions)
	}
	if dto.AnalysisDurations.P90Seconds != 20 || dto.Recovered.Stranded[0] != "s9" || dto.LastError != "boom" {
		t.Fatalf("unexpected summary: %+v", dto)
	}
}

func TestFromIngestSummary(t *testing.T) {
	summary := workflow.IngestSummary{Queued: 1}
	summary.Added = 1
	summary.Skipped = []ingest.RowError{{Line: 4, Reason: "missing tutor id"}}
	resp := FromIngestSummary(summary)
	if resp.Added != 1 || resp.Queued != 1 || len(resp.Skipped) != 1 || resp.Skipped[0].Line != 4 {
		t.Fatalf("unexpected ingest response: %+v", resp)
	}
}

func TestFromEventCarriesPayloads(t *testing.T) {
	s := sessions.New("s3")
	st := workqueue.Status{Pipeline: "analysis", Active: 1}
	evt := FromEvent(events.Event{Sequence: 7, Type: events.TypeSession, Session: s, Queue: &st})
	if evt.Sequence != 7 || evt.Type != "session" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if evt.Session == nil || evt.Session.ID != "s3" || evt.Queue == nil || evt.Queue.Active != 1 {
		t.Fatalf("expected session and queue payloads: %+v", evt)
	}
	if evt.Timestamp != "" {
		t.Fatalf("expected empty timestamp for zero time, got %q", evt.Timestamp)
	}
}

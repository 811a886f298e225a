package api

import (
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/preflight"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workflow"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// FromSession converts a session record to its API representation.
func FromSession(s *sessions.Session) Session {
	if s == nil {
		return Session{}
	}
	dto := Session{
		ID:            s.ID,
		TutorID:       s.TutorID,
		TutorName:     s.TutorName,
		Subject:       s.Subject,
		SessionDate:   s.SessionDate,
		TimeSlot:      s.TimeSlot,
		SourceLink:    s.SourceLink,
		FolderLink:    s.FolderLink,
		Status:        s.StatusLabel(),
		Lifecycle:     string(s.Lifecycle),
		Acquisition:   string(s.Acquisition),
		Analysis:      string(s.Analysis),
		Progress:      s.Progress,
		Error:         s.Error,
		VideoRef:      s.VideoRef,
		TranscriptRef: s.TranscriptRef,
		ReportRef:     s.ReportRef,
		QuotaAttempts: s.QuotaAttempts,
		Audit: SessionAudit{
			Comments:  s.Audit.Comments,
			Approved:  s.Audit.Approved,
			Status:    s.Audit.Status,
			AuditedAt: formatTime(s.Audit.AuditedAt),
		},
		CreatedAt: formatTime(&s.CreatedAt),
		UpdatedAt: formatTime(&s.UpdatedAt),
	}
	if d, ok := s.AnalysisDuration(); ok && s.Analysis == sessions.AnalysisCompleted {
		dto.AnalysisSeconds = d.Seconds()
	}
	return dto
}

// FromSessions converts a slice of session records into API DTOs.
func FromSessions(items []*sessions.Session) []Session {
	out := make([]Session, 0, len(items))
	for _, s := range items {
		out = append(out, FromSession(s))
	}
	return out
}

// FromQueueStatus converts a pipeline snapshot.
func FromQueueStatus(st workqueue.Status) QueueStatus {
	return QueueStatus{
		Pipeline:     st.Pipeline,
		Queued:       st.Queued,
		Active:       st.Active,
		WorkerBudget: st.WorkerBudget,
		Completed:    st.Completed,
		Failed:       st.Failed,
		Paused:       st.Paused,
		PausedUntil:  formatTime(st.PausedUntil),
	}
}

// FromStatusSummary converts the workflow summary.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	queues := make([]QueueStatus, 0, len(summary.Queues))
	for _, q := range summary.Queues {
		queues = append(queues, FromQueueStatus(q))
	}
	byLifecycle := make(map[string]int, len(summary.Sessions.ByLifecycle))
	for l, n := range summary.Sessions.ByLifecycle {
		byLifecycle[string(l)] = n
	}
	return WorkflowStatus{
		Running: summary.Running,
		Queues:  queues,
		Sessions: SessionStats{
			Total:       summary.Sessions.Total,
			Ready:       summary.Sessions.Ready,
			ByLifecycle: byLifecycle,
		},
		AnalysisDurations: DurationStats{
			Samples:       summary.Analysis.Samples,
			MeanSeconds:   summary.Analysis.Mean,
			MedianSeconds: summary.Analysis.Median,
			P90Seconds:    summary.Analysis.P90,
		},
		Recovered: RecoveryStats{
			Acquisition: summary.Recovered.Acquisition,
			Analysis:    summary.Recovered.Analysis,
			Stranded:    summary.Recovered.Stranded,
		},
		LastError:         summary.LastError,
		LastFailedSession: summary.LastFailed,
		EventSequence:     summary.EventSequence,
	}
}

// FromPreflight converts readiness check results.
func FromPreflight(results []preflight.Result) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(results))
	for _, r := range results {
		out = append(out, DependencyStatus{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

// FromIngestSummary converts an ingestion result.
func FromIngestSummary(summary workflow.IngestSummary) IngestResponse {
	resp := IngestResponse{
		Added:   summary.Added,
		Updated: summary.Updated,
		Queued:  summary.Queued,
	}
	for _, skipped := range summary.Skipped {
		resp.Skipped = append(resp.Skipped, RowError{Line: skipped.Line, Reason: skipped.Reason})
	}
	return resp
}

// FromEvent converts a broadcast event.
func FromEvent(evt events.Event) Event {
	dto := Event{
		Sequence:  evt.Sequence,
		Timestamp: formatTime(&evt.Timestamp),
		Type:      string(evt.Type),
		Message:   evt.Message,
		Counts:    evt.Counts,
	}
	if evt.Session != nil {
		s := FromSession(evt.Session)
		dto.Session = &s
	}
	if evt.Queue != nil {
		q := FromQueueStatus(*evt.Queue)
		dto.Queue = &q
	}
	return dto
}

// FromEvents converts a batch of events.
func FromEvents(evts []events.Event) []Event {
	out := make([]Event, 0, len(evts))
	for _, evt := range evts {
		out = append(out, FromEvent(evt))
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

package workflow

import (
	"context"
	"time"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/events"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/ingest"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

// IngestSummary reports an ingestion run and how many added sessions entered
// the acquisition queue.
type IngestSummary struct {
	ingest.Report
	Queued int `json:"queued"`
}

// Ingest merges rows into the store and submits the newly added sessions
// for acquisition.
func (m *Manager) Ingest(ctx context.Context, rows []ingest.Row) (IngestSummary, error) {
	report, err := m.ingester.Ingest(ctx, rows)
	summary := IngestSummary{Report: report}

	ids := make([]string, 0, len(report.AddedSessions))
	for _, s := range report.AddedSessions {
		m.hub.PublishSession(s)
		ids = append(ids, s.ID)
	}
	if len(ids) > 0 {
		queued, subErr := m.acquisition.SubmitBatch(ids)
		summary.Queued = queued
		if err == nil {
			err = subErr
		}
	}

	m.hub.Publish(events.Event{
		Type:    events.TypeIngest,
		Message: "ingestion complete",
		Counts: map[string]int{
			"added":   report.Added,
			"updated": report.Updated,
			"skipped": len(report.Skipped),
			"queued":  summary.Queued,
		},
	})
	return summary, err
}

// Retry resets a failed session and submits it to the stage it failed in.
// Sessions stranded by a reset in a transient status can be retried too.
func (m *Manager) Retry(ctx context.Context, id string) (*sessions.Session, error) {
	m.retryMu.Lock()
	defer m.retryMu.Unlock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "retry", "Failed to load session", err)
	}
	if session == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "retry", "session "+id+" not found", nil)
	}
	if m.acquisition.Contains(id) || m.analysis.Contains(id) {
		return nil, services.Wrap(services.ErrValidation, "workflow", "retry", "session "+id+" is already queued", nil)
	}

	target := retryTarget(session)
	switch target {
	case PipelineAcquisition:
		session.Lifecycle = sessions.LifecyclePending
		session.Acquisition = sessions.AcquisitionPending
		session.Analysis = sessions.AnalysisPending
		session.Progress = 0
	case PipelineAnalysis:
		session.Lifecycle = sessions.LifecyclePending
		session.Analysis = sessions.AnalysisPending
		session.AnalysisStartedAt = nil
		session.AnalysisFinishedAt = nil
	default:
		return nil, services.Wrap(services.ErrValidation, "workflow", "retry",
			"session "+id+" is "+session.StatusLabel()+" and cannot be retried", nil)
	}
	session.Error = ""
	session.QuotaAttempts = 0
	if err := m.store.UpdatePipeline(ctx, session); err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "retry", "Failed to persist session state", err)
	}
	m.hub.PublishSession(session)

	if target == PipelineAcquisition {
		_, err = m.acquisition.Submit(id)
	} else {
		_, err = m.analysis.Submit(id)
	}
	if err != nil {
		return nil, err
	}
	m.logger.Info("session retried",
		logging.SessionID(id),
		logging.String(logging.FieldPipeline, target),
		logging.String(logging.FieldEventType, "session_retry"),
	)
	return session, nil
}

// retryTarget picks the pipeline a retried session re-enters. Failed
// sessions with completed acquisition only need analysis again.
func retryTarget(s *sessions.Session) string {
	if s.Lifecycle == sessions.LifecycleFailed {
		if s.Acquisition == sessions.AcquisitionCompleted {
			return PipelineAnalysis
		}
		return PipelineAcquisition
	}
	if s.Lifecycle == sessions.LifecycleCompleted {
		return ""
	}
	return recoveryTarget(s)
}

// Reset invalidates all queued and running work in both pipelines. Once it
// returns, no superseded item writes to the store or publishes an event.
// Sessions caught mid-flight keep their status and can be retried.
func (m *Manager) Reset() {
	m.acquisition.Reset()
	m.analysis.Reset()
	m.hub.Publish(events.Event{Type: events.TypeReset, Message: "pipelines reset"})
	logging.WarnWithContext(m.logger, "pipelines reset", "workflow_reset",
		logging.String(logging.FieldErrorHint, "retry sessions left downloading or analyzing"),
		logging.String(logging.FieldImpact, "queued and running items were dropped"),
	)
}

// Remove deletes a session that is not running. A queued session is dropped
// from its queue first. Artifacts on disk are kept.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	m.acquisition.Cancel(id)
	m.analysis.Cancel(id)
	if m.acquisition.Contains(id) || m.analysis.Contains(id) {
		return false, services.Wrap(services.ErrValidation, "workflow", "remove", "session "+id+" is being processed", nil)
	}
	removed, err := m.store.Remove(ctx, id)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "workflow", "remove", "Failed to remove session", err)
	}
	if removed {
		m.hub.Publish(events.Event{Type: events.TypeRemoved, Message: id})
		m.logger.Info("session removed",
			logging.SessionID(id),
			logging.String(logging.FieldEventType, "session_removed"),
		)
	}
	return removed, nil
}

// Audit records human review fields on a session.
func (m *Manager) Audit(ctx context.Context, id string, audit sessions.Audit) (*sessions.Session, error) {
	session, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "audit", "Failed to load session", err)
	}
	if session == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "audit", "session "+id+" not found", nil)
	}
	if audit.AuditedAt == nil {
		now := time.Now().UTC()
		audit.AuditedAt = &now
	}
	session.Audit = audit
	if err := m.store.UpdateAudit(ctx, session); err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "audit", "Failed to persist audit", err)
	}
	m.hub.PublishSession(session)
	return session, nil
}

package workflow

import (
	"context"
	"errors"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/analysis"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/preflight"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// Start runs recovery and begins dispatching both pipelines. The manager
// cannot be restarted after Stop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.logPreflight()

	report, err := m.Recover(runCtx)
	if err != nil {
		cancel()
		m.mu.Lock()
		m.running = false
		m.cancel = nil
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.recovered = report
	m.mu.Unlock()

	m.acquisition.Start(runCtx)
	m.analysis.Start(runCtx)
	m.logger.Info("workflow started",
		logging.Int("acquisition_workers", m.cfg.Acquisition.Workers),
		logging.Int("analysis_workers", m.cfg.Analysis.Workers),
		logging.Int("recovered_acquisition", report.Acquisition),
		logging.Int("recovered_analysis", report.Analysis),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	return nil
}

// Stop cancels running items and waits for the pipelines to drain. Items
// interrupted here keep their transient status and are picked up by recovery
// on the next start.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	// Acquisition hands off into analysis, so it closes first.
	m.acquisition.Close()
	m.analysis.Close()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stopped"))
}

// Running reports whether Start succeeded and Stop has not been called.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runAcquisition(ctx context.Context, job *workqueue.Job, id string) error {
	if _, err := m.acquirer.Acquire(ctx, job, id); err != nil {
		if errors.Is(err, workqueue.ErrStale) {
			return err
		}
		m.recordFailure(ctx, err)
		return err
	}
	return job.Guard(func() error {
		_, err := m.analysis.Submit(id)
		return err
	})
}

func (m *Manager) runAnalysis(ctx context.Context, job *workqueue.Job, id string) error {
	err := m.analyzer.Analyze(ctx, job, id)
	switch {
	case err == nil, errors.Is(err, workqueue.ErrStale):
		return err
	case errors.Is(err, analysis.ErrDeferred):
		backoff := m.cfg.QuotaBackoff()
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "analysis quota reached; pausing pipeline", "quota_backoff",
			logging.Duration("backoff", backoff),
			logging.String(logging.FieldErrorHint, "the session is retried automatically after the backoff"),
			logging.String(logging.FieldImpact, "no analysis starts until the window ends"),
		)
		m.analysis.Pause(backoff)
		return workqueue.ErrRequeue
	default:
		m.recordFailure(ctx, err)
		return err
	}
}

// recordFailure remembers the latest failure for status summaries. The
// stages have already logged and persisted it.
func (m *Manager) recordFailure(ctx context.Context, err error) {
	id, _ := services.SessionIDFromContext(ctx)
	m.mu.Lock()
	m.lastErr = err
	m.lastFailed = id
	m.mu.Unlock()
	logging.WithContext(ctx, m.logger).Debug("pipeline item failed",
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldEventType, "item_failed"),
	)
}

func (m *Manager) logPreflight() {
	for _, r := range preflight.Failed(preflight.RunAll(m.cfg)) {
		logging.WarnWithContext(m.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported issue; affected sessions will fail until then"),
		)
	}
}

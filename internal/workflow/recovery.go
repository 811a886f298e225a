package workflow

import (
	"context"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/fileutil"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

// RecoveryReport counts the sessions recovery resubmitted.
type RecoveryReport struct {
	Acquisition int `json:"acquisition"`
	Analysis    int `json:"analysis"`
	// Stranded lists ready sessions whose video is missing on disk. They are
	// left for a manual retry.
	Stranded []string `json:"stranded,omitempty"`
}

// recoveryTarget returns the pipeline a session left behind by a previous
// process belongs to, or "" when it needs nothing.
func recoveryTarget(s *sessions.Session) string {
	switch {
	case s.Acquisition == sessions.AcquisitionDownloading:
		return PipelineAcquisition
	case s.Lifecycle == sessions.LifecyclePending && s.Acquisition == sessions.AcquisitionPending:
		return PipelineAcquisition
	case s.Acquisition == sessions.AcquisitionCompleted &&
		(s.Lifecycle == sessions.LifecyclePending || s.Lifecycle == sessions.LifecycleAnalyzing):
		return PipelineAnalysis
	}
	return ""
}

// Recover scans the store and resubmits sessions left in a transient state.
// Start calls it before dispatching begins.
func (m *Manager) Recover(ctx context.Context) (RecoveryReport, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return RecoveryReport{}, services.Wrap(services.ErrTransient, "workflow", "recover", "Failed to scan sessions", err)
	}

	var report RecoveryReport
	var acquire, analyze []string
	for _, s := range all {
		switch recoveryTarget(s) {
		case PipelineAcquisition:
			acquire = append(acquire, s.ID)
		case PipelineAnalysis:
			if s.VideoRef == "" || !fileutil.IsRegular(s.VideoRef) {
				report.Stranded = append(report.Stranded, s.ID)
				continue
			}
			analyze = append(analyze, s.ID)
		}
	}

	if report.Acquisition, err = m.acquisition.SubmitBatch(acquire); err != nil {
		return report, err
	}
	if report.Analysis, err = m.analysis.SubmitBatch(analyze); err != nil {
		return report, err
	}

	if len(report.Stranded) > 0 {
		logging.WarnWithContext(m.logger, "ready sessions are missing their video", "recovery_stranded",
			logging.Int("count", len(report.Stranded)),
			logging.Any("session_ids", report.Stranded),
			logging.String(logging.FieldErrorHint, "retry the sessions to acquire them again"),
			logging.String(logging.FieldImpact, "sessions stay ready until retried"),
		)
	}
	if report.Acquisition > 0 || report.Analysis > 0 {
		m.logger.Info("recovered interrupted sessions",
			logging.Int("acquisition", report.Acquisition),
			logging.Int("analysis", report.Analysis),
			logging.String(logging.FieldEventType, "recovery_complete"),
		)
	}
	return report, nil
}

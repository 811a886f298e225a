package workflow

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/preflight"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/workqueue"
)

// durationSampleSize bounds how many completed analyses feed the timing summary.
const durationSampleSize = 200

// DurationSummary describes recent analysis wall times in seconds.
type DurationSummary struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean_seconds"`
	Median  float64 `json:"median_seconds"`
	P90     float64 `json:"p90_seconds"`
}

// StatusSummary is the workflow snapshot served to observers.
type StatusSummary struct {
	Running       bool               `json:"running"`
	Queues        []workqueue.Status `json:"queues"`
	Sessions      sessions.Stats     `json:"sessions"`
	Analysis      DurationSummary    `json:"analysis_durations"`
	Dependencies  []preflight.Result `json:"dependencies"`
	Recovered     RecoveryReport     `json:"recovered"`
	LastError     string             `json:"last_error,omitempty"`
	LastFailed    string             `json:"last_failed_session,omitempty"`
	EventSequence uint64             `json:"event_sequence"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		Recovered:  m.recovered,
		LastFailed: m.lastFailed,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	summary.Queues = []workqueue.Status{m.acquisition.Status(), m.analysis.Status()}
	summary.Dependencies = preflight.RunAll(m.cfg)
	summary.EventSequence = m.hub.LastSequence()

	st, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read session stats", logging.Error(err))
	}
	summary.Sessions = st

	durations, err := m.store.AnalysisDurations(ctx, durationSampleSize)
	if err != nil {
		m.logger.Warn("failed to read analysis durations", logging.Error(err))
	}
	summary.Analysis = summarizeDurations(durations)
	return summary
}

func summarizeDurations(durations []time.Duration) DurationSummary {
	if len(durations) == 0 {
		return DurationSummary{}
	}
	data := make(stats.Float64Data, 0, len(durations))
	for _, d := range durations {
		data = append(data, d.Seconds())
	}
	out := DurationSummary{Samples: len(data)}
	out.Mean, _ = stats.Mean(data)
	out.Median, _ = stats.Median(data)
	out.P90, _ = stats.Percentile(data, 90)
	return out
}

package sessions

import (
	"strings"
	"time"
)

// Lifecycle is the overall pipeline stage of a session.
type Lifecycle string

const (
	LifecyclePending     Lifecycle = "pending"
	LifecycleDownloading Lifecycle = "downloading"
	LifecycleAnalyzing   Lifecycle = "analyzing"
	LifecycleCompleted   Lifecycle = "completed"
	LifecycleFailed      Lifecycle = "failed"
)

// AcquisitionStatus tracks the download sub-state.
type AcquisitionStatus string

const (
	AcquisitionPending     AcquisitionStatus = "pending"
	AcquisitionDownloading AcquisitionStatus = "downloading"
	AcquisitionCompleted   AcquisitionStatus = "completed"
	AcquisitionFailed      AcquisitionStatus = "failed"
)

// AnalysisStatus tracks the analysis sub-state.
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisAnalyzing AnalysisStatus = "analyzing"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

var lifecycles = []Lifecycle{
	LifecyclePending,
	LifecycleDownloading,
	LifecycleAnalyzing,
	LifecycleCompleted,
	LifecycleFailed,
}

// AllLifecycles returns every lifecycle value in pipeline order.
func AllLifecycles() []Lifecycle {
	return append([]Lifecycle(nil), lifecycles...)
}

// ParseLifecycle converts user input into a Lifecycle.
func ParseLifecycle(value string) (Lifecycle, bool) {
	normalized := Lifecycle(strings.ToLower(strings.TrimSpace(value)))
	for _, l := range lifecycles {
		if l == normalized {
			return l, true
		}
	}
	return "", false
}

// Audit holds the human-review fields. The pipeline never writes them.
type Audit struct {
	Comments  string     `json:"comments,omitempty"`
	Approved  bool       `json:"approved"`
	AuditedAt *time.Time `json:"audited_at,omitempty"`
	Status    string     `json:"status,omitempty"`
}

// Session is one tutoring recording moving through acquisition and analysis.
type Session struct {
	ID          string `json:"id"`
	TutorID     string `json:"tutor_id"`
	TutorName   string `json:"tutor_name,omitempty"`
	Subject     string `json:"subject,omitempty"`
	SessionDate string `json:"session_date,omitempty"`
	TimeSlot    string `json:"time_slot,omitempty"`
	SourceLink  string `json:"source_link,omitempty"`
	FolderLink  string `json:"folder_link,omitempty"`

	VideoRef      string `json:"video_ref,omitempty"`
	TranscriptRef string `json:"transcript_ref,omitempty"`
	ReportRef     string `json:"report_ref,omitempty"`
	// WorkDir is pinned when acquisition starts so later merges cannot move it.
	WorkDir       string `json:"work_dir,omitempty"`

	Lifecycle   Lifecycle         `json:"lifecycle_status"`
	Acquisition AcquisitionStatus `json:"acquisition_status"`
	Analysis    AnalysisStatus    `json:"analysis_status"`
	Progress    int               `json:"progress"`
	Error       string            `json:"error,omitempty"`

	// QuotaAttempts counts analysis runs that ended with a quota signal.
	QuotaAttempts      int        `json:"quota_attempts,omitempty"`
	AnalysisStartedAt  *time.Time `json:"analysis_started_at,omitempty"`
	AnalysisFinishedAt *time.Time `json:"analysis_finished_at,omitempty"`

	Audit Audit `json:"audit"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a pending session with the given identifier.
func New(id string) *Session {
	return &Session{
		ID:          id,
		Lifecycle:   LifecyclePending,
		Acquisition: AcquisitionPending,
		Analysis:    AnalysisPending,
	}
}

// Ready reports whether the session has local artifacts and awaits analysis.
func (s *Session) Ready() bool {
	return s != nil && s.Lifecycle == LifecyclePending && s.Acquisition == AcquisitionCompleted
}

// StatusLabel renders the lifecycle with the ready qualifier used in listings.
func (s *Session) StatusLabel() string {
	if s.Ready() {
		return "pending(ready)"
	}
	return string(s.Lifecycle)
}

// MarkDownloading resets progress, pins the artifact directory and flags the
// acquisition as running.
func (s *Session) MarkDownloading(dir string) {
	s.WorkDir = dir
	s.Lifecycle = LifecycleDownloading
	s.Acquisition = AcquisitionDownloading
	s.Progress = 0
}

// MarkAcquired records resolved artifacts and leaves the session ready for analysis.
func (s *Session) MarkAcquired(video, transcript string) {
	s.Lifecycle = LifecyclePending
	s.Acquisition = AcquisitionCompleted
	s.Progress = 100
	s.VideoRef = video
	s.TranscriptRef = transcript
	s.Error = ""
}

// MarkAcquisitionFailed records a terminal acquisition failure.
func (s *Session) MarkAcquisitionFailed(reason string) {
	s.Lifecycle = LifecycleFailed
	s.Acquisition = AcquisitionFailed
	s.Error = failureReason(reason)
}

// MarkAnalyzing flags the analysis as running.
func (s *Session) MarkAnalyzing(now time.Time) {
	s.Lifecycle = LifecycleAnalyzing
	s.Analysis = AnalysisAnalyzing
	s.AnalysisStartedAt = &now
	s.AnalysisFinishedAt = nil
}

// MarkAnalyzed records the produced report.
func (s *Session) MarkAnalyzed(report string, now time.Time) {
	s.Lifecycle = LifecycleCompleted
	s.Analysis = AnalysisCompleted
	s.ReportRef = report
	s.AnalysisFinishedAt = &now
	s.Error = ""
}

// MarkAnalysisFailed records a terminal analysis failure.
func (s *Session) MarkAnalysisFailed(reason string, now time.Time) {
	s.Lifecycle = LifecycleFailed
	s.Analysis = AnalysisFailed
	s.AnalysisFinishedAt = &now
	s.Error = failureReason(reason)
}

// MarkDeferred returns an analyzing session to ready with a visible reason.
func (s *Session) MarkDeferred(reason string) {
	s.Lifecycle = LifecyclePending
	s.Analysis = AnalysisPending
	s.AnalysisStartedAt = nil
	s.Error = failureReason(reason)
}

// AnalysisDuration returns the wall time of the last completed analysis run.
func (s *Session) AnalysisDuration() (time.Duration, bool) {
	if s.AnalysisStartedAt == nil || s.AnalysisFinishedAt == nil {
		return 0, false
	}
	d := s.AnalysisFinishedAt.Sub(*s.AnalysisStartedAt)
	if d < 0 {
		return 0, false
	}
	return d, true
}

func failureReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "unknown failure"
	}
	return reason
}

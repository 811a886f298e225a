package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Session describes a session record in a transport-friendly format.
type Session struct {
	ID              string       `json:"id"`
	TutorID         string       `json:"tutorId"`
	TutorName       string       `json:"tutorName,omitempty"`
	Subject         string       `json:"subject,omitempty"`
	SessionDate     string       `json:"sessionDate,omitempty"`
	TimeSlot        string       `json:"timeSlot,omitempty"`
	SourceLink      string       `json:"sourceLink,omitempty"`
	FolderLink      string       `json:"folderLink,omitempty"`
	Status          string       `json:"status"`
	Lifecycle       string       `json:"lifecycleStatus"`
	Acquisition     string       `json:"acquisitionStatus"`
	Analysis        string       `json:"analysisStatus"`
	Progress        int          `json:"progress"`
	Error           string       `json:"error,omitempty"`
	VideoRef        string       `json:"videoRef,omitempty"`
	TranscriptRef   string       `json:"transcriptRef,omitempty"`
	ReportRef       string       `json:"reportRef,omitempty"`
	QuotaAttempts   int          `json:"quotaAttempts,omitempty"`
	AnalysisSeconds float64      `json:"analysisSeconds,omitempty"`
	Audit           SessionAudit `json:"audit"`
	CreatedAt       string       `json:"createdAt,omitempty"`
	UpdatedAt       string       `json:"updatedAt,omitempty"`
}

// SessionAudit carries the human-review fields.
type SessionAudit struct {
	Comments  string `json:"comments,omitempty"`
	Approved  bool   `json:"approved"`
	Status    string `json:"status,omitempty"`
	AuditedAt string `json:"auditedAt,omitempty"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Session Session `json:"session"`
}

// QueueStatus is a pipeline snapshot.
type QueueStatus struct {
	Pipeline     string `json:"pipeline"`
	Queued       int    `json:"queued"`
	Active       int    `json:"active"`
	WorkerBudget int    `json:"workerBudget"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	Paused       bool   `json:"paused"`
	PausedUntil  string `json:"pausedUntil,omitempty"`
}

// SessionStats counts sessions per lifecycle.
type SessionStats struct {
	Total       int            `json:"total"`
	Ready       int            `json:"ready"`
	ByLifecycle map[string]int `json:"byLifecycle"`
}

// DurationStats summarizes recent analysis wall times.
type DurationStats struct {
	Samples       int     `json:"samples"`
	MeanSeconds   float64 `json:"meanSeconds"`
	MedianSeconds float64 `json:"medianSeconds"`
	P90Seconds    float64 `json:"p90Seconds"`
}

// RecoveryStats reports what startup recovery resubmitted.
type RecoveryStats struct {
	Acquisition int      `json:"acquisition"`
	Analysis    int      `json:"analysis"`
	Stranded    []string `json:"stranded,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running           bool          `json:"running"`
	Queues            []QueueStatus `json:"queues"`
	Sessions          SessionStats  `json:"sessions"`
	AnalysisDurations DurationStats `json:"analysisDurations"`
	Recovered         RecoveryStats `json:"recovered"`
	LastError         string        `json:"lastError,omitempty"`
	LastFailedSession string        `json:"lastFailedSession,omitempty"`
	EventSequence     uint64        `json:"eventSequence"`
}

// DependencyStatus captures the result of a readiness check.
type DependencyStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// RowError describes a skipped ingestion row.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// IngestResponse reports an upload.
type IngestResponse struct {
	Added   int        `json:"added"`
	Updated int        `json:"updated"`
	Queued  int        `json:"queued"`
	Skipped []RowError `json:"skipped,omitempty"`
}

// AuditRequest updates the human-review fields of a session.
type AuditRequest struct {
	Comments string `json:"comments"`
	Approved bool   `json:"approved"`
	Status   string `json:"status"`
}

// RemoveResponse reports a removal.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// MessageResponse carries a human-readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is one broadcast delta.
type Event struct {
	Sequence  uint64         `json:"seq"`
	Timestamp string         `json:"ts"`
	Type      string         `json:"type"`
	Session   *Session       `json:"session,omitempty"`
	Queue     *QueueStatus   `json:"queue,omitempty"`
	Message   string         `json:"message,omitempty"`
	Counts    map[string]int `json:"counts,omitempty"`
}

// EventsResponse is returned by the long-poll form of the events endpoint.
type EventsResponse struct {
	Events []Event `json:"events"`
	Next   uint64  `json:"next"`
}

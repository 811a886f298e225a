package sessions

import (
	"database/sql"
	"errors"
	"time"
)

const sessionColumns = `id, tutor_id, tutor_name, subject, session_date, time_slot, source_link, folder_link,
	video_ref, transcript_ref, report_ref, work_dir, lifecycle_status, acquisition_status, analysis_status,
	progress, error, quota_attempts, analysis_started_at, analysis_finished_at,
	audit_comments, audit_approved, audited_at, audit_status, created_at, updated_at`

// sessionRow mirrors the sessions table for sqlx scanning.
type sessionRow struct {
	ID                 string         `db:"id"`
	TutorID            string         `db:"tutor_id"`
	TutorName          string         `db:"tutor_name"`
	Subject            string         `db:"subject"`
	SessionDate        string         `db:"session_date"`
	TimeSlot           string         `db:"time_slot"`
	SourceLink         string         `db:"source_link"`
	FolderLink         string         `db:"folder_link"`
	VideoRef           string         `db:"video_ref"`
	TranscriptRef      string         `db:"transcript_ref"`
	ReportRef          string         `db:"report_ref"`
	WorkDir            string         `db:"work_dir"`
	Lifecycle          string         `db:"lifecycle_status"`
	Acquisition        string         `db:"acquisition_status"`
	Analysis           string         `db:"analysis_status"`
	Progress           int            `db:"progress"`
	Error              string         `db:"error"`
	QuotaAttempts      int            `db:"quota_attempts"`
	AnalysisStartedAt  sql.NullString `db:"analysis_started_at"`
	AnalysisFinishedAt sql.NullString `db:"analysis_finished_at"`
	AuditComments      string         `db:"audit_comments"`
	AuditApproved      bool           `db:"audit_approved"`
	AuditedAt          sql.NullString `db:"audited_at"`
	AuditStatus        string         `db:"audit_status"`
	CreatedAt          string         `db:"created_at"`
	UpdatedAt          string         `db:"updated_at"`
}

func rowFromSession(s *Session) sessionRow {
	return sessionRow{
		ID:                 s.ID,
		TutorID:            s.TutorID,
		TutorName:          s.TutorName,
		Subject:            s.Subject,
		SessionDate:        s.SessionDate,
		TimeSlot:           s.TimeSlot,
		SourceLink:         s.SourceLink,
		FolderLink:         s.FolderLink,
		VideoRef:           s.VideoRef,
		TranscriptRef:      s.TranscriptRef,
		ReportRef:          s.ReportRef,
		WorkDir:            s.WorkDir,
		Lifecycle:          string(s.Lifecycle),
		Acquisition:        string(s.Acquisition),
		Analysis:           string(s.Analysis),
		Progress:           clampProgress(s.Progress),
		Error:              s.Error,
		QuotaAttempts:      s.QuotaAttempts,
		AnalysisStartedAt:  nullableTime(s.AnalysisStartedAt),
		AnalysisFinishedAt: nullableTime(s.AnalysisFinishedAt),
		AuditComments:      s.Audit.Comments,
		AuditApproved:      s.Audit.Approved,
		AuditedAt:          nullableTime(s.Audit.AuditedAt),
		AuditStatus:        s.Audit.Status,
		CreatedAt:          formatTime(s.CreatedAt),
		UpdatedAt:          formatTime(s.UpdatedAt),
	}
}

func (r sessionRow) session() *Session {
	s := &Session{
		ID:                 r.ID,
		TutorID:            r.TutorID,
		TutorName:          r.TutorName,
		Subject:            r.Subject,
		SessionDate:        r.SessionDate,
		TimeSlot:           r.TimeSlot,
		SourceLink:         r.SourceLink,
		FolderLink:         r.FolderLink,
		VideoRef:           r.VideoRef,
		TranscriptRef:      r.TranscriptRef,
		ReportRef:          r.ReportRef,
		WorkDir:            r.WorkDir,
		Lifecycle:          Lifecycle(r.Lifecycle),
		Acquisition:        AcquisitionStatus(r.Acquisition),
		Analysis:           AnalysisStatus(r.Analysis),
		Progress:           r.Progress,
		Error:              r.Error,
		QuotaAttempts:      r.QuotaAttempts,
		AnalysisStartedAt:  parseNullableTime(r.AnalysisStartedAt),
		AnalysisFinishedAt: parseNullableTime(r.AnalysisFinishedAt),
		Audit: Audit{
			Comments:  r.AuditComments,
			Approved:  r.AuditApproved,
			AuditedAt: parseNullableTime(r.AuditedAt),
			Status:    r.AuditStatus,
		},
	}
	if created, err := parseTimeString(r.CreatedAt); err == nil {
		s.CreatedAt = created
	}
	if updated, err := parseTimeString(r.UpdatedAt); err == nil {
		s.UpdatedAt = updated
	}
	return s
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(value *time.Time) sql.NullString {
	if value == nil || value.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

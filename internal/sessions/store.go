package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	// ErrDuplicate is returned by Create when the identifier already exists.
	ErrDuplicate = errors.New("session already exists")
	// ErrMissing is returned by scoped updates when the identifier is unknown.
	ErrMissing = errors.New("session not found")
)

var insertPlaceholders = ":" + strings.Join(strings.Fields(strings.ReplaceAll(sessionColumns, ",", " ")), ", :")

const pipelineAssignments = `lifecycle_status = :lifecycle_status,
	acquisition_status = :acquisition_status,
	analysis_status = :analysis_status,
	progress = :progress,
	video_ref = :video_ref,
	transcript_ref = :transcript_ref,
	report_ref = :report_ref,
	work_dir = :work_dir,
	error = :error,
	quota_attempts = :quota_attempts,
	analysis_started_at = :analysis_started_at,
	analysis_finished_at = :analysis_finished_at`

const descriptiveAssignments = `tutor_id = :tutor_id,
	tutor_name = :tutor_name,
	subject = :subject,
	session_date = :session_date,
	time_slot = :time_slot,
	source_link = :source_link,
	folder_link = :folder_link`

const auditAssignments = `audit_comments = :audit_comments,
	audit_approved = :audit_approved,
	audited_at = :audited_at,
	audit_status = :audit_status`

// Get fetches a session by identifier. It returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return row.session(), nil
}

// List returns sessions in creation order, optionally filtered by lifecycle.
func (s *Store) List(ctx context.Context, lifecycles ...Lifecycle) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if len(lifecycles) > 0 {
		values := make([]string, len(lifecycles))
		for i, l := range lifecycles {
			values[i] = string(l)
		}
		var err error
		query, args, err = sqlx.In(query+` WHERE lifecycle_status IN (?)`, values)
		if err != nil {
			return nil, fmt.Errorf("build list query: %w", err)
		}
	}
	query += ` ORDER BY created_at, id`

	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]*Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.session())
	}
	return out, nil
}

// Create inserts a new session and stamps its timestamps.
func (s *Store) Create(ctx context.Context, session *Session) error {
	if session == nil || strings.TrimSpace(session.ID) == "" {
		return errors.New("session id is required")
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Lifecycle == "" {
		session.Lifecycle = LifecyclePending
	}
	if session.Acquisition == "" {
		session.Acquisition = AcquisitionPending
	}
	if session.Analysis == "" {
		session.Analysis = AnalysisPending
	}

	_, err := s.namedExec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (`+insertPlaceholders+`)`,
		rowFromSession(session),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicate, session.ID)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update persists every column of an existing session.
func (s *Store) Update(ctx context.Context, session *Session) error {
	return s.update(ctx, session, pipelineAssignments+",\n\t"+descriptiveAssignments+",\n\t"+auditAssignments)
}

// UpdatePipeline persists only pipeline-owned state: statuses, progress,
// artifact refs, error, and analysis timing.
func (s *Store) UpdatePipeline(ctx context.Context, session *Session) error {
	return s.update(ctx, session, pipelineAssignments)
}

// UpdateDescriptive persists only fields that ingestion merge may fill.
func (s *Store) UpdateDescriptive(ctx context.Context, session *Session) error {
	return s.update(ctx, session, descriptiveAssignments)
}

// UpdateAudit persists only the human-review fields.
func (s *Store) UpdateAudit(ctx context.Context, session *Session) error {
	return s.update(ctx, session, auditAssignments)
}

func (s *Store) update(ctx context.Context, session *Session, assignments string) error {
	if session == nil {
		return errors.New("session is nil")
	}
	session.UpdatedAt = time.Now().UTC()
	res, err := s.namedExec(ctx,
		`UPDATE sessions SET `+assignments+`, updated_at = :updated_at WHERE id = :id`,
		rowFromSession(session),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrMissing, session.ID)
	}
	return nil
}

// Remove deletes a session record. It reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("remove session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Stats summarizes the store by lifecycle.
type Stats struct {
	Total       int               `json:"total"`
	ByLifecycle map[Lifecycle]int `json:"by_lifecycle"`
	Ready       int               `json:"ready"`
}

// Stats counts sessions per lifecycle plus those ready for analysis.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var rows []struct {
		Lifecycle   string `db:"lifecycle_status"`
		Acquisition string `db:"acquisition_status"`
		Count       int    `db:"n"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT lifecycle_status, acquisition_status, COUNT(*) AS n FROM sessions GROUP BY lifecycle_status, acquisition_status`)
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	stats := Stats{ByLifecycle: make(map[Lifecycle]int, len(lifecycles))}
	for _, l := range lifecycles {
		stats.ByLifecycle[l] = 0
	}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByLifecycle[Lifecycle(row.Lifecycle)] += row.Count
		if Lifecycle(row.Lifecycle) == LifecyclePending && AcquisitionStatus(row.Acquisition) == AcquisitionCompleted {
			stats.Ready += row.Count
		}
	}
	return stats, nil
}

// AnalysisDurations returns wall times of completed analyses, most recent first.
func (s *Store) AnalysisDurations(ctx context.Context, limit int) ([]time.Duration, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []struct {
		Started  string `db:"analysis_started_at"`
		Finished string `db:"analysis_finished_at"`
	}
	err := s.db.SelectContext(ctx, &rows,
		`SELECT analysis_started_at, analysis_finished_at FROM sessions
		 WHERE analysis_status = ? AND analysis_started_at IS NOT NULL AND analysis_finished_at IS NOT NULL
		 ORDER BY analysis_finished_at DESC LIMIT ?`,
		string(AnalysisCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("analysis durations: %w", err)
	}
	out := make([]time.Duration, 0, len(rows))
	for _, row := range rows {
		started, err1 := parseTimeString(row.Started)
		finished, err2 := parseTimeString(row.Finished)
		if err1 != nil || err2 != nil || finished.Before(started) {
			continue
		}
		out = append(out, finished.Sub(started))
	}
	return out, nil
}

package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/logging"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

// Report summarizes one ingestion run.
type Report struct {
	Added   int        `json:"added"`
	Updated int        `json:"updated"`
	Skipped []RowError `json:"skipped,omitempty"`

	// AddedSessions are the sessions created by this run, in row order.
	AddedSessions []*sessions.Session `json:"-"`
}

// Ingester applies merged batches to the session store. Runs are serialized
// so two uploads never race on the same identifier.
type Ingester struct {
	store  *sessions.Store
	logger *slog.Logger
	mu     sync.Mutex
}

// New constructs an Ingester.
func New(store *sessions.Store, logger *slog.Logger) *Ingester {
	return &Ingester{
		store:  store,
		logger: logging.NewComponentLogger(logger, "ingest"),
	}
}

// Ingest merges rows into the store. A failing row is skipped and reported;
// only store failures abort the run.
func (i *Ingester) Ingest(ctx context.Context, rows []Row) (Report, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	existing, err := i.store.List(ctx)
	if err != nil {
		return Report{}, services.Wrap(services.ErrTransient, "ingest", "list sessions", "Failed to load existing sessions", err)
	}
	res := Merge(existing, rows)
	report := Report{Skipped: res.Skipped}

	for _, s := range res.Added {
		err := i.store.Create(ctx, s)
		switch {
		case err == nil:
			report.Added++
			report.AddedSessions = append(report.AddedSessions, s)
		case errors.Is(err, sessions.ErrDuplicate):
			// Created concurrently by another writer; fold into the stored row.
			changed, err := i.absorbDuplicate(ctx, s)
			if err != nil {
				return report, err
			}
			if changed {
				report.Updated++
			}
		default:
			return report, services.Wrap(services.ErrTransient, "ingest", "create session", "Failed to persist session", err)
		}
	}
	for _, s := range res.Updated {
		if err := i.store.UpdateDescriptive(ctx, s); err != nil {
			return report, services.Wrap(services.ErrTransient, "ingest", "update session", "Failed to merge session", err)
		}
		report.Updated++
	}

	for _, skipped := range res.Skipped {
		i.logger.Warn("ingest row skipped",
			logging.Int("line", skipped.Line),
			logging.String("reason", skipped.Reason),
			logging.String(logging.FieldEventType, "ingest_row_skipped"),
			logging.String(logging.FieldErrorHint, "check the tutor and date columns"),
			logging.String(logging.FieldImpact, "row ignored"),
		)
	}
	i.logger.Info("ingest complete",
		logging.Int("rows", len(rows)),
		logging.Int("added", report.Added),
		logging.Int("updated", report.Updated),
		logging.Int("skipped", len(report.Skipped)),
		logging.String(logging.FieldEventType, "ingest_complete"),
	)
	return report, nil
}

// absorbDuplicate fills the empty descriptive fields of the stored session
// from candidate. It reports whether anything was written.
func (i *Ingester) absorbDuplicate(ctx context.Context, candidate *sessions.Session) (bool, error) {
	stored, err := i.store.Get(ctx, candidate.ID)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "ingest", "load session", "Failed to load existing session", err)
	}
	if stored == nil {
		return false, services.Wrap(services.ErrTransient, "ingest", "load session", "session "+candidate.ID+" vanished during merge", nil)
	}
	if !fillEmpty(stored, candidate) {
		return false, nil
	}
	if err := i.store.UpdateDescriptive(ctx, stored); err != nil {
		return false, services.Wrap(services.ErrTransient, "ingest", "update session", "Failed to merge session", err)
	}
	return true, nil
}

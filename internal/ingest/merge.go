package ingest

import (
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

// Result is the outcome of merging a batch of rows into a known collection.
type Result struct {
	// Sessions holds every session after the merge, existing ones first in
	// their original order, then added ones in row order.
	Sessions []*sessions.Session
	Added    []*sessions.Session
	Updated  []*sessions.Session
	Skipped  []RowError
}

// Merge folds rows into existing without touching protected fields. Existing
// sessions are cloned; the inputs are never modified.
func Merge(existing []*sessions.Session, rows []Row) Result {
	var res Result
	index := make(map[string]*sessions.Session, len(existing)+len(rows))
	res.Sessions = make([]*sessions.Session, 0, len(existing)+len(rows))
	for _, s := range existing {
		if s == nil {
			continue
		}
		clone := *s
		index[clone.ID] = &clone
		res.Sessions = append(res.Sessions, &clone)
	}

	added := make(map[string]bool)
	updated := make(map[string]bool)
	for _, row := range rows {
		candidate, err := Candidate(row)
		if err != nil {
			res.Skipped = append(res.Skipped, RowError{Line: row.Line, Reason: err.Error()})
			continue
		}
		current, ok := index[candidate.ID]
		if !ok {
			index[candidate.ID] = candidate
			res.Sessions = append(res.Sessions, candidate)
			res.Added = append(res.Added, candidate)
			added[candidate.ID] = true
			continue
		}
		if !fillEmpty(current, candidate) || added[current.ID] || updated[current.ID] {
			continue
		}
		updated[current.ID] = true
		res.Updated = append(res.Updated, current)
	}
	return res
}

// fillEmpty copies descriptive values from candidate into target where the
// target is blank. A folder link arriving for a session that only knew the
// same URL as its direct link moves the URL to the folder slot.
func fillEmpty(target, candidate *sessions.Session) bool {
	changed := false
	if candidate.FolderLink != "" && target.FolderLink == "" && target.SourceLink == candidate.FolderLink {
		target.FolderLink = target.SourceLink
		target.SourceLink = ""
		changed = true
	}
	for _, f := range sessions.DescriptiveFields() {
		incoming := candidate.Descriptive(f)
		if incoming == "" || target.Descriptive(f) != "" {
			continue
		}
		if f == sessions.FieldSourceLink && incoming == target.FolderLink {
			continue
		}
		if target.SetDescriptive(f, incoming) {
			changed = true
		}
	}
	return changed
}

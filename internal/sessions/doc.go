// Package sessions persists tutoring-session records in SQLite.
//
// The Store owns the sessions table and offers column-scoped writes:
// UpdatePipeline touches only pipeline-owned state (statuses, progress,
// artifact refs, error), UpdateDescriptive touches only descriptive fields
// filled by ingestion, and UpdateAudit touches only the human-review columns.
// Because the column sets are disjoint, a merge and a pipeline write for the
// same session never overwrite each other's fields. The protected field set
// used by ingestion merge is the compile-time Field enumeration in fields.go.
package sessions

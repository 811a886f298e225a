// Package api defines wire-format types, converters, and the HTTP client for
// the daemon API. It translates session, queue, and workflow models into
// transport-friendly DTOs that the CLI and dashboard consumers can render
// without coupling to internal types.
//
// # Key Types
//
// Session: transport representation of a session record with its display
// status ("pending(ready)" for sessions awaiting analysis).
//
// WorkflowStatus: running state, per-pipeline queue snapshots, session counts,
// analysis timing, and recovery results.
//
// DaemonStatus: aggregated runtime information including dependency checks.
//
// Event/EventsResponse: broadcast deltas for live observers.
//
// # Converters
//
// FromSession, FromQueueStatus, FromStatusSummary, FromIngestSummary, and
// FromEvent map internal models to DTOs.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums are exposed as lowercase strings. Timestamps use RFC3339 with
// milliseconds.
package api

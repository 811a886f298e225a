// Package services defines shared utilities consumed by the pipeline workers
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, pipeline and stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper so every failure recorded on
//     a session carries a classifiable kind (not found, transfer, tool, timeout,
//     quota).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform.
package services

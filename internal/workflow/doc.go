// Package workflow drives sessions through the acquisition and analysis
// pipelines.
//
// The Manager owns one work queue per pipeline. Ingested sessions enter the
// acquisition queue; a successful acquisition submits the session to the
// analysis queue from inside the job's guard, so an administrative reset that
// supersedes the acquisition job also prevents the hand-off. A quota signal
// from the analysis tool pauses the whole analysis queue for the configured
// backoff and puts the session back at the end of the queue.
//
// Start runs recovery before dispatching: sessions left downloading or still
// pending with a link go back to acquisition, and sessions that are ready (or
// were analyzing) with a local video go back to analysis. The manager is also
// the single entry point the daemon uses for ingestion, retry, removal, audit
// updates, reset, and status summaries.
package workflow

// Package acquisition obtains local video and transcript artifacts for a
// session.
//
// The Acquirer picks a resolver from the session's links: a remote folder is
// fetched whole by an external helper and then scanned by SelectArtifacts; a
// direct or hosted-file link is streamed by HTTPResolver; a file:// link or
// absolute path is used in place. Every state change is persisted through the
// session store and broadcast on the event hub inside the job's guard so an
// administrative reset silences superseded work.
package acquisition

// Package daemon coordinates the long-running ischool process.
//
// It wires configuration, the session store, and the workflow manager into a
// single lifecycle with flock-based locking so only one daemon owns a data
// directory. The daemon serves the HTTP API: session listing and detail,
// spreadsheet uploads, retry, removal, audit updates, administrative reset,
// status, and the event stream (websocket, with a long-poll fallback).
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and transport.
package daemon

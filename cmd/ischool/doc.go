// Package main hosts the ischool CLI entrypoint and command graph.
//
// The daemon command runs the ingestion and analysis pipelines behind the
// HTTP API. Every other command is a thin client of that API, so the CLI and
// any browser dashboard observe the same state.
package main

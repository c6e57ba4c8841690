// Package main hosts the draftbot CLI.
//
// The Cobra command tree runs the approval daemon, talks to a running daemon
// through its local HTTP API (pending approvals, manual decisions, logs), and
// offers offline utilities: configuration scaffolding, preflight status
// checks, one-shot speech synthesis, and manual pipeline runs. Commands that
// only read state fall back to the journal or event log when the daemon is
// not running.
package main

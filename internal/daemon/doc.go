// Package daemon coordinates the long-running draftbot process.
//
// It wires configuration, the journal, the workflow manager, and the
// supporting services (draft watcher, Discord gateway, blog scheduler) into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon also serves the local HTTP API used by the CLI for status,
// pending approvals, manual decisions, and log streaming.
//
// Keep orchestration logic here: individual workflow steps live in their own
// packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon

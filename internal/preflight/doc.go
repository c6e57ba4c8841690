// Package preflight provides readiness checks for the services and
// filesystem paths draftbot depends on.
//
// The CLI "draftbot status" command renders RunAll plus CheckDaemon; the
// daemon runs the directory checks at startup so a misconfigured folder is
// reported before the watcher starts.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight

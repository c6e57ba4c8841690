// Package journal persists daemon state in SQLite so restarts do not lose
// track of drafts already announced, approvals still awaiting a decision,
// decisions taken, and schedule runs already performed.
//
// Connections run in WAL mode with a busy timeout, and writes retry briefly
// on SQLITE_BUSY. The schema is built from numbered scripts under
// migrations/, with progress kept in PRAGMA user_version.
package journal

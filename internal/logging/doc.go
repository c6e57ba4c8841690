// Package logging assembles structured slog loggers and formatting helpers used
// across draftbot.
//
// It owns the console/JSON handlers, the append-only event log file, and the
// in-memory stream the HTTP API serves. Context helpers tag log lines with the
// draft path, Discord message ID, and correlation ID carried on a context. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging

// Package logs reads the daemon's JSON event log for the CLI.
//
// Tail returns the last N lines or everything past a byte offset, and in
// follow mode waits for the file to grow. ParseLine and FormatEvent turn
// event log lines (or events fetched from the daemon API) into the compact
// one-line form `draftbot logs` prints.
package logs

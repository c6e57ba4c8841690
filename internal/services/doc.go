// Package services defines shared utilities consumed by the workflow and the
// external integrations (Home Assistant, Discord, Medium, the LLM provider).
//
// Key responsibilities:
//   - Context helpers that stamp draft paths, message identifiers, and
//     correlation identifiers for logging.
//   - The error taxonomy (synthesis, publish, file operation, configuration)
//     plus the Wrap helper so every failure carries component and operation
//     context while remaining matchable with errors.Is.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error classification, observability) stays uniform across the daemon.
package services

// Package pipeline generates blog content with a chat completion model.
//
// Each stage is a single prompt: Topics proposes numbered topic lines, Brief
// outlines one topic, Draft writes Markdown from a brief, and Edit polishes a
// draft. Compose chains brief, draft, and edit and writes the result into the
// drafts folder, where the watcher picks it up for approval like any
// hand-written draft.
package pipeline

// Package workflow drives the draft-approval lifecycle.
//
// The Manager consumes draft events from the watcher and reaction events from
// the messaging gateway. A new draft is loaded, synthesized to audio, posted
// for approval, and registered in the approval table and the journal. A
// reaction is offered to the table; once a tracker reaches a terminal state
// the outcome handler applies its side effects and the decision is journaled.
//
// Draft events and reaction events run on separate goroutines. The approval
// table serializes writes to each tracker.
package workflow

// Package approval tracks drafts awaiting a human decision.
//
// Each published approval message owns one Tracker, which starts in
// AwaitingDecision and moves exactly once to Approved, Rejected, or Expired.
// The Table owns every tracker and serializes writers behind one mutex.
//
// Reactions are offered rather than applied. The table holds the first offer
// for a settle window and then picks the earliest reaction by its event
// timestamp, so delivery order from the chat platform never decides the
// outcome. Equal timestamps resolve to Rejected. A zero window decides on the
// first offer.
package approval

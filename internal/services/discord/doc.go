// Package discord posts drafts for approval and relays marker reactions.
//
// Publisher creates one message per draft in the approval channel with the
// audio attached and the approve/reject markers pre-added. Gateway holds the
// websocket session and converts reaction events on that channel into
// approval.Reaction values.
package discord

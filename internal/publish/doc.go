// Package publish handles approved drafts after they land in the approved
// folder.
//
// Every approved draft gets a `<stem>.social.txt` file beside it with a
// LinkedIn and a Twitter snippet ready to paste. When Medium publishing is
// enabled the draft is also created as a Medium post through the integration
// token API; failures are reported to the caller and never move the draft
// back.
package publish

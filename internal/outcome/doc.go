// Package outcome applies the filesystem side effects of a terminal approval
// decision.
//
// Approved drafts are moved into the approved folder. Rejected drafts lose
// their audio artifact and gain a line in the rejection log; the source draft
// stays where it is unless a rejected folder is configured. Expired drafts
// only lose their audio. Failures are reported as services.FileOperationError
// and never compensated.
package outcome

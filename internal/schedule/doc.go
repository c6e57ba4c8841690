// Package schedule runs the blog pipeline on its weekday cadence.
//
// Mondays produce a research list of topics; Mondays, Wednesdays, and Fridays
// produce a topic report and, when enabled, a composed draft from the first
// reported topic. Each job runs at most once per day; the journal records
// completed runs so restarts and manual runs do not repeat work.
package schedule

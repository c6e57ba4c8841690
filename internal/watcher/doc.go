// Package watcher observes the drafts directory and emits one event per new
// draft file.
//
// fsnotify delivers create and write notifications; a reconcile poll catches
// files on mounts that never raise inotify events. Both paths share a single
// seen-set, so duplicate notifications for the same path never produce a
// second event. A file is emitted only after its size and modification time
// have been stable for the configured settle window.
package watcher

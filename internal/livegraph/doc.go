// Package livegraph serves the current snapshot of a dataset directory through a
// single long-lived Handle.
//
// Open loads the snapshot named by the directory's pointer file and returns a
// Handle plus a Watcher. The Watcher re-reads the pointer on an interval (and,
// optionally, when the pointer file changes on disk), loads any newly designated
// snapshot and publishes it on the Handle. Calls already running against the
// previous snapshot finish before it is closed, up to a drain timeout.
//
// A failed reload never replaces a working snapshot.
package livegraph

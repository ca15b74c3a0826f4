// Package dataset locates and opens versioned graph snapshots on disk.
//
// A dataset directory holds immutable snapshot files plus a pointer file,
// current.txt, whose trimmed content names the snapshot to serve:
//
//	snapshots/
//	  current.txt          -> "lore-20261019T101500Z.db"
//	  lore-20261018T220000Z.db
//	  lore-20261019T101500Z.db
//
// Resolve reads the pointer, Load opens a snapshot through the loader registered
// for its file extension.
package dataset

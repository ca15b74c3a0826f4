package dataset

import (
	"github.com/cockroachdb/errors"
)

// The sentinels below are attached with errors.Mark, so they must be matched
// with github.com/cockroachdb/errors.Is; the standard library's errors.Is does
// not see marks.
var (
	// ErrPointerMissing marks failures to read the pointer file.
	ErrPointerMissing = errors.New("dataset pointer missing")
	// ErrTargetMissing marks a pointer naming a file that is absent or not regular.
	ErrTargetMissing = errors.New("dataset pointer target missing")
	// ErrLoad marks failures to open a snapshot.
	ErrLoad = errors.New("dataset load failed")
	// ErrRelease marks failures to close a superseded snapshot.
	ErrRelease = errors.New("dataset release failed")
)

// LoadError wraps err as a failure to load path.
func LoadError(path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrLoad) {
		return err
	}
	return errors.Mark(errors.Wrapf(err, "loading %s", path), ErrLoad)
}

// ReleaseError wraps err as a failure to release the snapshot identified by id.
func ReleaseError(id Identity, err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "releasing %s", id), ErrRelease)
}

package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// PointerFile is the name of the file designating the current snapshot.
const PointerFile = "current.txt"

// Identity names one snapshot file by its absolute, cleaned path. Two identities
// are equal iff they name the same path; contents are never compared.
type Identity string

// IdentityOf returns the identity of path.
func IdentityOf(path string) (Identity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return Identity(filepath.Clean(abs)), nil
}

func (id Identity) Path() string   { return string(id) }
func (id Identity) Name() string   { return filepath.Base(string(id)) }
func (id Identity) String() string { return string(id) }

// Resolve reads the pointer file in dir and returns the identity of the snapshot
// it names. Nothing is cached; each call reflects the current disk state.
func Resolve(dir string) (Identity, error) {
	pointer := filepath.Join(dir, PointerFile)
	data, err := os.ReadFile(pointer)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "reading %s", pointer), ErrPointerMissing)
	}

	name := strings.TrimSpace(string(data))
	id, err := IdentityOf(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "resolving %q from %s", name, pointer), ErrTargetMissing)
	}

	info, err := os.Stat(id.Path())
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "%s names %q", pointer, name), ErrTargetMissing)
	}
	if !info.Mode().IsRegular() {
		return "", errors.Mark(errors.Newf("%s names %q, which is not a regular file", pointer, name), ErrTargetMissing)
	}
	return id, nil
}

// WritePointer designates name as the current snapshot of dir. The pointer file is
// replaced with a rename so readers never observe a partial write.
func WritePointer(dir, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) || name != filepath.Base(name) {
		return errors.WithHint(
			errors.Newf("invalid snapshot name %q", name),
			"the pointer must name a file directly inside the dataset directory",
		)
	}

	tmp, err := os.CreateTemp(dir, ".current-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating pointer temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(name + "\n"); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing pointer temp file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "syncing pointer temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing pointer temp file")
	}
	if err := os.Rename(tmpName, filepath.Join(dir, PointerFile)); err != nil {
		return errors.Wrap(err, "replacing pointer file")
	}
	return nil
}

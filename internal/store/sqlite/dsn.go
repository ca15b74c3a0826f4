package sqlite

import (
	"net/url"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// fileURL builds a file: URI for path. Relative paths are made absolute first;
// in file://rel/x.db the first segment would be read as the URI authority.
func fileURL(path string, q url.Values) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := url.URL{
		Scheme:   "file",
		Path:     path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// readOnlyDSN opens an existing snapshot without write access. immutable=1 tells
// SQLite the file never changes, so it skips locking and change detection.
func readOnlyDSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("immutable", "1")
	q.Add("_pragma", "query_only(1)")
	return fileURL(path, q)
}

func writableDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(MEMORY)")
	q.Add("_pragma", "synchronous(OFF)")
	return fileURL(path, q)
}

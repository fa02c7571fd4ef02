package sync

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

type entryKind int

const (
	kindOther entryKind = iota
	kindDir
	kindFile
)

// errFound stops a walk early once a match is found.
var errFound = errors.New("found")

// tree enumerates the entries below a root directory.
type tree struct {
	root    string
	exclude []string

	// resolveLinks makes symbolic links to regular files count as files, and
	// every other link as an entry to ignore. Without it, a link is never
	// followed and is treated like a file, so that it gets replaced or
	// removed rather than written through.
	resolveLinks bool
}

// path converts a relative path back into a path that can be passed to the
// filesystem.
func (t tree) path(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

// rel returns the slash-separated path of `path` relative to the root.
func (t tree) rel(path string) (string, error) {
	rel, err := filepath.Rel(t.root, path)
	if err != nil {
		return "", errors.WithContext(err, "normalize path")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New("%q is outside of %q", path, t.root)
	}
	return filepath.ToSlash(rel), nil
}

func (t tree) excluded(rel string) bool {
	for _, pattern := range t.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// list returns the relative path of every entry of the given kind below the
// root, in lexical depth-first order. The root itself is never listed.
// Entries that can't be read are passed to `onError` and skipped; a non-nil
// return from `onError` stops the walk. Failing to read the root is returned
// directly.
func (t tree) list(kind entryKind, onError func(error) error) ([]string, error) {
	var entries []string
	err := afero.Walk(fs, t.root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			if path == t.root {
				return errors.StructuralError{Reason: "read " + t.root + ": " + err.Error()}
			}

			if handlerErr := onError(errors.EntryError{Action: "read", Path: path, Err: err}); handlerErr != nil {
				return handlerErr
			}
			if fi != nil && fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == t.root {
			return nil
		}

		rel, err := t.rel(path)
		if err != nil {
			return err
		}

		if t.excluded(rel) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if t.kindOf(path, fi) == kind {
			entries = append(entries, rel)
		}
		return nil
	})
	return entries, err
}

// kindAt classifies the entry at `rel`. Missing entries, including those
// below a file, are kindOther.
func (t tree) kindAt(rel string) (entryKind, error) {
	p := t.path(rel)
	fi, err := lstat(p)
	if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
		return kindOther, nil
	}
	if err != nil {
		return kindOther, err
	}
	return t.kindOf(p, fi), nil
}

// holdsExcluded returns whether anything below the directory at `rel` is
// excluded.
func (t tree) holdsExcluded(rel string) (bool, error) {
	if len(t.exclude) == 0 {
		return false, nil
	}

	dir := t.path(rel)
	err := afero.Walk(fs, dir, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		entry, err := t.rel(p)
		if err != nil {
			return err
		}
		if t.excluded(entry) {
			return errFound
		}
		return nil
	})
	if err == errFound {
		return true, nil
	}
	return false, err
}

// kindOf classifies an entry from its lstat info. Links to directories are
// never walked into.
func (t tree) kindOf(p string, fi os.FileInfo) entryKind {
	switch {
	case fi.IsDir():
		return kindDir
	case !t.resolveLinks:
		return kindFile
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := fs.Stat(p)
		if err != nil || !target.Mode().IsRegular() {
			return kindOther
		}
		return kindFile
	case fi.Mode().IsRegular():
		return kindFile
	}
	return kindOther
}

// lstat stats `p` without following a final symbolic link, if the
// filesystem supports links at all.
func lstat(p string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(p)
		return fi, err
	}
	return fs.Stat(p)
}

// ancestors returns the parent directories of `rel`, outermost first.
func ancestors(rel string) []string {
	var dirs []string
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		dirs = append([]string{dir}, dirs...)
	}
	return dirs
}

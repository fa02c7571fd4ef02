package sync

import (
	"fmt"
	"io"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Synchronizer makes a replica directory tree match a source tree. It keeps
// no state between passes: every call to Sync re-reads both trees.
type Synchronizer struct {
	comparator ContentComparator
	clock      clockwork.Clock
	exclude    []string
	failFast   bool
}

// New creates a Synchronizer from `opts`.
func New(opts Options) (*Synchronizer, error) {
	if err := ValidateExcludes(opts.Exclude); err != nil {
		return nil, err
	}

	comparator := opts.Comparator
	if comparator == nil {
		digest, err := NewDigest(opts.Digest)
		if err != nil {
			return nil, err
		}
		comparator = DigestComparator{Digest: digest}
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Synchronizer{
		comparator: comparator,
		clock:      clock,
		exclude:    opts.Exclude,
		failFast:   opts.FailFast,
	}, nil
}

// Sync runs one pass that reconciles `replica` with `source`, writing a record
// to `sink` for every mutating action, skipped entry, and aborted pass.
// The phases always run in the same order: create directories, copy files,
// remove stray files, then remove stray directories.
//
// The returned error is non-nil only if the pass was aborted, in which case
// it has already been recorded to the sink.
func (s *Synchronizer) Sync(source, replica string, sink Sink) (Summary, error) {
	p := &pass{
		Synchronizer: s,
		source:       tree{root: source, exclude: s.exclude, resolveLinks: true},
		replica:      tree{root: replica, exclude: s.exclude},
		rec:          recorder{clock: s.clock, sink: sink},
		failedDirs:   map[string]bool{},
	}

	start := s.clock.Now()
	err := p.run()
	p.summary.Duration = s.clock.Since(start)
	if err != nil {
		p.rec.aborted(err)
	}
	return p.summary, err
}

type pass struct {
	*Synchronizer

	source, replica tree
	rec             recorder
	summary         Summary

	// failedDirs holds the relative paths of replica directories that
	// couldn't be made real directories. Nothing is written below them.
	failedDirs map[string]bool
}

func (p *pass) run() error {
	if err := p.checkRoots(); err != nil {
		return err
	}

	phases := []func() error{
		p.createDirs,
		p.copyFiles,
		p.removeStrayFiles,
		p.removeStrayDirs,
	}
	for _, phase := range phases {
		if err := phase(); err != nil {
			return err
		}
	}
	return nil
}

// checkRoots makes sure the source is a readable directory, and creates the
// replica root if it doesn't exist yet.
func (p *pass) checkRoots() error {
	fi, err := fs.Stat(p.source.root)
	switch {
	case os.IsNotExist(err):
		return errors.StructuralError{
			Reason: fmt.Sprintf("source directory %s does not exist", p.source.root)}
	case err != nil:
		return errors.StructuralError{
			Reason: fmt.Sprintf("stat source directory %s: %s", p.source.root, err)}
	case !fi.IsDir():
		return errors.StructuralError{
			Reason: fmt.Sprintf("source %s is not a directory", p.source.root)}
	}

	fi, err = fs.Stat(p.replica.root)
	switch {
	case os.IsNotExist(err):
		if err := fs.MkdirAll(p.replica.root, dirMode); err != nil {
			return errors.StructuralError{
				Reason: fmt.Sprintf("create replica directory %s: %s", p.replica.root, err)}
		}
		p.rec.createdDir(p.replica.root)
		p.summary.DirsCreated++
	case err != nil:
		return errors.StructuralError{
			Reason: fmt.Sprintf("stat replica directory %s: %s", p.replica.root, err)}
	case !fi.IsDir():
		return errors.StructuralError{
			Reason: fmt.Sprintf("replica %s is not a directory", p.replica.root)}
	}
	return nil
}

// entryFailed handles an error confined to a single entry. The entry is
// skipped and the pass goes on, unless FailFast is set.
func (p *pass) entryFailed(err error) error {
	p.summary.Skipped++
	if p.failFast {
		return errors.StructuralError{Reason: err.Error()}
	}
	p.rec.warning(err)
	return nil
}

// underFailedDir returns an error if an ancestor of `rel` couldn't be
// synced, since writing below it might follow a link out of the replica.
func (p *pass) underFailedDir(rel string) error {
	for _, dir := range ancestors(rel) {
		if p.failedDirs[dir] {
			return errors.New("parent directory %s was not synced", p.replica.path(dir))
		}
	}
	return nil
}

func (p *pass) createDirs() error {
	dirs, err := p.source.list(kindDir, p.entryFailed)
	if err != nil {
		return err
	}

	for _, rel := range dirs {
		dst := p.replica.path(rel)
		if err := p.createDir(rel, dst); err != nil {
			p.failedDirs[rel] = true
			if err := p.entryFailed(err); err != nil {
				return err
			}
		}
	}
	return nil
}

// createDir makes `dst` a real directory. Anything else at that path,
// including a symbolic link, is removed first.
func (p *pass) createDir(rel, dst string) error {
	if err := p.underFailedDir(rel); err != nil {
		return errors.EntryError{Action: "create directory", Path: dst, Err: err}
	}

	fi, err := lstat(dst)
	switch {
	case err == nil && fi.IsDir():
		return nil
	case err == nil:
		if err := fs.Remove(dst); err != nil {
			return errors.EntryError{Action: "remove file", Path: dst, Err: err}
		}
		p.rec.removedFile(dst)
		p.summary.FilesRemoved++
	case !os.IsNotExist(err):
		return errors.EntryError{Action: "stat", Path: dst, Err: err}
	}

	if err := fs.Mkdir(dst, dirMode); err != nil {
		return errors.EntryError{Action: "create directory", Path: dst, Err: err}
	}
	p.rec.createdDir(dst)
	p.summary.DirsCreated++
	return nil
}

func (p *pass) copyFiles() error {
	files, err := p.source.list(kindFile, p.entryFailed)
	if err != nil {
		return err
	}

	for _, rel := range files {
		src, dst := p.source.path(rel), p.replica.path(rel)
		if err := p.underFailedDir(rel); err != nil {
			err = errors.EntryError{Action: "copy", Path: src + " to " + dst, Err: err}
			if err := p.entryFailed(err); err != nil {
				return err
			}
			continue
		}

		if err := p.copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies `src` over `dst` unless they already hold the same content.
// Whatever isn't a regular file at `dst` is removed first, so a link there is
// replaced rather than written through. The returned error is only non-nil if
// the pass should be aborted.
func (p *pass) copyFile(src, dst string) error {
	fi, err := lstat(dst)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return p.entryFailed(errors.EntryError{Action: "stat", Path: dst, Err: err})
	case fi.IsDir():
		if err := fs.RemoveAll(dst); err != nil {
			return p.entryFailed(errors.EntryError{Action: "remove directory", Path: dst, Err: err})
		}
		p.rec.removedDir(dst)
		p.summary.DirsRemoved++
	case !fi.Mode().IsRegular():
		if err := fs.Remove(dst); err != nil {
			return p.entryFailed(errors.EntryError{Action: "remove file", Path: dst, Err: err})
		}
		p.rec.removedFile(dst)
		p.summary.FilesRemoved++
	default:
		equal, err := p.comparator.AreEqual(src, dst)
		if err != nil {
			return p.entryFailed(errors.EntryError{Action: "compare", Path: src, Err: err})
		}
		if equal {
			return nil
		}
	}

	n, err := copyContents(src, dst)
	if err != nil {
		return p.entryFailed(errors.EntryError{
			Action: "copy", Path: src + " to " + dst, Err: err})
	}
	p.rec.copiedFile(src, dst)
	p.summary.FilesCopied++
	p.summary.BytesCopied += n
	return nil
}

func copyContents(src, dst string) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, errors.WithContext(err, "open source")
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return 0, errors.WithContext(err, "open destination")
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, errors.WithContext(err, "write")
	}

	if err := out.Close(); err != nil {
		return n, errors.WithContext(err, "close")
	}
	return n, nil
}

// removeStrayFiles removes every replica entry that isn't a directory and
// has no file counterpart in the source. Links are removed, never followed.
func (p *pass) removeStrayFiles() error {
	files, err := p.replica.list(kindFile, p.entryFailed)
	if err != nil {
		return err
	}

	for _, rel := range files {
		src, dst := p.source.path(rel), p.replica.path(rel)
		kind, err := p.source.kindAt(rel)
		if err != nil {
			if err := p.entryFailed(errors.EntryError{Action: "stat", Path: src, Err: err}); err != nil {
				return err
			}
			continue
		}
		if kind == kindFile {
			continue
		}

		if err := fs.Remove(dst); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			if err := p.entryFailed(errors.EntryError{Action: "remove file", Path: dst, Err: err}); err != nil {
				return err
			}
			continue
		}
		p.rec.removedFile(dst)
		p.summary.FilesRemoved++
	}
	return nil
}

// removeStrayDirs removes every replica directory with no directory
// counterpart in the source, along with its contents. A stray directory that
// holds excluded entries is kept, with only those entries left in it.
func (p *pass) removeStrayDirs() error {
	dirs, err := p.replica.list(kindDir, p.entryFailed)
	if err != nil {
		return err
	}

	for _, rel := range dirs {
		src, dst := p.source.path(rel), p.replica.path(rel)
		kind, err := p.source.kindAt(rel)
		if err != nil {
			if err := p.entryFailed(errors.EntryError{Action: "stat", Path: src, Err: err}); err != nil {
				return err
			}
			continue
		}
		if kind == kindDir {
			continue
		}

		// Descendants of a directory removed earlier in this phase are
		// already gone.
		if exists, err := dirExists(dst); err == nil && !exists {
			continue
		}

		keep, err := p.replica.holdsExcluded(rel)
		if err != nil {
			if err := p.entryFailed(errors.EntryError{Action: "read", Path: dst, Err: err}); err != nil {
				return err
			}
			continue
		}
		if keep {
			continue
		}

		if err := fs.RemoveAll(dst); err != nil {
			if err := p.entryFailed(errors.EntryError{Action: "remove directory", Path: dst, Err: err}); err != nil {
				return err
			}
			continue
		}
		p.rec.removedDir(dst)
		p.summary.DirsRemoved++
	}
	return nil
}

func dirExists(path string) (bool, error) {
	fi, err := lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

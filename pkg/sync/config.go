package sync

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

const (
	dirMode  = 0755
	fileMode = 0644
)

// Options configures a Synchronizer.
type Options struct {
	// Digest is the name of the hash algorithm used to compare file
	// contents. Defaults to DefaultDigest.
	Digest string

	// Exclude holds doublestar patterns matched against slash-separated
	// relative paths. Excluded entries are ignored in both trees.
	Exclude []string

	// FailFast aborts the pass on the first per-entry error instead of
	// logging it and moving on.
	FailFast bool

	// Clock supplies record timestamps. Defaults to the real clock.
	Clock clockwork.Clock

	// Comparator overrides the digest comparator.
	Comparator ContentComparator
}

// ValidateExcludes returns an error for the first malformed pattern.
func ValidateExcludes(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.NewFriendlyError("Invalid exclude pattern %q.", pattern)
		}
	}
	return nil
}

// Summary counts the mutating actions of one pass.
type Summary struct {
	DirsCreated  int
	FilesCopied  int
	BytesCopied  int64
	FilesRemoved int
	DirsRemoved  int
	Skipped      int
	Duration     time.Duration
}

// Actions returns the total number of mutating actions.
func (s Summary) Actions() int {
	return s.DirsCreated + s.FilesCopied + s.FilesRemoved + s.DirsRemoved
}

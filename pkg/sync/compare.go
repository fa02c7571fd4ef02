package sync

import (
	"github.com/sidkik/foldersync/pkg/errors"
)

// ContentComparator decides whether two existing files hold the same bytes.
type ContentComparator interface {
	AreEqual(pathA, pathB string) (bool, error)
}

// DigestComparator compares files by their content digest. Nothing is cached
// between calls, so every comparison re-reads both files.
type DigestComparator struct {
	Digest Digest
}

// AreEqual returns whether the digests of the two files are identical. Read
// errors are returned to the caller untouched apart from context.
func (c DigestComparator) AreEqual(pathA, pathB string) (bool, error) {
	hashA, err := c.Digest.HashFile(pathA)
	if err != nil {
		return false, errors.WithContext(err, "hash "+pathA)
	}

	hashB, err := c.Digest.HashFile(pathB)
	if err != nil {
		return false, errors.WithContext(err, "hash "+pathB)
	}
	return hashA == hashB, nil
}

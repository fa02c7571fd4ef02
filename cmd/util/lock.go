package util

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/errors"
)

type unlocker struct {
	lock *flock.Flock
}

func (u unlocker) Close() error {
	return u.lock.Unlock()
}

// LockReplica takes an exclusive lock that stops two foldersync processes
// from syncing into the same replica. The lock file lives in the temp
// directory because anything inside the replica would be removed as a stray
// entry.
func LockReplica(replica string) (*flock.Flock, error) {
	path, err := lockPath(replica)
	if err != nil {
		return nil, err
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.WithContext(err, "lock replica")
	}

	if !locked {
		return nil, errors.NewFriendlyError("Another foldersync process is "+
			"already syncing into %q.\nIf that's not the case, remove %s.",
			replica, path)
	}

	log.WithField("path", path).Debug("Locked replica")
	return lock, nil
}

func lockPath(replica string) (string, error) {
	absReplica, err := filepath.Abs(replica)
	if err != nil {
		return "", errors.WithContext(err, "resolve replica path")
	}

	sum := sha256.Sum256([]byte(absReplica))
	name := "foldersync-" + hex.EncodeToString(sum[:8]) + ".lock"
	return filepath.Join(os.TempDir(), name), nil
}

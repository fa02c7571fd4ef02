package util

import (
	"io"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
	"github.com/sidkik/foldersync/pkg/synclog"
)

// Syncer runs a single sync pass.
type Syncer interface {
	Sync(source, replica string, sink sync.Sink) (sync.Summary, error)
}

// Session holds everything that lives for as long as the process syncs: the
// replica lock, the log sink and the synchronizer.
type Session struct {
	settings config.Settings
	syncer   Syncer
	sink     sync.Sink
	passes   int

	closers []io.Closer
}

// StartSession locks the replica, opens the log file and creates the
// synchronizer. Any failure here is fatal to the process.
func StartSession(settings config.Settings, console io.Writer) (*Session, error) {
	lock, err := LockReplica(settings.Replica)
	if err != nil {
		return nil, err
	}

	sink, err := synclog.Open(settings.Log, console)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	syncer, err := sync.New(settings.SyncOptions())
	if err != nil {
		sink.Close()
		lock.Unlock()
		return nil, errors.WithContext(err, "create synchronizer")
	}

	return &Session{
		settings: settings,
		syncer:   syncer,
		sink:     sink,
		closers:  []io.Closer{sink, unlocker{lock}},
	}, nil
}

// Pass runs one sync pass and logs a summary of it. The error is non-nil if
// the pass was aborted.
func (s *Session) Pass() error {
	s.passes++
	logger := log.WithFields(log.Fields{
		"pass":    s.passes,
		"source":  s.settings.Source,
		"replica": s.settings.Replica,
	})

	summary, err := s.syncer.Sync(s.settings.Source, s.settings.Replica, s.sink)
	if err != nil {
		logger.WithError(err).Warn("Sync pass aborted")
		return err
	}

	logger = logger.WithField("duration", summary.Duration)
	if summary.Actions() == 0 && summary.Skipped == 0 {
		logger.Debug("Replica already up to date")
		return nil
	}

	logger.Infof("Created %d directories, copied %d files (%s), "+
		"removed %d files and %d directories, skipped %d entries.",
		summary.DirsCreated, summary.FilesCopied,
		humanize.Bytes(uint64(summary.BytesCopied)),
		summary.FilesRemoved, summary.DirsRemoved, summary.Skipped)
	return nil
}

// Close releases the log file and the replica lock.
func (s *Session) Close() {
	for _, closer := range s.closers {
		if err := closer.Close(); err != nil {
			log.WithError(err).Warn("Failed to clean up")
		}
	}
}

package synclog

import (
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Sink writes every record line to the console and appends it to the log
// file. The file is flushed to disk after each line so that records survive
// an abrupt termination.
type Sink struct {
	console io.Writer
	file    afero.File
	path    string

	// Protects writes so that lines never interleave.
	lock sync.Mutex
}

// Open opens the log file at `path` for appending, creating it if necessary.
// Failing to open the log file is fatal, since records would otherwise be
// lost.
func Open(path string, console io.Writer) (*Sink, error) {
	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.NewFriendlyError("Failed to open the log file at %q: %s", path, err)
	}
	return &Sink{console: console, file: f, path: path}, nil
}

// Write writes `line` to both destinations. Failures are logged rather than
// returned, since the sync can't do anything about them.
func (s *Sink) Write(line string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := fmt.Fprintln(s.console, line); err != nil {
		log.WithError(err).Warn("Failed to write record to the console")
	}

	if _, err := fmt.Fprintln(s.file, line); err != nil {
		log.WithError(err).WithField("path", s.path).Warn("Failed to write record to the log file")
		return
	}

	if err := s.file.Sync(); err != nil {
		log.WithError(err).WithField("path", s.path).Warn("Failed to flush the log file")
	}
}

// Close closes the log file.
func (s *Sink) Close() error {
	return s.file.Close()
}

package sync

import (
	"fmt"

	"github.com/jonboulle/clockwork"
)

// TimestampFormat is the layout of the timestamp that prefixes every record.
const TimestampFormat = "2006-01-02 15:04:05"

// A Sink receives one formatted line per record. Fanning the line out to the
// console and the log file is up to the implementation.
type Sink interface {
	Write(line string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(line string)

// Write calls f(line).
func (f SinkFunc) Write(line string) {
	f(line)
}

type recorder struct {
	clock clockwork.Clock
	sink  Sink
}

func (r recorder) record(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.sink.Write(fmt.Sprintf("%s - %s", r.clock.Now().Format(TimestampFormat), msg))
}

func (r recorder) createdDir(path string) {
	r.record("Created directory: %s", path)
}

func (r recorder) copiedFile(src, dst string) {
	r.record("Copied file from %s to %s", src, dst)
}

func (r recorder) removedFile(path string) {
	r.record("Removed file: %s", path)
}

func (r recorder) removedDir(path string) {
	r.record("Removed directory: %s", path)
}

func (r recorder) warning(err error) {
	r.record("Warning: %s", err)
}

func (r recorder) aborted(err error) {
	r.record("Error: %s", err)
}

package util

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/foldersync/pkg/errors"
)

// Mocked out for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError prints the error and exits. Friendly errors are printed
// without their context, since they're meant for the user.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs a panic before letting it crash the process. It must be
// deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Error("Unexpected panic")
		panic(r)
	}
}

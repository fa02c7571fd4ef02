package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/pkg/sync"
	"github.com/sidkik/foldersync/pkg/version"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of foldersync",
		Long: "Print the version of foldersync, the Go version it was built with,\n" +
			"and the hash algorithms it supports.",
		Run: func(_ *cobra.Command, _ []string) {
			printVersion()
		},
	}
}

func printVersion() {
	v := version.Version
	if !version.IsRelease() {
		v = "development build"
	}
	fmt.Fprintf(stdout, "version: %s\n", v)
	fmt.Fprintf(stdout, "go:      %s\n", runtime.Version())
	fmt.Fprintf(stdout, "hashes:  %v\n", sync.Digests())
}

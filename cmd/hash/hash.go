package hash

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `hash` command.
func New() *cobra.Command {
	var algorithm string
	cmd := &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the content digest of files",
		Long: `Print the digest that the sync uses to decide whether two files hold
the same contents. Useful for finding out why a file keeps being copied.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(_ *cobra.Command, paths []string) {
			if err := printDigests(algorithm, paths); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&algorithm, "hash", sync.DefaultDigest, "Hash algorithm.")
	return cmd
}

func printDigests(algorithm string, paths []string) error {
	digest, err := sync.NewDigest(algorithm)
	if err != nil {
		return err
	}

	for _, path := range paths {
		sum, err := digest.HashFile(path)
		if err != nil {
			return errors.WithContext(err, fmt.Sprintf("hash %q", path))
		}
		fmt.Fprintf(stdout, "%s  %s\n", sum, path)
	}
	return nil
}

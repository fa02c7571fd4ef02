package once

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `once` command.
func New() *cobra.Command {
	var flags util.SyncFlags
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single sync pass and exit",
		Long: `Sync the replica folder with the source folder once.

The exit status is non-zero if the pass was aborted, for example because the
source folder doesn't exist. Files that couldn't be synced are reported as
warnings and don't affect the exit status unless --fail-fast is set.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			settings, err := flags.Load(cmd, false)
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := runOnce(settings); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)
	return cmd
}

func runOnce(settings config.Settings) error {
	session, err := util.StartSession(settings, stdout)
	if err != nil {
		return err
	}
	defer session.Close()

	return session.Pass()
}

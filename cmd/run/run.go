package run

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/schedule"
)

// Mocked out for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `run` command.
func New() *cobra.Command {
	var flags util.SyncFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep the replica folder in sync with the source folder",
		Long: `Sync the replica folder with the source folder, then rest for the
configured interval, forever.

Every directory created, file copied, and file or directory removed is
printed and appended to the log file. Interrupting the process stops it after
the current pass completes.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			settings, err := flags.Load(cmd, true)
			if err != nil {
				util.HandleFatalError(err)
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, settings); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)
	return cmd
}

// run syncs until `ctx` is cancelled.
func run(ctx context.Context, settings config.Settings) error {
	session, err := util.StartSession(settings, stdout)
	if err != nil {
		return err
	}
	defer session.Close()

	log.WithFields(log.Fields{
		"source":   settings.Source,
		"replica":  settings.Replica,
		"interval": settings.IntervalDuration(),
		"log":      settings.Log,
	}).Info("Starting sync")

	loop := schedule.Loop{Interval: settings.IntervalDuration()}
	err = loop.Run(ctx, func() {
		// Aborted passes are already recorded. The next pass is attempted
		// after the interval regardless.
		_ = session.Pass()
	})

	// Being interrupted is the normal way to stop.
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.WithContext(err, "sync loop")
	}

	log.Info("Stopped syncing")
	return nil
}

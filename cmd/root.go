package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/foldersync/cmd/config"
	"github.com/sidkik/foldersync/cmd/hash"
	"github.com/sidkik/foldersync/cmd/once"
	"github.com/sidkik/foldersync/cmd/run"
	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "FOLDERSYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	var verbose bool
	rootCmd := &cobra.Command{
		Use:          "foldersync",
		Short:        "Keep a replica folder identical to a source folder",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log debug messages. Can also be enabled with "+verboseLogKey+"=true.")
	rootCmd.AddCommand(
		run.New(),
		once.New(),
		hash.New(),
		configCmd.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

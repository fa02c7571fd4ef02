package util

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

// SyncFlags are the flags shared by every command that syncs or configures a
// sync.
type SyncFlags struct {
	ConfigPath string
	Settings   config.Settings
}

// Register adds the flags to `cmd`.
func (f *SyncFlags) Register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.ConfigPath, "config", "c", config.DefaultPath,
		"Path to the config file. Flags override values from the file.")
	flags.StringVarP(&f.Settings.Source, "source", "s", "",
		"Source folder path.")
	flags.StringVarP(&f.Settings.Replica, "replica", "r", "",
		"Replica folder path.")
	flags.IntVarP(&f.Settings.Interval, "interval", "i", 0,
		"Synchronization interval in seconds.")
	flags.StringVarP(&f.Settings.Log, "log", "l", "",
		"Log file path.")
	flags.StringVar(&f.Settings.Hash, "hash", "",
		"Hash algorithm used to compare files. One of "+strings.Join(sync.Digests(), ", ")+
			" (default "+sync.DefaultDigest+").")
	flags.StringArrayVar(&f.Settings.Exclude, "exclude", nil,
		"Glob pattern of relative paths to leave alone in both folders. "+
			"May be repeated.")
	flags.BoolVar(&f.Settings.FailFast, "fail-fast", false,
		"Abort the pass on the first file that can't be synced.")
}

// Load merges the flags over the config file and validates the result. The
// interval is only required if `periodic` is set.
func (f SyncFlags) Load(cmd *cobra.Command, periodic bool) (config.Settings, error) {
	fromFile, err := config.Parse(f.ConfigPath, cmd.Flags().Changed("config"))
	if err != nil {
		return config.Settings{}, errors.WithContext(err, "read config file")
	}

	return fromFile.Merge(f.Settings).Resolve(periodic)
}

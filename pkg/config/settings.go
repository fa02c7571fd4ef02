package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
	"github.com/sidkik/foldersync/pkg/sync"
)

const (
	// DefaultPath is the path to the config file that's read when no path
	// is given on the command line.
	DefaultPath = "~/.foldersync.yaml"

	// InitialVersion is the first version of the config file. Config
	// files that do not specify a version will default to this version.
	InitialVersion = "v1alpha1"

	// SupportedVersion is the config file version supported by this
	// binary.
	SupportedVersion = "v1alpha1"
)

// Settings contains everything needed to run the sync. Each field can come
// from the config file or from a command line flag, with flags taking
// precedence.
type Settings struct {
	Version string `json:"version,omitempty"`

	// Source is the directory that's mirrored.
	Source string `json:"source,omitempty"`

	// Replica is the directory that's kept identical to Source.
	Replica string `json:"replica,omitempty"`

	// Interval is the number of seconds to rest between passes.
	Interval int `json:"interval,omitempty"`

	// Log is the path of the file every record is appended to.
	Log string `json:"log,omitempty"`

	Hash     string   `json:"hash,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
	FailFast bool     `json:"failFast,omitempty"`
}

// IntervalDuration returns the interval as a time.Duration.
func (s Settings) IntervalDuration() time.Duration {
	return time.Duration(s.Interval) * time.Second
}

// SyncOptions returns the options for the Synchronizer.
func (s Settings) SyncOptions() sync.Options {
	return sync.Options{
		Digest:   s.Hash,
		Exclude:  s.Exclude,
		FailFast: s.FailFast,
	}
}

// Parse reads the config file at `path`. If `explicit` is false, i.e. the
// path is the default one, a missing file isn't an error.
func Parse(path string, explicit bool) (Settings, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Settings{}, errors.WithContext(err, "expand config path")
	}

	settings := Settings{Version: InitialVersion}
	if err := readSettings(path, &settings); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			if !explicit {
				return Settings{Version: InitialVersion}, nil
			}
			return Settings{}, errors.NewFriendlyError(
				"The config file %q doesn't exist.", path)
		}
		return Settings{}, errors.WithContext(err, "parse")
	}
	return settings, nil
}

// Write writes `settings` to the config file at `path`.
func Write(path string, settings Settings) error {
	settings.Version = SupportedVersion
	path, err := homedirExpand(path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	yamlBytes, err := yaml.Marshal(settings)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, path, yamlBytes, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	return nil
}

// Merge returns `s` with every field that's set in `override` replaced.
func (s Settings) Merge(override Settings) Settings {
	if override.Source != "" {
		s.Source = override.Source
	}
	if override.Replica != "" {
		s.Replica = override.Replica
	}
	if override.Interval != 0 {
		s.Interval = override.Interval
	}
	if override.Log != "" {
		s.Log = override.Log
	}
	if override.Hash != "" {
		s.Hash = override.Hash
	}
	if len(override.Exclude) != 0 {
		s.Exclude = override.Exclude
	}
	s.FailFast = s.FailFast || override.FailFast
	return s
}

// Resolve expands `~` in the paths and validates the settings. The interval
// is only required when `periodic` is set.
func (s Settings) Resolve(periodic bool) (Settings, error) {
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"source", &s.Source},
		{"replica", &s.Replica},
		{"log", &s.Log},
	} {
		if *field.value == "" {
			return Settings{}, errors.MissingFieldError{Field: field.name}
		}

		expanded, err := homedirExpand(*field.value)
		if err != nil {
			return Settings{}, errors.WithContext(err, "expand "+field.name+" path")
		}
		*field.value = filepath.Clean(expanded)
	}

	if periodic && s.Interval <= 0 {
		return Settings{}, errors.NewFriendlyError(
			"The interval must be a positive number of seconds, got %d.", s.Interval)
	}

	if _, err := sync.NewDigest(s.Hash); err != nil {
		return Settings{}, err
	}

	if err := sync.ValidateExcludes(s.Exclude); err != nil {
		return Settings{}, err
	}

	if err := checkDisjoint(s.Source, s.Replica); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// checkDisjoint fails if the two directories are the same, or if one is
// inside the other. Syncing in either case would recurse into its own output.
func checkDisjoint(source, replica string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return errors.WithContext(err, "resolve source path")
	}

	absReplica, err := filepath.Abs(replica)
	if err != nil {
		return errors.WithContext(err, "resolve replica path")
	}

	if isWithin(absSource, absReplica) || isWithin(absReplica, absSource) {
		return errors.NewFriendlyError(
			"The source (%s) and replica (%s) directories must not overlap.",
			source, replica)
	}
	return nil
}

func isWithin(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

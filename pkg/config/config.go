package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/foldersync/pkg/errors"
)

// parseConfigErrTemplate is shown when the config file isn't valid YAML or
// doesn't match Settings. The yaml library's errors carry no line numbers, so
// the parser's message is passed on as is.
const parseConfigErrTemplate = "Configuration file could not be parsed. " +
	"Please review %q.\n" +
	"Common pitfalls include:\n" +
	" - Using the wrong types for fields\n" +
	" - Having extra fields inside the config file\n\n" +
	"For reference, here is the error from the parser:\n" +
	"%s"

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("The configuration file %q is incompatible "+
		"with this version of foldersync.\n"+
		"Expected version %q, but got %q.", err.path, err.exp, err.actual)
}

// readSettings decodes the config file at `path` over `settings`. A file
// without a version keeps the version already in `settings`.
func readSettings(path string, settings *Settings) error {
	raw, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "read file")
	}

	if err := yaml.Unmarshal(raw, settings); err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	// Unknown fields are only rejected once the version is known to match,
	// so that a file from another version gets the more useful error.
	if settings.Version != SupportedVersion {
		return incompatibleVersionError{
			path: path, exp: SupportedVersion, actual: settings.Version}
	}

	if err := yaml.UnmarshalStrict(raw, settings, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return nil
}

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/foldersync/cmd/util"
	"github.com/sidkik/foldersync/pkg/config"
	"github.com/sidkik/foldersync/pkg/errors"
)

// defaultLogPath is suggested when the user hasn't picked a log file yet.
const defaultLogPath = "~/foldersync.log"

// Mocked for unit testing.
var (
	stdout              io.Writer = os.Stdout
	stdin               io.Reader = os.Stdin
	parseConfig                   = config.Parse
	writeConfig                   = config.Write
	stat                          = os.Stat
	getWorkingDirectory           = os.Getwd
)

// New creates a new `config` command.
func New() *cobra.Command {
	var flags util.SyncFlags
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the foldersync config file",
		Long: "Write the folders and interval to the config file so that `foldersync run`\n" +
			"can be started without flags. Any setting that isn't passed as a flag\n" +
			"is prompted for interactively.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(flags); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s",
					errors.GetPrintableMessage(err))
				util.HandleFatalError(err)
			}
		},
	}
	flags.Register(cmd)

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Settings) string
	}

	getters := []getterSpec{
		{
			use:   "get-source",
			short: "Get the configured source folder",
			fn:    func(cfg config.Settings) string { return cfg.Source },
		},
		{
			use:   "get-replica",
			short: "Get the configured replica folder",
			fn:    func(cfg config.Settings) string { return cfg.Replica },
		},
		{
			use:   "get-log",
			short: "Get the configured log file",
			fn:    func(cfg config.Settings) string { return cfg.Log },
		},
		{
			use:   "get-interval",
			short: "Get the configured interval in seconds",
			fn:    func(cfg config.Settings) string { return strconv.Itoa(cfg.Interval) },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := parseConfig(flags.ConfigPath, false)
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig fills in the settings missing from `flags`, validates them and
// writes them to the config file.
func SetupConfig(flags util.SyncFlags) error {
	cfg, err := generateConfig(flags)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if _, err := cfg.Resolve(true); err != nil {
		return err
	}

	if err := writeConfig(flags.ConfigPath, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", flags.ConfigPath)
	return nil
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is. Settings passed as flags are never prompted for.
func generateConfig(flags util.SyncFlags) (config.Settings, error) {
	currConfig, err := parseConfig(flags.ConfigPath, false)
	if err != nil {
		currConfig = config.Settings{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := currConfig.Merge(flags.Settings)
	var interval string
	var prompts []prompt
	if flags.Settings.Source == "" {
		var defaultSource string
		if wd, err := getWorkingDirectory(); err == nil {
			defaultSource = wd
		} else {
			log.WithError(err).Info("Failed to guess source folder")
		}

		prompts = append(prompts, prompt{
			helpString:    "Enter the folder to mirror.",
			prompt:        "Source folder",
			defaultAnswer: defaultSource,
			currAnswer:    currConfig.Source,
			field:         &cfg.Source,
			validationFn:  dirValidationFn,
		})
	}

	if flags.Settings.Replica == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the folder to keep identical to the source.\n" +
				"Anything in it that isn't in the source will be deleted.",
			prompt:       "Replica folder",
			currAnswer:   currConfig.Replica,
			field:        &cfg.Replica,
			validationFn: nonEmptyValidationFn,
		})
	}

	if flags.Settings.Interval == 0 {
		var currInterval string
		if currConfig.Interval != 0 {
			currInterval = strconv.Itoa(currConfig.Interval)
		}

		prompts = append(prompts, prompt{
			helpString:    "Enter the number of seconds to wait between passes.",
			prompt:        "Interval",
			defaultAnswer: "60",
			currAnswer:    currInterval,
			field:         &interval,
			validationFn:  intervalValidationFn,
		})
	}

	if flags.Settings.Log == "" {
		prompts = append(prompts, prompt{
			helpString:    "Enter the file that every sync operation is logged to.",
			prompt:        "Log file",
			defaultAnswer: defaultLogPath,
			currAnswer:    currConfig.Log,
			field:         &cfg.Log,
			validationFn:  nonEmptyValidationFn,
		})
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Settings{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	if interval != "" {
		// Already checked by intervalValidationFn.
		cfg.Interval, _ = strconv.Atoi(interval)
	}
	return cfg, nil
}

func nonEmptyValidationFn(resp string) (string, bool) {
	if strings.TrimSpace(resp) == "" {
		return "A value is required.", false
	}
	return "", true
}

func dirValidationFn(path string) (string, bool) {
	if msg, ok := nonEmptyValidationFn(path); !ok {
		return msg, false
	}

	info, err := stat(path)
	switch {
	case os.IsNotExist(err):
		return fmt.Sprintf("%s doesn't exist. Please pick an existing folder.", path), false
	case err != nil:
		return fmt.Sprintf("Failed to access %s: %s", path, err), false
	case !info.IsDir():
		return fmt.Sprintf("%s isn't a folder.", path), false
	}
	return "", true
}

func intervalValidationFn(resp string) (string, bool) {
	seconds, err := strconv.Atoi(resp)
	if err != nil || seconds <= 0 {
		return "The interval must be a positive whole number of seconds.", false
	}
	return "", true
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}

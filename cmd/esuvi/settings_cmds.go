package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"esuvi/internal/cli"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [category [key]]",
	Short: "Print a setting, a category or the whole tree",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <category> <key> <value>",
	Short: "Change an existing setting and save it to the --settings file",
	Long: "The value is read as YAML, so 42, 0.5, true, text and [a, b] keep their types.\n" +
		"The change is rejected when its type differs from the current value.",
	Example: `  esuvi settings set chat maxMessages 50 --settings settings.yaml
  esuvi settings set auth publicFeatures "[login, register, chat]" --settings settings.yaml`,
	Args: cobra.ExactArgs(3),
	RunE: runSettingsSet,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report risky setting combinations",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	s, err := cli.LoadSettings(settingsPath(), nil)
	if err != nil {
		return err
	}

	var v any
	switch len(args) {
	case 0:
		v = s.Snapshot()
	case 1:
		tree := s.Snapshot()
		category, ok := tree[args[0]]
		if !ok {
			return fmt.Errorf("unknown settings category %q", args[0])
		}
		v = category
	default:
		if v, err = s.Get(args[0], args[1]); err != nil {
			return userError(err)
		}
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	path := settingsPath()
	if path == "" {
		return errors.New("--settings or SETTINGS_FILE is required to save the change")
	}
	s, err := cli.LoadSettings(settingsPath(), nil)
	if err != nil {
		return err
	}

	var value any
	if err := yaml.Unmarshal([]byte(args[2]), &value); err != nil {
		return fmt.Errorf("parse value: %w", err)
	}
	if err := s.Set(args[0], args[1], value); err != nil {
		return userError(err)
	}
	if err := s.WriteFile(path); err != nil {
		return err
	}

	for _, w := range s.Validate() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s.%s updated\n", args[0], args[1])
	return nil
}

// settingsPath is --settings, falling back to SETTINGS_FILE.
func settingsPath() string {
	if flagSettings != "" {
		return flagSettings
	}
	return os.Getenv("SETTINGS_FILE")
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	s, err := cli.LoadSettings(settingsPath(), nil)
	if err != nil {
		return err
	}
	warnings := s.Validate()
	if len(warnings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No warnings.")
		return nil
	}
	for _, w := range warnings {
		fmt.Fprintln(cmd.OutOrStdout(), w)
	}
	return nil
}

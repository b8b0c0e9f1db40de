package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spelgud/internal/dictionary"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the personal dictionary",
}

var dictAddCmd = &cobra.Command{
	Use:          "add <word>...",
	Short:        "Add words to the personal dictionary",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runDictAdd,
}

var dictListCmd = &cobra.Command{
	Use:          "list",
	Short:        "Print the words of the personal dictionary",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDictList,
}

var dictPathCmd = &cobra.Command{
	Use:          "path",
	Short:        "Print the location of the personal dictionary",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDictPath,
}

var dictSortCmd = &cobra.Command{
	Use:          "sort",
	Short:        "Rewrite the personal dictionary sorted and without duplicates",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runDictSort,
}

func init() {
	dictCmd.AddCommand(dictAddCmd)
	dictCmd.AddCommand(dictListCmd)
	dictCmd.AddCommand(dictPathCmd)
	dictCmd.AddCommand(dictSortCmd)
}

// openDictionary loads the personal dictionary named by flags or config.
func openDictionary(cmd *cobra.Command) (*dictionary.Store, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	path := cfg.Dictionary.Path
	if path == "" {
		if path, err = dictionary.DefaultPath(); err != nil {
			return nil, fmt.Errorf("locate personal dictionary: %w", err)
		}
	}
	d := dictionary.New(path)
	if err := d.Load(); err != nil {
		return nil, err
	}
	return d, nil
}

func runDictAdd(cmd *cobra.Command, args []string) error {
	d, err := openDictionary(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, word := range args {
		added, err := d.Add(word)
		switch {
		case errors.Is(err, dictionary.ErrInvalidWord):
			return fmt.Errorf("%q: %w", word, err)
		case err != nil:
			return err
		case added:
			fmt.Fprintf(out, "added %s\n", word)
		default:
			fmt.Fprintf(out, "%s is already in the dictionary\n", word)
		}
	}
	return nil
}

func runDictList(cmd *cobra.Command, _ []string) error {
	d, err := openDictionary(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, w := range d.Words() {
		fmt.Fprintln(out, w)
	}
	return nil
}

func runDictPath(cmd *cobra.Command, _ []string) error {
	d, err := openDictionary(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), d.Path())
	return nil
}

func runDictSort(cmd *cobra.Command, _ []string) error {
	d, err := openDictionary(cmd)
	if err != nil {
		return err
	}
	if err := d.Persist(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d words\n", d.Path(), d.Len())
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"spelgud/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "spelgud",
	Short:         "Spell-checking language server",
	Long:          `spelgud checks the spelling of plain-text documents over LSP or from the command line`,
	SilenceErrors: true,
}

// main registers subcommands and persistent flags, then runs the root command.
// Misspellings found by check exit with status 1 without an error message.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lspCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(dictCmd)
	rootCmd.AddCommand(versionCmd)

	registerGlobalFlags(rootCmd)

	err := rootCmd.Execute()
	os.Exit(exitCode(err))
}

func registerGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to .spelgud.toml (default: search upwards from the working directory)")
	flags.String("checker", "", "checker backend (aspell|hunspell|static)")
	flags.String("checker-cmd", "", "checker executable override")
	flags.String("lang", "", "checker dictionary language, e.g. en_US")
	flags.String("dict", "", "path to the personal dictionary file")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "log format (text|json)")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|session|document|debug)")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMisspellings):
		return 1
	case errors.Is(err, errIncomplete):
		fmt.Fprintln(os.Stderr, "spelgud:", err)
		return 2
	default:
		fmt.Fprintln(os.Stderr, "spelgud:", err)
		return 1
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	noColor bool
	verbose bool
)

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

var rootCmd = &cobra.Command{
	Use:   "ldash",
	Short: "Live terminal dashboard for a linux-dash agent",
	Long: `ldash watches a Linux machine through a linux-dash compatible agent.

It negotiates a websocket push channel with the agent when both sides allow
it and falls back to plain HTTP polling otherwise. Running ldash without a
subcommand opens the dashboard.

Examples:
  ldash                          # open the dashboard
  ldash agent                    # serve this machine's stats
  ldash fetch general_info       # print one module
  ldash doctor                   # check config, tunnel and transport`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" || machineMode {
			ui.DisableColors()
		}
		if verbose {
			_ = os.Setenv(logger.DebugEnv, "1")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(monitorFlags)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./.ldash.yaml or ~/.config/ldash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "machine-readable JSON output where supported")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if machineMode {
			_ = WriteJSONFromError(os.Stdout, err)
		} else {
			printError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// printError renders err for a terminal. Cobra's own usage errors are
// turned into structured errors so they look like the rest.
func printError(w io.Writer, err error) {
	if isUnknownCommandError(err) {
		msg := err.Error()
		if name := extractUnknownCommand(err); name != "" {
			msg = fmt.Sprintf("Unknown command '%s'", name)
		}
		err = errors.New(errors.ErrConfig, capitalize(msg), "Run 'ldash --help' to see the available commands")
	}
	if _, ok := err.(*errors.Error); ok {
		fmt.Fprint(w, err.Error())
		return
	}
	fmt.Fprintf(w, "%s %s\n", ui.SymbolFail, err.Error())
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "unknown flag") ||
		strings.HasPrefix(msg, "unknown shorthand flag")
}

// extractUnknownCommand pulls foo out of `unknown command "foo" for "ldash"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

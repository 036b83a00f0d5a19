package cli

import (
	"os"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/spf13/cobra"
)

// monitorCmd starts the TUI dashboard
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of the agent's modules",
	Long: `Open the interactive dashboard. This is also what plain 'ldash' runs.

The transport is negotiated once: the agent is probed for websocket
support and push is used when both sides allow it, otherwise every widget
polls over HTTP. The header shows the outcome.

Keyboard shortcuts:
  1-9 / tab     Switch page
  up/k down/j   Select widget
  r / R         Refresh selected / all widgets
  s / S         Sort table by next column / reverse
  /             Filter table rows
  c             Reconnect push
  ?             Help
  q / Ctrl+C    Quit

Examples:
  ldash monitor
  ldash monitor --url http://10.0.0.5:8080 --transport http
  ldash monitor --ssh myserver --refresh 2s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(monitorFlags)
	},
}

// agentCmd serves this machine's stats
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Serve this machine's stats to dashboards",
	Long: `Run a linux-dash compatible agent for this machine.

Serves GET /server/?module=<name>, the /websocket capability probe and a
websocket push channel on the root path.

Examples:
  ldash agent
  ldash agent --listen 0.0.0.0:8080
  ldash agent --no-websocket`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentCommand(agentServeFlags)
	},
}

// probeCmd reports the negotiated transport
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Show which transport the agent negotiates",
	Long: `Run transport negotiation against the agent and print the outcome.

Examples:
  ldash probe
  ldash probe --transport http
  ldash probe --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return probeCommand(cmd.OutOrStdout(), probeFlags)
	},
}

var probeFlags AgentFlags

// fetchCmd prints one module
var fetchCmd = &cobra.Command{
	Use:   "fetch <module>",
	Short: "Fetch one module over HTTP and print it",
	Long: `Request a single module and print the answer.

Record lists print as a table and objects as key/value pairs.

Examples:
  ldash fetch general_info
  ldash fetch ram_intensive_processes --raw
  ldash fetch --list`,
	Args: func(cmd *cobra.Command, args []string) error {
		if fetchFlags.List {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		module := ""
		if len(args) > 0 {
			module = args[0]
		}
		return fetchCommand(cmd.OutOrStdout(), module, fetchFlags)
	},
}

// initCmd creates a new .ldash.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .ldash.yaml configuration",
	Long: `Create a .ldash.yaml file in the current directory.

Guides you through the agent URL, an optional SSH tunnel and the transport,
then tests the connection before saving.

Examples:
  ldash init
  ldash init --url http://localhost:8080 --non-interactive
  ldash init --ssh myserver --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := initFlags
		opts.Out = cmd.OutOrStdout()
		return Init(opts)
	},
}

// doctorCmd diagnoses config and connection issues
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, tunnel and transport issues",
	Long: `Run diagnostic checks and suggest fixes.

Checks:
  - Config file and schema
  - State file
  - SSH tunnel (when agent.ssh is set)
  - Agent reachability
  - Capability probe and push round trip

Examples:
  ldash doctor
  ldash doctor --fix
  ldash doctor --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.OutOrStdout(), doctorFlags)
	},
}

// configCmd groups config file subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the config file",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a dotted key in the config file, keeping comments and layout.

Examples:
  ldash config set agent.url http://10.0.0.5:8080
  ldash config set transport http
  ldash config set refresh 2s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetCommand(cmd.OutOrStdout(), args[0], args[1])
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowCommand(cmd.OutOrStdout())
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for ldash.

Examples:
  # Bash
  ldash completion bash > /etc/bash_completion.d/ldash

  # Zsh
  ldash completion zsh > "${fpath[1]}/_ldash"

  # Fish
  ldash completion fish > ~/.config/fish/completions/ldash.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return genCompletion(cmd.Root(), args[0])
	},
}

func genCompletion(root *cobra.Command, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletion(os.Stdout)
	case "zsh":
		return root.GenZshCompletion(os.Stdout)
	case "fish":
		return root.GenFishCompletion(os.Stdout, true)
	case "powershell":
		return root.GenPowerShellCompletion(os.Stdout)
	}
	return errors.New(errors.ErrConfig,
		"Unknown shell: "+shell,
		"Supported shells: bash, zsh, fish, powershell")
}

func init() {
	// monitor flags, also accepted by the bare root command
	for _, c := range []*cobra.Command{rootCmd, monitorCmd} {
		AddAgentFlags(c, &monitorFlags.AgentFlags)
		c.Flags().StringVar(&monitorFlags.Refresh, "refresh", "", "default widget poll interval (e.g., 1s, 5s)")
		c.Flags().StringVar(&monitorFlags.Redraw, "redraw", "", "screen redraw interval")
		c.Flags().StringVar(&monitorFlags.LogFile, "log-file", "", "log file while the dashboard runs (default: $TMPDIR/ldash.log)")
	}

	agentCmd.Flags().StringVar(&agentServeFlags.Listen, "listen", "", "listen address (overrides server.listen)")
	agentCmd.Flags().BoolVar(&agentServeFlags.NoWebSocket, "no-websocket", false, "disable the push channel")
	agentCmd.Flags().StringVar(&agentServeFlags.ModuleTimeout, "module-timeout", "", "bound on one module run (default 5s)")

	AddAgentFlags(probeCmd, &probeFlags)

	AddAgentFlags(fetchCmd, &fetchFlags.AgentFlags)
	fetchCmd.Flags().BoolVar(&fetchFlags.Raw, "raw", false, "print the JSON answer unchanged")
	fetchCmd.Flags().BoolVar(&fetchFlags.List, "list", false, "list the modules the agent serves")

	initCmd.Flags().StringVar(&initFlags.URL, "url", "", "agent URL")
	initCmd.Flags().StringVar(&initFlags.SSH, "ssh", "", "SSH host to tunnel through")
	initCmd.Flags().StringVar(&initFlags.Transport, "transport", "", "auto or http")
	initCmd.Flags().BoolVarP(&initFlags.Overwrite, "force", "f", false, "overwrite existing config")
	initCmd.Flags().BoolVar(&initFlags.NonInteractive, "non-interactive", false, "skip prompts, use flags and defaults")
	initCmd.Flags().BoolVar(&initFlags.SkipProbe, "skip-probe", false, "save without testing the connection")

	AddAgentFlags(doctorCmd, &doctorFlags.AgentFlags)
	doctorCmd.Flags().BoolVar(&doctorFlags.Fix, "fix", false, "attempt automatic fixes where possible")

	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}

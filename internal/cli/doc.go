// Package cli implements the ldash command-line interface.
//
// Each Cobra command delegates to a plain function that takes its flags
// and an io.Writer, so the work can be tested without running Cobra.
//
// # Command Structure
//
// The root command is "ldash". Without a subcommand it opens the dashboard:
//
//	ldash [monitor]        - Live dashboard (TUI)
//	ldash agent            - Serve this machine's modules
//	ldash probe            - Run transport negotiation and print the outcome
//	ldash fetch <module>   - Fetch one module over HTTP
//	ldash init             - Create .ldash.yaml
//	ldash config set|show  - Edit or print the config
//	ldash doctor           - Diagnose config, tunnel and transport
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color, --json) live on the root
// command. AgentFlags (--url, --ssh, --transport, --timeout) override the
// agent section of the config for the commands that talk to an agent.
//
// # Output
//
// With --json, commands write a JSONEnvelope to stdout and errors are
// mapped to stable codes by ErrorToJSON.
package cli

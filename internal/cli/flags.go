package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/spf13/cobra"
)

// AgentFlags holds the flags that override the agent section of the config.
// They are shared by monitor, probe, fetch and doctor.
type AgentFlags struct {
	URL       string
	SSH       string
	Transport string
	Timeout   string
}

// AddAgentFlags registers --url, --ssh, --transport and --timeout on a command.
func AddAgentFlags(cmd *cobra.Command, flags *AgentFlags) {
	cmd.Flags().StringVar(&flags.URL, "url", "", "agent URL (overrides agent.url)")
	cmd.Flags().StringVar(&flags.SSH, "ssh", "", "tunnel through this SSH host (overrides agent.ssh)")
	cmd.Flags().StringVar(&flags.Transport, "transport", "", "auto or http (overrides transport)")
	cmd.Flags().StringVar(&flags.Timeout, "timeout", "", "request timeout (e.g., 5s, 500ms)")
}

// Apply writes the set flags over cfg.
func (f AgentFlags) Apply(cfg *config.Config) error {
	if f.URL != "" {
		cfg.Agent.URL = f.URL
	}
	if f.SSH != "" {
		cfg.Agent.SSH = f.SSH
	}
	if f.Transport != "" {
		cfg.Transport = f.Transport
	}
	timeout, err := ParseDuration(f.Timeout)
	if err != nil {
		return err
	}
	if timeout > 0 {
		cfg.Agent.Timeout = timeout
	}
	return nil
}

// ParseDuration parses a duration flag. Returns zero duration if the flag
// is empty.
func ParseDuration(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid duration", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' is negative", flag),
			"Durations must be positive.")
	}
	return duration, nil
}

// loadConfig resolves the config file, applies flag overrides and
// validates the result.
func loadConfig(flags AgentFlags) (*config.Config, error) {
	cfg, _, err := config.LoadOrDefault(Config())
	if err != nil {
		return nil, err
	}
	if err := flags.Apply(cfg); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

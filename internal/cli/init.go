package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/negotiate"
	"github.com/rileyhilliard/ldash/internal/ui"
	"github.com/rileyhilliard/ldash/pkg/sshutil"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Path           string // Defaults to ./.ldash.yaml
	URL            string // Pre-specified agent URL
	SSH            string // Pre-specified SSH host/alias to tunnel through
	Transport      string // auto or http
	Overwrite      bool   // Overwrite existing config without asking
	NonInteractive bool   // Skip prompts, use flags and defaults
	SkipProbe      bool   // Write the config without contacting the agent
	Out            io.Writer
}

var initFlags InitOptions

// Init creates a new .ldash.yaml configuration file.
func Init(opts InitOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	configPath := opts.Path
	if configPath == "" {
		configPath = filepath.Join(".", config.ConfigFileName)
	}

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.Agent.URL = firstNonEmpty(opts.URL, cfg.Agent.URL)
	cfg.Agent.SSH = opts.SSH
	cfg.Transport = firstNonEmpty(opts.Transport, cfg.Transport)

	if !opts.NonInteractive {
		cancelled, err := promptInit(cfg, opts, out)
		if err != nil {
			return err
		}
		if cancelled {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if !opts.SkipProbe {
		if err := testAgent(cfg, opts, out); err != nil {
			return err
		}
	}

	if err := config.Write(configPath, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  ldash          - Open the dashboard")
	fmt.Fprintln(out, "  ldash probe    - Show which transport the agent allows")
	fmt.Fprintln(out, "  ldash doctor   - Check configuration")
	return nil
}

// promptInit asks for the agent URL, an optional SSH tunnel and the
// transport. It reports true when the user backed out.
func promptInit(cfg *config.Config, opts InitOptions, out io.Writer) (bool, error) {
	if opts.SSH == "" {
		hosts, err := sshutil.ListHosts("")
		if err != nil {
			logger.Default().Debug("ssh config: %v", err)
		}
		if len(hosts) > 0 {
			fmt.Fprintln(out, "Pick the SSH host that runs the agent, or enter one by hand:")
			res, host, err := ui.PickSSHHost(hosts, out, os.Stdin)
			if err != nil {
				return false, errors.WrapWithCode(err, errors.ErrConfig,
					"Failed to get user input",
					"Pass --ssh and --url, or use --non-interactive")
			}
			switch res {
			case ui.PickCancelled:
				return true, nil
			case ui.PickSelected:
				cfg.Agent.SSH = host.Alias
			}
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Agent URL").
				Description("Where the linux-dash agent listens, as seen from the SSH host if you tunnel").
				Placeholder("http://localhost:8080").
				Value(&cfg.Agent.URL).
				Validate(validateAgentURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SSH tunnel (optional)").
				Description("Host alias, user@host or host:port. Leave empty to connect directly").
				Placeholder("myserver").
				Value(&cfg.Agent.SSH),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transport").
				Options(
					huh.NewOption("auto - websocket push when the agent supports it", config.TransportAuto),
					huh.NewOption("http - always poll", config.TransportHTTP),
				).
				Value(&cfg.Transport),
		),
	)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return true, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive")
	}
	cfg.Agent.SSH = strings.TrimSpace(cfg.Agent.SSH)
	return false, nil
}

// testAgent negotiates with the agent before saving. Interactively a
// failure can be saved anyway.
func testAgent(cfg *config.Config, opts InitOptions, out io.Writer) error {
	spinner := ui.NewSpinner(out, "Testing connection to "+targetLabel(cfg), isTerminal(out))
	spinner.Start()

	res, err := probeAgent(context.Background(), cfg, logger.Noop())
	if err == nil && res.Reason != string(negotiate.ReasonProbeFailed) {
		spinner.Success()
		fmt.Fprintf(out, "  transport: %s (%s)\n\n", res.Mode, reasonText(negotiate.Reason(res.Reason)))
		return nil
	}
	spinner.Fail()
	if err == nil {
		err = errors.New(errors.ErrProbe, "Agent did not answer the capability probe", res.Error)
	}

	fail := errors.WrapWithCode(err, errors.ErrTransport,
		fmt.Sprintf("Connection to '%s' failed", targetLabel(cfg)),
		"Start the agent with 'ldash agent', or pass --skip-probe to save anyway")
	if opts.NonInteractive {
		return fail
	}

	fmt.Fprintf(out, "\n%s %s\n\n", ui.SymbolFail, errors.Short(err))
	var saveAnyway bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save config anyway? (You can fix the connection later)").
				Value(&saveAnyway),
		),
	)
	if formErr := form.Run(); formErr != nil || !saveAnyway {
		return fail
	}
	return nil
}

func validateAgentURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return fmt.Errorf("enter a URL like http://localhost:8080")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

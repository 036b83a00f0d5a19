package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/widget"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but ldash only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade ldash or lower the version field")
	}

	if err := validateAgent(cfg.Agent); err != nil {
		return err
	}

	switch cfg.Transport {
	case TransportAuto, TransportHTTP:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown transport %q", cfg.Transport),
			"Use 'auto' (push when available) or 'http' (always poll)")
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"refresh", cfg.Refresh},
		{"redraw", cfg.Redraw},
		{"retention", cfg.Retention},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' must be a positive duration, got %s", d.key, d.d),
				"Use values like 1s or 500ms")
		}
	}
	if cfg.HistorySize < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("'history_size' can't be negative (got %d)", cfg.HistorySize),
			"Use 0 for the default")
	}

	if len(cfg.Pages) > 0 {
		if err := widget.ValidatePages(cfg.Pages); err != nil {
			return err
		}
	}

	return validateServer(cfg.Server)
}

func validateAgent(a Agent) error {
	u, err := url.Parse(a.URL)
	if err != nil || u.Host == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Agent URL %q is not a valid URL", a.URL),
			"Use something like http://localhost:8080")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Agent URL scheme %q isn't supported", u.Scheme),
			"Use http:// or https://; the websocket address is derived from it")
	}
	if strings.ContainsAny(a.SSH, " \t/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("agent.ssh %q doesn't look like an SSH host", a.SSH),
			"Use an alias from ~/.ssh/config, user@host or host:port")
	}

	timeouts := []struct {
		key string
		d   time.Duration
	}{
		{"agent.timeout", a.Timeout},
		{"agent.probe_timeout", a.ProbeTimeout},
		{"agent.handshake_timeout", a.HandshakeTimeout},
	}
	for _, t := range timeouts {
		if t.d < 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' can't be negative", t.key),
				"Remove it to use the default")
		}
	}
	return nil
}

func validateServer(s Server) error {
	if _, _, err := net.SplitHostPort(s.Listen); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("server.listen %q isn't a host:port address", s.Listen),
			"Use something like 127.0.0.1:8080 or :8080")
	}
	return nil
}

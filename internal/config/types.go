package config

import (
	"time"

	"github.com/rileyhilliard/ldash/internal/widget"
)

// CurrentConfigVersion is the schema version for the config file.
const CurrentConfigVersion = 1

// Transport modes.
const (
	// TransportAuto probes the agent and uses push when both sides allow it.
	TransportAuto = "auto"
	// TransportHTTP forces request/response polling.
	TransportHTTP = "http"
)

// Config represents the complete .ldash.yaml configuration file.
type Config struct {
	Version   int    `yaml:"version" mapstructure:"version"`
	Agent     Agent  `yaml:"agent" mapstructure:"agent"`
	Transport string `yaml:"transport" mapstructure:"transport"`

	// Refresh is the poll interval of widgets without their own.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`
	// Redraw is how often the TUI repaints.
	Redraw time.Duration `yaml:"redraw" mapstructure:"redraw"`
	// Retention is the visible time window of charts.
	Retention time.Duration `yaml:"retention" mapstructure:"retention"`
	// HistorySize caps samples kept per chart line.
	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	// StateFile remembers the last viewed page. Supports ~.
	StateFile string `yaml:"state_file" mapstructure:"state_file"`

	// Pages replaces the built-in dashboard when set.
	Pages []widget.Page `yaml:"pages,omitempty" mapstructure:"pages"`

	Server Server `yaml:"server" mapstructure:"server"`
}

// Agent is where the dashboard reads module data from.
type Agent struct {
	// URL is the agent root, e.g. http://localhost:8080.
	URL string `yaml:"url" mapstructure:"url"`

	// SSH is an optional host (alias, user@host or host:port) to tunnel
	// agent connections through.
	SSH string `yaml:"ssh,omitempty" mapstructure:"ssh"`
	// SSHInsecure skips known_hosts verification of the SSH host.
	SSHInsecure bool `yaml:"ssh_insecure,omitempty" mapstructure:"ssh_insecure"`

	// Timeout bounds a single module request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// ProbeTimeout bounds the capability probe.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`
}

// Server configures `ldash agent`.
type Server struct {
	Listen    string `yaml:"listen" mapstructure:"listen"`
	WebSocket bool   `yaml:"websocket" mapstructure:"websocket"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Agent: Agent{
			URL:              "http://localhost:8080",
			Timeout:          10 * time.Second,
			ProbeTimeout:     3 * time.Second,
			HandshakeTimeout: 5 * time.Second,
		},
		Transport:   TransportAuto,
		Refresh:     time.Second,
		Redraw:      time.Second,
		Retention:   60 * time.Second,
		HistorySize: 600,
		StateFile:   "~/.config/ldash/state.yaml",
		Server: Server{
			Listen:    "127.0.0.1:8080",
			WebSocket: true,
		},
	}
}

// PagesOrDefault returns the configured pages or the built-in ones.
func (c *Config) PagesOrDefault() []widget.Page {
	if len(c.Pages) > 0 {
		return c.Pages
	}
	return widget.DefaultPages()
}

// Push reports whether the websocket transport is allowed.
func (c *Config) Push() bool {
	return c.Transport != TransportHTTP
}

package cli

import (
	"context"

	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/dashboard"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/series"
	"github.com/rileyhilliard/ldash/internal/state"
	"github.com/rileyhilliard/ldash/internal/transport"
	"github.com/rileyhilliard/ldash/pkg/sshutil"
)

// tunnelOptions builds the SSH options for cfg.
func tunnelOptions(cfg *config.Config, log logger.Logger) sshutil.Options {
	return sshutil.Options{
		Timeout:  cfg.Agent.Timeout,
		Insecure: cfg.Agent.SSHInsecure,
		Log:      logger.Named(log, "ssh"),
	}
}

// openTunnel dials agent.ssh when set. Both results are nil without one.
func openTunnel(ctx context.Context, cfg *config.Config, log logger.Logger) (*sshutil.Tunnel, transport.DialFunc, error) {
	if cfg.Agent.SSH == "" {
		return nil, nil, nil
	}
	t, err := sshutil.Dial(ctx, cfg.Agent.SSH, tunnelOptions(cfg, log))
	if err != nil {
		return nil, nil, err
	}
	return t, t.DialContext, nil
}

// targetLabel is the agent as shown to the user.
func targetLabel(cfg *config.Config) string {
	if cfg.Agent.SSH != "" {
		return cfg.Agent.URL + " via " + cfg.Agent.SSH
	}
	return cfg.Agent.URL
}

// httpChannel opens a request/response channel for one-shot commands.
// Fetch and Probe never post to an event loop, so none is passed.
func httpChannel(cfg *config.Config, dial transport.DialFunc, log logger.Logger) (*transport.HTTPChannel, error) {
	return transport.NewHTTPChannel(nil, transport.HTTPOptions{
		BaseURL: cfg.Agent.URL,
		Timeout: cfg.Agent.Timeout,
		Dial:    dial,
		Log:     logger.Named(log, "http"),
	})
}

// agentConn is a started dashboard session and the tunnel it rides on.
type agentConn struct {
	session *dashboard.Session
	tunnel  *sshutil.Tunnel
}

// connect opens the tunnel, restores state and starts a session.
// A broken state file is logged and replaced by in-memory state.
func connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*agentConn, error) {
	tunnel, dial, err := openTunnel(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	st, err := state.Open(cfg.StateFile)
	if err != nil {
		log.Warn("state file ignored: %v", err)
		st, _ = state.Open("")
	}

	s, err := dashboard.New(dashboard.Options{
		BaseURL:          cfg.Agent.URL,
		Push:             cfg.Push(),
		Dial:             dial,
		RequestTimeout:   cfg.Agent.Timeout,
		HandshakeTimeout: cfg.Agent.HandshakeTimeout,
		ProbeTimeout:     cfg.Agent.ProbeTimeout,
		Refresh:          cfg.Refresh,
		Series: series.Options{
			Window:   cfg.Retention,
			Capacity: cfg.HistorySize,
		},
		Pages: cfg.PagesOrDefault(),
		State: st,
		Log:   log,
	})
	if err != nil {
		closeTunnel(tunnel)
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		closeTunnel(tunnel)
		return nil, err
	}
	return &agentConn{session: s, tunnel: tunnel}, nil
}

// Close stops the session, then the tunnel under it.
func (c *agentConn) Close() error {
	err := c.session.Close()
	closeTunnel(c.tunnel)
	return err
}

func closeTunnel(t *sshutil.Tunnel) {
	if t != nil {
		_ = t.Close()
	}
}

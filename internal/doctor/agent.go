package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/eventloop"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/transport"
	"github.com/rileyhilliard/ldash/pkg/sshutil"
)

// DefaultModule is requested by the reachability and round-trip checks.
const DefaultModule = "general_info"

// SSHCheck opens the tunnel named by agent.ssh. The open tunnel is kept
// for the agent checks and released by Close.
type SSHCheck struct {
	Host    string
	Options sshutil.Options

	tunnel *sshutil.Tunnel
}

func (c *SSHCheck) Name() string     { return "ssh_tunnel" }
func (c *SSHCheck) Category() string { return "SSH" }

func (c *SSHCheck) Run(ctx context.Context) CheckResult {
	if c.Host == "" {
		return pass(c, "Not used (agent.ssh is empty)")
	}
	t, err := sshutil.Dial(ctx, c.Host, c.Options)
	if err != nil {
		var suggestion string
		if e, ok := err.(*errors.Error); ok {
			suggestion = e.Suggestion
		}
		return fail(c, errors.Short(err), suggestion)
	}
	c.tunnel = t
	return pass(c, fmt.Sprintf("Connected to %s (%s)", c.Host, t.Address()))
}

// Dial routes agent connections through the tunnel once Run succeeded.
func (c *SSHCheck) Dial() transport.DialFunc {
	if c.tunnel == nil {
		return nil
	}
	return c.tunnel.DialContext
}

// Close releases the tunnel.
func (c *SSHCheck) Close() error {
	if c.tunnel == nil {
		return nil
	}
	return c.tunnel.Close()
}

// AgentConfig is what the agent checks need to reach the agent.
type AgentConfig struct {
	URL              string
	Dial             transport.DialFunc
	Timeout          time.Duration
	HandshakeTimeout time.Duration
	// Push is false when the client is configured for HTTP only.
	Push   bool
	Module string
	Log    logger.Logger
}

func (a AgentConfig) module() string {
	if a.Module == "" {
		return DefaultModule
	}
	return a.Module
}

func (a AgentConfig) httpChannel() (*transport.HTTPChannel, error) {
	// Fetch and Probe are synchronous and never post to a loop.
	return transport.NewHTTPChannel(nil, transport.HTTPOptions{
		BaseURL: a.URL,
		Timeout: a.Timeout,
		Dial:    a.Dial,
		Log:     logger.OrDefault(a.Log),
	})
}

// AgentReachableCheck requests one module over HTTP.
type AgentReachableCheck struct {
	Agent AgentConfig
}

func (c *AgentReachableCheck) Name() string     { return "agent_reachable" }
func (c *AgentReachableCheck) Category() string { return "AGENT" }

func (c *AgentReachableCheck) Run(ctx context.Context) CheckResult {
	ch, err := c.Agent.httpChannel()
	if err != nil {
		return fail(c, errors.Short(err), "Fix agent.url in your config")
	}
	defer ch.Close()

	start := time.Now()
	resp := ch.Fetch(ctx, c.Agent.module())
	if resp.Err != nil {
		return fail(c, errors.Short(resp.Err), "Check that the agent is running at "+c.Agent.URL)
	}
	return pass(c, fmt.Sprintf("%s answered %s in %s", c.Agent.URL, c.Agent.module(),
		time.Since(start).Round(time.Millisecond)))
}

// ProbeCheck reports whether the agent announces push support.
type ProbeCheck struct {
	Agent AgentConfig
}

func (c *ProbeCheck) Name() string     { return "capability_probe" }
func (c *ProbeCheck) Category() string { return "TRANSPORT" }

func (c *ProbeCheck) Run(ctx context.Context) CheckResult {
	if !c.Agent.Push {
		return pass(c, "Skipped (transport: http)")
	}
	ch, err := c.Agent.httpChannel()
	if err != nil {
		return fail(c, errors.Short(err), "Fix agent.url in your config")
	}
	defer ch.Close()

	ok, err := ch.Probe(ctx)
	switch {
	case err != nil:
		return warn(c, errors.Short(err), "The dashboard will poll over HTTP")
	case !ok:
		return warn(c, "Agent does not support push", "The dashboard will poll over HTTP")
	}
	return pass(c, "Agent supports push")
}

// PushRoundTripCheck opens the websocket and waits for one answer.
type PushRoundTripCheck struct {
	Agent AgentConfig
}

func (c *PushRoundTripCheck) Name() string     { return "push_round_trip" }
func (c *PushRoundTripCheck) Category() string { return "TRANSPORT" }

func (c *PushRoundTripCheck) Run(ctx context.Context) CheckResult {
	if !c.Agent.Push {
		return pass(c, "Skipped (transport: http)")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := eventloop.New(logger.OrDefault(c.Agent.Log))
	go func() { _ = loop.Run(ctx) }()
	defer loop.Close()

	push, err := transport.NewPushChannel(loop, transport.PushOptions{
		BaseURL:          c.Agent.URL,
		HandshakeTimeout: c.Agent.HandshakeTimeout,
		Dial:             c.Agent.Dial,
		Log:              c.Agent.Log,
	})
	if err != nil {
		return fail(c, errors.Short(err), "Fix agent.url in your config")
	}
	defer push.Close()

	answers := make(chan transport.Response, 1)
	deliver := func(r transport.Response) {
		select {
		case answers <- r:
		default:
		}
	}
	push.SetReceiver(deliver)

	if err := push.Connect(ctx); err != nil {
		return warn(c, errors.Short(err), "Set transport: http to skip the push handshake")
	}

	module := c.Agent.module()
	start := time.Now()
	push.Send(module, deliver)

	timeout := c.Agent.Timeout
	if timeout <= 0 {
		timeout = transport.DefaultTimeout
	}
	select {
	case r := <-answers:
		if r.Err != nil {
			return warn(c, errors.Short(r.Err), "Check the agent logs")
		}
		return pass(c, fmt.Sprintf("%s answered over push in %s", module, time.Since(start).Round(time.Millisecond)))
	case <-time.After(timeout):
		return warn(c, fmt.Sprintf("No push answer for %s within %s", module, timeout),
			"The agent accepted the connection but never answered")
	case <-ctx.Done():
		return warn(c, "Cancelled", "")
	}
}

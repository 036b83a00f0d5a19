// Package negotiate picks the transport for a session: push when both the
// client configuration and the agent allow it, request/response otherwise.
package negotiate

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/transport"
)

// Reason explains a negotiation outcome.
type Reason string

const (
	// ReasonClient means the client is configured without push.
	ReasonClient Reason = "client"
	// ReasonProbeFailed means the capability probe could not reach the agent.
	ReasonProbeFailed Reason = "probe-failed"
	// ReasonDeclined means the agent answered without push support.
	ReasonDeclined Reason = "declined"
	// ReasonPush means both sides support push.
	ReasonPush Reason = "push"
)

// DefaultProbeTimeout bounds the capability probe.
const DefaultProbeTimeout = 3 * time.Second

// Prober asks the agent whether it supports push.
type Prober interface {
	Probe(ctx context.Context) (bool, error)
}

// PushChannel is a channel that needs an explicit connection step.
type PushChannel interface {
	transport.Channel
	Connect(ctx context.Context) error
}

// Env is everything negotiation depends on.
type Env struct {
	// ClientPush is false when the client is configured for HTTP only.
	ClientPush   bool
	Prober       Prober
	Push         PushChannel
	Fallback     transport.Channel
	ProbeTimeout time.Duration
	Log          logger.Logger
}

// Outcome is the result of negotiation.
type Outcome struct {
	Mode    transport.Mode
	Reason  Reason
	Channel transport.Channel
	// Err is the probe or dial error behind the outcome, if any.
	Err error
}

// Negotiator decides once per session.
type Negotiator struct {
	env Env
	log logger.Logger

	once    sync.Once
	outcome Outcome

	started     chan struct{}
	startedOnce sync.Once
}

// New creates a negotiator over env.
func New(env Env) *Negotiator {
	if env.ProbeTimeout <= 0 {
		env.ProbeTimeout = DefaultProbeTimeout
	}
	return &Negotiator{
		env:     env,
		log:     logger.OrDefault(env.Log),
		started: make(chan struct{}),
	}
}

// Started is closed once the session may leave its loading state: right
// after a fallback decision, or when the push handshake finished.
func (n *Negotiator) Started() <-chan struct{} {
	return n.started
}

// Negotiate returns the session's outcome, deciding on the first call.
// Later calls return the first outcome without probing again.
func (n *Negotiator) Negotiate(ctx context.Context) Outcome {
	n.once.Do(func() {
		n.outcome = n.decide(ctx)
		n.log.Info("transport: %s (%s)", n.outcome.Mode, n.outcome.Reason)
		n.signalStarted()
	})
	return n.outcome
}

// Outcome returns the decided outcome and whether negotiation has run.
func (n *Negotiator) Outcome() (Outcome, bool) {
	select {
	case <-n.started:
		return n.outcome, true
	default:
		return Outcome{}, false
	}
}

// Reconnect reopens the push connection. It is the only reconnection path
// and is triggered by the user.
func (n *Negotiator) Reconnect(ctx context.Context) error {
	out, ok := n.Outcome()
	if !ok || out.Mode != transport.ModePush {
		return errors.New(errors.ErrTransport,
			"Session is not using push",
			"Reconnect only applies to push sessions")
	}
	return n.env.Push.Connect(ctx)
}

func (n *Negotiator) decide(ctx context.Context) Outcome {
	fallback := func(reason Reason, err error) Outcome {
		return Outcome{Mode: transport.ModeRequestResponse, Reason: reason, Channel: n.env.Fallback, Err: err}
	}

	if !n.env.ClientPush || n.env.Push == nil {
		return fallback(ReasonClient, nil)
	}

	probeCtx, cancel := context.WithTimeout(ctx, n.env.ProbeTimeout)
	supported, err := n.env.Prober.Probe(probeCtx)
	cancel()
	if err != nil {
		n.log.Debug("probe failed: %v", err)
		// Started fires right away; there is no handshake to wait for.
		return fallback(ReasonProbeFailed, err)
	}
	if !supported {
		return fallback(ReasonDeclined, nil)
	}

	out := Outcome{Mode: transport.ModePush, Reason: ReasonPush, Channel: n.env.Push}
	if err := n.env.Push.Connect(ctx); err != nil {
		// Stay in push mode with no connection: requests are dropped until
		// the user reconnects.
		n.log.Warn("push handshake failed: %s", errors.Short(err))
		out.Err = err
	}
	return out
}

func (n *Negotiator) signalStarted() {
	n.startedOnce.Do(func() { close(n.started) })
}

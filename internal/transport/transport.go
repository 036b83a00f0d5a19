// Package transport moves named module requests to the agent and brings the
// answers back. Two channels implement the same contract: PushChannel keeps
// one websocket open and HTTPChannel issues one GET per request.
//
// Channels never run caller code on their own goroutines. Every result is
// handed to a Poster (the event loop) which runs it in arrival order.
package transport

import (
	"context"
	"net"
	"strings"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/payload"
)

// Mode is the delivery mechanism a session uses. It is chosen once by the
// negotiator and never changes afterwards.
type Mode int

const (
	// ModeRequestResponse issues one HTTP request per module request.
	ModeRequestResponse Mode = iota
	// ModePush multiplexes every module over one websocket.
	ModePush
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModeRequestResponse:
		return "request/response"
	}
	return "unknown"
}

// Subprotocol is the websocket sub-protocol the agent expects.
const Subprotocol = "linux-dash"

// Endpoints of the agent wire contract.
const (
	ProbePath  = "/websocket"
	ModulePath = "/server/"
	ModuleKey  = "module"
	// SupportField is the probe response flag announcing push support.
	SupportField = "websocket_support"
)

// Response is one answer for a module. Exactly one of Payload or Err is
// meaningful.
type Response struct {
	Module  string
	Payload payload.Payload
	Err     error
}

// Handler receives a Response on the event loop.
type Handler func(Response)

// Channel is the uniform send contract over either transport.
type Channel interface {
	Mode() Mode
	// Ready reports whether Send can currently reach the agent.
	Ready() bool
	// Send asks for module. How h is used depends on the mode: a request
	// response channel calls it once with the answer or error; a push
	// channel only calls it when the frame could not be written, since
	// answers arrive by name through the receiver.
	Send(module string, h Handler)
	Close() error
}

// Poster runs a task on the event loop. eventloop.Loop implements it.
type Poster interface {
	Post(task func()) bool
}

// DialFunc opens the raw TCP connection to the agent. It lets both channels
// reach an agent through an SSH tunnel.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ErrNotConnected is delivered when a push frame cannot be written.
var ErrNotConnected = errors.New(errors.ErrTransport,
	"Push connection is not open",
	"Press c to reconnect or set transport: http")

// PushURL turns an agent base URL into the websocket URL
// (http -> ws, https -> wss, path reset to "/").
func PushURL(base string) (string, error) {
	u, err := parseBase(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/"
	u.RawQuery = ""
	return u.String(), nil
}

// normalizeBase trims the trailing slash so paths can be appended.
func normalizeBase(base string) (string, error) {
	u, err := parseBase(base)
	if err != nil {
		return "", err
	}
	u.RawQuery = ""
	return strings.TrimRight(u.String(), "/"), nil
}

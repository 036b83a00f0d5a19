// Package router multiplexes named module requests onto one transport
// channel and demultiplexes the answers back by module name.
//
// All methods must run on the event loop.
package router

import (
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/transport"
)

// Callback receives the answer for a module.
type Callback func(transport.Response)

// receiverSetter is implemented by channels that deliver answers by name.
type receiverSetter interface {
	SetReceiver(transport.Handler)
}

// Router owns the per-module registrations for one channel.
//
// In push mode a registration is not consumed by the answer: the same
// callback keeps answering its module until Request replaces it. A response
// for a superseded registration is delivered to whichever callback is
// current; there are no correlation IDs and this race is accepted, since
// every caller polls the same module on a fixed cadence anyway.
type Router struct {
	ch       transport.Channel
	handlers map[string]Callback
	log      logger.Logger

	dropped      int
	unrecognized int
}

// New creates a router for ch. A push channel gets the router installed as
// its receiver.
func New(ch transport.Channel, log logger.Logger) *Router {
	r := &Router{
		ch:       ch,
		handlers: make(map[string]Callback),
		log:      logger.OrDefault(log),
	}
	if rs, ok := ch.(receiverSetter); ok {
		rs.SetReceiver(r.Dispatch)
	}
	return r
}

// Mode is the mode of the underlying channel.
func (r *Router) Mode() transport.Mode {
	return r.ch.Mode()
}

// Ready reports whether requests currently reach the agent.
func (r *Router) Ready() bool {
	return r.ch.Ready()
}

// Request asks for module and arranges for cb to receive the answer.
//
// Request/response mode: cb is called exactly once, with the payload or the
// error. Push mode: cb replaces any earlier registration for module and the
// request frame is written; if the connection is not open the request is
// dropped, cb is not called and Request returns false.
func (r *Router) Request(module string, cb Callback) bool {
	if r.ch.Mode() != transport.ModePush {
		r.ch.Send(module, transport.Handler(cb))
		return true
	}

	if !r.ch.Ready() {
		r.dropped++
		r.log.Debug("push not ready, dropping request for %s", module)
		return false
	}

	r.handlers[module] = cb
	r.ch.Send(module, func(resp transport.Response) {
		// Write failures go to the registration current at that moment.
		r.Dispatch(resp)
	})
	return true
}

// Dispatch routes an inbound answer to the registered callback. Frames for
// unknown modules are logged and discarded.
func (r *Router) Dispatch(resp transport.Response) {
	cb, ok := r.handlers[resp.Module]
	if !ok {
		r.unrecognized++
		r.log.Warn("module not recognized: %q, frame discarded", resp.Module)
		return
	}
	cb(resp)
}

// Registered reports whether module has a push registration.
func (r *Router) Registered(module string) bool {
	_, ok := r.handlers[module]
	return ok
}

// Stats are diagnostic counters.
type Stats struct {
	Registered   int
	Dropped      int
	Unrecognized int
}

// Stats returns the current counters.
func (r *Router) Stats() Stats {
	return Stats{
		Registered:   len(r.handlers),
		Dropped:      r.dropped,
		Unrecognized: r.unrecognized,
	}
}

// Package poller runs one fixed-interval polling loop per widget.
//
// A Stream never has more than one request outstanding: a tick that finds
// the previous request unanswered is skipped. All methods and callbacks run
// on the event loop.
package poller

import (
	"time"

	"github.com/rileyhilliard/ldash/internal/eventloop"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/rileyhilliard/ldash/internal/router"
	"github.com/rileyhilliard/ldash/internal/transport"
)

const (
	// DefaultInterval is used when a widget does not set one.
	DefaultInterval = time.Second
	// DefaultTimeout is how long a push request may stay unanswered before
	// the stream requests again. Request/response calls always answer, so
	// they are never abandoned.
	DefaultTimeout = 10 * time.Second
)

// State is the lifecycle of a stream.
type State int

const (
	StateInitializing State = iota
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	}
	return "initializing"
}

// Scheduler creates recurring ticks on the event loop.
type Scheduler interface {
	Every(d time.Duration, fn func()) *eventloop.Timer
}

// Requester sends a module request and reports whether it went out.
// router.Router implements it.
type Requester interface {
	Request(module string, cb router.Callback) bool
}

// moder is implemented by requesters that know their transport mode.
// Requesters without it are treated as request/response.
type moder interface {
	Mode() transport.Mode
}

// Sink consumes non-empty payloads.
type Sink interface {
	Consume(ts int64, p payload.Payload)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ts int64, p payload.Payload)

// Consume calls f.
func (f SinkFunc) Consume(ts int64, p payload.Payload) { f(ts, p) }

// Options configures a Stream.
type Options struct {
	Module   string
	Interval time.Duration
	Timeout  time.Duration
	Clock    eventloop.Clock
	Log      logger.Logger
}

// Stream is the polling state of one widget.
type Stream struct {
	module   string
	interval time.Duration
	timeout  int64
	sched    Scheduler
	req      Requester
	sink     Sink
	clock    eventloop.Clock
	log      logger.Logger

	state      State
	timer      *eventloop.Timer
	inFlight   bool
	gen        uint64
	sentAt     int64
	empty      bool
	err        error
	lastUpdate int64

	requests int
	answers  int
	skipped  int
	dropped  int
	timeouts int
	stale    int
}

// New creates a stream in the Initializing state.
func New(sched Scheduler, req Requester, sink Sink, opts Options) *Stream {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = eventloop.NewMonotonicClock()
	}
	return &Stream{
		module:   opts.Module,
		interval: interval,
		timeout:  timeout.Milliseconds(),
		sched:    sched,
		req:      req,
		sink:     sink,
		clock:    clock,
		log:      logger.OrDefault(opts.Log),
	}
}

// Start schedules the recurring tick and fires the first one right away.
// It has no effect unless the stream is Initializing.
func (s *Stream) Start() {
	if s.state != StateInitializing {
		return
	}
	s.state = StateActive
	s.timer = s.sched.Every(s.interval, s.Tick)
	s.Tick()
}

// Tick issues a request unless one is already outstanding. A request the
// router could not send leaves the stream idle so the next tick retries.
func (s *Stream) Tick() {
	if s.state != StateActive {
		return
	}
	if s.inFlight {
		if !s.abandonable() || s.clock.Millis()-s.sentAt < s.timeout {
			s.skipped++
			return
		}
		s.timeouts++
		s.log.Debug("%s: no answer after %dms, requesting again", s.module, s.timeout)
	}

	s.gen++
	gen := s.gen
	s.inFlight = true
	s.sentAt = s.clock.Millis()
	s.requests++
	if !s.req.Request(s.module, func(resp transport.Response) { s.onResult(gen, resp) }) {
		s.inFlight = false
		s.dropped++
	}
}

// abandonable reports whether an unanswered request may be given up on.
// Only push requests can go unanswered forever.
func (s *Stream) abandonable() bool {
	m, ok := s.req.(moder)
	return ok && m.Mode() == transport.ModePush
}

// Reset forgets the outstanding request so the next tick sends a new one.
// An answer to the forgotten request is discarded. Used after the push
// connection is reopened, since frames written to the old one are lost.
func (s *Stream) Reset() {
	if !s.inFlight {
		return
	}
	s.gen++
	s.inFlight = false
}

// Refresh requests immediately, still honoring overlap suppression.
func (s *Stream) Refresh() {
	s.Tick()
}

// Stop cancels the tick. Results that arrive afterwards are dropped.
func (s *Stream) Stop() {
	if s.state == StateStopped {
		return
	}
	s.state = StateStopped
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Stream) onResult(gen uint64, resp transport.Response) {
	if s.state == StateStopped || gen != s.gen {
		s.stale++
		return
	}

	s.inFlight = false
	s.answers++
	s.lastUpdate = s.clock.Millis()

	if resp.Err != nil {
		s.err = resp.Err
		s.log.Debug("%s: %v", s.module, resp.Err)
		return
	}
	s.err = nil

	if resp.Payload.Empty() {
		s.empty = true
		return
	}
	s.empty = false
	s.sink.Consume(s.lastUpdate, resp.Payload)
}

// Status is a copy of the stream state for the renderer.
type Status struct {
	Module     string
	State      State
	InFlight   bool
	Empty      bool
	Err        error
	LastUpdate int64
	Requests   int
	Answers    int
	Skipped    int
	Dropped    int
	Timeouts   int
	Stale      int
}

// Status returns the current state.
func (s *Stream) Status() Status {
	return Status{
		Module:     s.module,
		State:      s.state,
		InFlight:   s.inFlight,
		Empty:      s.empty,
		Err:        s.err,
		LastUpdate: s.lastUpdate,
		Requests:   s.requests,
		Answers:    s.answers,
		Skipped:    s.skipped,
		Dropped:    s.dropped,
		Timeouts:   s.timeouts,
		Stale:      s.stale,
	}
}

// Loaded reports whether at least one answer has arrived.
func (s Status) Loaded() bool {
	return s.Answers > 0
}

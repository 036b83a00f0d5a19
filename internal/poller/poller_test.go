package poller

import (
	"context"
	stderrors "errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rileyhilliard/ldash/internal/eventloop"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/rileyhilliard/ldash/internal/router"
	"github.com/rileyhilliard/ldash/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScheduler records the schedule instead of running it.
type fakeScheduler struct {
	interval time.Duration
	fn       func()
	timer    *eventloop.Timer
}

func (f *fakeScheduler) Every(d time.Duration, fn func()) *eventloop.Timer {
	f.interval = d
	f.fn = fn
	f.timer = eventloop.NewTimer()
	return f.timer
}

// fire runs a tick unless the timer was stopped.
func (f *fakeScheduler) fire() {
	if f.timer != nil && !f.timer.Stopped() {
		f.fn()
	}
}

// fakeRequester holds callbacks until the test answers them.
type fakeRequester struct {
	pending []router.Callback
	sent    int
	refuse  bool
	mode    transport.Mode
}

func (f *fakeRequester) Mode() transport.Mode { return f.mode }

func (f *fakeRequester) Request(module string, cb router.Callback) bool {
	if f.refuse {
		return false
	}
	f.sent++
	f.pending = append(f.pending, cb)
	return true
}

func (f *fakeRequester) outstanding() int {
	return len(f.pending)
}

func (f *fakeRequester) answer(resp transport.Response) {
	cb := f.pending[0]
	f.pending = f.pending[1:]
	cb(resp)
}

type recordingSink struct {
	got []string
	ts  []int64
}

func (r *recordingSink) Consume(ts int64, p payload.Payload) {
	r.got = append(r.got, p.Raw())
	r.ts = append(r.ts, ts)
}

func newTestStream(opts Options) (*Stream, *fakeScheduler, *fakeRequester, *recordingSink, *eventloop.ManualClock) {
	sched := &fakeScheduler{}
	req := &fakeRequester{}
	sink := &recordingSink{}
	clock := &eventloop.ManualClock{Now: 1000}
	if opts.Module == "" {
		opts.Module = "cpu_utilization"
	}
	opts.Clock = clock
	opts.Log = logger.Noop()
	return New(sched, req, sink, opts), sched, req, sink, clock
}

func ok(raw string) transport.Response {
	return transport.Response{Module: "cpu_utilization", Payload: payload.MustParse(raw)}
}

func TestStream_StartTicksImmediately(t *testing.T) {
	s, sched, req, _, _ := newTestStream(Options{Interval: 2 * time.Second})
	assert.Equal(t, StateInitializing, s.Status().State)

	s.Start()
	assert.Equal(t, StateActive, s.Status().State)
	assert.Equal(t, 2*time.Second, sched.interval)
	assert.Equal(t, 1, req.sent, "first tick fires on start")

	// Start twice is a no-op.
	s.Start()
	assert.Equal(t, 1, req.sent)
}

func TestStream_DefaultInterval(t *testing.T) {
	s, sched, _, _, _ := newTestStream(Options{})
	s.Start()
	assert.Equal(t, DefaultInterval, sched.interval)
}

func TestStream_OverlapSuppression(t *testing.T) {
	s, sched, req, sink, _ := newTestStream(Options{})
	s.Start()

	sched.fire()
	sched.fire()
	sched.fire()
	assert.Equal(t, 1, req.sent, "ticks while a request is outstanding are skipped")
	assert.Equal(t, 3, s.Status().Skipped)
	assert.True(t, s.Status().InFlight)

	req.answer(ok(`{"cpu": 5}`))
	assert.False(t, s.Status().InFlight)
	assert.Equal(t, []string{`{"cpu": 5}`}, sink.got)

	sched.fire()
	assert.Equal(t, 2, req.sent)
}

func TestStream_OverlapPropertyUnderSlowResponses(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for run := 0; run < 100; run++ {
		s, sched, req, _, _ := newTestStream(Options{})
		s.Start()

		for step := 0; step < 200; step++ {
			// Ticks outnumber answers: the response is slower than the interval.
			if rng.Intn(4) == 0 && req.outstanding() > 0 {
				req.answer(ok(`1`))
			} else {
				sched.fire()
			}
			require.LessOrEqual(t, req.outstanding(), 1, "run %d step %d", run, step)
		}
	}
}

func TestStream_EmptyResultThenData(t *testing.T) {
	s, sched, req, sink, _ := newTestStream(Options{Module: "docker_processes"})
	s.Start()

	req.answer(transport.Response{Module: "docker_processes", Payload: payload.MustParse(`[]`)})
	st := s.Status()
	assert.True(t, st.Empty)
	assert.False(t, st.InFlight, "an empty answer is not terminal")
	assert.Empty(t, sink.got, "the sink is skipped for empty answers")

	sched.fire()
	require.Equal(t, 2, req.sent, "the next tick retries")
	req.answer(transport.Response{Module: "docker_processes", Payload: payload.MustParse(`[{"name":"web"}]`)})
	assert.False(t, s.Status().Empty)
	assert.Len(t, sink.got, 1)
}

func TestStream_ErrorIsRecordedAndCleared(t *testing.T) {
	s, sched, req, sink, _ := newTestStream(Options{})
	s.Start()

	req.answer(transport.Response{Module: "cpu_utilization", Err: stderrors.New("status 500")})
	st := s.Status()
	assert.EqualError(t, st.Err, "status 500")
	assert.False(t, st.InFlight)
	assert.True(t, st.Loaded())
	assert.Empty(t, sink.got)

	sched.fire()
	req.answer(ok(`3`))
	assert.NoError(t, s.Status().Err)
}

func TestStream_TimestampsFromClock(t *testing.T) {
	s, sched, req, sink, clock := newTestStream(Options{})
	s.Start()

	clock.Advance(250 * time.Millisecond)
	req.answer(ok(`1`))
	sched.fire()
	clock.Advance(time.Second)
	req.answer(ok(`2`))

	assert.Equal(t, []int64{1250, 2250}, sink.ts)
	assert.Equal(t, int64(2250), s.Status().LastUpdate)
}

func TestStream_StopWhileInFlight(t *testing.T) {
	s, sched, req, sink, _ := newTestStream(Options{})
	s.Start()
	require.Equal(t, 1, req.outstanding())

	s.Stop()
	assert.Equal(t, StateStopped, s.Status().State)
	assert.True(t, sched.timer.Stopped(), "the tick is cancelled synchronously")

	assert.NotPanics(t, func() { req.answer(ok(`99`)) })
	assert.Empty(t, sink.got, "a stale answer never reaches the sink")
	assert.Equal(t, 1, s.Status().Stale)

	s.Tick()
	s.Refresh()
	assert.Equal(t, 1, req.sent, "a stopped stream never requests again")

	s.Stop()
	assert.Equal(t, StateStopped, s.Status().State)
}

func TestStream_StopBeforeStart(t *testing.T) {
	s, _, req, _, _ := newTestStream(Options{})
	s.Stop()
	s.Start()
	assert.Equal(t, StateStopped, s.Status().State)
	assert.Equal(t, 0, req.sent)
}

func TestStream_DroppedRequestRetriesNextTick(t *testing.T) {
	s, sched, req, _, _ := newTestStream(Options{})
	req.refuse = true
	s.Start()

	st := s.Status()
	assert.False(t, st.InFlight, "a dropped request does not hold the stream")
	assert.Equal(t, 1, st.Dropped)

	req.refuse = false
	sched.fire()
	assert.Equal(t, 1, req.sent)
	assert.True(t, s.Status().InFlight)
}

func TestStream_UnansweredRequestTimeout(t *testing.T) {
	tests := []struct {
		name     string
		mode     transport.Mode
		wantSent int
		wantOut  int
	}{
		{name: "push requests again", mode: transport.ModePush, wantSent: 2, wantOut: 2},
		{name: "request/response keeps waiting", mode: transport.ModeRequestResponse, wantSent: 1, wantOut: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sched, req, _, clock := newTestStream(Options{Timeout: 5 * time.Second})
			req.mode = tt.mode
			s.Start()

			clock.Advance(4 * time.Second)
			sched.fire()
			assert.Equal(t, 1, req.sent)

			clock.Advance(2 * time.Second)
			sched.fire()
			assert.Equal(t, tt.wantSent, req.sent)
			assert.Equal(t, tt.wantOut, req.outstanding())
			assert.True(t, s.Status().InFlight)
		})
	}
}

func TestStream_SupersededAnswerIsDiscarded(t *testing.T) {
	s, sched, req, sink, clock := newTestStream(Options{Timeout: time.Second})
	req.mode = transport.ModePush
	s.Start()
	clock.Advance(2 * time.Second)
	sched.fire()
	require.Equal(t, 2, req.sent)

	req.answer(ok(`1`))
	st := s.Status()
	assert.True(t, st.InFlight, "the old answer does not release the newer request")
	assert.Equal(t, 1, st.Stale)
	assert.Empty(t, sink.got)

	sched.fire()
	assert.Equal(t, 2, req.sent)

	req.answer(ok(`2`))
	assert.False(t, s.Status().InFlight)
	assert.Equal(t, []string{`2`}, sink.got)
}

func TestStream_Reset(t *testing.T) {
	s, sched, req, sink, _ := newTestStream(Options{})
	req.mode = transport.ModePush
	s.Start()
	require.True(t, s.Status().InFlight)

	s.Reset()
	assert.False(t, s.Status().InFlight)
	s.Refresh()
	assert.Equal(t, 2, req.sent, "refresh goes out right after a reset")

	req.answer(ok(`lost`))
	assert.Empty(t, sink.got, "the answer to the forgotten request is dropped")
	assert.True(t, s.Status().InFlight)

	req.answer(ok(`7`))
	assert.Equal(t, []string{`7`}, sink.got)

	s.Reset()
	sched.fire()
	assert.Equal(t, 3, req.sent)
}

func TestStream_Refresh(t *testing.T) {
	s, _, req, _, _ := newTestStream(Options{})
	s.Start()
	req.answer(ok(`1`))

	s.Refresh()
	assert.Equal(t, 2, req.sent)
	s.Refresh()
	assert.Equal(t, 2, req.sent, "refresh honors overlap suppression")
}

func TestSinkFunc(t *testing.T) {
	var got int64
	SinkFunc(func(ts int64, _ payload.Payload) { got = ts }).Consume(42, payload.Payload{})
	assert.Equal(t, int64(42), got)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "stopped", StateStopped.String())
}

// slowChannel answers every request after a delay, posting to the loop.
type slowChannel struct {
	loop        *eventloop.Loop
	delay       time.Duration
	outstanding atomic.Int32
	maxSeen     atomic.Int32
	answered    atomic.Int32
}

func (c *slowChannel) Mode() transport.Mode { return transport.ModeRequestResponse }
func (c *slowChannel) Ready() bool          { return true }
func (c *slowChannel) Close() error         { return nil }

func (c *slowChannel) Send(module string, h transport.Handler) {
	n := c.outstanding.Add(1)
	for {
		cur := c.maxSeen.Load()
		if n <= cur || c.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	time.AfterFunc(c.delay, func() {
		c.outstanding.Add(-1)
		c.loop.Post(func() {
			c.answered.Add(1)
			h(transport.Response{Module: module, Payload: payload.MustParse(`{"v": 1}`)})
		})
	})
}

func TestStream_RealLoopSlowAgent(t *testing.T) {
	loop := eventloop.New(logger.Noop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	ch := &slowChannel{loop: loop, delay: 30 * time.Millisecond}
	rt := router.New(ch, logger.Noop())

	var consumed atomic.Int32
	var s *Stream
	require.NoError(t, loop.Call(ctx, func() {
		s = New(loop, rt, SinkFunc(func(int64, payload.Payload) { consumed.Add(1) }), Options{
			Module:   "load_avg",
			Interval: 2 * time.Millisecond,
			Log:      logger.Noop(),
		})
		s.Start()
	}))

	assert.Eventually(t, func() bool { return consumed.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, loop.Call(ctx, s.Stop))

	assert.Equal(t, int32(1), ch.maxSeen.Load(), "never more than one request outstanding")

	var st Status
	require.NoError(t, loop.Call(ctx, func() { st = s.Status() }))
	assert.Greater(t, st.Skipped, 0, "fast ticks were suppressed")
}

func TestStream_RealLoopSlowerThanTimeout(t *testing.T) {
	loop := eventloop.New(logger.Noop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	ch := &slowChannel{loop: loop, delay: 60 * time.Millisecond}
	rt := router.New(ch, logger.Noop())

	var consumed atomic.Int32
	var s *Stream
	require.NoError(t, loop.Call(ctx, func() {
		s = New(loop, rt, SinkFunc(func(int64, payload.Payload) { consumed.Add(1) }), Options{
			Module:   "ram_intensive_processes",
			Interval: 2 * time.Millisecond,
			Timeout:  10 * time.Millisecond,
			Log:      logger.Noop(),
		})
		s.Start()
	}))

	assert.Eventually(t, func() bool { return consumed.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, loop.Call(ctx, s.Stop))

	assert.Equal(t, int32(1), ch.maxSeen.Load(), "an HTTP request is never abandoned for a second one")

	var st Status
	require.NoError(t, loop.Call(ctx, func() { st = s.Status() }))
	assert.Zero(t, st.Timeouts)
	assert.Zero(t, st.Stale)
}

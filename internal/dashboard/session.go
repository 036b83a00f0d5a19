// Package dashboard wires the transport, router, polling streams and
// widgets into one session that a renderer can drive.
//
// All session state lives on the event loop. Public methods hop onto the
// loop with Call, so they are safe from any goroutine, including a Bubble
// Tea command.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/eventloop"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/negotiate"
	"github.com/rileyhilliard/ldash/internal/poller"
	"github.com/rileyhilliard/ldash/internal/router"
	"github.com/rileyhilliard/ldash/internal/series"
	"github.com/rileyhilliard/ldash/internal/state"
	"github.com/rileyhilliard/ldash/internal/transport"
	"github.com/rileyhilliard/ldash/internal/widget"
)

const closeTimeout = 2 * time.Second

// Options configures a Session.
type Options struct {
	// BaseURL is the agent root, e.g. http://localhost:80.
	BaseURL string
	// Push allows the websocket transport. False forces HTTP polling.
	Push bool
	// Dial routes agent connections, e.g. through an SSH tunnel.
	Dial transport.DialFunc

	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration
	ProbeTimeout     time.Duration

	// Refresh is the poll interval of widgets that do not set their own.
	Refresh time.Duration
	// StreamTimeout releases a push stream whose answer never arrived.
	// Request/response streams always wait for their answer.
	StreamTimeout time.Duration
	Series        series.Options

	Pages []widget.Page
	State *state.Store
	Clock eventloop.Clock
	Log   logger.Logger
}

type mount struct {
	inst   *widget.Instance
	stream *poller.Stream
}

// Session is one dashboard connected to one agent.
type Session struct {
	opts Options
	log  logger.Logger

	loop *eventloop.Loop
	http *transport.HTTPChannel
	push *transport.PushChannel
	neg  *negotiate.Negotiator

	startOnce sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	cancel    context.CancelFunc
	runDone   chan struct{}

	// Loop owned.
	router  *router.Router
	outcome negotiate.Outcome
	page    string
	pending string
	mounted []mount
}

// New builds a session. Nothing connects until Start.
func New(opts Options) (*Session, error) {
	if len(opts.Pages) == 0 {
		opts.Pages = widget.DefaultPages()
	}
	if err := widget.ValidatePages(opts.Pages); err != nil {
		return nil, err
	}
	if opts.State == nil {
		opts.State, _ = state.Open("")
	}
	if opts.Clock == nil {
		opts.Clock = eventloop.NewMonotonicClock()
	}
	log := logger.OrDefault(opts.Log)

	loop := eventloop.New(logger.Named(log, "loop"))
	httpCh, err := transport.NewHTTPChannel(loop, transport.HTTPOptions{
		BaseURL: opts.BaseURL,
		Timeout: opts.RequestTimeout,
		Dial:    opts.Dial,
		Log:     logger.Named(log, "http"),
	})
	if err != nil {
		return nil, err
	}
	pushCh, err := transport.NewPushChannel(loop, transport.PushOptions{
		BaseURL:          opts.BaseURL,
		HandshakeTimeout: opts.HandshakeTimeout,
		Dial:             opts.Dial,
		Log:              logger.Named(log, "push"),
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		opts: opts,
		log:  log,
		loop: loop,
		http: httpCh,
		push: pushCh,
		neg: negotiate.New(negotiate.Env{
			ClientPush:   opts.Push,
			Prober:       httpCh,
			Push:         pushCh,
			Fallback:     httpCh,
			ProbeTimeout: opts.ProbeTimeout,
			Log:          logger.Named(log, "negotiate"),
		}),
		runDone: make(chan struct{}),
		page:    widget.LoadingPage,
	}, nil
}

// Start runs the event loop and negotiates the transport in the
// background. The session shows the loading page until negotiation
// finishes, then moves to the persisted page.
func (s *Session) Start(ctx context.Context) error {
	var err error = errors.New(errors.ErrConfig, "Session already started", "")
	s.startOnce.Do(func() {
		err = nil
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.started.Store(true)

		go func() {
			defer close(s.runDone)
			_ = s.loop.Run(runCtx)
		}()
		go func() {
			out := s.neg.Negotiate(runCtx)
			s.loop.Post(func() { s.onNegotiated(out) })
		}()
	})
	return err
}

// Started is closed once negotiation finished.
func (s *Session) Started() <-chan struct{} {
	return s.neg.Started()
}

func (s *Session) onNegotiated(out negotiate.Outcome) {
	s.outcome = out
	s.router = router.New(out.Channel, logger.Named(s.log, "router"))

	dest := s.pending
	if dest == "" {
		dest = s.opts.State.Destination(widget.PageNames(s.opts.Pages), widget.DefaultPage)
		if _, ok := widget.FindPage(s.opts.Pages, dest); !ok {
			dest = s.opts.Pages[0].Name
		}
	}
	s.pending = ""
	if err := s.navigate(dest); err != nil {
		s.log.Error("navigate to %s: %v", dest, err)
	}
}

// Navigate leaves the current page and mounts page. Before negotiation
// finishes the choice is remembered and applied when loading ends.
func (s *Session) Navigate(ctx context.Context, page string) error {
	if _, ok := widget.FindPage(s.opts.Pages, page); !ok {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown page %q", page),
			"Pick one of the configured pages")
	}

	var err error
	callErr := s.loop.Call(ctx, func() {
		if s.router == nil {
			s.pending = page
			s.persist(page)
			return
		}
		err = s.navigate(page)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// navigate runs on the loop. Every stream of the old page is stopped
// before the new page's streams start, so no answer for an unmounted
// widget reaches a store.
func (s *Session) navigate(name string) error {
	page, ok := widget.FindPage(s.opts.Pages, name)
	if !ok {
		return errors.New(errors.ErrConfig, fmt.Sprintf("Unknown page %q", name), "")
	}

	s.unmount()
	for _, spec := range page.Widgets {
		inst, err := widget.NewInstance(spec, s.opts.Series)
		if err != nil {
			s.log.Warn("skipping widget %s: %s", spec.Title(), errors.Short(err))
			continue
		}
		interval := spec.Interval
		if interval <= 0 {
			interval = s.opts.Refresh
		}
		stream := poller.New(s.loop, s.router, inst, poller.Options{
			Module:   spec.Module,
			Interval: interval,
			Timeout:  s.opts.StreamTimeout,
			Clock:    s.opts.Clock,
			Log:      logger.Named(s.log, spec.Module),
		})
		s.mounted = append(s.mounted, mount{inst: inst, stream: stream})
	}
	s.page = name
	for _, m := range s.mounted {
		m.stream.Start()
	}
	s.persist(name)
	s.log.Debug("page %s: %d widgets", name, len(s.mounted))
	return nil
}

func (s *Session) unmount() {
	for _, m := range s.mounted {
		m.stream.Stop()
	}
	s.mounted = nil
}

func (s *Session) persist(page string) {
	if err := s.opts.State.SetLastPage(page); err != nil {
		s.log.Warn("saving state: %s", errors.Short(err))
	}
}

// widgetAt runs fn against mounted widget i on the loop.
func (s *Session) widgetAt(ctx context.Context, i int, fn func(m mount)) error {
	var err error
	callErr := s.loop.Call(ctx, func() {
		if i < 0 || i >= len(s.mounted) {
			err = errors.New(errors.ErrConfig,
				fmt.Sprintf("No widget at position %d on page %s", i, s.page), "")
			return
		}
		fn(s.mounted[i])
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Refresh polls widget i now, unless its previous request is still out.
func (s *Session) Refresh(ctx context.Context, i int) error {
	return s.widgetAt(ctx, i, func(m mount) { m.stream.Refresh() })
}

// RefreshAll polls every mounted widget now.
func (s *Session) RefreshAll(ctx context.Context) error {
	return s.loop.Call(ctx, func() {
		for _, m := range s.mounted {
			m.stream.Refresh()
		}
	})
}

// SortTable sorts table widget i by col; the same column again reverses.
func (s *Session) SortTable(ctx context.Context, i, col int) error {
	return s.widgetAt(ctx, i, func(m mount) { m.inst.SortBy(col) })
}

// NextSortColumn moves the sort of table widget i to the next column.
func (s *Session) NextSortColumn(ctx context.Context, i int) error {
	return s.widgetAt(ctx, i, func(m mount) { m.inst.NextSortColumn() })
}

// ReverseSort flips the sort direction of table widget i.
func (s *Session) ReverseSort(ctx context.Context, i int) error {
	return s.widgetAt(ctx, i, func(m mount) { m.inst.ToggleReverse() })
}

// FilterTable keeps the rows of table widget i that contain keyword.
func (s *Session) FilterTable(ctx context.Context, i int, keyword string) error {
	return s.widgetAt(ctx, i, func(m mount) { m.inst.Filter(keyword) })
}

// Reconnect reopens the push connection and polls every widget again.
// Requests written to the old connection are forgotten first, since their
// answers will never come. It is the only way a dropped push connection
// comes back.
func (s *Session) Reconnect(ctx context.Context) error {
	if err := s.neg.Reconnect(ctx); err != nil {
		return err
	}
	s.log.Info("push connection reopened")
	return s.loop.Call(ctx, func() {
		for _, m := range s.mounted {
			m.stream.Reset()
			m.stream.Refresh()
		}
	})
}

// Close stops every stream and the loop and closes both channels.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		started := s.started.Load()
		if started {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			_ = s.loop.Call(ctx, s.unmount)
			cancel()
			s.cancel()
		}
		s.loop.Close()
		if started {
			<-s.runDone
		}
		_ = s.push.Close()
		_ = s.http.Close()
	})
	return nil
}

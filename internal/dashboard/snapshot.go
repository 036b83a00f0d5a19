package dashboard

import (
	"context"

	"github.com/rileyhilliard/ldash/internal/negotiate"
	"github.com/rileyhilliard/ldash/internal/poller"
	"github.com/rileyhilliard/ldash/internal/router"
	"github.com/rileyhilliard/ldash/internal/transport"
	"github.com/rileyhilliard/ldash/internal/widget"
)

// Tab is one entry of the page bar.
type Tab struct {
	Name  string
	Title string
}

// WidgetView is a widget plus the state of its polling stream.
type WidgetView struct {
	widget.View
	Stream poller.Status
}

// Loading reports whether the widget has never been answered.
func (w WidgetView) Loading() bool {
	return !w.Stream.Loaded()
}

// NoData reports whether the last answer was empty.
func (w WidgetView) NoData() bool {
	return w.Stream.Empty
}

// Snapshot is a copy of the session for one frame of the renderer.
type Snapshot struct {
	Page string
	Tabs []Tab

	Negotiated bool
	Mode       transport.Mode
	Reason     negotiate.Reason
	// Connected is false while push requests are being dropped.
	Connected bool
	// ConnErr is the probe or handshake error behind the outcome.
	ConnErr error

	Widgets []WidgetView
	Router  router.Stats
}

// Loading reports whether the session is still negotiating.
func (s Snapshot) Loading() bool {
	return s.Page == widget.LoadingPage
}

// Snapshot copies the session state, keeping up to points samples per
// chart line.
func (s *Session) Snapshot(ctx context.Context, points int) (Snapshot, error) {
	var snap Snapshot
	err := s.loop.Call(ctx, func() {
		snap = s.snapshot(points)
	})
	return snap, err
}

func (s *Session) snapshot(points int) Snapshot {
	snap := Snapshot{Page: s.page}
	for _, p := range s.opts.Pages {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		snap.Tabs = append(snap.Tabs, Tab{Name: p.Name, Title: title})
	}

	if s.router != nil {
		snap.Negotiated = true
		snap.Mode = s.outcome.Mode
		snap.Reason = s.outcome.Reason
		snap.ConnErr = s.outcome.Err
		snap.Connected = s.router.Ready()
		snap.Router = s.router.Stats()
		if snap.Connected {
			snap.ConnErr = nil
		}
	}

	for _, m := range s.mounted {
		snap.Widgets = append(snap.Widgets, WidgetView{
			View:   m.inst.View(points),
			Stream: m.stream.Status(),
		})
	}
	return snap
}

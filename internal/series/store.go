// Package series keeps the rolling numeric history behind each chart and
// derives what the renderer needs from it: axis scale, severity level and
// the latest values per line.
//
// A Store belongs to one widget and is only touched from the event loop.
package series

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/ldash/internal/payload"
)

const (
	// DefaultWindow is the visible time span of a chart.
	DefaultWindow = 60 * time.Second
	// DefaultCapacity caps samples per line regardless of tick rate.
	DefaultCapacity = 600
)

// Options configures a Store.
type Options struct {
	// Window is the retention horizon. Zero keeps samples until Capacity
	// pushes them out.
	Window   time.Duration
	Capacity int
	// MinScale is a floor for Scale, so quiet charts do not zoom into noise.
	MinScale float64
}

// Store holds the series of one widget, one per line key.
type Store struct {
	opts    Options
	keys    []string
	lines   map[string]*Series
	ignored map[string]struct{}
}

// NewStore creates an empty store. Line keys are fixed by Define or by the
// first Observe.
func NewStore(opts Options) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	return &Store{
		opts:    opts,
		lines:   make(map[string]*Series),
		ignored: make(map[string]struct{}),
	}
}

// Define fixes the line keys. It only has an effect on an undefined store.
func (s *Store) Define(keys ...string) bool {
	if s.Defined() || len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if _, dup := s.lines[k]; dup {
			continue
		}
		s.keys = append(s.keys, k)
		s.lines[k] = newSeries(k, s.opts.Capacity, s.opts.Window)
	}
	return true
}

// Defined reports whether the line keys are fixed.
func (s *Store) Defined() bool {
	return len(s.keys) > 0
}

// Keys returns the line keys in definition order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Observe records one response. The first call defines the line keys in
// response order. Later keys outside that set are ignored, and lines
// missing from a response simply get no sample. Returns the number of
// samples appended.
func (s *Store) Observe(ts int64, chart payload.Chart) int {
	if !s.Defined() {
		keys := make([]string, 0, len(chart.Lines))
		for _, l := range chart.Lines {
			keys = append(keys, l.Key)
		}
		s.Define(keys...)
	}

	n := 0
	for _, l := range chart.Lines {
		if _, ok := s.lines[l.Key]; !ok {
			s.ignored[l.Key] = struct{}{}
			continue
		}
		if s.Append(l.Key, ts, l.Value) {
			n++
		}
	}
	return n
}

// Ignored returns the keys that arrived after the set was fixed.
func (s *Store) Ignored() []string {
	out := make([]string, 0, len(s.ignored))
	for k := range s.ignored {
		out = append(out, k)
	}
	return out
}

// Append adds a sample to line key. Unknown keys and out-of-order
// timestamps are rejected.
func (s *Store) Append(key string, ts int64, v float64) bool {
	line, ok := s.lines[key]
	if !ok {
		return false
	}
	return line.Append(ts, v)
}

// Series returns the line for key, or nil.
func (s *Store) Series(key string) *Series {
	return s.lines[key]
}

// Max is the largest value retained across all lines.
func (s *Store) Max() float64 {
	var max float64
	for _, k := range s.keys {
		if line := s.lines[k]; line.Len() > 0 {
			if m := line.Max(); m > max {
				max = m
			}
		}
	}
	return max
}

// Scale is the upper axis bound: the nice ceiling of Max, never below
// MinScale. It follows the window, so it shrinks only once the peak that
// justified it has been evicted.
func (s *Store) Scale() float64 {
	bound := NiceCeiling(s.Max())
	if bound < s.opts.MinScale {
		return s.opts.MinScale
	}
	return bound
}

// Latest returns the newest value of line key.
func (s *Store) Latest(key string) (float64, bool) {
	line, ok := s.lines[key]
	if !ok {
		return 0, false
	}
	smp, ok := line.Latest()
	return smp.Value, ok
}

// Metric is one entry of the display list under a chart.
type Metric struct {
	Name string
	Data string
}

// Metrics lists the latest value of every line, suffixed with units.
// Lines without samples are omitted.
func (s *Store) Metrics(units string) []Metric {
	var out []Metric
	for _, k := range s.keys {
		v, ok := s.Latest(k)
		if !ok {
			continue
		}
		out = append(out, Metric{Name: k, Data: FormatValue(v) + units})
	}
	return out
}

// FormatValue renders a number with at most two decimals.
func FormatValue(v float64) string {
	return humanize.FtoaWithDigits(v, 2)
}

// Line is a renderer copy of one series.
type Line struct {
	Key    string
	Values []float64
	Latest float64
}

// Snapshot is a copy of the store taken on the event loop.
type Snapshot struct {
	Lines []Line
	Scale float64
	Max   float64
}

// Snapshot copies up to the last points values of each line.
func (s *Store) Snapshot(points int) Snapshot {
	snap := Snapshot{Scale: s.Scale(), Max: s.Max()}
	for _, k := range s.keys {
		line := s.lines[k]
		l := Line{Key: k, Values: line.Values(points)}
		if smp, ok := line.Latest(); ok {
			l.Latest = smp.Value
		}
		snap.Lines = append(snap.Lines, l)
	}
	return snap
}

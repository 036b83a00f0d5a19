package widget

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/rileyhilliard/ldash/internal/series"
)

// LineKey is the single line of a line chart.
const LineKey = "value"

// exprTimeout bounds one jq evaluation.
const exprTimeout = 100 * time.Millisecond

type compiledMetric struct {
	name string
	expr *Expr
}

// Instance is a mounted widget. It consumes payloads from its stream and
// keeps what the renderer shows. Only the event loop touches it.
type Instance struct {
	spec    Spec
	value   *Expr
	metrics []compiledMetric
	store   *series.Store

	level      series.Level
	lineMetric []series.Metric

	table   payload.Table
	sortCol int
	reverse bool
	filter  string

	pairs []payload.Pair

	err error
}

// NewInstance compiles spec. Chart kinds get a store configured from opts;
// the widget's MinScale overrides opts.MinScale.
func NewInstance(spec Spec, opts series.Options) (*Instance, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	value, err := Compile(spec.Value)
	if err != nil {
		return nil, err
	}
	w := &Instance{spec: spec, value: value, sortCol: -1}

	for _, m := range spec.Metrics {
		e, err := Compile(m.Expr)
		if err != nil {
			return nil, err
		}
		if e != nil {
			w.metrics = append(w.metrics, compiledMetric{name: m.Name, expr: e})
		}
	}

	if spec.Kind.Chart() {
		if spec.MinScale > 0 {
			opts.MinScale = spec.MinScale
		}
		w.store = series.NewStore(opts)
		if spec.Kind == KindLine {
			w.store.Define(LineKey)
		}
	}
	return w, nil
}

// Spec returns the widget declaration.
func (w *Instance) Spec() Spec {
	return w.spec
}

// Store is the series store of a chart widget, nil otherwise.
func (w *Instance) Store() *series.Store {
	return w.store
}

// Consume reads p according to the widget kind.
func (w *Instance) Consume(ts int64, p payload.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), exprTimeout)
	defer cancel()

	raw := p.Interface()
	if w.value != nil {
		out, err := w.value.Eval(ctx, raw)
		if err != nil {
			w.err = err
			return
		}
		if p, err = fromValue(out); err != nil {
			w.err = err
			return
		}
	}
	w.err = nil

	switch w.spec.Kind {
	case KindLine:
		w.consumeLine(ctx, ts, p, raw)
	case KindMultiLine:
		w.store.Observe(ts, p.Chart())
	case KindTable:
		w.table = p.Table()
		if w.sortCol >= len(w.table.Headers) {
			w.sortCol = -1
		}
	case KindKeyValue:
		w.pairs = p.KeyValue()
	}
}

// consumeLine appends the chart value and evaluates the metric list
// against the untransformed payload.
func (w *Instance) consumeLine(ctx context.Context, ts int64, p payload.Payload, raw interface{}) {
	chart := p.Chart()
	v, ok := chart.Get(payload.ScalarColumn)
	if !ok && len(chart.Lines) > 0 {
		v, ok = chart.Lines[0].Value, true
	}
	if !ok {
		w.err = errors.New(errors.ErrPayload,
			"Line chart value is not a number: "+p.Raw(),
			"Set value to a jq expression producing a number")
		return
	}

	w.store.Append(LineKey, ts, v)
	w.level = series.LevelFor(v, w.spec.Max)
	w.lineMetric = w.lineMetric[:0]
	for _, m := range w.metrics {
		text, err := m.expr.Text(ctx, raw)
		if err != nil {
			text = "?"
		}
		w.lineMetric = append(w.lineMetric, series.Metric{Name: m.name, Data: text})
	}
}

// SortBy sorts the table by col. Sorting by the current column again
// flips the direction.
func (w *Instance) SortBy(col int) {
	if col == w.sortCol {
		w.reverse = !w.reverse
		return
	}
	w.sortCol = col
	w.reverse = false
}

// NextSortColumn moves the sort to the following column, wrapping around.
func (w *Instance) NextSortColumn() {
	n := len(w.table.Headers)
	if n == 0 {
		return
	}
	w.sortCol = (w.sortCol + 1) % n
	w.reverse = false
}

// ToggleReverse flips the sort direction.
func (w *Instance) ToggleReverse() {
	w.reverse = !w.reverse
}

// Filter keeps the rows containing keyword.
func (w *Instance) Filter(keyword string) {
	w.filter = keyword
}

// View is a renderer copy of a widget.
type View struct {
	Name    string
	Heading string
	Info    string
	Module  string
	Kind    Kind
	Units   string
	Min     float64
	Max     float64

	Series  series.Snapshot
	Level   series.Level
	Metrics []series.Metric

	Table   payload.Table
	Rows    int // rows before filtering
	SortCol int
	Reverse bool
	Filter  string

	Pairs []payload.Pair

	Err error
}

// View copies the widget state, keeping up to points samples per line.
func (w *Instance) View(points int) View {
	v := View{
		Name:    w.spec.Name,
		Heading: w.spec.Title(),
		Info:    w.spec.Info,
		Module:  w.spec.Module,
		Kind:    w.spec.Kind,
		Units:   w.spec.Units,
		Min:     w.spec.Min,
		Max:     w.spec.Max,
		Level:   w.level,
		SortCol: w.sortCol,
		Reverse: w.reverse,
		Filter:  w.filter,
		Err:     w.err,
	}

	switch w.spec.Kind {
	case KindLine:
		v.Series = w.store.Snapshot(points)
		v.Metrics = append([]series.Metric(nil), w.lineMetric...)
	case KindMultiLine:
		v.Series = w.store.Snapshot(points)
		units := w.spec.Units
		if units != "" {
			units = " " + units
		}
		v.Metrics = w.store.Metrics(units)
	case KindTable:
		t := w.table
		v.Rows = t.Len()
		if w.sortCol >= 0 {
			t = t.SortBy(w.sortCol, w.reverse)
		}
		v.Table = t.Filter(w.filter)
	case KindKeyValue:
		v.Pairs = append([]payload.Pair(nil), w.pairs...)
	}
	return v
}

// fromValue turns a jq result back into a Payload.
func fromValue(v interface{}) (payload.Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return payload.Payload{}, errors.WrapWithCode(err, errors.ErrPayload,
			"Cannot encode jq result", "")
	}
	return payload.Parse(data)
}

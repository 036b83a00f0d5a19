package payload

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ScalarColumn names the single column of a table built from an array of
// scalars.
const ScalarColumn = "value"

// Table is a uniform-record collection. Headers come from the first row in
// response order; later rows missing a header get an empty cell.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Table reads the payload as a list of records.
//
// An array of objects is the normal shape. An array of scalars becomes a
// one-column table and a lone object becomes a single row.
func (p Payload) Table() Table {
	switch {
	case p.res.IsArray():
		items := p.res.Array()
		if len(items) == 0 {
			return Table{}
		}
		if !items[0].IsObject() {
			t := Table{Headers: []string{ScalarColumn}}
			for _, it := range items {
				t.Rows = append(t.Rows, []string{it.String()})
			}
			return t
		}
		t := Table{Headers: objectKeys(items[0])}
		for _, it := range items {
			t.Rows = append(t.Rows, rowFor(t.Headers, it))
		}
		return t
	case p.res.IsObject():
		headers := objectKeys(p.res)
		if len(headers) == 0 {
			return Table{}
		}
		return Table{Headers: headers, Rows: [][]string{rowFor(headers, p.res)}}
	}
	return Table{}
}

// Len is the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of header name, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// SortBy returns a copy ordered by column col. Cells that both parse as
// numbers compare numerically, anything else compares case-insensitively.
// The sort is stable so equal rows keep response order.
func (t Table) SortBy(col int, reverse bool) Table {
	out := t.clone()
	if col < 0 || col >= len(t.Headers) {
		return out
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		c := compareCells(out.Rows[i][col], out.Rows[j][col])
		if reverse {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Filter returns the rows where any cell contains keyword, ignoring case.
// An empty keyword keeps every row.
func (t Table) Filter(keyword string) Table {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return t.clone()
	}
	out := Table{Headers: append([]string(nil), t.Headers...)}
	for _, row := range t.Rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), keyword) {
				out.Rows = append(out.Rows, append([]string(nil), row...))
				break
			}
		}
	}
	return out
}

func (t Table) clone() Table {
	out := Table{Headers: append([]string(nil), t.Headers...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}

func compareCells(a, b string) int {
	fa, aok := Number(gjson.Result{Type: gjson.String, Str: a})
	fb, bok := Number(gjson.Result{Type: gjson.String, Str: b})
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Line is one key of a chart payload.
type Line struct {
	Key   string
	Value float64
}

// Chart is a flat key to number mapping in response order.
type Chart struct {
	Lines []Line
}

// Chart reads the payload as key to number pairs. Non-numeric values are
// skipped. A bare number becomes a single line keyed ScalarColumn.
func (p Payload) Chart() Chart {
	var c Chart
	switch {
	case p.res.IsObject():
		p.res.ForEach(func(k, v gjson.Result) bool {
			if f, ok := Number(v); ok {
				c.Lines = append(c.Lines, Line{Key: k.String(), Value: f})
			}
			return true
		})
	case p.res.Type == gjson.Number, p.res.Type == gjson.String:
		if f, ok := Number(p.res); ok {
			c.Lines = append(c.Lines, Line{Key: ScalarColumn, Value: f})
		}
	}
	return c
}

// Get returns the value of key.
func (c Chart) Get(key string) (float64, bool) {
	for _, l := range c.Lines {
		if l.Key == key {
			return l.Value, true
		}
	}
	return 0, false
}

// Pair is one entry of a key-value payload.
type Pair struct {
	Key   string
	Value string
}

// KeyValue reads an object payload as ordered pairs. Nested values are
// kept as their JSON text.
func (p Payload) KeyValue() []Pair {
	var pairs []Pair
	switch {
	case p.res.IsObject():
		p.res.ForEach(func(k, v gjson.Result) bool {
			pairs = append(pairs, Pair{Key: k.String(), Value: cellText(v)})
			return true
		})
	case p.res.IsArray():
		// Single record arrays are common: [{"os": "..."}].
		items := p.res.Array()
		if len(items) == 1 && items[0].IsObject() {
			return FromResult(items[0]).KeyValue()
		}
		for i, v := range items {
			pairs = append(pairs, Pair{Key: strconv.Itoa(i), Value: cellText(v)})
		}
	}
	return pairs
}

func objectKeys(obj gjson.Result) []string {
	var keys []string
	obj.ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	return keys
}

func rowFor(headers []string, obj gjson.Result) []string {
	cells := make(map[string]string, len(headers))
	if obj.IsObject() {
		obj.ForEach(func(k, v gjson.Result) bool {
			cells[k.String()] = cellText(v)
			return true
		})
	}
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = cells[h]
	}
	return row
}

func cellText(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.JSON:
		return v.Raw
	}
	return v.String()
}

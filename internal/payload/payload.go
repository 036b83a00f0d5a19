// Package payload holds the normalized domain value produced by both
// transports. A push frame's decoded output and an HTTP response body both
// become a Payload before any consumer sees them.
//
// Consumers read a Payload through the view that matches their declared
// widget kind (Table, Chart or KeyValue) instead of inspecting its shape.
package payload

import (
	"strconv"
	"strings"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/tidwall/gjson"
)

// Payload wraps a parsed JSON document.
type Payload struct {
	res gjson.Result
}

// Parse validates data and wraps it. Invalid JSON yields a PAYLOAD error.
func Parse(data []byte) (Payload, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Payload{}, nil
	}
	if !gjson.Valid(trimmed) {
		return Payload{}, errors.New(errors.ErrPayload,
			"Agent returned invalid JSON: "+preview(trimmed),
			"Check that the module script prints JSON")
	}
	return Payload{res: gjson.Parse(trimmed)}, nil
}

// MustParse is Parse for literals in tests and default data. It panics on
// invalid input.
func MustParse(s string) Payload {
	p, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return p
}

// FromResult wraps an already parsed gjson value.
func FromResult(r gjson.Result) Payload {
	return Payload{res: r}
}

// Result exposes the underlying gjson value.
func (p Payload) Result() gjson.Result {
	return p.res
}

// Raw returns the JSON text of the payload.
func (p Payload) Raw() string {
	return p.res.Raw
}

// Interface returns the payload as plain Go values
// (map[string]interface{}, []interface{}, float64, string, bool, nil).
func (p Payload) Interface() interface{} {
	if !p.res.Exists() {
		return nil
	}
	return p.res.Value()
}

// Len is the number of elements of an array or object payload, 1 for a
// scalar and 0 for a missing or null one.
func (p Payload) Len() int {
	switch {
	case !p.res.Exists(), p.res.Type == gjson.Null:
		return 0
	case p.res.IsArray():
		return len(p.res.Array())
	case p.res.IsObject():
		n := 0
		p.res.ForEach(func(_, _ gjson.Result) bool {
			n++
			return true
		})
		return n
	default:
		return 1
	}
}

// Empty reports whether the payload carries no data: missing, null, an
// empty string or a zero-length collection.
func (p Payload) Empty() bool {
	if p.res.Type == gjson.String {
		return p.res.Str == ""
	}
	return p.Len() == 0
}

// Number converts a JSON value to float64. Numeric strings such as "12.5"
// or "42%" are accepted since many module scripts print numbers as text.
func Number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(r.Str), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case gjson.True:
		return 1, true
	case gjson.False:
		return 0, true
	}
	return 0, false
}

// preview shortens s to its first 40 runes for error messages.
func preview(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

package payload

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		empty   bool
	}{
		{name: "object", input: `{"a": 1}`},
		{name: "array", input: `[{"a": 1}]`},
		{name: "number", input: `42`},
		{name: "empty array", input: `[]`, empty: true},
		{name: "empty object", input: `{}`, empty: true},
		{name: "null", input: `null`, empty: true},
		{name: "empty string literal", input: `""`, empty: true},
		{name: "blank body", input: "  \n", empty: true},
		{name: "invalid", input: `{"a":`, wantErr: true},
		{name: "html error page", input: `<html>502</html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrPayload))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.empty, p.Empty())
		})
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "short", input: `{"a":`, want: `{"a":`},
		{name: "exactly forty", input: strings.Repeat("x", 40), want: strings.Repeat("x", 40)},
		{name: "ascii cut", input: strings.Repeat("x", 45), want: strings.Repeat("x", 40) + "..."},
		{name: "multi-byte cut", input: strings.Repeat("é", 45), want: strings.Repeat("é", 40) + "..."},
		{name: "forty runes wider than forty bytes", input: strings.Repeat("温", 40), want: strings.Repeat("温", 40)},
		{name: "rune straddles byte forty", input: strings.Repeat("x", 39) + "温度センサー", want: strings.Repeat("x", 39) + "温..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preview(tt.input)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestParse_InvalidMultiByteBodyKeepsValidMessage(t *testing.T) {
	_, err := Parse([]byte("<html>" + strings.Repeat("错误", 30) + "</html>"))
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.Contains(t, err.Error(), "...")
}

func TestPayload_LenAndInterface(t *testing.T) {
	assert.Equal(t, 0, Payload{}.Len())
	assert.Nil(t, Payload{}.Interface())

	p := MustParse(`{"a": 1, "b": [1, 2]}`)
	assert.Equal(t, 2, p.Len())
	v, ok := p.Interface().(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), v["a"])

	assert.Equal(t, 3, MustParse(`[1,2,3]`).Len())
	assert.Equal(t, 1, MustParse(`7`).Len())
}

func TestNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`12.5`, 12.5, true},
		{`"12.5"`, 12.5, true},
		{`" 42% "`, 42, true},
		{`true`, 1, true},
		{`"abc"`, 0, false},
		{`null`, 0, false},
		{`{"a":1}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Number(gjson.Parse(tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable(t *testing.T) {
	p := MustParse(`[
		{"pid": "120", "user": "root", "cmd": "sshd"},
		{"pid": "9", "cmd": "init", "user": "root"},
		{"pid": "45", "user": "www"}
	]`)

	tbl := p.Table()
	assert.Equal(t, []string{"pid", "user", "cmd"}, tbl.Headers)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"9", "root", "init"}, tbl.Rows[1], "cells follow header order, not row key order")
	assert.Equal(t, []string{"45", "www", ""}, tbl.Rows[2])
	assert.Equal(t, 2, tbl.Column("cmd"))
	assert.Equal(t, -1, tbl.Column("missing"))
}

func TestTable_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		headers []string
		rows    int
	}{
		{"empty array", `[]`, nil, 0},
		{"scalars", `["10.0.0.1", "10.0.0.2"]`, []string{ScalarColumn}, 2},
		{"single object", `{"os": "linux", "uptime": "3 days"}`, []string{"os", "uptime"}, 1},
		{"number", `5`, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := MustParse(tt.input).Table()
			assert.Equal(t, tt.headers, tbl.Headers)
			assert.Equal(t, tt.rows, tbl.Len())
		})
	}
}

func TestTable_SortBy(t *testing.T) {
	tbl := MustParse(`[
		{"name": "b", "mem": "10"},
		{"name": "A", "mem": "9"},
		{"name": "c", "mem": "100"}
	]`).Table()

	byMem := tbl.SortBy(1, false)
	assert.Equal(t, "9", byMem.Rows[0][1], "numeric cells sort numerically")
	assert.Equal(t, "100", byMem.Rows[2][1])

	byMemDesc := tbl.SortBy(1, true)
	assert.Equal(t, "100", byMemDesc.Rows[0][1])

	byName := tbl.SortBy(0, false)
	assert.Equal(t, []string{"A", "b", "c"}, []string{byName.Rows[0][0], byName.Rows[1][0], byName.Rows[2][0]})

	// The receiver is untouched.
	assert.Equal(t, "b", tbl.Rows[0][0])

	// Out of range column is a copy in response order.
	same := tbl.SortBy(7, false)
	assert.Equal(t, tbl.Rows, same.Rows)
}

func TestTable_Filter(t *testing.T) {
	tbl := MustParse(`[
		{"user": "root", "cmd": "sshd"},
		{"user": "www", "cmd": "nginx"},
		{"user": "Root", "cmd": "cron"}
	]`).Table()

	tests := []struct {
		keyword string
		want    int
	}{
		{"", 3},
		{"root", 2},
		{"NGINX", 1},
		{"zzz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			got := tbl.Filter(tt.keyword)
			assert.Equal(t, tt.want, got.Len())
			assert.Equal(t, tbl.Headers, got.Headers)
		})
	}
}

func TestChart(t *testing.T) {
	c := MustParse(`{"core0": 10, "core1": "20.5", "label": "x", "core2": 0}`).Chart()

	require.Len(t, c.Lines, 3)
	assert.Equal(t, Line{Key: "core0", Value: 10}, c.Lines[0])
	assert.Equal(t, Line{Key: "core1", Value: 20.5}, c.Lines[1])
	assert.Equal(t, Line{Key: "core2", Value: 0}, c.Lines[2])

	v, ok := c.Get("core1")
	assert.True(t, ok)
	assert.Equal(t, 20.5, v)
	_, ok = c.Get("label")
	assert.False(t, ok)

	scalar := MustParse(`33`).Chart()
	require.Len(t, scalar.Lines, 1)
	assert.Equal(t, ScalarColumn, scalar.Lines[0].Key)

	assert.Empty(t, MustParse(`[1,2]`).Chart().Lines)
}

func TestKeyValue(t *testing.T) {
	pairs := MustParse(`{"OS": "Ubuntu", "Uptime": 12, "Tags": ["a"], "Nothing": null}`).KeyValue()
	assert.Equal(t, []Pair{
		{Key: "OS", Value: "Ubuntu"},
		{Key: "Uptime", Value: "12"},
		{Key: "Tags", Value: `["a"]`},
		{Key: "Nothing", Value: ""},
	}, pairs)

	single := MustParse(`[{"Model": "Xeon"}]`).KeyValue()
	assert.Equal(t, []Pair{{Key: "Model", Value: "Xeon"}}, single)

	list := MustParse(`["x", "y"]`).KeyValue()
	assert.Equal(t, []Pair{{Key: "0", Value: "x"}, {Key: "1", Value: "y"}}, list)
}

package widget

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/rileyhilliard/ldash/internal/errors"
)

// Expr is a compiled jq expression evaluated against each payload.
type Expr struct {
	src  string
	code *gojq.Code
}

// Compile parses and compiles a jq expression. An empty source yields nil.
func Compile(src string) (*Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	q, err := gojq.Parse(src)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid jq expression %q", src),
			"Check the expression syntax, e.g. .used / .total * 100")
	}
	code, err := gojq.Compile(q)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Cannot compile jq expression %q", src), "")
	}
	return &Expr{src: src, code: code}, nil
}

// String returns the expression source.
func (e *Expr) String() string {
	return e.src
}

// Eval returns the first output of the expression for input v.
func (e *Expr) Eval(ctx context.Context, v interface{}) (interface{}, error) {
	iter := e.code.RunWithContext(ctx, v)
	out, ok := iter.Next()
	if !ok {
		return nil, errors.New(errors.ErrPayload,
			fmt.Sprintf("jq expression %q produced no output", e.src), "")
	}
	if err, isErr := out.(error); isErr {
		return nil, errors.WrapWithCode(err, errors.ErrPayload,
			fmt.Sprintf("jq expression %q failed", e.src), "")
	}
	return out, nil
}

// Number evaluates the expression and converts the result to float64.
func (e *Expr) Number(ctx context.Context, v interface{}) (float64, error) {
	out, err := e.Eval(ctx, v)
	if err != nil {
		return 0, err
	}
	if f, ok := toFloat(out); ok {
		return f, nil
	}
	return 0, errors.New(errors.ErrPayload,
		fmt.Sprintf("jq expression %q returned %T, want a number", e.src, out), "")
}

// Text evaluates the expression and formats the result for display.
func (e *Expr) Text(ctx context.Context, v interface{}) (string, error) {
	out, err := e.Eval(ctx, v)
	if err != nil {
		return "", err
	}
	switch x := out.(type) {
	case string:
		return x, nil
	case nil:
		return "", nil
	}
	if f, ok := toFloat(out); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return fmt.Sprint(out), nil
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

package transport

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/tidwall/gjson"
)

// DecodeFrame unwraps a push response frame {"moduleName": ..., "output": ...}.
//
// The output field is normally a JSON document encoded as a string and is
// decoded a second time. Agents that embed the document directly are
// accepted too, so both transports end up with the same Payload.
func DecodeFrame(data []byte) (Response, error) {
	if !gjson.ValidBytes(data) {
		return Response{}, errors.New(errors.ErrPayload,
			"Push frame is not valid JSON", "")
	}
	env := gjson.ParseBytes(data)
	name := env.Get("moduleName")
	if name.Type != gjson.String || name.Str == "" {
		return Response{}, errors.New(errors.ErrPayload,
			"Push frame has no moduleName", "")
	}

	resp := Response{Module: name.Str}
	out := env.Get("output")
	switch out.Type {
	case gjson.String:
		p, err := payload.Parse([]byte(out.Str))
		if err != nil {
			resp.Err = err
			return resp, nil
		}
		resp.Payload = p
	default:
		resp.Payload = payload.FromResult(out)
	}
	return resp, nil
}

// Frame is the push response envelope.
type Frame struct {
	ModuleName string `json:"moduleName"`
	Output     string `json:"output"`
}

// EncodeFrame builds the frame DecodeFrame expects, with output carried as
// a JSON string. The demo agent uses it.
func EncodeFrame(module string, output []byte) ([]byte, error) {
	return json.Marshal(Frame{ModuleName: module, Output: string(output)})
}

// ProbeSupported reads the capability flag from a probe body. Anything other
// than a truthy websocket_support counts as declined.
func ProbeSupported(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	flag := gjson.GetBytes(body, SupportField)
	switch flag.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return flag.Num != 0
	case gjson.String:
		s := strings.ToLower(strings.TrimSpace(flag.Str))
		return s == "true" || s == "1" || s == "yes"
	}
	return false
}

func parseBase(base string) (*url.URL, error) {
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		if err == nil {
			err = errors.New(errors.ErrConfig, "missing host", "")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid agent URL "+base,
			"Use a URL like http://localhost:80")
	}
	return u, nil
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]int{"count": 3}))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]interface{}{"count": float64(3)}, env.Data)
}

func TestWriteJSONFromError_WrappedStructured(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("fetch: %w", errors.New(errors.ErrAgent, "Agent returned status 404", "Run 'ldash fetch --list'"))
	require.NoError(t, WriteJSONFromError(&buf, err))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeAgentError, env.Error.Code)
	assert.Equal(t, "Run 'ldash fetch --list'", env.Error.Suggestion)
	assert.NotContains(t, buf.String(), `"data"`)
}

func TestErrorToJSON(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "config not found", err: errors.New(errors.ErrConfig, "Specified config file not found: x", ""), want: ErrCodeConfigNotFound},
		{name: "config invalid", err: errors.New(errors.ErrConfig, "Unknown transport", ""), want: ErrCodeConfigInvalid},
		{name: "transport", err: errors.WrapWithCode(stderrors.New("connection refused"), errors.ErrTransport, "Request for cpu failed", ""), want: ErrCodeAgentUnreachable},
		{name: "transport timeout", err: errors.WrapWithCode(context.DeadlineExceeded, errors.ErrTransport, "Request for cpu failed", ""), want: ErrCodeAgentTimeout},
		{name: "transport timed out message", err: errors.New(errors.ErrTransport, "Push handshake timed out", ""), want: ErrCodeAgentTimeout},
		{name: "probe", err: errors.New(errors.ErrProbe, "Capability probe failed", ""), want: ErrCodeProbeFailed},
		{name: "payload", err: errors.New(errors.ErrPayload, "Agent returned invalid JSON", ""), want: ErrCodeBadPayload},
		{name: "agent", err: errors.New(errors.ErrAgent, "Agent returned status 500", ""), want: ErrCodeAgentError},
		{name: "ssh", err: errors.New(errors.ErrSSH, "SSH handshake failed", ""), want: ErrCodeSSHFailed},
		{name: "ssh host key", err: errors.New(errors.ErrSSH, "SSH host key mismatch", ""), want: ErrCodeSSHHostKey},
		{name: "plain", err: stderrors.New("boom"), want: ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorToJSON(tt.err).Code)
		})
	}
	assert.Nil(t, ErrorToJSON(nil))
}

func TestErrorToJSON_Cause(t *testing.T) {
	j := ErrorToJSON(errors.WrapWithCode(stderrors.New("dial tcp: refused"), errors.ErrTransport, "Request failed", "Start the agent"))
	assert.Equal(t, "Request failed", j.Message)
	assert.Equal(t, "Start the agent", j.Suggestion)
	assert.Equal(t, map[string]interface{}{"cause": "dial tcp: refused"}, j.Details)
}

func TestWriteJSONFromError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONFromError(&buf, errors.New(errors.ErrProbe, "nope", "")))
	assert.Contains(t, buf.String(), `"code": "PROBE_FAILED"`)
	assert.Contains(t, buf.String(), `"success": false`)
}

package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/ldash/internal/errors"
)

// machineMode is --json: one envelope on stdout, no spinners or colour.
var machineMode bool

func MachineMode() bool {
	return machineMode
}

// JSONEnvelope is the only shape written to stdout in machine mode.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Stable codes for scripts. They are finer grained than errors.Code.
const (
	ErrCodeConfigNotFound   = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeAgentUnreachable = "AGENT_UNREACHABLE"
	ErrCodeAgentTimeout     = "AGENT_TIMEOUT"
	ErrCodeProbeFailed      = "PROBE_FAILED"
	ErrCodeBadPayload       = "BAD_PAYLOAD"
	ErrCodeAgentError       = "AGENT_ERROR"
	ErrCodeSSHFailed        = "SSH_CONNECTION_FAILED"
	ErrCodeSSHHostKey       = "SSH_HOST_KEY"
	ErrCodeUnknown          = "UNKNOWN"
)

func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return encodeEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

func WriteJSONFromError(w io.Writer, err error) error {
	return encodeEnvelope(w, JSONEnvelope{Error: ErrorToJSON(err)})
}

func encodeEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON flattens err. Structured errors anywhere in the chain keep
// their suggestion, and their cause goes to details.cause.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
	}
	j := &JSONError{Code: mapErrorCode(e), Message: e.Message, Suggestion: e.Suggestion}
	if e.Cause != nil {
		j.Details = map[string]interface{}{"cause": e.Cause.Error()}
	}
	return j
}

// machineCodes is the default machine code per error code. mapErrorCode
// refines CONFIG, TRANSPORT and SSH.
var machineCodes = map[errors.Code]string{
	errors.ErrConfig:    ErrCodeConfigInvalid,
	errors.ErrTransport: ErrCodeAgentUnreachable,
	errors.ErrProbe:     ErrCodeProbeFailed,
	errors.ErrPayload:   ErrCodeBadPayload,
	errors.ErrAgent:     ErrCodeAgentError,
	errors.ErrSSH:       ErrCodeSSHFailed,
}

func mapErrorCode(e *errors.Error) string {
	msg := strings.ToLower(e.Message)
	switch {
	case e.Code == errors.ErrConfig && (strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find")):
		return ErrCodeConfigNotFound
	case e.Code == errors.ErrTransport && (errors.IsTimeout(e) || strings.Contains(msg, "timed out")):
		return ErrCodeAgentTimeout
	case e.Code == errors.ErrSSH && strings.Contains(msg, "host key"):
		return ErrCodeSSHHostKey
	}
	if code, ok := machineCodes[e.Code]; ok {
		return code
	}
	return ErrCodeUnknown
}

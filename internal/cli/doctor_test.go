package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rileyhilliard/ldash/internal/doctor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeDoctor(t *testing.T, buf *bytes.Buffer) DoctorOutput {
	t.Helper()
	var env struct {
		Success bool         `json:"success"`
		Data    DoctorOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	require.True(t, env.Success)
	return env.Data
}

func categoryNames(out DoctorOutput) []string {
	var names []string
	for _, c := range out.Categories {
		names = append(names, c.Name)
	}
	return names
}

func TestDoctorCommand_AllClear(t *testing.T) {
	withConfig(t, agentConfig(t, startAgent(t, true)))
	withJSON(t)

	var buf bytes.Buffer
	require.NoError(t, doctorCommand(&buf, DoctorFlags{}))
	out := decodeDoctor(t, &buf)

	assert.Equal(t, []string{"CONFIG", "STATE", "SSH", "AGENT", "TRANSPORT"}, categoryNames(out))
	assert.True(t, out.Summary.AllClear, "%+v", out)
	assert.Equal(t, 7, out.Summary.Pass)
}

func TestDoctorCommand_AgentWithoutPush(t *testing.T) {
	withConfig(t, agentConfig(t, startAgent(t, false)))
	withJSON(t)

	var buf bytes.Buffer
	require.NoError(t, doctorCommand(&buf, DoctorFlags{}))
	out := decodeDoctor(t, &buf)

	assert.False(t, out.Summary.AllClear)
	assert.Equal(t, 2, out.Summary.Warn)
	assert.Zero(t, out.Summary.Fail)
}

func TestDoctorCommand_Unreachable(t *testing.T) {
	withConfig(t, agentConfig(t, "http://127.0.0.1:1"))
	withJSON(t)

	var buf bytes.Buffer
	require.NoError(t, doctorCommand(&buf, DoctorFlags{AgentFlags: AgentFlags{Transport: "http"}}))
	out := decodeDoctor(t, &buf)

	assert.Equal(t, 1, out.Summary.Fail)
	for _, c := range out.Categories {
		if c.Name == "AGENT" {
			require.Len(t, c.Results, 1)
			assert.Equal(t, doctor.StatusFail, c.Results[0].Status)
		}
	}
}

func TestDoctorCommand_Text(t *testing.T) {
	withConfig(t, agentConfig(t, startAgent(t, false)))

	var buf bytes.Buffer
	require.NoError(t, doctorCommand(&buf, DoctorFlags{}))
	out := buf.String()

	assert.Contains(t, out, "ldash Diagnostic Report")
	assert.Contains(t, out, "TRANSPORT")
	assert.Contains(t, out, "Agent does not support push")
	assert.Contains(t, out, "2 issues found")
}

func TestGroupByCategory(t *testing.T) {
	results := []doctor.CheckResult{
		{Name: "a", Category: "TRANSPORT"},
		{Name: "b", Category: "EXTRA"},
		{Name: "c", Category: "CONFIG"},
		{Name: "d", Category: "CONFIG"},
	}

	groups := groupByCategory(results)
	require.Len(t, groups, 3)
	assert.Equal(t, "CONFIG", groups[0].Name)
	assert.Len(t, groups[0].Results, 2)
	assert.Equal(t, "TRANSPORT", groups[1].Name)
	assert.Equal(t, "EXTRA", groups[2].Name)
}

package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/ldash/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	DisableColors()
	m.Run()
}

func TestColorsDisabled(t *testing.T) {
	assert.False(t, ColorsEnabled())
}

func TestRenderHeader(t *testing.T) {
	out := RenderHeader(HeaderInfo{Version: "v1.2.0", Tagline: "live dashboard", Target: "http://box:8080"})
	assert.Contains(t, out, "ldash v1.2.0")
	assert.Contains(t, out, "live dashboard")
	assert.Contains(t, out, "http://box:8080")
	assert.Contains(t, out, strings.Repeat("━", HeaderWidth))
}

func TestSpinner_NotAnimated(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Probing agent", false)
	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())
	assert.Empty(t, buf.String())

	s.Success()
	assert.Equal(t, SpinnerSuccess, s.State())
	assert.True(t, strings.HasPrefix(buf.String(), SymbolComplete+" Probing agent "))
}

func TestSpinner_Animated(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Fetching", true)
	s.Start()
	s.Start()
	s.Fail()

	assert.Equal(t, SpinnerFailed, s.State())
	assert.Contains(t, buf.String(), "Fetching...")
	assert.Contains(t, buf.String(), SymbolFail+" Fetching ")
}

func TestRenderSimpleTable(t *testing.T) {
	out := RenderSimpleTable([]string{"pid", "user"}, [][]string{{"1", "root"}, {"42", "www-data"}})
	assert.Contains(t, out, "pid")
	assert.Contains(t, out, "www-data")

	assert.Empty(t, RenderSimpleTable(nil, nil))
}

func TestRenderPairs(t *testing.T) {
	out := RenderPairs([]string{"OS", "Uptime"}, []string{"Linux", "3 days"})
	assert.Equal(t, "OS      Linux\nUptime  3 days\n", out)
}

func TestSSHHostPicker(t *testing.T) {
	hosts := []sshutil.Host{{Alias: "web", Hostname: "10.0.0.5"}, {Alias: "db"}}

	tests := []struct {
		name  string
		key   tea.KeyMsg
		want  PickResult
		alias string
	}{
		{name: "enter selects", key: tea.KeyMsg{Type: tea.KeyEnter}, want: PickSelected, alias: "web"},
		{name: "d means direct", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")}, want: PickDirect},
		{name: "esc cancels", key: tea.KeyMsg{Type: tea.KeyEsc}, want: PickCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSSHHostPickerModel(hosts)
			next, cmd := m.Update(tt.key)
			require.NotNil(t, cmd)

			res, host := next.(SSHHostPickerModel).Result()
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.alias, host.Alias)
			assert.Empty(t, next.View())
		})
	}
}

func TestPickSSHHost_NoHosts(t *testing.T) {
	res, _, err := PickSSHHost(nil, &bytes.Buffer{}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, PickDirect, res)
}

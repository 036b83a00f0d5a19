package cli

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/ldash/internal/agent"
	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/logger"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// withConfig writes content to a temp config file and points --config at it.
func withConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	old := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = old })
	return path
}

// agentConfig is a minimal valid config for the agent at url.
func agentConfig(t *testing.T, url string) string {
	return fmt.Sprintf("version: 1\nagent:\n  url: %s\n  timeout: 2s\n  probe_timeout: 1s\n  handshake_timeout: 1s\nstate_file: %s\n",
		url, filepath.Join(t.TempDir(), "state.yaml"))
}

func withJSON(t *testing.T) {
	t.Helper()
	machineMode = true
	t.Cleanup(func() { machineMode = false })
}

// startAgent serves a small fixed registry.
func startAgent(t *testing.T, websocket bool) string {
	t.Helper()
	reg := agent.NewRegistry()
	reg.Register("general_info", agent.Static(map[string]string{"OS": "Linux", "Hostname": "box"}))
	reg.Register("ram_intensive_processes", agent.Raw(`[{"pid":1,"user":"root","mem%":"1.2"},{"pid":42,"user":"www","mem%":"0.4"}]`))
	reg.Register("current_ram", agent.Raw(`{"total":100,"used":40,"available":60}`))
	reg.Register("empty", agent.Raw(`[]`))

	srv := httptest.NewServer(agent.NewServer(reg, agent.Options{WebSocket: websocket, Log: logger.Noop()}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

package doctor

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/ldash/internal/agent"
	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFileCheck(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("explicit path missing", func(t *testing.T) {
		check := &ConfigFileCheck{ConfigPath: filepath.Join(dir, "nonexistent.yaml")}
		assert.Equal(t, StatusFail, check.Run(ctx).Status)
	})

	t.Run("config found", func(t *testing.T) {
		path := filepath.Join(dir, config.ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0644))

		r := (&ConfigFileCheck{ConfigPath: path}).Run(ctx)
		assert.Equal(t, StatusPass, r.Status, r.Message)
		assert.Contains(t, r.Message, path)
	})

	t.Run("fix writes the default config", func(t *testing.T) {
		path := filepath.Join(dir, "fixed", config.ConfigFileName)
		check := &ConfigFileCheck{InitPath: path}
		require.NoError(t, check.Fix())

		cfg, err := config.Load(path)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig().Agent.URL, cfg.Agent.URL)
	})

	t.Run("name and category", func(t *testing.T) {
		check := &ConfigFileCheck{}
		assert.Equal(t, "config_file", check.Name())
		assert.Equal(t, "CONFIG", check.Category())
	})
}

func TestConfigSchemaCheck(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		want    CheckStatus
	}{
		{name: "valid", content: "version: 1\nagent:\n  url: http://box:8080\n", want: StatusPass},
		{name: "invalid yaml", content: "this is not valid yaml: [unclosed", want: StatusFail},
		{name: "bad transport", content: "version: 1\ntransport: carrier-pigeon\n", want: StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			r := (&ConfigSchemaCheck{ConfigPath: path}).Run(ctx)
			assert.Equal(t, tt.want, r.Status, r.Message)
		})
	}
}

func TestStateFileCheck(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	assert.Equal(t, StatusPass, (&StateFileCheck{}).Run(ctx).Status)

	path := filepath.Join(dir, "state", "state.yaml")
	r := (&StateFileCheck{Path: path}).Run(ctx)
	assert.Equal(t, StatusPass, r.Status, r.Message)

	require.NoError(t, os.WriteFile(path, []byte("last_page: network\n"), 0644))
	r = (&StateFileCheck{Path: path}).Run(ctx)
	assert.Contains(t, r.Message, "last page network")

	require.NoError(t, os.WriteFile(path, []byte("last_page: [oops"), 0644))
	check := &StateFileCheck{Path: path}
	r = check.Run(ctx)
	assert.Equal(t, StatusFail, r.Status)
	assert.True(t, r.Fixable)

	require.NoError(t, check.Fix())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSSHCheck_NotConfigured(t *testing.T) {
	c := &SSHCheck{}
	r := c.Run(context.Background())
	assert.Equal(t, StatusPass, r.Status)
	assert.Nil(t, c.Dial())
	assert.NoError(t, c.Close())
}

func startAgent(t *testing.T, websocket bool) string {
	t.Helper()
	reg := agent.NewRegistry()
	reg.Register("general_info", agent.Static(map[string]string{"OS": "Linux"}))
	srv := httptest.NewServer(agent.NewServer(reg, agent.Options{WebSocket: websocket, Log: logger.Noop()}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestAgentChecks(t *testing.T) {
	ctx := context.Background()
	url := startAgent(t, true)
	a := AgentConfig{URL: url, Push: true, Timeout: 2 * time.Second, Log: logger.Noop()}

	for _, c := range []Check{
		&AgentReachableCheck{Agent: a},
		&ProbeCheck{Agent: a},
		&PushRoundTripCheck{Agent: a},
	} {
		r := c.Run(ctx)
		assert.Equal(t, StatusPass, r.Status, "%s: %s", c.Name(), r.Message)
	}
}

func TestAgentChecks_PushDisabledOnAgent(t *testing.T) {
	ctx := context.Background()
	a := AgentConfig{URL: startAgent(t, false), Push: true, Timeout: time.Second, Log: logger.Noop()}

	r := (&ProbeCheck{Agent: a}).Run(ctx)
	assert.Equal(t, StatusWarn, r.Status)
	assert.Equal(t, "Agent does not support push", r.Message)

	r = (&PushRoundTripCheck{Agent: a}).Run(ctx)
	assert.Equal(t, StatusWarn, r.Status)
}

func TestAgentChecks_HTTPOnly(t *testing.T) {
	ctx := context.Background()
	a := AgentConfig{URL: "http://127.0.0.1:1", Push: false}

	assert.Equal(t, "Skipped (transport: http)", (&ProbeCheck{Agent: a}).Run(ctx).Message)
	assert.Equal(t, "Skipped (transport: http)", (&PushRoundTripCheck{Agent: a}).Run(ctx).Message)
}

func TestAgentReachableCheck_Unreachable(t *testing.T) {
	a := AgentConfig{URL: "http://127.0.0.1:1", Timeout: time.Second, Log: logger.Noop()}
	r := (&AgentReachableCheck{Agent: a}).Run(context.Background())
	assert.Equal(t, StatusFail, r.Status)
	assert.Contains(t, r.Suggestion, "http://127.0.0.1:1")
}

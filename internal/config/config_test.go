package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), ConfigFileName, `
version: 1
agent:
  url: http://10.0.0.2:9000
  ssh: webbox
  timeout: 4s
transport: http
refresh: 2s
retention: 5m
history_size: 100
server:
  listen: ":9090"
  websocket: false
pages:
  - name: cpu
    title: CPU
    widgets:
      - name: util
        module: cpu_utilization
        kind: line
        max: 100
        interval: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "http://10.0.0.2:9000", cfg.Agent.URL)
	assert.Equal(t, "webbox", cfg.Agent.SSH)
	assert.Equal(t, 4*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Agent.ProbeTimeout, "unset keys keep defaults")
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.False(t, cfg.Push())
	assert.Equal(t, 2*time.Second, cfg.Refresh)
	assert.Equal(t, time.Second, cfg.Redraw)
	assert.Equal(t, 5*time.Minute, cfg.Retention)
	assert.Equal(t, 100, cfg.HistorySize)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.False(t, cfg.Server.WebSocket)

	require.Len(t, cfg.Pages, 1)
	w := cfg.Pages[0].Widgets[0]
	assert.Equal(t, widget.KindLine, w.Kind)
	assert.Equal(t, 500*time.Millisecond, w.Interval)
	assert.Equal(t, float64(100), w.Max)
	assert.Equal(t, cfg.Pages, cfg.PagesOrDefault())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "http://localhost:8080", cfg.Agent.URL)
	assert.True(t, cfg.Push())
	assert.True(t, cfg.Server.WebSocket)
	assert.Equal(t, widget.PageNames(widget.DefaultPages()), widget.PageNames(cfg.PagesOrDefault()))

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".config", "ldash", "state.yaml"), cfg.StateFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LDASH_AGENT_URL", "http://envhost:1234")
	t.Setenv("LDASH_TRANSPORT", "http")
	t.Setenv("LDASH_REFRESH", "3s")
	t.Setenv("LDASH_SERVER_WEBSOCKET", "false")

	path := writeFile(t, t.TempDir(), ConfigFileName, "agent:\n  url: http://filehost:80\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://envhost:1234", cfg.Agent.URL)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, 3*time.Second, cfg.Refresh)
	assert.False(t, cfg.Server.WebSocket)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	bad := writeFile(t, dir, "bad.yaml", "agent: [unclosed\n")
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	wrongType := writeFile(t, dir, "type.yaml", "refresh: soon\n")
	_, err = Load(wrongType)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	want := writeFile(t, root, ConfigFileName, "version: 1\n")

	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(nested))

	got, err := Find("")
	require.NoError(t, err)
	assertSameFile(t, want, got)

	got, err = Find(want)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Find(filepath.Join(root, "nope.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestFind_Global(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.MkdirAll(filepath.Join(home, GlobalConfigDir), 0755))
	want := writeFile(t, filepath.Join(home, GlobalConfigDir), GlobalConfigFile, "version: 1\n")

	work := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(work, ".git"), 0755))
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(work))

	got, err := Find("")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))

	path := writeFile(t, dir, ".env", "LDASH_TEST_DOTENV=from-file\n")
	t.Setenv("LDASH_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("LDASH_TEST_DOTENV"))
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("LDASH_TEST_DOTENV"))

	t.Setenv("LDASH_TEST_DOTENV", "already-set")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "already-set", os.Getenv("LDASH_TEST_DOTENV"), "existing variables win")
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, filepath.Join(home, "x", "y"), ExpandTilde("~/x/y"))
	assert.Equal(t, "/abs", ExpandTilde("/abs"))
	assert.Equal(t, "~other/x", ExpandTilde("~other/x"))
}

func assertSameFile(t *testing.T, want, got string) {
	t.Helper()
	a, err := os.Stat(want)
	require.NoError(t, err)
	b, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, os.SameFile(a, b), "want %s, got %s", want, got)
}

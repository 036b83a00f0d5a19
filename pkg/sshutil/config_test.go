package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestListHosts(t *testing.T) {
	path := writeConfig(t, `
Host web
    HostName 10.0.0.5
    User deploy

Host db db-alias
    HostName db.internal
    Port 2222

Host *.corp
    User nobody

Host *
    ServerAliveInterval 30
`)

	hosts, err := ListHosts(path)
	require.NoError(t, err)
	assert.Equal(t, []Host{
		{Alias: "db", Hostname: "db.internal", Port: "2222"},
		{Alias: "db-alias", Hostname: "db.internal", Port: "2222"},
		{Alias: "web", Hostname: "10.0.0.5", User: "deploy"},
	}, hosts)
}

func TestListHosts_Missing(t *testing.T) {
	hosts, err := ListHosts(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestListHosts_SkipsMatchBlocks(t *testing.T) {
	path := writeConfig(t, `
Host before
    HostName 1.1.1.1

Match host foo exec "true"
    User matched

Host after
    HostName 2.2.2.2
`)

	hosts, err := ListHosts(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "after", hosts[0].Alias)
	assert.Equal(t, "2.2.2.2", hosts[0].Hostname)
	assert.Equal(t, "", hosts[0].User)
}

func TestStripMatchBlocks(t *testing.T) {
	out, line := stripMatchBlocks([]byte("Host a\n  User x\nMatch all\n  User y\nHost b\n"))
	assert.Equal(t, 3, line)
	assert.Equal(t, "Host a\n  User x\n# Match all\n#   User y\nHost b\n", string(out))

	_, line = stripMatchBlocks([]byte("Host a\n"))
	assert.Zero(t, line)
}

func TestHost_Description(t *testing.T) {
	tests := []struct {
		host Host
		want string
	}{
		{Host{Alias: "web"}, "web"},
		{Host{Alias: "web", Hostname: "10.0.0.5", User: "deploy"}, "deploy@10.0.0.5"},
		{Host{Alias: "db", Hostname: "db.internal", Port: "2222"}, "db.internal:2222"},
		{Host{Alias: "x", Port: "22"}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.host.Description())
		})
	}
}

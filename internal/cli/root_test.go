package cli

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unknown command", err: stderrors.New(`unknown command "foo" for "ldash"`), want: true},
		{name: "unknown flag", err: stderrors.New(`unknown flag: --foo`), want: true},
		{name: "unknown shorthand", err: stderrors.New(`unknown shorthand flag: 'z' in -z`), want: true},
		{name: "other error", err: stderrors.New("connection failed"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "standard cobra format", err: stderrors.New(`unknown command "foo" for "ldash"`), want: "foo"},
		{name: "command with hyphen", err: stderrors.New(`unknown command "my-page" for "ldash"`), want: "my-page"},
		{name: "no quotes returns empty", err: stderrors.New("unknown command foo"), want: ""},
		{name: "single quote returns empty", err: stderrors.New(`unknown command "foo`), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUnknownCommand(tt.err))
		})
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{
			name: "unknown command",
			err:  stderrors.New(`unknown command "fetc" for "ldash"`),
			want: []string{"Unknown command 'fetc'", "ldash --help"},
		},
		{
			name: "structured",
			err:  errors.New(errors.ErrConfig, "Bad config", "Fix it"),
			want: []string{"✗ Bad config", "Fix it"},
		},
		{
			name: "plain",
			err:  stderrors.New("boom"),
			want: []string{"✗ boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			for _, s := range tt.want {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"monitor", "agent", "probe", "fetch", "init", "doctor", "config", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	for _, flag := range []string{"config", "no-color", "json", "verbose"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
	// Plain `ldash` runs the dashboard, so it takes the monitor flags.
	assert.NotNil(t, rootCmd.Flags().Lookup("url"))
	assert.NotNil(t, monitorCmd.Flags().Lookup("refresh"))
}

func TestFetchCommand_Args(t *testing.T) {
	assert.Error(t, fetchCmd.Args(fetchCmd, nil))
	assert.NoError(t, fetchCmd.Args(fetchCmd, []string{"general_info"}))

	fetchFlags.List = true
	t.Cleanup(func() { fetchFlags.List = false })
	assert.NoError(t, fetchCmd.Args(fetchCmd, nil))
	assert.Error(t, fetchCmd.Args(fetchCmd, []string{"general_info"}))
}

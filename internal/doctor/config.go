package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/state"
)

// ConfigFileCheck verifies that a config file exists. Running without one
// is allowed, so a missing file is only a warning.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
	// InitPath is where Fix writes a default config.
	InitPath string
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return "CONFIG" }

func (c *ConfigFileCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return fail(c, errors.Short(err), "Check the --config path or run 'ldash init'")
	}
	if path == "" {
		r := warn(c, "No config file found, using defaults",
			fmt.Sprintf("Run 'ldash init' to create %s", config.ConfigFileName))
		r.Fixable = c.InitPath != ""
		return r
	}
	return pass(c, "Config file: "+path)
}

// Fix writes the default config to InitPath.
func (c *ConfigFileCheck) Fix() error {
	if c.InitPath == "" {
		return nil
	}
	return config.Write(c.InitPath, config.DefaultConfig())
}

// ConfigSchemaCheck loads and validates the config, including
// environment overrides.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return "CONFIG" }

func (c *ConfigSchemaCheck) Run(context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return fail(c, "Cannot validate schema: "+errors.Short(err), "")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fail(c, errors.Short(err), "Check the YAML syntax in your config file")
	}
	if err := config.Validate(cfg); err != nil {
		var suggestion string
		if e, ok := err.(*errors.Error); ok {
			suggestion = e.Suggestion
		}
		return fail(c, "Schema error: "+errors.Short(err), suggestion)
	}
	return pass(c, "Schema valid")
}

// StateFileCheck verifies the state file can be read and its directory
// written.
type StateFileCheck struct {
	Path string
}

func (c *StateFileCheck) Name() string     { return "state_file" }
func (c *StateFileCheck) Category() string { return "STATE" }

func (c *StateFileCheck) Run(context.Context) CheckResult {
	if c.Path == "" {
		return pass(c, "State kept in memory (state_file is empty)")
	}

	st, err := state.Open(c.Path)
	if err != nil {
		r := fail(c, errors.Short(err), "Delete the file to reset the last page")
		r.Fixable = true
		return r
	}

	dir := filepath.Dir(c.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(c, "Cannot create "+dir, "Check directory permissions or change state_file")
	}
	probe, err := os.CreateTemp(dir, ".ldash-doctor-*")
	if err != nil {
		return fail(c, dir+" is not writable", "Check directory permissions or change state_file")
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	if last := st.LastPage(); last != "" {
		return pass(c, fmt.Sprintf("State file: %s (last page %s)", c.Path, last))
	}
	return pass(c, "State file: "+c.Path)
}

// Fix removes an unreadable state file.
func (c *StateFileCheck) Fix() error {
	if err := os.Remove(c.Path); err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrConfig, "Cannot remove "+c.Path, "Delete it by hand")
	}
	return nil
}

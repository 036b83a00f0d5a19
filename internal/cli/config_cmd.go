package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/ui"
	"gopkg.in/yaml.v3"
)

// configSetCommand sets one dotted key in the config file. The edit is
// rolled back when the result no longer validates.
func configSetCommand(w io.Writer, key, value string) error {
	path, err := config.Find(Config())
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"No config file found",
			"Run 'ldash init' to create "+config.ConfigFileName)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to read "+path, "Check file permissions")
	}
	if err := config.SetValue(path, key, value); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to set %s", key),
			"Keys are dotted paths such as agent.url or server.listen")
	}

	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		if restoreErr := os.WriteFile(path, before, 0644); restoreErr != nil {
			return errors.WrapWithCode(restoreErr, errors.ErrConfig,
				"Failed to restore "+path+" after an invalid edit",
				"Fix the file by hand or run 'ldash init --force'")
		}
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, map[string]string{"path": path, "key": key, "value": value})
	}
	fmt.Fprintf(w, "%s Set %s = %s in %s\n", ui.SymbolSuccess, key, value, path)
	return nil
}

// configShowCommand prints the resolved config, with environment and
// .env overrides applied.
func configShowCommand(w io.Writer) error {
	cfg, path, err := config.LoadOrDefault(Config())
	if err != nil {
		return err
	}
	if machineMode {
		return WriteJSONSuccess(w, map[string]interface{}{"path": path, "config": cfg})
	}

	if path == "" {
		path = "(defaults, no file)"
	}
	fmt.Fprintf(w, "# %s\n", path)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to render config", "")
	}
	return enc.Close()
}

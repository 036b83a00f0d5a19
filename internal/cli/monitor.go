package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/monitor"
	"golang.org/x/term"
)

// MonitorFlags holds the monitor command flags.
type MonitorFlags struct {
	AgentFlags
	Refresh string
	Redraw  string
	LogFile string
}

var monitorFlags MonitorFlags

// monitorCommand starts the TUI dashboard.
func monitorCommand(flags MonitorFlags) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New(errors.ErrConfig,
			"The dashboard needs an interactive terminal",
			"Use 'ldash fetch <module>' for scripted output")
	}

	cfg, err := loadConfig(flags.AgentFlags)
	if err != nil {
		return err
	}
	refresh, err := ParseDuration(flags.Refresh)
	if err != nil {
		return err
	}
	if refresh > 0 {
		cfg.Refresh = refresh
	}
	redraw, err := ParseDuration(flags.Redraw)
	if err != nil {
		return err
	}
	if redraw > 0 {
		cfg.Redraw = redraw
	}

	// The alternate screen owns stdout, so logs go to a file.
	logPath := flags.LogFile
	if logPath == "" {
		logPath = filepath.Join(os.TempDir(), "ldash.log")
	}
	f, err := tea.LogToFile(logPath, "")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to open log file "+logPath,
			"Pass --log-file with a writable path")
	}
	defer f.Close()
	log := logger.NewEnvLogger("[ldash]")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	model := monitor.NewModel(conn.session, monitor.Options{
		Target:  targetLabel(cfg),
		Version: GetVersion(),
		Redraw:  cfg.Redraw,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if ctx.Err() != nil {
		// Interrupted by a signal.
		return nil
	}
	return err
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rileyhilliard/ldash/internal/agent"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/ui"
)

// AgentServeFlags holds the agent command flags.
type AgentServeFlags struct {
	Listen        string
	NoWebSocket   bool
	ModuleTimeout string
}

var agentServeFlags AgentServeFlags

// agentCommand serves this machine's modules until interrupted.
func agentCommand(flags AgentServeFlags) error {
	cfg, err := loadConfig(AgentFlags{})
	if err != nil {
		return err
	}
	listen := cfg.Server.Listen
	if flags.Listen != "" {
		listen = flags.Listen
	}
	moduleTimeout, err := ParseDuration(flags.ModuleTimeout)
	if err != nil {
		return err
	}
	websocket := cfg.Server.WebSocket && !flags.NoWebSocket

	reg := agent.SystemRegistry()
	srv := agent.NewServer(reg, agent.Options{
		WebSocket:     websocket,
		ModuleTimeout: moduleTimeout,
		Log:           logger.NewEnvLogger("[agent]"),
	})

	if !machineMode {
		push := "disabled"
		if websocket {
			push = "enabled"
		}
		fmt.Print(ui.RenderHeader(ui.HeaderInfo{
			Version: GetVersion(),
			Tagline: "Serving system stats",
			Target:  "http://" + listen,
		}))
		fmt.Println(ui.RenderPairs(
			[]string{"Modules", "Push"},
			[]string{fmt.Sprintf("%d", len(reg.Names())), push},
		))
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx, listen)
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/errors"
	"github.com/rileyhilliard/ldash/internal/eventloop"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/negotiate"
	"github.com/rileyhilliard/ldash/internal/payload"
	"github.com/rileyhilliard/ldash/internal/transport"
	"github.com/rileyhilliard/ldash/internal/ui"
	"golang.org/x/term"
)

// ProbeOutput is the result of `ldash probe`.
type ProbeOutput struct {
	URL    string `json:"url"`
	SSH    string `json:"ssh,omitempty"`
	Mode   string `json:"mode"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
	TookMS int64  `json:"took_ms"`
}

// probeAgent runs the same negotiation a dashboard session runs and
// reports its outcome.
func probeAgent(ctx context.Context, cfg *config.Config, log logger.Logger) (ProbeOutput, error) {
	out := ProbeOutput{URL: cfg.Agent.URL, SSH: cfg.Agent.SSH}

	tunnel, dial, err := openTunnel(ctx, cfg, log)
	if err != nil {
		return out, err
	}
	defer closeTunnel(tunnel)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loop := eventloop.New(log)
	go func() { _ = loop.Run(ctx) }()
	defer loop.Close()

	httpCh, err := httpChannel(cfg, dial, log)
	if err != nil {
		return out, err
	}
	defer httpCh.Close()
	pushCh, err := transport.NewPushChannel(loop, transport.PushOptions{
		BaseURL:          cfg.Agent.URL,
		HandshakeTimeout: cfg.Agent.HandshakeTimeout,
		Dial:             dial,
		Log:              log,
	})
	if err != nil {
		return out, err
	}
	defer pushCh.Close()

	neg := negotiate.New(negotiate.Env{
		ClientPush:   cfg.Push(),
		Prober:       httpCh,
		Push:         pushCh,
		Fallback:     httpCh,
		ProbeTimeout: cfg.Agent.ProbeTimeout,
		Log:          log,
	})

	start := time.Now()
	outcome := neg.Negotiate(ctx)
	out.TookMS = time.Since(start).Milliseconds()
	out.Mode = outcome.Mode.String()
	out.Reason = string(outcome.Reason)
	if outcome.Err != nil {
		out.Error = errors.Short(outcome.Err)
	}
	return out, nil
}

// probeCommand implements `ldash probe`.
func probeCommand(w io.Writer, flags AgentFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.NewEnvLogger("[probe]")

	var spinner *ui.Spinner
	if !machineMode {
		spinner = ui.NewSpinner(w, "Negotiating with "+targetLabel(cfg), isTerminal(w))
		spinner.Start()
	}

	out, err := probeAgent(context.Background(), cfg, log)
	if err != nil {
		if spinner != nil {
			spinner.Fail()
		}
		return err
	}

	if machineMode {
		return WriteJSONSuccess(w, out)
	}
	if out.Error != "" {
		spinner.Fail()
	} else {
		spinner.Success()
	}
	fmt.Fprint(w, renderProbe(out))
	return nil
}

func renderProbe(out ProbeOutput) string {
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	keys := []string{"Agent", "Transport", "Reason"}
	values := []string{out.URL, out.Mode, reasonText(negotiate.Reason(out.Reason))}
	if out.SSH != "" {
		keys = append(keys, "Tunnel")
		values = append(values, out.SSH)
	}
	if out.Error != "" {
		keys = append(keys, "Error")
		values = append(values, out.Error)
	}
	s := "\n" + ui.RenderPairs(keys, values)
	if out.Mode == transport.ModePush.String() && out.Error != "" {
		s += "\n" + muted.Render("Push was negotiated but the handshake failed; the dashboard will show it disconnected.") + "\n"
	}
	return s
}

func reasonText(r negotiate.Reason) string {
	switch r {
	case negotiate.ReasonClient:
		return "push disabled in config (transport: http)"
	case negotiate.ReasonProbeFailed:
		return "capability probe failed"
	case negotiate.ReasonDeclined:
		return "agent does not support push"
	case negotiate.ReasonPush:
		return "both sides support push"
	}
	return string(r)
}

// FetchFlags holds the fetch command flags.
type FetchFlags struct {
	AgentFlags
	Raw  bool
	List bool
}

var fetchFlags FetchFlags

// fetchCommand implements `ldash fetch <module>`.
func fetchCommand(w io.Writer, module string, flags FetchFlags) error {
	cfg, err := loadConfig(flags.AgentFlags)
	if err != nil {
		return err
	}
	log := logger.NewEnvLogger("[fetch]")
	ctx := context.Background()

	tunnel, dial, err := openTunnel(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeTunnel(tunnel)

	ch, err := httpChannel(cfg, dial, log)
	if err != nil {
		return err
	}
	defer ch.Close()

	if flags.List {
		names, err := ch.Modules(ctx)
		if err != nil {
			return err
		}
		if machineMode {
			return WriteJSONSuccess(w, map[string][]string{"modules": names})
		}
		for _, n := range names {
			fmt.Fprintln(w, n)
		}
		return nil
	}

	resp := ch.Fetch(ctx, module)
	if resp.Err != nil {
		return resp.Err
	}
	p := resp.Payload

	switch {
	case machineMode:
		raw := p.Raw()
		if raw == "" {
			raw = "null"
		}
		return WriteJSONSuccess(w, json.RawMessage(raw))
	case flags.Raw:
		_, err := fmt.Fprintln(w, p.Raw())
		return err
	}
	_, err = fmt.Fprint(w, renderPayload(p))
	return err
}

// renderPayload picks a view for a payload: a table for record lists,
// aligned pairs for an object and the JSON text otherwise.
func renderPayload(p payload.Payload) string {
	if p.Empty() {
		return lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("No Data") + "\n"
	}
	res := p.Result()
	switch {
	case res.IsObject():
		var keys, values []string
		for _, kv := range p.KeyValue() {
			keys = append(keys, kv.Key)
			values = append(values, kv.Value)
		}
		return ui.RenderPairs(keys, values)
	case res.IsArray():
		t := p.Table()
		if len(t.Headers) > 0 {
			return ui.RenderSimpleTable(t.Headers, t.Rows) + "\n"
		}
	}
	return p.Raw() + "\n"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

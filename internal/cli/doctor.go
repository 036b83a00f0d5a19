package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ldash/internal/config"
	"github.com/rileyhilliard/ldash/internal/doctor"
	"github.com/rileyhilliard/ldash/internal/logger"
	"github.com/rileyhilliard/ldash/internal/ui"
)

// DoctorFlags holds the doctor command flags.
type DoctorFlags struct {
	AgentFlags
	Fix bool
}

var doctorFlags DoctorFlags

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Fixed      []string         `json:"fixed,omitempty"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

// categoryOrder is the report order. Unknown categories go last.
var categoryOrder = []string{"CONFIG", "STATE", "SSH", "AGENT", "TRANSPORT"}

// doctorCommand implements the doctor command logic.
func doctorCommand(w io.Writer, flags DoctorFlags) error {
	ctx := context.Background()
	log := logger.Noop()

	// A broken config is reported by the checks, so fall back to defaults
	// for the agent checks.
	cfg, cfgPath, err := config.LoadOrDefault(Config())
	if err != nil || cfg == nil {
		cfg = config.DefaultConfig()
	}
	_ = flags.Apply(cfg)

	initPath := cfgPath
	if initPath == "" {
		initPath = filepath.Join(".", config.ConfigFileName)
	}

	// The tunnel is opened first; the agent checks ride on it.
	sshCheck := &doctor.SSHCheck{Host: cfg.Agent.SSH, Options: tunnelOptions(cfg, log)}
	defer sshCheck.Close()
	sshResult := doctor.RunAll(ctx, []doctor.Check{sshCheck})

	agentCfg := doctor.AgentConfig{
		URL:              cfg.Agent.URL,
		Dial:             sshCheck.Dial(),
		Timeout:          cfg.Agent.Timeout,
		HandshakeTimeout: cfg.Agent.HandshakeTimeout,
		Push:             cfg.Push(),
		Log:              log,
	}
	rest := []doctor.Check{
		&doctor.ConfigFileCheck{ConfigPath: Config(), InitPath: initPath},
		&doctor.ConfigSchemaCheck{ConfigPath: Config()},
		&doctor.StateFileCheck{Path: cfg.StateFile},
		&doctor.AgentReachableCheck{Agent: agentCfg},
		&doctor.ProbeCheck{Agent: agentCfg},
		&doctor.PushRoundTripCheck{Agent: agentCfg},
	}

	checks := append([]doctor.Check{sshCheck}, rest...)
	results := append(sshResult, doctor.RunAll(ctx, rest)...)

	var fixed []string
	if flags.Fix {
		fixed, err = doctor.FixAll(checks, results)
		if err != nil {
			return err
		}
		if len(fixed) > 0 {
			// Re-run so the report reflects the fixes.
			results = append(sshResult, doctor.RunAll(ctx, rest)...)
		}
	}

	if machineMode {
		return WriteJSONSuccess(w, buildDoctorOutput(results, fixed))
	}
	outputDoctorText(w, results, fixed, flags.Fix)
	return nil
}

// groupByCategory returns results grouped in report order.
func groupByCategory(results []doctor.CheckResult) []CategoryOutput {
	grouped := make(map[string][]doctor.CheckResult)
	var extra []string
	for _, r := range results {
		if _, ok := grouped[r.Category]; !ok && !knownCategory(r.Category) {
			extra = append(extra, r.Category)
		}
		grouped[r.Category] = append(grouped[r.Category], r)
	}

	var out []CategoryOutput
	for _, cat := range append(append([]string{}, categoryOrder...), extra...) {
		if rs, ok := grouped[cat]; ok {
			out = append(out, CategoryOutput{Name: cat, Results: rs})
		}
	}
	return out
}

func knownCategory(cat string) bool {
	for _, c := range categoryOrder {
		if c == cat {
			return true
		}
	}
	return false
}

func buildDoctorOutput(results []doctor.CheckResult, fixed []string) DoctorOutput {
	counts := doctor.CountByStatus(results)
	return DoctorOutput{
		Categories: groupByCategory(results),
		Fixed:      fixed,
		Summary: SummaryOutput{
			Pass:     counts[doctor.StatusPass],
			Warn:     counts[doctor.StatusWarn],
			Fail:     counts[doctor.StatusFail],
			Fixable:  doctor.FixableCount(results),
			AllClear: counts[doctor.StatusWarn]+counts[doctor.StatusFail] == 0,
		},
	}
}

// outputDoctorText outputs results in human-readable format.
func outputDoctorText(w io.Writer, results []doctor.CheckResult, fixed []string, fixRequested bool) {
	successStyle := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ui.ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	headerStyle := lipgloss.NewStyle().Bold(true)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("ldash Diagnostic Report"))
	fmt.Fprintln(w)

	for _, cat := range groupByCategory(results) {
		fmt.Fprintln(w, headerStyle.Render(cat.Name))
		for _, r := range cat.Results {
			renderCheckResult(w, r)
		}
		fmt.Fprintln(w)
	}

	if len(fixed) > 0 {
		fmt.Fprintf(w, "%s Fixed: %s\n\n", successStyle.Render(ui.SymbolSuccess), strings.Join(fixed, ", "))
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	summary := doctor.Summary(results)
	if !doctor.HasFailures(results) && doctor.CountByStatus(results)[doctor.StatusWarn] == 0 {
		fmt.Fprintf(w, "%s %s\n", successStyle.Render(ui.SymbolSuccess), summary)
	} else {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render(ui.SymbolFail), summary)
		if doctor.FixableCount(results) > 0 && !fixRequested {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  Run with %s to attempt automatic fixes where possible.\n",
				mutedStyle.Render("--fix"))
		}
	}
	fmt.Fprintln(w)
}

// renderCheckResult renders a single check result.
func renderCheckResult(w io.Writer, result doctor.CheckResult) {
	var symbol string
	var style lipgloss.Style

	switch result.Status {
	case doctor.StatusPass:
		symbol = ui.SymbolComplete
		style = lipgloss.NewStyle().Foreground(ui.ColorSuccess)
	case doctor.StatusWarn:
		symbol = ui.SymbolComplete // Still shows as done, but with warning styling
		style = lipgloss.NewStyle().Foreground(ui.ColorWarning)
	default:
		symbol = ui.SymbolFail
		style = lipgloss.NewStyle().Foreground(ui.ColorError)
	}

	fmt.Fprintf(w, "  %s %s\n", style.Render(symbol), result.Message)

	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(w, "    %s\n", muted.Render(line))
		}
	}
}

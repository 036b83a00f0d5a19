// Package doctor runs the diagnostics behind `ldash doctor`: config file
// and schema, state file, SSH tunnel, agent reachability, capability probe
// and a push round trip.
package doctor

import (
	"context"
	"fmt"
	"sync"
)

// CheckStatus represents the result status of a check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns a human-readable status string.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult contains the outcome of running a check.
type CheckResult struct {
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Fixable    bool        `json:"fixable,omitempty"` // Whether --fix can address this
}

// Check is one diagnostic.
type Check interface {
	Name() string
	// Category groups checks in the report, e.g. "CONFIG" or "AGENT".
	Category() string
	Run(ctx context.Context) CheckResult
}

// Fixer is a check that can repair what it reports.
type Fixer interface {
	Fix() error
}

// RunAll executes checks concurrently. Results keep the order of checks
// and carry the check category.
func RunAll(ctx context.Context, checks []Check) []CheckResult {
	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup

	for i, check := range checks {
		wg.Add(1)
		go func(idx int, c Check) {
			defer wg.Done()
			r := c.Run(ctx)
			r.Category = c.Category()
			results[idx] = r
		}(i, check)
	}

	wg.Wait()
	return results
}

// FixAll runs Fix on every fixable check whose result is not a pass.
// It returns the names of the checks it fixed.
func FixAll(checks []Check, results []CheckResult) ([]string, error) {
	var fixed []string
	for i, c := range checks {
		f, ok := c.(Fixer)
		if !ok || !results[i].Fixable || results[i].Status == StatusPass {
			continue
		}
		if err := f.Fix(); err != nil {
			return fixed, err
		}
		fixed = append(fixed, c.Name())
	}
	return fixed, nil
}

// CountByStatus counts results by status.
func CountByStatus(results []CheckResult) map[CheckStatus]int {
	counts := make(map[CheckStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}

// HasFailures returns true if any result has a fail status.
func HasFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

// FixableCount returns the number of issues that can be fixed automatically.
func FixableCount(results []CheckResult) int {
	count := 0
	for _, r := range results {
		if r.Fixable && r.Status != StatusPass {
			count++
		}
	}
	return count
}

// Summary returns a summary string of the check results.
func Summary(results []CheckResult) string {
	counts := CountByStatus(results)
	total := counts[StatusWarn] + counts[StatusFail]
	if total == 0 {
		return "Everything looks good"
	}
	return fmt.Sprintf("%d issue%s found", total, pluralize(total))
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pass(c Check, msg string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: msg}
}

func warn(c Check, msg, suggestion string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusWarn, Message: msg, Suggestion: suggestion}
}

func fail(c Check, msg, suggestion string) CheckResult {
	return CheckResult{Name: c.Name(), Status: StatusFail, Message: msg, Suggestion: suggestion}
}

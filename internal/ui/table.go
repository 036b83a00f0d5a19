package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// maxColumnWidth caps a column so one long cell does not push the rest
// off screen.
const maxColumnWidth = 40

// NewTable creates a non-focused bubbles table sized to its content.
func NewTable(headers []string, rows [][]string) table.Model {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}

	cols := make([]table.Column, len(headers))
	for i, h := range headers {
		w := widths[i]
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		cols[i] = table.Column{Title: h, Width: w}
	}

	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(tableRows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is focused, so the selected row must look like the others.
	s.Selected = s.Cell
	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a table for CLI output.
func RenderSimpleTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	return NewTable(headers, rows).View()
}

// RenderPairs renders aligned key: value lines.
func RenderPairs(keys, values []string) string {
	width := 0
	for _, k := range keys {
		if w := lipgloss.Width(k); w > width {
			width = w
		}
	}

	keyStyle := lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	var b strings.Builder
	for i, k := range keys {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		b.WriteString(keyStyle.Render(padRight(k, width)) + "  " + v + "\n")
	}
	return b.String()
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

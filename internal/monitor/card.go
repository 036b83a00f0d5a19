package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ldash/internal/dashboard"
	"github.com/rileyhilliard/ldash/internal/poller"
	"github.com/rileyhilliard/ldash/internal/series"
	"github.com/rileyhilliard/ldash/internal/widget"
)

// Card layout constants
const (
	cardGraphHeight   = 3  // braille graph rows
	cardMinGraphWidth = 10 // minimum graph width
	cardMaxRows       = 8  // table rows shown before "+N more"
)

var cardDividerStyle = lipgloss.NewStyle().Foreground(ColorBorder)

func renderCardDivider(width int) string {
	return cardDividerStyle.Render(strings.Repeat("─", width))
}

// parseErrorParts splits a structured error ("✗ Message\n\n  cause\n\n
// suggestion") into its message and the remaining detail.
func parseErrorParts(errMsg string) (core string, detail string) {
	var rest []string
	for _, line := range strings.Split(errMsg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if core == "" {
			core = strings.TrimSpace(strings.TrimPrefix(line, "✗"))
			continue
		}
		rest = append(rest, line)
	}
	return core, strings.Join(rest, " ")
}

func firstLine(errMsg string) string {
	core, _ := parseErrorParts(errMsg)
	return core
}

// truncateWithEllipsis truncates s to maxLen cells, adding an ellipsis.
func truncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 3 || lipgloss.Width(s) <= maxLen {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r)) > maxLen-3 {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// renderCard renders one widget. Loading and empty streams replace the
// body with a placeholder.
func (m Model) renderCard(w dashboard.WidgetView, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}
	inner := width - 2

	lines := []string{m.renderCardTitle(w, inner), renderCardMeta(w, inner), renderCardDivider(inner)}

	switch {
	case w.Loading():
		frame := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]
		lines = append(lines, MutedStyle.Render(frame))
	case w.NoData():
		lines = append(lines, MutedStyle.Render("No Data"))
	default:
		lines = append(lines, renderCardBody(w, inner)...)
	}

	if w.Err != nil {
		core, _ := parseErrorParts(w.Err.Error())
		lines = append(lines, ErrorStyle.Render(truncateWithEllipsis("✗ "+core, inner)))
	} else if w.Stream.Err != nil {
		core, _ := parseErrorParts(w.Stream.Err.Error())
		lines = append(lines, ErrorStyle.Render(truncateWithEllipsis("✗ "+core, inner)))
	}

	return style.Render(strings.Join(lines, "\n"))
}

// renderCardTitle shows the heading and, for line charts, the latest value.
func (m Model) renderCardTitle(w dashboard.WidgetView, width int) string {
	title := truncateWithEllipsis(w.Heading, width)
	if w.Kind != widget.KindLine || w.Loading() || len(w.Series.Lines) == 0 || len(w.Series.Lines[0].Values) == 0 {
		return TitleStyle.Render(title)
	}
	value := series.FormatValue(w.Series.Lines[0].Latest) + w.Units
	return SectionHeader(truncateWithEllipsis(w.Heading, width-lipgloss.Width(value)-2), value, width)
}

// renderCardMeta puts the widget's info text on the left and the time of
// the last answer on the right.
func renderCardMeta(w dashboard.WidgetView, width int) string {
	updated := lastUpdateText(w.Stream)
	info := ""
	if room := width - lipgloss.Width(updated) - 1; w.Info != "" && room > 3 {
		info = truncateWithEllipsis(w.Info, room)
	}
	fill := width - lipgloss.Width(info) - lipgloss.Width(updated)
	if fill < 1 {
		fill = 1
	}
	return MutedStyle.Render(info + strings.Repeat(" ", fill) + updated)
}

// lastUpdateText is the local time of the last answer, or "Loading..."
// before the first one.
func lastUpdateText(st poller.Status) string {
	if st.LastUpdate == 0 {
		return "Loading..."
	}
	return time.UnixMilli(st.LastUpdate).Format("15:04:05")
}

func renderCardBody(w dashboard.WidgetView, width int) []string {
	switch w.Kind {
	case widget.KindLine:
		return renderLineChart(w, width)
	case widget.KindMultiLine:
		return renderMultiLineChart(w, width)
	case widget.KindTable:
		return renderTableWidget(w, width)
	case widget.KindKeyValue:
		return renderKeyValue(w, width)
	}
	return nil
}

// renderLineChart draws the single line against [Min, Max] when the widget
// declares a bound, and against the rounded series scale otherwise.
func renderLineChart(w dashboard.WidgetView, width int) []string {
	var data []float64
	if len(w.Series.Lines) > 0 {
		data = w.Series.Lines[0].Values
	}
	lo, hi := w.Min, w.Max
	if hi <= 0 {
		lo, hi = 0, w.Series.Scale
	}

	graph := RenderBrailleGraph(resampleData(data, width*2), width, cardGraphHeight, lo, hi, LevelColor(w.Level))
	lines := strings.Split(graph, "\n")
	for _, metric := range w.Metrics {
		lines = append(lines, renderMetric(metric, width))
	}
	return lines
}

// renderMultiLineChart draws one sparkline row per key, each with its
// latest value, all against the shared scale.
func renderMultiLineChart(w dashboard.WidgetView, width int) []string {
	if len(w.Series.Lines) == 0 {
		return []string{MutedStyle.Render("No Data")}
	}

	labelWidth := 0
	for _, l := range w.Series.Lines {
		if n := lipgloss.Width(l.Key); n > labelWidth {
			labelWidth = n
		}
	}
	if labelWidth > width/3 {
		labelWidth = width / 3
	}

	units := ""
	if w.Units != "" {
		units = " " + w.Units
	}

	var lines []string
	for i, l := range w.Series.Lines {
		color := lineColors[i%len(lineColors)]
		value := series.FormatValue(l.Latest) + units
		graphWidth := width - labelWidth - lipgloss.Width(value) - 2
		if graphWidth < cardMinGraphWidth {
			graphWidth = cardMinGraphWidth
		}
		graph := RenderBrailleGraph(resampleData(l.Values, graphWidth*2), graphWidth, 1, 0, w.Series.Scale, color)
		label := lipgloss.NewStyle().Foreground(color).Width(labelWidth).Render(truncateWithEllipsis(l.Key, labelWidth))
		lines = append(lines, label+" "+graph+" "+ValueStyle.Render(value))
	}
	lines = append(lines, MutedStyle.Render("scale "+series.FormatValue(w.Series.Scale)+units))
	return lines
}

// renderTableWidget shows the first rows with the sort and filter state.
func renderTableWidget(w dashboard.WidgetView, width int) []string {
	t := w.Table
	if len(t.Headers) == 0 {
		return []string{MutedStyle.Render("No Data")}
	}

	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
		if i == w.SortCol {
			if w.Reverse {
				headers[i] += " ▼"
			} else {
				headers[i] += " ▲"
			}
		}
	}

	widths := columnWidths(headers, t.Rows, width)
	var lines []string
	lines = append(lines, LabelStyle.Bold(true).Render(joinCells(headers, widths)))

	shown := t.Rows
	if len(shown) > cardMaxRows {
		shown = shown[:cardMaxRows]
	}
	for _, row := range shown {
		lines = append(lines, ValueStyle.Render(joinCells(row, widths)))
	}
	if more := len(t.Rows) - len(shown); more > 0 {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("+%d more", more)))
	}
	if len(t.Rows) == 0 {
		lines = append(lines, MutedStyle.Render("No matching rows"))
	}
	if w.Filter != "" {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("filter %q: %d of %d rows", w.Filter, len(t.Rows), w.Rows)))
	}
	return lines
}

// columnWidths sizes columns to their content, shrinking the widest until
// the row fits.
func columnWidths(headers []string, rows [][]string, width int) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := lipgloss.Width(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	total := func() int {
		sum := len(widths) - 1
		for _, w := range widths {
			sum += w
		}
		return sum
	}
	for total() > width {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 4 {
			break
		}
		widths[widest]--
	}
	return widths
}

func joinCells(cells []string, widths []int) string {
	out := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = truncateWithEllipsis(cells[i], w)
		}
		out[i] = cell + strings.Repeat(" ", max(0, w-lipgloss.Width(cell)))
	}
	return strings.TrimRight(strings.Join(out, " "), " ")
}

func renderKeyValue(w dashboard.WidgetView, width int) []string {
	if len(w.Pairs) == 0 {
		return []string{MutedStyle.Render("No Data")}
	}
	keyWidth := 0
	for _, p := range w.Pairs {
		if n := lipgloss.Width(p.Key); n > keyWidth {
			keyWidth = n
		}
	}
	if keyWidth > width/2 {
		keyWidth = width / 2
	}

	lines := make([]string, 0, len(w.Pairs))
	for _, p := range w.Pairs {
		key := LabelStyle.Width(keyWidth).Render(truncateWithEllipsis(p.Key, keyWidth))
		lines = append(lines, key+"  "+ValueStyle.Render(truncateWithEllipsis(p.Value, width-keyWidth-2)))
	}
	return lines
}

func renderMetric(metric series.Metric, width int) string {
	label := LabelStyle.Render(metric.Name)
	value := ValueStyle.Render(metric.Data)
	fill := width - lipgloss.Width(label) - lipgloss.Width(value)
	if fill < 1 {
		fill = 1
	}
	return label + strings.Repeat(" ", fill) + value
}

package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ldash/internal/transport"
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if m.snap.Loading() || !m.snap.Negotiated {
		b.WriteString(m.renderNegotiating())
	} else {
		b.WriteString(m.renderCards())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader shows the title, the agent and the transport state.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("ldash")

	parts := []string{}
	if m.opts.Target != "" {
		parts = append(parts, m.opts.Target)
	}
	parts = append(parts, m.connectionText())

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(parts, " | "))

	return HeaderStyle.Render(title + stats)
}

// connectionText is the status dot plus the negotiated mode.
func (m Model) connectionText() string {
	if !m.snap.Negotiated {
		frame := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]
		return lipgloss.NewStyle().Foreground(ColorWarning).Render(frame) + " negotiating"
	}

	mode := m.snap.Mode.String()
	if m.snap.Mode == transport.ModeRequestResponse {
		mode = fmt.Sprintf("%s (%s)", mode, m.snap.Reason)
	}
	if m.snap.Connected {
		return lipgloss.NewStyle().Foreground(ColorHealthy).Render(StatusConnected) + " " + mode
	}
	return lipgloss.NewStyle().Foreground(ColorCritical).Render(StatusDisconnected) + " " + mode + " disconnected"
}

// renderTabs renders the page bar with the current page highlighted.
func (m Model) renderTabs() string {
	tabs := make([]string, 0, len(m.snap.Tabs))
	for i, t := range m.snap.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Title)
		if t.Name == m.snap.Page {
			tabs = append(tabs, TabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderNegotiating is the loading page shown until the transport is known.
func (m Model) renderNegotiating() string {
	frame := ConnectingSpinnerFrames[m.spinnerFrame%len(ConnectingSpinnerFrames)]
	lines := []string{
		lipgloss.NewStyle().Foreground(ColorGraph).Render(frame) + " " + TitleStyle.Render("Negotiating transport..."),
	}
	if m.snapErr != nil {
		lines = append(lines, ErrorStyle.Render(firstLine(m.snapErr.Error())))
	}
	return strings.Join(lines, "\n")
}

// renderCards renders the widgets of the current page.
func (m Model) renderCards() string {
	if len(m.snap.Widgets) == 0 {
		return LabelStyle.Render("No widgets on this page")
	}

	width := m.cardWidth()
	cards := make([]string, len(m.snap.Widgets))
	for i, w := range m.snap.Widgets {
		cards[i] = m.renderCard(w, width, i == m.selected)
	}
	return m.layoutCards(cards)
}

// cardsPerRow follows the layout mode.
func (m Model) cardsPerRow() int {
	switch m.Layout() {
	case LayoutTriple:
		return 3
	case LayoutDouble:
		return 2
	}
	return 1
}

// cardWidth is the styled width of a card; borders and margin come on top.
func (m Model) cardWidth() int {
	if m.width == 0 {
		return 40
	}
	w := m.width/m.cardsPerRow() - 3
	if w < cardMinGraphWidth+2 {
		w = cardMinGraphWidth + 2
	}
	return w
}

// layoutCards arranges cards in rows.
func (m Model) layoutCards(cards []string) string {
	perRow := m.cardsPerRow()
	var rows []string
	for i := 0; i < len(cards); i += perRow {
		end := i + perRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderFooter renders the filter prompt, the last action outcome or the
// key hints.
func (m Model) renderFooter() string {
	if m.filtering {
		return FooterStyle.Render(m.filter.View())
	}

	hints := []string{
		"q quit",
		"tab page",
		"↑↓ select",
		"r refresh",
		"s sort",
		"/ filter",
		"c reconnect",
		"? help",
	}
	footer := FooterStyle.Render(strings.Join(hints, " | "))

	switch {
	case m.snapErr != nil:
		footer += "\n" + ErrorStyle.Render(" "+firstLine(m.snapErr.Error()))
	case m.status != "" && m.statusErr:
		footer += "\n" + ErrorStyle.Render(" "+m.status)
	case m.snap.Router.Dropped > 0:
		footer += "\n" + MutedStyle.Render(fmt.Sprintf(" %d requests dropped while disconnected", m.snap.Router.Dropped))
	}
	return footer
}

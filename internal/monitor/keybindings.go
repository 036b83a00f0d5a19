package monitor

import (
	"context"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/ldash/internal/widget"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyNextPage    = "tab"
	KeyPrevPage    = "shift+tab"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeyRefresh     = "r"
	KeyRefreshAll  = "R"
	KeyCycleSort   = "s"
	KeyReverseSort = "S"
	KeyFilter      = "/"
	KeyReconnect   = "c"
	KeyToggleHelp  = "?"
	KeyCollapse    = "esc"
	KeyConfirm     = "enter"
)

// HandleKeyMsg processes keyboard input. It returns true if the key was
// handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()
	src := m.src

	if m.filtering {
		return true, m.handleFilterKey(msg)
	}

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}
	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		return true, tea.Quit

	case KeyNextPage:
		return true, m.navigateBy(1)

	case KeyPrevPage:
		return true, m.navigateBy(-1)

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < len(m.snap.Widgets)-1 {
			m.selected++
		}
		return true, nil

	case KeyRefresh:
		i := m.selected
		return true, m.action("refresh", func(ctx context.Context) error { return src.Refresh(ctx, i) })

	case KeyRefreshAll:
		return true, m.action("refresh all", src.RefreshAll)

	case KeyCycleSort:
		if !m.selectedIsTable() {
			return true, nil
		}
		i := m.selected
		return true, m.action("sort", func(ctx context.Context) error { return src.NextSortColumn(ctx, i) })

	case KeyReverseSort:
		if !m.selectedIsTable() {
			return true, nil
		}
		i := m.selected
		return true, m.action("sort", func(ctx context.Context) error { return src.ReverseSort(ctx, i) })

	case KeyFilter:
		if !m.selectedIsTable() {
			return true, nil
		}
		m.filtering = true
		m.filter.SetValue(m.snap.Widgets[m.selected].Filter)
		m.filter.CursorEnd()
		return true, m.filter.Focus()

	case KeyReconnect:
		return true, m.action("reconnect", src.Reconnect)
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		return true, m.navigateTo(n - 1)
	}
	return false, nil
}

// handleFilterKey edits the filter of the selected table. Enter applies it,
// Esc restores the previous keyword.
func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	src := m.src
	switch msg.String() {
	case KeyConfirm, KeyCollapse:
		if msg.String() == KeyCollapse {
			m.filter.SetValue(m.snap.Widgets[m.selected].Filter)
		}
		m.filtering = false
		m.filter.Blur()
		i, keyword := m.selected, m.filter.Value()
		return m.action("filter", func(ctx context.Context) error { return src.FilterTable(ctx, i, keyword) })
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return cmd
}

func (m *Model) selectedIsTable() bool {
	return m.selected >= 0 && m.selected < len(m.snap.Widgets) && m.snap.Widgets[m.selected].Kind == widget.KindTable
}

func (m *Model) navigateBy(delta int) tea.Cmd {
	n := len(m.snap.Tabs)
	if n == 0 {
		return nil
	}
	cur := 0
	for i, t := range m.snap.Tabs {
		if t.Name == m.snap.Page {
			cur = i
		}
	}
	return m.navigateTo((cur + delta + n) % n)
}

func (m *Model) navigateTo(i int) tea.Cmd {
	if i < 0 || i >= len(m.snap.Tabs) {
		return nil
	}
	src, page := m.src, m.snap.Tabs[i].Name
	m.selected = 0
	return m.action("navigate", func(ctx context.Context) error { return src.Navigate(ctx, page) })
}

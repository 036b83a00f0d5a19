package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/ldash/pkg/sshutil"
)

// sshHostItem implements list.Item for the Bubbles list component.
type sshHostItem struct {
	host sshutil.Host
}

func (i sshHostItem) Title() string       { return i.host.Alias }
func (i sshHostItem) Description() string { return i.host.Description() }

func (i sshHostItem) FilterValue() string {
	return strings.Join([]string{i.host.Alias, i.host.Hostname, i.host.User}, " ")
}

// PickResult is how the picker ended.
type PickResult int

const (
	PickCancelled PickResult = iota
	PickSelected
	// PickDirect means the agent is reached without a tunnel.
	PickDirect
)

// SSHHostPickerModel is a Bubble Tea model for choosing the SSH host an
// agent is tunnelled through.
type SSHHostPickerModel struct {
	list     list.Model
	selected sshutil.Host
	result   PickResult
	quitting bool
}

var sshHostPickerKeys = struct {
	Enter  key.Binding
	Direct key.Binding
	Quit   key.Binding
}{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "tunnel through host"),
	),
	Direct: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "no tunnel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc", "cancel"),
	),
}

// NewSSHHostPickerModel creates a picker over hosts.
func NewSSHHostPickerModel(hosts []sshutil.Host) SSHHostPickerModel {
	items := make([]list.Item, len(hosts))
	for i, h := range hosts {
		items[i] = sshHostItem{host: h}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorPrimary).
		BorderForeground(ColorNeonPink)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorMuted)

	l := list.New(items, delegate, 80, 15)
	l.Title = "Reach the agent through an SSH host?"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true).Padding(0, 0, 1, 0)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{sshHostPickerKeys.Direct}
	}

	return SSHHostPickerModel{list: l}
}

// Init implements tea.Model.
func (m SSHHostPickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m SSHHostPickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, sshHostPickerKeys.Enter):
			if item, ok := m.list.SelectedItem().(sshHostItem); ok {
				m.selected = item.host
				m.result = PickSelected
			}
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, sshHostPickerKeys.Direct):
			m.result = PickDirect
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, sshHostPickerKeys.Quit):
			m.result = PickCancelled
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m SSHHostPickerModel) View() string {
	if m.quitting {
		return ""
	}
	hint := lipgloss.NewStyle().Foreground(ColorMuted).
		Render("\n  Press 'd' if the agent is reachable without a tunnel")
	return m.list.View() + hint
}

// Result reports how the picker ended and the chosen host.
func (m SSHHostPickerModel) Result() (PickResult, sshutil.Host) {
	return m.result, m.selected
}

// PickSSHHost runs the picker on the given terminal streams. With no hosts
// it returns PickDirect without prompting.
func PickSSHHost(hosts []sshutil.Host, output io.Writer, input io.Reader) (PickResult, sshutil.Host, error) {
	if len(hosts) == 0 {
		return PickDirect, sshutil.Host{}, nil
	}

	p := tea.NewProgram(NewSSHHostPickerModel(hosts), tea.WithOutput(output), tea.WithInput(input))
	final, err := p.Run()
	if err != nil {
		return PickCancelled, sshutil.Host{}, fmt.Errorf("SSH host picker error: %w", err)
	}
	if m, ok := final.(SSHHostPickerModel); ok {
		res, host := m.Result()
		return res, host, nil
	}
	return PickCancelled, sshutil.Host{}, nil
}

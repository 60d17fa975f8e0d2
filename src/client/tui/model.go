// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model is the dashboard's bubbletea model: a polling list of a
// running scheduler's tasks, navigable with the arrow keys, with 'r'
// force-running the selected task and 'q'/ctrl+c quitting.
type Model struct {
	client   *APIClient
	interval time.Duration
	styles   Styles

	tasks    []taskRow
	cursor   int
	width    int
	height   int
	lastErr  error
	statusAt time.Time
	status   string
}

// New builds a Model polling client every interval.
func New(client *APIClient, interval time.Duration, styles Styles) Model {
	return Model{client: client, interval: interval, styles: styles}
}

type tasksMsg struct {
	tasks []taskRow
	err   error
}

type tickMsg time.Time

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tasks, err := m.client.FetchTasks(ctx)
		return tasksMsg{tasks: tasks, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case tasksMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.tasks = msg.tasks
			if m.cursor >= len(m.tasks) {
				m.cursor = len(m.tasks) - 1
			}
			if m.cursor < 0 {
				m.cursor = 0
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case "r":
			if m.cursor < len(m.tasks) {
				name := m.tasks[m.cursor].Name
				return m, m.forceRun(name)
			}
		}
	case forceRunMsg:
		m.statusAt = time.Now()
		if msg.err != nil {
			m.status = fmt.Sprintf("force-run %s failed: %v", msg.name, msg.err)
		} else {
			m.status = fmt.Sprintf("force-run requested for %s", msg.name)
		}
		return m, m.fetch()
	}
	return m, nil
}

type forceRunMsg struct {
	name string
	err  error
}

func (m Model) forceRun(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := m.client.ForceRun(ctx, name)
		return forceRunMsg{name: name, err: err}
	}
}

func (m Model) View() string {
	mode := GetLayoutMode(m.width, m.height)
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("rocketry dashboard"))
	b.WriteByte('\n')

	if m.lastErr != nil {
		b.WriteString(m.styles.Error.Render(fmt.Sprintf("error: %v", m.lastErr)))
		b.WriteByte('\n')
	}

	if len(m.tasks) == 0 {
		b.WriteString(m.styles.Muted.Render("no tasks registered"))
		b.WriteByte('\n')
	}

	for i, t := range m.tasks {
		line := formatRow(t, mode)
		if i == m.cursor {
			line = m.styles.Selected.Render(line)
		} else {
			line = statusStyle(m.styles, t.Status).Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if mode.Config().ShowFooter {
		b.WriteByte('\n')
		if m.status != "" && time.Since(m.statusAt) < 5*time.Second {
			b.WriteString(m.styles.Success.Render(m.status))
			b.WriteByte('\n')
		}
		b.WriteString(m.styles.Muted.Render("↑/↓ select · r force-run · q quit"))
	}

	return b.String()
}

func formatRow(t taskRow, mode LayoutMode) string {
	if mode <= LayoutMinimal {
		return fmt.Sprintf("%-16s %s", truncate(t.Name, 16), t.Status)
	}
	disabled := ""
	if t.Disabled {
		disabled = " (disabled)"
	}
	return fmt.Sprintf("%-20s %-10s %-10s%s", truncate(t.Name, 20), t.Status, t.Execution, disabled)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func statusStyle(styles Styles, status string) lipgloss.Style {
	switch status {
	case "run":
		return styles.Success
	case "fail", "crash":
		return styles.Error
	case "invalid":
		return styles.Warning
	default:
		return styles.Base
	}
}

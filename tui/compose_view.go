// ABOUTME: Email and follow-up task forms for the selected deal
// ABOUTME: Tab cycles fields, Enter submits, Esc cancels
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/harperreed/pipeboard/models"
)

type composeKind int

const (
	composeEmail composeKind = iota
	composeTask
)

const dueDateLayout = "2006-01-02"

type composeState struct {
	dealID    uuid.UUID
	dealTitle string
}

func (m *Model) openCompose(kind composeKind, deal models.Deal) {
	m.compose = kind
	m.composeFor = composeState{dealID: deal.ID, dealTitle: deal.Title}
	m.focusIndex = 0

	var fields []string
	switch kind {
	case composeEmail:
		fields = []string{"Subject", "Body"}
	case composeTask:
		fields = []string{"Title", "Due (YYYY-MM-DD, optional)"}
	}

	m.formInputs = make([]textinput.Model, len(fields))
	for i, label := range fields {
		in := textinput.New()
		in.Placeholder = label
		in.CharLimit = 500
		in.Width = 60
		m.formInputs[i] = in
	}
	m.formInputs[0].Focus()
	m.viewMode = ViewCompose
}

func (m Model) renderComposeView() string {
	var s strings.Builder

	switch m.compose {
	case composeEmail:
		s.WriteString(titleStyle.Render("EMAIL · " + m.composeFor.dealTitle))
	case composeTask:
		s.WriteString(titleStyle.Render("NEW TASK · " + m.composeFor.dealTitle))
	}
	s.WriteString("\n\n")

	for i, input := range m.formInputs {
		if i == m.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		s.WriteString(input.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")
	if m.status != "" {
		s.WriteString(noticeErrStyle.Render(m.status))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render(strings.Join([]string{"Tab: Next field", "Enter: Save", "Esc: Cancel"}, " • ")))
	return s.String()
}

func (m Model) handleComposeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.status = ""
		m.viewMode = ViewBoard
		return m, nil
	case "tab", "shift+tab":
		step := 1
		if msg.String() == "shift+tab" {
			step = len(m.formInputs) - 1
		}
		m.formInputs[m.focusIndex].Blur()
		m.focusIndex = (m.focusIndex + step) % len(m.formInputs)
		m.formInputs[m.focusIndex].Focus()
		return m, nil
	case "enter":
		cmd, err := m.submitCompose()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = ""
		m.viewMode = ViewBoard
		return m, cmd
	}

	var cmd tea.Cmd
	m.formInputs[m.focusIndex], cmd = m.formInputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m Model) submitCompose() (tea.Cmd, error) {
	dealID := m.composeFor.dealID
	first := m.formInputs[0].Value()
	second := m.formInputs[1].Value()

	switch m.compose {
	case composeEmail:
		outreach := m.deps.Outreach
		return m.run("send email", func(ctx context.Context) error {
			return outreach.SendEmail(ctx, dealID, first, second)
		}), nil
	case composeTask:
		var due *time.Time
		if v := strings.TrimSpace(second); v != "" {
			t, err := time.ParseInLocation(dueDateLayout, v, time.Local)
			if err != nil {
				return nil, errBadDueDate
			}
			due = &t
		}
		outreach := m.deps.Outreach
		return m.run("create task", func(ctx context.Context) error {
			_, err := outreach.CreateTask(ctx, dealID, first, due)
			return err
		}), nil
	}
	return nil, nil
}

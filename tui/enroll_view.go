// ABOUTME: Sequence enrollment picker for the selected deal's contact
// ABOUTME: Shows active sequences, or where to go when there are none
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/pipeboard/board"
	"github.com/harperreed/pipeboard/models"
)

type promptMsg struct {
	prompt *board.EnrollmentPrompt
	err    error
}

func (m Model) prepareEnrollment(deal models.Deal) tea.Cmd {
	ctx, seqs := m.ctx, m.deps.Seqs
	return func() tea.Msg {
		prompt, err := seqs.Prepare(ctx, deal.ID)
		return promptMsg{prompt: prompt, err: err}
	}
}

func (m Model) handlePrompt(msg promptMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.deps.Log.Debug().Err(msg.err).Msg("enrollment unavailable")
		return m, nil
	}
	m.prompt = msg.prompt
	m.seqCursor = 0
	m.viewMode = ViewEnroll
	return m, nil
}

func (m Model) renderEnrollView() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("ENROLL IN SEQUENCE"))
	s.WriteString("\n")

	p := m.prompt
	if p == nil {
		return s.String()
	}

	if p.Kind == board.PromptRedirect {
		r := p.Redirect
		s.WriteString("There are no active sequences yet.\n\n")
		s.WriteString(fmt.Sprintf("Create one for %s <%s>, then come back to %q.\n", r.ContactName, r.ContactEmail, r.DealTitle))
		s.WriteString(helpStyle.Render("Esc: Back"))
		return s.String()
	}

	for i, seq := range p.Sequences {
		cursor := "  "
		if i == m.seqCursor {
			cursor = "> "
		}
		s.WriteString(fmt.Sprintf("%s%s (%d steps)\n", cursor, seq.Name, seq.StepCount))
	}
	if p.NextStage != nil {
		s.WriteString(dimStyle.Render(fmt.Sprintf("\nThe deal will move to %s.", p.NextStage.Name)))
		s.WriteString("\n")
	}
	s.WriteString(helpStyle.Render(strings.Join([]string{"↑/↓: Choose", "Enter: Enroll", "Esc: Cancel"}, " • ")))
	return s.String()
}

func (m Model) handleEnrollKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.prompt
	switch msg.String() {
	case "esc", "q":
		m.prompt = nil
		m.viewMode = ViewBoard
	case "up", "k":
		if m.seqCursor > 0 {
			m.seqCursor--
		}
	case "down", "j":
		if p != nil && m.seqCursor < len(p.Sequences)-1 {
			m.seqCursor++
		}
	case "enter":
		if p == nil || p.Kind != board.PromptSelect || len(p.Sequences) == 0 {
			return m, nil
		}
		intent := models.EnrollmentIntent{
			DealID:     p.DealID,
			ContactID:  p.ContactID,
			SequenceID: p.Sequences[m.seqCursor].ID,
		}
		m.prompt = nil
		m.viewMode = ViewBoard
		seqs := m.deps.Seqs
		return m, m.run("enroll", func(ctx context.Context) error {
			_, err := seqs.Enroll(ctx, intent)
			return err
		})
	}
	return m, nil
}

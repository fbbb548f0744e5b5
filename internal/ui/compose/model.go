// Package compose implements the message composition view.
package compose

import (
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
	"github.com/nhle/webmail/internal/ui/recipients"
)

// SendRequestedMsg is dispatched when the user submits the composition.
type SendRequestedMsg struct {
	Message *model.OutgoingMessage
}

// CancelMsg is dispatched when the user abandons the composition.
type CancelMsg struct{}

// field identifies the focused section of the form.
type field int

const (
	fieldTo field = iota
	fieldCc
	fieldBcc
	fieldSubject
	fieldBody
	fieldCount
)

// Model is the Bubble Tea model for composing a message.
type Model struct {
	to      recipients.Model
	cc      recipients.Model
	bcc     recipients.Model
	subject textinput.Model
	body    textarea.Model

	focus  field
	errMsg string
	width  int
	height int
}

// New creates a compose view wired to the given suggestion resolver.
func New(
	suggest recipients.Suggester,
	debounce time.Duration,
	limit int,
	width, height int,
) Model {
	subject := textinput.New()
	subject.Placeholder = "subject..."
	subject.Prompt = ""

	body := textarea.New()
	body.Placeholder = "write your message..."

	m := Model{
		to:      recipients.New("To", suggest, debounce, limit),
		cc:      recipients.New("Cc", suggest, debounce, limit),
		bcc:     recipients.New("Bcc", suggest, debounce, limit),
		subject: subject,
		body:    body,
		width:   width,
		height:  height,
	}
	m.SetSize(width, height)
	m.setFocus(fieldTo)
	return m
}

// Init returns the initial command. Focus is already on the To field
// from construction.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Reset clears all fields and focuses the To line.
func (m *Model) Reset() tea.Cmd {
	m.to.SetRecipients(nil)
	m.cc.SetRecipients(nil)
	m.bcc.SetRecipients(nil)
	m.subject.Reset()
	m.body.Reset()
	m.errMsg = ""
	return m.setFocus(fieldTo)
}

// SetError shows a send failure under the form.
func (m *Model) SetError(message string) {
	m.errMsg = message
}

// Update handles messages for the compose view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+s":
			if len(m.to.Recipients()) == 0 {
				m.errMsg = "at least one To recipient is required"
				return m, nil
			}
			m.errMsg = ""
			return m, m.submit()

		case "esc":
			// A recipient field consumes esc first to close its list.
			if !m.focusedRecipients().Open() {
				return m, func() tea.Msg { return CancelMsg{} }
			}

		case "tab", "shift+tab", "enter":
			if consumed, next, cmd := m.cycleFocus(key); consumed {
				return next, cmd
			}
		}
	}

	return m.routeToFocused(msg)
}

// cycleFocus advances focus between fields. Tab and enter inside a
// recipient field belong to that field while it has a pending valid
// token or an open suggestion list, so focus only moves when the field
// declines the key.
func (m Model) cycleFocus(key tea.KeyMsg) (bool, Model, tea.Cmd) {
	if m.focus <= fieldBcc {
		active := m.focusedRecipients()
		if active.Open() || key.String() == "enter" {
			return false, m, nil
		}
		if key.String() == "tab" && active.CanCommit() {
			return false, m, nil
		}
	}
	if m.focus == fieldBody && key.String() != "shift+tab" {
		// Tab and enter insert text in the body.
		return false, m, nil
	}
	if m.focus == fieldSubject && key.String() == "enter" {
		// Enter moves from subject into the body.
		return true, m, m.setFocus(fieldBody)
	}

	next := m.focus
	if key.String() == "shift+tab" {
		next = (next - 1 + fieldCount) % fieldCount
	} else {
		next = (next + 1) % fieldCount
	}
	return true, m, m.setFocus(next)
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.to.Blur()
	m.cc.Blur()
	m.bcc.Blur()
	m.subject.Blur()
	m.body.Blur()
	m.focus = f

	switch f {
	case fieldTo:
		return m.to.Focus()
	case fieldCc:
		return m.cc.Focus()
	case fieldBcc:
		return m.bcc.Focus()
	case fieldSubject:
		return m.subject.Focus()
	case fieldBody:
		return m.body.Focus()
	}
	return nil
}

func (m *Model) focusedRecipients() *recipients.Model {
	switch m.focus {
	case fieldCc:
		return &m.cc
	case fieldBcc:
		return &m.bcc
	default:
		return &m.to
	}
}

// routeToFocused forwards a message to the focused field. Debounce and
// suggestion messages go to every recipient field; each field matches
// them against its own identity.
func (m Model) routeToFocused(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if _, isKey := msg.(tea.KeyMsg); isKey {
		switch m.focus {
		case fieldTo, fieldCc, fieldBcc:
		case fieldSubject:
			m.subject, cmd = m.subject.Update(msg)
			return m, cmd
		case fieldBody:
			m.body, cmd = m.body.Update(msg)
			return m, cmd
		}
	}

	m.to, cmd = m.to.Update(msg)
	cmds = append(cmds, cmd)
	m.cc, cmd = m.cc.Update(msg)
	cmds = append(cmds, cmd)
	m.bcc, cmd = m.bcc.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) submit() tea.Cmd {
	msg := &model.OutgoingMessage{
		To:      m.to.Recipients(),
		Cc:      m.cc.Recipients(),
		Bcc:     m.bcc.Recipients(),
		Subject: m.subject.Value(),
		Body:    m.body.Value(),
	}
	return func() tea.Msg { return SendRequestedMsg{Message: msg} }
}

// View renders the composition form.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections := []string{
		titleStyle.Render("New Message"),
		m.to.View(),
		m.cc.View(),
		m.bcc.View(),
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGray).Width(5).Render("Subj:"),
			m.subject.View(),
		),
		m.body.View(),
	}

	if m.errMsg != "" {
		errStyle := lipgloss.NewStyle().Foreground(theme.ColorRed)
		sections = append(sections, errStyle.Render(m.errMsg))
	}

	sections = append(sections, theme.HelpStyle.Render(
		"tab: next field • ctrl+s: send • esc: cancel",
	))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the compose view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	fieldWidth := width - 8
	m.to.SetSize(fieldWidth)
	m.cc.SetSize(fieldWidth)
	m.bcc.SetSize(fieldWidth)
	m.subject.Width = fieldWidth - 6

	m.body.SetWidth(fieldWidth)
	bodyHeight := height - 14
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.body.SetHeight(bodyHeight)
}

// Package recipients implements a recipient input field with ranked
// autosuggest. Committed recipients render as chips ahead of the text
// input; typing queries the suggestion service after a short debounce
// and the list is keyboard navigable.
package recipients

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/nhle/webmail/internal/contacts"
	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/theme"
)

// Suggester resolves ranked suggestions for a query, excluding addresses
// the caller already holds.
type Suggester func(
	ctx context.Context, query string, limit int, exclude []string,
) ([]model.RecipientSuggestion, error)

// separatorPattern splits pasted text into address tokens.
var separatorPattern = regexp.MustCompile(`[,;\s]+`)

// debounceMsg fires when the debounce timer for a keystroke expires.
// Messages are tagged with the owning field's id because a host form may
// broadcast them to several fields; only the message carrying the
// field's own id and latest sequence number triggers a fetch.
type debounceMsg struct {
	id  string
	seq int
}

// suggestionsMsg carries fetched suggestions back into the update loop.
type suggestionsMsg struct {
	id    string
	seq   int
	items []model.RecipientSuggestion
}

// Model is a recipient entry field with autosuggest.
type Model struct {
	id    string
	label string
	input textinput.Model

	chips []model.Sender

	suggest  Suggester
	debounce time.Duration
	limit    int

	suggestions []model.RecipientSuggestion
	snapshot    []model.RecipientSuggestion
	cursor      int
	open        bool

	seq       int
	lastQuery string
	composing bool

	width   int
	focused bool
}

// New creates a recipient field with the given label.
func New(label string, suggest Suggester, debounce time.Duration, limit int) Model {
	ti := textinput.New()
	ti.Placeholder = "add recipient..."
	ti.Prompt = ""

	return Model{
		id:       uuid.New().String(),
		label:    label,
		input:    ti,
		suggest:  suggest,
		debounce: debounce,
		limit:    limit,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the recipient field.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}
		if msg.Paste {
			m.acceptPaste(string(msg.Runes))
			return m, m.scheduleQuery()
		}
		if handled, next, cmd := m.handleKey(msg); handled {
			return next, cmd
		}

	case debounceMsg:
		if msg.id != m.id || msg.seq != m.seq {
			return m, nil
		}
		// An empty query never fetches; the dropdown stays hidden.
		if m.input.Value() == "" {
			return m, nil
		}
		// The local snapshot already produced matches; the remote
		// fetch is only for queries the snapshot cannot answer.
		if len(m.suggestions) > 0 {
			return m, nil
		}
		return m, m.fetch(msg.seq, m.input.Value())

	case suggestionsMsg:
		// Results for a sibling field or a superseded query are dropped.
		if msg.id != m.id || msg.seq != m.seq {
			return m, nil
		}
		m.suggestions = msg.items
		m.snapshot = msg.items
		m.cursor = 0
		m.open = len(msg.items) > 0
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if value := m.input.Value(); value != m.lastQuery {
		m.lastQuery = value
		m.filterSnapshot(value)
		return m, tea.Batch(cmd, m.scheduleQuery())
	}

	return m, cmd
}

// handleKey intercepts navigation and commit keys. It reports whether the
// key was consumed; unconsumed keys fall through to the text input.
func (m Model) handleKey(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	// During an IME composition no commit or navigation handling runs;
	// everything passes straight through to the text input.
	if m.composing {
		return false, m, nil
	}

	switch msg.String() {
	case "down":
		if m.open && len(m.suggestions) > 0 {
			m.cursor = (m.cursor + 1) % len(m.suggestions)
		}
		return true, m, nil

	case "up":
		if m.open && len(m.suggestions) > 0 {
			m.cursor = (m.cursor - 1 + len(m.suggestions)) % len(m.suggestions)
		}
		return true, m, nil

	case "esc":
		if m.open {
			m.open = false
			return true, m, nil
		}
		return false, m, nil

	case "enter", "tab":
		if m.open && len(m.suggestions) > 0 {
			m.commitSuggestion(m.suggestions[m.cursor])
			return true, m, nil
		}
		if m.commitToken() {
			return true, m, nil
		}
		// Nothing to commit, let the key bubble up to the parent form.
		return false, m, nil

	case " ", ",", ";":
		// Separators commit the pending token and are never inserted.
		m.commitToken()
		return true, m, nil

	case "backspace":
		if m.input.Value() == "" && len(m.chips) > 0 {
			m.chips = m.chips[:len(m.chips)-1]
			return true, m, nil
		}
		return false, m, nil
	}

	return false, m, nil
}

// scheduleQuery starts the debounce timer for the current input value.
// Every keystroke bumps the sequence number so earlier timers no-op.
func (m *Model) scheduleQuery() tea.Cmd {
	m.seq++
	id, seq := m.id, m.seq
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return debounceMsg{id: id, seq: seq}
	})
}

// fetch queries the suggestion service off the UI loop.
func (m Model) fetch(seq int, query string) tea.Cmd {
	id := m.id
	suggest := m.suggest
	exclude := m.chipEmails()
	limit := m.limit

	return func() tea.Msg {
		items, err := suggest(context.Background(), query, limit, exclude)
		if err != nil {
			items = nil
		}
		return suggestionsMsg{id: id, seq: seq, items: items}
	}
}

// filterSnapshot narrows the last fetched result set locally so the list
// tracks keystrokes without waiting out the debounce.
func (m *Model) filterSnapshot(query string) {
	if query == "" {
		m.suggestions = nil
		m.open = false
		m.cursor = 0
		return
	}

	needle := strings.ToLower(query)
	var filtered []model.RecipientSuggestion
	for _, s := range m.snapshot {
		if strings.Contains(strings.ToLower(s.Email), needle) {
			filtered = append(filtered, s)
			continue
		}
		if s.Name != nil && strings.Contains(strings.ToLower(*s.Name), needle) {
			filtered = append(filtered, s)
		}
	}

	m.suggestions = filtered
	m.open = len(filtered) > 0
	if m.cursor >= len(filtered) {
		m.cursor = 0
	}
}

// commitSuggestion turns the highlighted suggestion into a chip.
func (m *Model) commitSuggestion(s model.RecipientSuggestion) {
	chip := model.Sender{Email: s.Email}
	if s.Name != nil {
		chip.Name = *s.Name
	}
	m.addChip(chip)
}

// commitToken turns the raw input into a chip when it is a valid address.
func (m *Model) commitToken() bool {
	token := strings.TrimSpace(m.input.Value())
	if !contacts.ValidEmail(token) {
		return false
	}
	m.addChip(model.Sender{Email: token})
	return true
}

func (m *Model) addChip(chip model.Sender) {
	lower := strings.ToLower(chip.Email)
	for _, existing := range m.chips {
		if strings.ToLower(existing.Email) == lower {
			m.resetInput()
			return
		}
	}
	m.chips = append(m.chips, chip)
	m.resetInput()
}

// resetInput clears the field and invalidates any pending fetch.
func (m *Model) resetInput() {
	m.input.Reset()
	m.lastQuery = ""
	m.suggestions = nil
	m.snapshot = nil
	m.open = false
	m.cursor = 0
	m.seq++
}

// acceptPaste splits pasted text into tokens; valid addresses become
// chips and invalid tokens are dropped silently.
func (m *Model) acceptPaste(text string) {
	for _, token := range separatorPattern.Split(text, -1) {
		if contacts.ValidEmail(token) {
			m.addChip(model.Sender{Email: token})
		}
	}
}

func (m Model) chipEmails() []string {
	emails := make([]string, 0, len(m.chips))
	for _, chip := range m.chips {
		emails = append(emails, chip.Email)
	}
	return emails
}

// Recipients returns the committed recipients in entry order.
func (m Model) Recipients() []model.Sender {
	out := make([]model.Sender, len(m.chips))
	copy(out, m.chips)
	return out
}

// SetRecipients replaces the committed recipients.
func (m *Model) SetRecipients(recipients []model.Sender) {
	m.chips = append([]model.Sender(nil), recipients...)
}

// SetComposing marks an active IME composition session. Commit keys are
// ignored while composing so half-entered characters are not committed.
func (m *Model) SetComposing(composing bool) {
	m.composing = composing
}

// Open reports whether the suggestion list is showing.
func (m Model) Open() bool {
	return m.open
}

// CanCommit reports whether enter or tab would commit something: an open
// suggestion list or a pending valid address. Host forms use it to leave
// those keys to the field instead of moving focus.
func (m Model) CanCommit() bool {
	if m.open && len(m.suggestions) > 0 {
		return true
	}
	return contacts.ValidEmail(strings.TrimSpace(m.input.Value()))
}

// Focus gives keyboard focus to the field.
func (m *Model) Focus() tea.Cmd {
	m.focused = true
	return m.input.Focus()
}

// Blur removes keyboard focus and dismisses the suggestion list.
func (m *Model) Blur() {
	m.focused = false
	m.open = false
	m.input.Blur()
}

// Focused reports whether the field has keyboard focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetSize updates the field width.
func (m *Model) SetSize(width int) {
	m.width = width
	m.input.Width = width - len(m.label) - 4
}

// View renders the label, chips, input, and suggestion list.
func (m Model) View() string {
	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorGray).
		Width(5)

	chipStyle := lipgloss.NewStyle().
		Foreground(theme.ColorWhite).
		Background(theme.ColorSubtle).
		Padding(0, 1).
		MarginRight(1)

	parts := []string{labelStyle.Render(m.label + ":")}
	for _, chip := range m.chips {
		text := chip.Email
		if chip.Name != "" {
			text = chip.Name
		}
		parts = append(parts, chipStyle.Render(text))
	}
	parts = append(parts, m.input.View())

	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	if !m.open || len(m.suggestions) == 0 {
		return line
	}

	rows := make([]string, 0, len(m.suggestions))
	for i, s := range m.suggestions {
		if i == m.cursor {
			rows = append(rows, theme.SelectedItemStyle.Render(s.DisplayText))
		} else {
			rows = append(rows, theme.ListItemStyle.Render(s.DisplayText))
		}
	}

	list := theme.BorderStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)

	return lipgloss.JoinVertical(lipgloss.Left, line, list)
}

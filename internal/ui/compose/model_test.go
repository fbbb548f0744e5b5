package compose

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/model"
)

func nullSuggester(
	context.Context, string, int, []string,
) ([]model.RecipientSuggestion, error) {
	return nil, nil
}

func newTestModel() Model {
	return New(nullSuggester, 10*time.Millisecond, 10, 80, 24)
}

func typeString(m Model, s string) Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNewFocusesToField(t *testing.T) {
	m := newTestModel()
	assert.True(t, m.to.Focused())
}

func TestTabCommitsTypedRecipient(t *testing.T) {
	m := newTestModel()
	m = typeString(m, "a@x.com")

	// Tab belongs to the recipient field while it holds a valid
	// address, so the address becomes a chip instead of being lost.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})

	got := m.to.Recipients()
	require.Len(t, got, 1)
	assert.Equal(t, "a@x.com", got[0].Email)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)

	sent, ok := cmd().(SendRequestedMsg)
	require.True(t, ok)
	require.Len(t, sent.Message.To, 1)
	assert.Equal(t, "a@x.com", sent.Message.To[0].Email)
}

func TestTabMovesFocusWhenFieldHasNothingToCommit(t *testing.T) {
	m := newTestModel()

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.to.Focused())
	assert.True(t, m.cc.Focused())

	// A partial address is not committable either; tab still cycles.
	m = typeString(m, "bo")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, m.bcc.Focused())
}

func TestSubmitRequiresToRecipient(t *testing.T) {
	m := newTestModel()

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.NotEmpty(t, m.errMsg)
}

package recipients

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/model"
)

func strPtr(s string) *string { return &s }

// recordingSuggester returns a fixed result set and records every call.
type recordingSuggester struct {
	mu      sync.Mutex
	items   []model.RecipientSuggestion
	queries []string
	exclude [][]string
}

func (r *recordingSuggester) suggest(
	_ context.Context, query string, _ int, exclude []string,
) ([]model.RecipientSuggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	r.exclude = append(r.exclude, exclude)
	return r.items, nil
}

func (r *recordingSuggester) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func suggestion(email string, name *string) model.RecipientSuggestion {
	return model.NewRecipientSuggestion(email, name)
}

func newTestModel(items ...model.RecipientSuggestion) (Model, *recordingSuggester) {
	rec := &recordingSuggester{items: items}
	m := New("To", rec.suggest, 10*time.Millisecond, 10)
	m.Focus()
	return m, rec
}

func typeString(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		var cmd tea.Cmd
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		_ = cmd
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// seed types a query and completes the fetch round trip so the model
// holds an open suggestion list.
func seed(t *testing.T, m Model, query string) Model {
	t.Helper()

	m = typeString(t, m, query)
	m, cmd := m.Update(debounceMsg{id: m.id, seq: m.seq})
	require.NotNil(t, cmd)

	msg := cmd()
	result, ok := msg.(suggestionsMsg)
	require.True(t, ok)

	m, _ = m.Update(result)
	return m
}

func TestTypingFetchesAfterDebounce(t *testing.T) {
	m, rec := newTestModel(
		suggestion("alice@example.com", strPtr("Alice")),
	)

	m = typeString(t, m, "ali")
	assert.Equal(t, 0, rec.calls())

	// Only the timer for the latest keystroke triggers a fetch.
	m, cmd := m.Update(debounceMsg{id: m.id, seq: m.seq})
	require.NotNil(t, cmd)

	msg := cmd()
	result, ok := msg.(suggestionsMsg)
	require.True(t, ok)
	require.Len(t, result.items, 1)

	m, _ = m.Update(result)
	assert.True(t, m.Open())
	assert.Equal(t, 1, rec.calls())
	assert.Equal(t, "ali", rec.queries[0])
}

func TestStaleDebounceTimerIsIgnored(t *testing.T) {
	m, rec := newTestModel()

	m = typeString(t, m, "a")
	stale := m.seq
	m = typeString(t, m, "l")
	require.Greater(t, m.seq, stale)

	m, cmd := m.Update(debounceMsg{id: m.id, seq: stale})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, rec.calls())
}

func TestEmptiedQueryDoesNotFetch(t *testing.T) {
	m, rec := newTestModel(suggestion("alice@example.com", nil))

	m = typeString(t, m, "a")
	m, _ = m.Update(key("backspace"))
	assert.Equal(t, "", m.input.Value())

	m, cmd := m.Update(debounceMsg{id: m.id, seq: m.seq})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, rec.calls())
	assert.False(t, m.Open())
}

func TestStaleSuggestionsAreDropped(t *testing.T) {
	m, _ := newTestModel()

	m = typeString(t, m, "al")
	m, _ = m.Update(suggestionsMsg{
		id:    m.id,
		seq:   m.seq - 1,
		items: []model.RecipientSuggestion{suggestion("alice@example.com", nil)},
	})

	assert.False(t, m.Open())
	assert.Empty(t, m.suggestions)
}

func TestEnterCommitsHighlightedSuggestion(t *testing.T) {
	m, _ := newTestModel(
		suggestion("alice@example.com", strPtr("Alice")),
		suggestion("albert@example.com", nil),
	)

	m = seed(t, m, "al")
	require.True(t, m.Open())

	m, _ = m.Update(key("down"))
	m, _ = m.Update(key("enter"))

	got := m.Recipients()
	require.Len(t, got, 1)
	assert.Equal(t, "albert@example.com", got[0].Email)
	assert.False(t, m.Open())
	assert.Equal(t, "", m.input.Value())
}

func TestCursorWrapsAround(t *testing.T) {
	m, _ := newTestModel(
		suggestion("alice@example.com", nil),
		suggestion("albert@example.com", nil),
	)

	m = seed(t, m, "al")
	require.True(t, m.Open())

	m, _ = m.Update(key("up"))
	assert.Equal(t, 1, m.cursor)

	m, _ = m.Update(key("down"))
	assert.Equal(t, 0, m.cursor)
}

func TestEscClosesSuggestionList(t *testing.T) {
	m, _ := newTestModel(suggestion("alice@example.com", nil))

	m = seed(t, m, "al")
	require.True(t, m.Open())

	m, _ = m.Update(key("esc"))
	assert.False(t, m.Open())
}

func TestSeparatorCommitsTypedAddress(t *testing.T) {
	m, _ := newTestModel()

	m = typeString(t, m, "bob@example.com")
	m, _ = m.Update(key(","))

	got := m.Recipients()
	require.Len(t, got, 1)
	assert.Equal(t, "bob@example.com", got[0].Email)
	assert.Equal(t, "", m.input.Value())
}

func TestSeparatorKeepsInvalidToken(t *testing.T) {
	m, _ := newTestModel()

	m = typeString(t, m, "not-an-address")
	m, _ = m.Update(key(" "))

	assert.Empty(t, m.Recipients())
	assert.Equal(t, "not-an-address", m.input.Value())
}

func TestBackspaceOnEmptyInputRemovesLastChip(t *testing.T) {
	m, _ := newTestModel()
	m.SetRecipients([]model.Sender{
		{Email: "alice@example.com"},
		{Email: "bob@example.com"},
	})

	m, _ = m.Update(key("backspace"))

	got := m.Recipients()
	require.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0].Email)
}

func TestPasteSplitsIntoChips(t *testing.T) {
	m, _ := newTestModel()

	m, _ = m.Update(tea.KeyMsg{
		Type:  tea.KeyRunes,
		Runes: []rune("alice@example.com, bob@example.com partial"),
		Paste: true,
	})

	got := m.Recipients()
	require.Len(t, got, 2)
	assert.Equal(t, "alice@example.com", got[0].Email)
	assert.Equal(t, "bob@example.com", got[1].Email)
	// Invalid tokens are dropped, not kept for editing.
	assert.Equal(t, "", m.input.Value())
}

func TestChipsDeduplicateCaseInsensitively(t *testing.T) {
	m, _ := newTestModel()

	m, _ = m.Update(tea.KeyMsg{
		Type:  tea.KeyRunes,
		Runes: []rune("Alice@Example.com alice@example.com"),
		Paste: true,
	})

	require.Len(t, m.Recipients(), 1)
}

func TestFetchExcludesCommittedChips(t *testing.T) {
	m, rec := newTestModel()
	m.SetRecipients([]model.Sender{{Email: "alice@example.com"}})

	m = typeString(t, m, "b")
	m, cmd := m.Update(debounceMsg{id: m.id, seq: m.seq})
	require.NotNil(t, cmd)
	cmd()

	require.Equal(t, 1, rec.calls())
	assert.Equal(t, []string{"alice@example.com"}, rec.exclude[0])
}

func TestTypingNarrowsSnapshotLocally(t *testing.T) {
	m, rec := newTestModel(
		suggestion("alice@example.com", nil),
		suggestion("bob@example.com", nil),
	)

	m = seed(t, m, "a")
	require.Len(t, m.suggestions, 2)
	require.Equal(t, 1, rec.calls())

	// The stored result set narrows on the next keystroke without
	// waiting out the debounce.
	m = typeString(t, m, "li")
	require.Len(t, m.suggestions, 1)
	assert.Equal(t, "alice@example.com", m.suggestions[0].Email)

	// With local matches in hand the debounce expiry skips the fetch.
	m, cmd := m.Update(debounceMsg{id: m.id, seq: m.seq})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, rec.calls())
}

func TestSnapshotMissTriggersRemoteFetch(t *testing.T) {
	m, rec := newTestModel(suggestion("alice@example.com", nil))

	m = seed(t, m, "a")
	require.Equal(t, 1, rec.calls())

	// "ax" matches nothing locally, so the debounce expiry queries
	// the service.
	m = typeString(t, m, "x")
	require.Empty(t, m.suggestions)

	m, cmd := m.Update(debounceMsg{id: m.id, seq: m.seq})
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 2, rec.calls())
	assert.Equal(t, "ax", rec.queries[1])
}

func TestSiblingDebounceTimerIsIgnored(t *testing.T) {
	to, _ := newTestModel()
	cc, rec := newTestModel(suggestion("bob@example.com", nil))

	to = typeString(t, to, "a")
	cc = typeString(t, cc, "b")

	// Both fields keep independent counters that collide in value, so
	// only the id distinguishes one field's timer from another's.
	require.Equal(t, to.seq, cc.seq)

	cc, cmd := cc.Update(debounceMsg{id: to.id, seq: to.seq})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, rec.calls())
	assert.False(t, cc.Open())
}

func TestSiblingSuggestionsAreDropped(t *testing.T) {
	to, _ := newTestModel()
	cc, _ := newTestModel()

	cc = typeString(t, cc, "b")
	cc, _ = cc.Update(suggestionsMsg{
		id:    to.id,
		seq:   cc.seq,
		items: []model.RecipientSuggestion{suggestion("bob@example.com", nil)},
	})

	assert.False(t, cc.Open())
	assert.Empty(t, cc.suggestions)
}

func TestCanCommitReportsPendingInput(t *testing.T) {
	m, _ := newTestModel()
	assert.False(t, m.CanCommit())

	m = typeString(t, m, "not-an-address")
	assert.False(t, m.CanCommit())

	m = typeString(t, m, "@example.com")
	assert.True(t, m.CanCommit())
}

func TestComposingSuppressesCommit(t *testing.T) {
	m, _ := newTestModel(suggestion("alice@example.com", nil))

	m = seed(t, m, "al")
	require.True(t, m.Open())

	m.SetComposing(true)
	m, _ = m.Update(key("enter"))

	assert.Empty(t, m.Recipients())
	assert.True(t, m.Open())
}

func TestComposingSuppressesNavigation(t *testing.T) {
	m, _ := newTestModel(
		suggestion("alice@example.com", nil),
		suggestion("albert@example.com", nil),
	)

	m = seed(t, m, "al")
	require.True(t, m.Open())
	m.SetComposing(true)

	m, _ = m.Update(key("down"))
	assert.Equal(t, 0, m.cursor)

	m, _ = m.Update(key("esc"))
	assert.True(t, m.Open())
}

func TestComposingSuppressesChipPop(t *testing.T) {
	m, _ := newTestModel()
	m.SetRecipients([]model.Sender{{Email: "alice@example.com"}})
	m.SetComposing(true)

	m, _ = m.Update(key("backspace"))
	require.Len(t, m.Recipients(), 1)
}

func TestUnfocusedFieldIgnoresKeys(t *testing.T) {
	m, _ := newTestModel()
	m.Blur()

	m = typeString(t, m, "alice")
	assert.Equal(t, "", m.input.Value())
}

package contacts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/model"
)

func newTestService(p *fakeProvider, st *fakeStore) *Service {
	log := discardLogger()
	scheduler := NewScheduler(NewIndexer("acct", p, st, log), log)
	resolver := NewResolver(p, Identity{Email: "me@example.com"}, log)
	return NewService("acct", st, p, resolver, scheduler, log)
}

func TestSuggestRecipientsExcludesChosen(t *testing.T) {
	st := &fakeStore{
		suggest: [][]model.RecipientSuggestion{{
			model.NewRecipientSuggestion("alice@example.com", nil),
			model.NewRecipientSuggestion("bob@example.com", nil),
			model.NewRecipientSuggestion("carol@example.com", nil),
		}},
	}
	svc := newTestService(newFakeProvider(), st)

	got, err := svc.SuggestRecipients(
		context.Background(), "example", 10,
		[]string{"Bob@Example.com"},
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice@example.com", got[0].Email)
	assert.Equal(t, "carol@example.com", got[1].Email)
}

func TestSuggestRecipientsTruncatesAfterExclusion(t *testing.T) {
	st := &fakeStore{
		suggest: [][]model.RecipientSuggestion{{
			model.NewRecipientSuggestion("a@example.com", nil),
			model.NewRecipientSuggestion("b@example.com", nil),
			model.NewRecipientSuggestion("c@example.com", nil),
		}},
	}
	svc := newTestService(newFakeProvider(), st)

	got, err := svc.SuggestRecipients(
		context.Background(), "", 2, []string{"a@example.com"},
	)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b@example.com", got[0].Email)
	assert.Equal(t, "c@example.com", got[1].Email)
}

func TestSuggestRecipientsEmptyResultRetriesOnce(t *testing.T) {
	st := &fakeStore{
		suggest: [][]model.RecipientSuggestion{
			{},
			{model.NewRecipientSuggestion("alice@example.com", nil)},
		},
	}
	svc := newTestService(newFakeProvider(), st)

	got, err := svc.SuggestRecipients(context.Background(), "al", 10, nil)
	require.NoError(t, err)

	// The empty first read triggers a background reindex and one
	// immediate re-read.
	assert.Equal(t, 2, st.suggestCalls)
	require.Len(t, got, 1)
	assert.Equal(t, "alice@example.com", got[0].Email)
}

func TestSuggestRecipientsStoreFailureDegrades(t *testing.T) {
	st := &fakeStore{suggestErr: errors.New("database locked")}
	svc := newTestService(newFakeProvider(), st)

	got, err := svc.SuggestRecipients(context.Background(), "al", 10, nil)
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestSendMergesRecipientsInBackground(t *testing.T) {
	p := newFakeProvider()
	st := &fakeStore{}
	svc := newTestService(p, st)

	msg := &model.OutgoingMessage{
		To:      []model.Sender{{Email: "alice@example.com", Name: "Alice"}},
		Cc:      []model.Sender{{Email: "bob@example.com"}},
		Bcc:     []model.Sender{{Email: "carol@example.com"}},
		Subject: "hello",
	}
	require.NoError(t, svc.Send(context.Background(), msg))
	require.Len(t, p.sent, 1)

	require.Eventually(t, func() bool {
		return st.mergeCount() == 1
	}, time.Second, 10*time.Millisecond)

	merged := st.lastMerge()
	require.Len(t, merged, 3)
	for _, o := range merged {
		assert.Equal(t, int64(1), o.Weight)
	}
}

func TestSendFailureDoesNotMerge(t *testing.T) {
	p := newFakeProvider()
	p.sendErr = errors.New("smtp unavailable")
	st := &fakeStore{}
	svc := newTestService(p, st)

	err := svc.Send(context.Background(), &model.OutgoingMessage{
		To: []model.Sender{{Email: "alice@example.com"}},
	})
	require.Error(t, err)
	assert.Equal(t, 0, st.mergeCount())
}

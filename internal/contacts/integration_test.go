package contacts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
	"github.com/nhle/webmail/tests/testutil"
)

// Runs the full pipeline against a real store: index a fake mailbox,
// then resolve suggestions from what the indexer persisted.
func TestIndexThenSuggest(t *testing.T) {
	st := testutil.NewTestStore(t)
	p := newFakeProvider()

	now := time.Now()
	p.addThread(provider.FolderSent, "s1", model.Message{
		Sender: model.Sender{Email: "me@example.com"},
		To:     []model.Sender{{Email: "alice@example.com", Name: "Alice"}},
		Cc:     []model.Sender{{Email: "bob@example.com"}},
		Date:   now,
	})
	p.addThread(provider.FolderInbox, "i1", model.Message{
		Sender: model.Sender{Email: "carol@example.com", Name: "Carol"},
		Date:   now,
	})

	log := discardLogger()
	indexer := NewIndexer("acct", p, st, log)

	count, err := indexer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	svc := NewService("acct", st, p, nil, NewScheduler(indexer, log), log)

	got, err := svc.SuggestRecipients(context.Background(), "", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 4)

	// Sent-folder recipients outrank inbox senders, email breaks ties.
	assert.Equal(t, "alice@example.com", got[0].Email)
	assert.Equal(t, "bob@example.com", got[1].Email)
	assert.Equal(t, "carol@example.com", got[2].Email)
	assert.Equal(t, "me@example.com", got[3].Email)

	got, err = svc.SuggestRecipients(context.Background(), "ali", 10, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice <alice@example.com>", got[0].DisplayText)

	got, err = svc.SuggestRecipients(
		context.Background(), "", 10, []string{"ALICE@example.com"},
	)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "bob@example.com", got[0].Email)
}

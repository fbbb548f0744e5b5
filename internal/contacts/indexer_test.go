package contacts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

func TestIndexerRunScansAllFolders(t *testing.T) {
	p := newFakeProvider()
	p.addThread(provider.FolderInbox, "in-1", model.Message{
		Sender: model.Sender{Email: "alice@example.com", Name: "Alice"},
	})
	p.addThread(provider.FolderSent, "sent-1", model.Message{
		Sender: model.Sender{Email: "me@example.com"},
		To:     []model.Sender{{Email: "bob@example.com", Name: "Bob"}},
	})
	p.addThread(provider.FolderTrash, "trash-1", model.Message{
		Sender: model.Sender{Email: "carol@example.com"},
	})

	st := &fakeStore{}
	ix := NewIndexer("acct", p, st, discardLogger())

	count, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.Equal(t, 1, st.mergeCount())
	merged := st.lastMerge()

	byEmail := make(map[string]model.ContactObservation, len(merged))
	for _, o := range merged {
		byEmail[o.Email] = o
	}
	// Sent recipients carry the recipient weight, everyone else the
	// plain sender weight.
	assert.Equal(t, int64(3), byEmail["bob@example.com"].Weight)
	assert.Equal(t, int64(1), byEmail["alice@example.com"].Weight)
	assert.Equal(t, int64(1), byEmail["carol@example.com"].Weight)
	assert.Equal(t, int64(1), byEmail["me@example.com"].Weight)
}

func TestIndexerFolderFailureIsNotFatal(t *testing.T) {
	p := newFakeProvider()
	p.listErr[provider.FolderInbox] = errors.New("mailbox unavailable")
	p.addThread(provider.FolderSent, "sent-1", model.Message{
		Sender: model.Sender{Email: "me@example.com"},
		To:     []model.Sender{{Email: "bob@example.com"}},
	})

	st := &fakeStore{}
	ix := NewIndexer("acct", p, st, discardLogger())

	count, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexerStopsAtPageCap(t *testing.T) {
	p := newFakeProvider()

	// Every page points back at itself, so only the cap ends the loop.
	page := &model.ThreadPage{
		Threads:       []model.ThreadSummary{{ID: "loop-1"}},
		NextPageToken: "again",
	}
	p.pages[provider.FolderInbox] = map[string]*model.ThreadPage{
		"":      page,
		"again": page,
	}
	p.threads["loop-1"] = &model.Thread{
		ID: "loop-1",
		Messages: []model.Message{
			{Sender: model.Sender{Email: "alice@example.com"}},
		},
	}

	st := &fakeStore{}
	ix := NewIndexer("acct", p, st, discardLogger())

	_, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, maxPagesPerFolder, p.listCalls[provider.FolderInbox])
}

func TestIndexerCheckpointsWithoutClearing(t *testing.T) {
	p := newFakeProvider()

	// Six pages of 100 threads: the processed counter crosses the
	// checkpoint boundary once, at 500.
	const pages = 6
	const perPage = 100
	for i := 0; i < pages; i++ {
		token := fmt.Sprintf("p%d", i)
		if i == 0 {
			token = ""
		}
		next := fmt.Sprintf("p%d", i+1)
		if i == pages-1 {
			next = ""
		}

		page := &model.ThreadPage{NextPageToken: next}
		for j := 0; j < perPage; j++ {
			id := fmt.Sprintf("t%d-%d", i, j)
			page.Threads = append(page.Threads, model.ThreadSummary{ID: id})
			p.threads[id] = &model.Thread{
				ID: id,
				Messages: []model.Message{
					{Sender: model.Sender{Email: fmt.Sprintf("u%d-%d@example.com", i, j)}},
				},
			}
		}
		if p.pages[provider.FolderInbox] == nil {
			p.pages[provider.FolderInbox] = map[string]*model.ThreadPage{}
		}
		p.pages[provider.FolderInbox][token] = page
	}

	st := &fakeStore{}
	ix := NewIndexer("acct", p, st, discardLogger())

	count, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pages*perPage, count)

	// One checkpoint merge plus the final merge.
	require.Equal(t, 2, st.mergeCount())

	// The checkpoint carries the full snapshot so far, not a cleared
	// delta, and the final merge holds everything.
	assert.Len(t, st.merges[0], 5*perPage)
	assert.Len(t, st.merges[1], pages*perPage)
}

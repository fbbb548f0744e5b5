package contacts

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
	"github.com/nhle/webmail/internal/store"
)

const (
	// indexPageSize is the listing page size requested from the provider.
	indexPageSize = 100

	// maxPagesPerFolder caps each folder's pagination loop as a guard
	// against runaway cursors. Hitting the cap ends the folder's scan
	// early without signaling failure.
	maxPagesPerFolder = 50

	// checkpointInterval is the processed-thread count between partial
	// merges of the accumulator into the store.
	checkpointInterval = 500

	// detailFanOut bounds the concurrent thread-detail fetches per page.
	detailFanOut = 8
)

// indexFolders is the fixed folder scan order of a full index run.
var indexFolders = []string{
	provider.FolderInbox,
	provider.FolderSent,
	provider.FolderDraft,
	provider.FolderTrash,
}

// Indexer performs a full-mailbox scan for one account, extracting
// weighted contact observations from every thread and merging them into
// the contact store.
//
// A run is not resumable: a crashed run loses only the in-flight folder's
// unmerged progress (prior checkpoints are already persisted), and
// re-running is the recovery mechanism.
type Indexer struct {
	accountID string
	provider  provider.Provider
	store     store.Store
	log       *slog.Logger
}

// NewIndexer creates an indexer for the given account.
func NewIndexer(accountID string, p provider.Provider, s store.Store, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{
		accountID: accountID,
		provider:  p,
		store:     s,
		log:       log,
	}
}

// Run executes one full index pass and returns the number of distinct
// contacts discovered. Folder failures are logged and skipped; only a
// failing final merge aborts the run with an error.
func (ix *Indexer) Run(ctx context.Context) (int, error) {
	acc := make(accumulator)
	processed := 0

	ix.log.Info("starting full contact index", slog.String("account", ix.accountID))

	for _, folder := range indexFolders {
		n, err := ix.indexFolder(ctx, folder, acc, processed)
		processed = n
		if err != nil {
			// A single folder's failure is never fatal to the run.
			ix.log.Warn("failed to index folder",
				slog.String("account", ix.accountID),
				slog.String("folder", folder),
				slog.String("error", err.Error()))
		}
	}

	// Final merge guarantees a write even if no checkpoint boundary was hit.
	if err := ix.store.MergeContacts(ctx, ix.accountID, acc.list()); err != nil {
		return 0, err
	}

	ix.log.Info("contact index complete",
		slog.String("account", ix.accountID),
		slog.Int("contacts", len(acc)),
		slog.Int("threads", processed))

	return len(acc), nil
}

// indexFolder pages through one folder, accumulating observations and
// checkpointing into the store each time the processed counter crosses a
// checkpoint boundary. It returns the updated processed count.
func (ix *Indexer) indexFolder(
	ctx context.Context,
	folder string,
	acc accumulator,
	processed int,
) (int, error) {
	cursor := ""
	pageCount := 0

	for {
		page, err := ix.provider.ListThreads(ctx, folder, "", indexPageSize, cursor)
		if err != nil {
			return processed, err
		}
		if len(page.Threads) == 0 {
			return processed, nil
		}

		threads := ix.fetchDetails(ctx, folder, page.Threads)
		for _, t := range threads {
			extractInto(acc, t, folder)
		}

		before := processed
		processed += len(page.Threads)
		if before/checkpointInterval != processed/checkpointInterval {
			ix.log.Info("checkpointing contact index",
				slog.String("account", ix.accountID),
				slog.Int("threads", processed))
			// The accumulator is not cleared; merging the full snapshot
			// again is additive at the store level as well.
			if err := ix.store.MergeContacts(ctx, ix.accountID, acc.list()); err != nil {
				return processed, err
			}
		}

		pageCount++
		cursor = page.NextPageToken
		if cursor == "" || pageCount >= maxPagesPerFolder {
			return processed, nil
		}
	}
}

// fetchDetails fetches the detail of every thread in the page with bounded
// concurrency. All fetches are dispatched and awaited together; a failing
// fetch is logged and skipped so its siblings are never aborted.
func (ix *Indexer) fetchDetails(
	ctx context.Context,
	folder string,
	summaries []model.ThreadSummary,
) []*model.Thread {
	results := make([]*model.Thread, len(summaries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFanOut)

	for i, summary := range summaries {
		g.Go(func() error {
			t, err := ix.provider.GetThread(gctx, summary.ID)
			if err != nil {
				ix.log.Debug("skipping thread",
					slog.String("folder", folder),
					slog.String("thread", summary.ID),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = t
			return nil
		})
	}

	// Workers swallow their own errors, so Wait only synchronizes.
	_ = g.Wait()

	out := results[:0]
	for _, t := range results {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

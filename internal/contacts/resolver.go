package contacts

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

const (
	// liveScanThreads caps the recent sent and inbox threads examined by
	// the live fallback scan, per folder.
	liveScanThreads = 25

	// liveScanListSize is the listing size requested for the fallback
	// scan; only the first liveScanThreads entries are fetched.
	liveScanListSize = 50
)

// Identity is the account owner's own address, seeded into every live
// scan at the highest weight so self-addressing always ranks first.
type Identity struct {
	Email string
	Name  string
}

// Resolver produces recipient suggestions from a live weighted scan of
// the mailbox: the account identity, its aliases, and the most recent
// sent and inbox threads. It is the fallback path used when the contact
// store has nothing to offer.
type Resolver struct {
	provider provider.Provider
	identity Identity
	log      *slog.Logger
}

// NewResolver creates a live-scan resolver for the given identity.
func NewResolver(p provider.Provider, identity Identity, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{provider: p, identity: identity, log: log}
}

// LiveSuggest builds a ranked suggestion list from a live mailbox scan.
// Per-thread fetch failures are skipped; an alias listing failure only
// reduces the seed set. Addresses in exclude are never suggested.
func (r *Resolver) LiveSuggest(
	ctx context.Context,
	query string,
	limit int,
	exclude []string,
) ([]model.RecipientSuggestion, error) {
	acc := make(accumulator)

	acc.add(r.identity.Email, r.identity.Name, weightIdentity)

	aliases, err := r.provider.ListAliases(ctx)
	if err != nil {
		r.log.Warn("failed to fetch aliases", slog.String("error", err.Error()))
	}
	for _, alias := range aliases {
		if alias.Primary {
			acc.add(alias.Email, alias.Name, weightPrimaryAlias)
		} else {
			acc.add(alias.Email, alias.Name, weightAlias)
		}
	}

	r.scanFolder(ctx, provider.FolderSent, acc, func(a accumulator, msg model.Message) {
		for _, rcpt := range msg.To {
			a.add(rcpt.Email, rcpt.Name, weightLiveSentTo)
		}
		for _, rcpt := range msg.Cc {
			a.add(rcpt.Email, rcpt.Name, weightLiveSentCc)
		}
	})

	r.scanFolder(ctx, provider.FolderInbox, acc, func(a accumulator, msg model.Message) {
		if msg.Sender.Email != "" {
			a.add(msg.Sender.Email, msg.Sender.Name, weightLiveInbox)
		}
	})

	return rankObservations(acc, query, limit, exclude), nil
}

// scanFolder lists the most recent threads of one folder, fetches their
// details with bounded fan-out, and feeds each message to observe. Listing
// failures are logged and leave the accumulator untouched.
func (r *Resolver) scanFolder(
	ctx context.Context,
	folder string,
	acc accumulator,
	observe func(accumulator, model.Message),
) {
	page, err := r.provider.ListThreads(ctx, folder, "", liveScanListSize, "")
	if err != nil {
		r.log.Warn("failed to list folder for live suggestions",
			slog.String("folder", folder),
			slog.String("error", err.Error()))
		return
	}

	summaries := page.Threads
	if len(summaries) > liveScanThreads {
		summaries = summaries[:liveScanThreads]
	}

	results := make([]*model.Thread, len(summaries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFanOut)

	for i, summary := range summaries {
		g.Go(func() error {
			t, err := r.provider.GetThread(gctx, summary.ID)
			if err != nil {
				r.log.Debug("skipping thread in live scan",
					slog.String("folder", folder),
					slog.String("thread", summary.ID),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = t
			return nil
		})
	}
	_ = g.Wait()

	for _, t := range results {
		if t == nil {
			continue
		}
		for _, msg := range t.Messages {
			observe(acc, msg)
		}
	}
}

// rankObservations filters, excludes, sorts, and truncates the
// accumulated candidates. Live-scan matching is substring on email or
// name; ties break by email ascending for determinism.
func rankObservations(
	acc accumulator,
	query string,
	limit int,
	exclude []string,
) []model.RecipientSuggestion {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(e)] = true
	}

	lower := strings.ToLower(strings.TrimSpace(query))

	var candidates []model.ContactObservation
	for key, obs := range acc {
		if excluded[key] {
			continue
		}
		if lower != "" {
			name := ""
			if obs.Name != nil {
				name = strings.ToLower(*obs.Name)
			}
			if !strings.Contains(key, lower) && !strings.Contains(name, lower) {
				continue
			}
		}
		candidates = append(candidates, *obs)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return strings.ToLower(a.Email) < strings.ToLower(b.Email)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	suggestions := make([]model.RecipientSuggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, model.NewRecipientSuggestion(c.Email, c.Name))
	}
	return suggestions
}

package contacts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
	"github.com/nhle/webmail/internal/store"
)

// defaultSuggestLimit is used when a caller passes a non-positive limit.
const defaultSuggestLimit = 10

// mergeTimeout bounds the fire-and-forget contact merge after a send.
const mergeTimeout = 30 * time.Second

// Service is the query-time entry point for recipient suggestions. It
// combines the store-backed path with the live fallback resolver and
// opportunistically triggers a background reindex whenever the store
// comes up empty.
type Service struct {
	accountID string
	store     store.Store
	provider  provider.Provider
	resolver  *Resolver
	scheduler *Scheduler
	log       *slog.Logger
}

// NewService wires the suggestion service for one account.
func NewService(
	accountID string,
	st store.Store,
	p provider.Provider,
	resolver *Resolver,
	scheduler *Scheduler,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		accountID: accountID,
		store:     st,
		provider:  p,
		resolver:  resolver,
		scheduler: scheduler,
		log:       log,
	}
}

// SuggestRecipients returns ranked suggestions from the contact store,
// excluding addresses already chosen by the caller. An empty result set
// triggers an asynchronous full reindex as a side effect and re-queries
// once; the caller is never blocked on the index run. A store failure
// degrades to no suggestions rather than a hard error.
func (s *Service) SuggestRecipients(
	ctx context.Context,
	query string,
	limit int,
	exclude []string,
) ([]model.RecipientSuggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}

	result, err := s.querySuggestions(ctx, query, limit, exclude)
	if err != nil {
		s.log.Warn("contact store suggestion failed",
			slog.String("account", s.accountID),
			slog.String("error", err.Error()))
		return []model.RecipientSuggestion{}, err
	}

	if len(result) == 0 && s.scheduler != nil {
		s.scheduler.Trigger()
		// The run proceeds in the background; a second read picks up
		// whatever an earlier run may have written in the meantime.
		result, err = s.querySuggestions(ctx, query, limit, exclude)
		if err != nil {
			return []model.RecipientSuggestion{}, err
		}
	}

	return result, nil
}

// LiveSuggest serves the fallback path directly: a weighted scan of the
// account identity, aliases, and recent sent/inbox threads.
func (s *Service) LiveSuggest(
	ctx context.Context,
	query string,
	limit int,
	exclude []string,
) ([]model.RecipientSuggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	return s.resolver.LiveSuggest(ctx, query, limit, exclude)
}

// Send delivers the message through the provider and, on success, merges
// its recipients into the contact store in the background so they surface
// in future suggestions immediately.
func (s *Service) Send(ctx context.Context, msg *model.OutgoingMessage) error {
	if err := s.provider.Send(ctx, msg); err != nil {
		return err
	}

	recipients := make([]model.Sender, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	recipients = append(recipients, msg.To...)
	recipients = append(recipients, msg.Cc...)
	recipients = append(recipients, msg.Bcc...)

	go s.mergeRecipients(recipients)

	return nil
}

// mergeRecipients records sent-to addresses in the store. Failures are
// only logged; the send has already succeeded.
func (s *Service) mergeRecipients(recipients []model.Sender) {
	acc := make(accumulator)
	for _, r := range recipients {
		acc.add(r.Email, r.Name, weightSender)
	}
	if len(acc) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mergeTimeout)
	defer cancel()

	if err := s.store.MergeContacts(ctx, s.accountID, acc.list()); err != nil {
		s.log.Warn("failed to merge sent recipients",
			slog.String("account", s.accountID),
			slog.String("error", err.Error()))
	}
}

// querySuggestions reads the store with headroom for the exclusion
// filter, then drops already-chosen addresses and truncates.
func (s *Service) querySuggestions(
	ctx context.Context,
	query string,
	limit int,
	exclude []string,
) ([]model.RecipientSuggestion, error) {
	raw, err := s.store.SuggestContacts(ctx, s.accountID, query, limit+len(exclude))
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(e)] = true
	}

	result := make([]model.RecipientSuggestion, 0, len(raw))
	for _, sug := range raw {
		if excluded[strings.ToLower(sug.Email)] {
			continue
		}
		result = append(result, sug)
		if len(result) == limit {
			break
		}
	}

	return result, nil
}

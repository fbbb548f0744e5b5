package contacts

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider serves canned pages and threads per folder.
type fakeProvider struct {
	mu sync.Mutex

	// pages maps folder -> page token -> page. The empty token is the
	// first page.
	pages   map[string]map[string]*model.ThreadPage
	threads map[string]*model.Thread
	aliases []model.Alias

	listErr  map[string]error
	aliasErr error
	sendErr  error

	listCalls map[string]int
	sent      []*model.OutgoingMessage
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		pages:     make(map[string]map[string]*model.ThreadPage),
		threads:   make(map[string]*model.Thread),
		listErr:   make(map[string]error),
		listCalls: make(map[string]int),
	}
}

// addThread registers a single-message thread in a folder's first page.
func (f *fakeProvider) addThread(folder, id string, msgs ...model.Message) {
	if f.pages[folder] == nil {
		f.pages[folder] = map[string]*model.ThreadPage{"": {}}
	}
	page := f.pages[folder][""]
	page.Threads = append(page.Threads, model.ThreadSummary{ID: id})
	f.threads[id] = &model.Thread{ID: id, Messages: msgs}
}

func (f *fakeProvider) Type() provider.DriverType { return "fake" }

func (f *fakeProvider) ValidateConnection(context.Context) (string, error) {
	return "fake", nil
}

func (f *fakeProvider) ListThreads(
	_ context.Context, folder, _ string, _ int64, pageToken string,
) (*model.ThreadPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls[folder]++
	if err := f.listErr[folder]; err != nil {
		return nil, err
	}
	if page, ok := f.pages[folder][pageToken]; ok {
		return page, nil
	}
	return &model.ThreadPage{}, nil
}

func (f *fakeProvider) GetThread(_ context.Context, id string) (*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t, ok := f.threads[id]; ok {
		return t, nil
	}
	return &model.Thread{ID: id}, nil
}

func (f *fakeProvider) ListAliases(context.Context) ([]model.Alias, error) {
	if f.aliasErr != nil {
		return nil, f.aliasErr
	}
	return f.aliases, nil
}

func (f *fakeProvider) Send(_ context.Context, msg *model.OutgoingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeStore records merges and serves scripted suggestion responses.
type fakeStore struct {
	mu sync.Mutex

	merges     [][]model.ContactObservation
	mergeErr   error
	suggest    [][]model.RecipientSuggestion
	suggestErr error

	suggestCalls int
}

func (s *fakeStore) GetContacts(context.Context, string) ([]model.ContactEntry, error) {
	return []model.ContactEntry{}, nil
}

func (s *fakeStore) MergeContacts(
	_ context.Context, _ string, obs []model.ContactObservation,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mergeErr != nil {
		return s.mergeErr
	}
	copied := append([]model.ContactObservation(nil), obs...)
	s.merges = append(s.merges, copied)
	return nil
}

// SuggestContacts pops the next scripted response, repeating the last one
// once the script runs out.
func (s *fakeStore) SuggestContacts(
	context.Context, string, string, int,
) ([]model.RecipientSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suggestCalls++
	if s.suggestErr != nil {
		return nil, s.suggestErr
	}
	if len(s.suggest) == 0 {
		return []model.RecipientSuggestion{}, nil
	}
	next := s.suggest[0]
	if len(s.suggest) > 1 {
		s.suggest = s.suggest[1:]
	}
	return next, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) mergeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.merges)
}

func (s *fakeStore) lastMerge() []model.ContactObservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.merges) == 0 {
		return nil
	}
	return s.merges[len(s.merges)-1]
}

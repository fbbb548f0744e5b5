package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/webmail/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
//
// Each account's contact set is one row whose entries column holds the
// serialized JSON array [{email, name, freq, last}]. There is no separate
// schema versioning for the record itself; readers tolerate a missing or
// empty array.
type SQLiteStore struct {
	db *sqlx.DB

	// now is the merge timestamp source; replaced in tests.
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetContacts retrieves the contact entries for an account. A missing row
// or an empty serialized array both yield an empty slice.
func (s *SQLiteStore) GetContacts(
	ctx context.Context,
	accountID string,
) ([]model.ContactEntry, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw,
		"SELECT entries FROM contact_sets WHERE account_id = ?", accountID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.ContactEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading contact set %s: %w", accountID, err)
	}

	if strings.TrimSpace(raw) == "" {
		return []model.ContactEntry{}, nil
	}

	var entries []model.ContactEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decoding contact set %s: %w", accountID, err)
	}
	if entries == nil {
		entries = []model.ContactEntry{}
	}

	return entries, nil
}

// MergeContacts upserts the observations into the account's contact set
// and writes the full merged set back. Frequencies accumulate additively,
// so repeating a merge (e.g. an indexer checkpoint followed by its final
// merge) is safe.
func (s *SQLiteStore) MergeContacts(
	ctx context.Context,
	accountID string,
	obs []model.ContactObservation,
) error {
	if len(obs) == 0 {
		return nil
	}

	existing, err := s.GetContacts(ctx, accountID)
	if err != nil {
		return err
	}

	merged := make(map[string]model.ContactEntry, len(existing)+len(obs))
	for _, e := range existing {
		merged[strings.ToLower(e.Email)] = e
	}

	now := s.now()
	for _, o := range obs {
		key := strings.ToLower(o.Email)
		prev, ok := merged[key]
		entry := model.ContactEntry{
			Email:             o.Email,
			Name:              o.Name,
			Frequency:         o.Weight,
			LastInteractionAt: now,
		}
		if ok {
			entry.Email = prev.Email
			entry.Frequency = prev.Frequency + o.Weight
			// A name is kept once set; only a non-nil incoming name
			// fills a nil existing one.
			if prev.Name != nil {
				entry.Name = prev.Name
			}
			if entry.LastInteractionAt.Before(prev.LastInteractionAt) {
				entry.LastInteractionAt = prev.LastInteractionAt
			}
		}
		merged[key] = entry
	}

	out := make([]model.ContactEntry, 0, len(merged))
	for _, e := range merged {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	encoded, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding contact set %s: %w", accountID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contact_sets (account_id, entries, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			entries = excluded.entries,
			updated_at = excluded.updated_at`,
		accountID, string(encoded), now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing contact set %s: %w", accountID, err)
	}

	return nil
}

// SuggestContacts filters and ranks the account's contact entries.
// Matching is case-insensitive: prefix on email or name first, substring
// as a fallback when no prefix match exists. Ranking is frequency
// descending, then last interaction descending, then email ascending so
// repeated calls return the same order.
func (s *SQLiteStore) SuggestContacts(
	ctx context.Context,
	accountID, query string,
	limit int,
) ([]model.RecipientSuggestion, error) {
	entries, err := s.GetContacts(ctx, accountID)
	if err != nil {
		return nil, err
	}

	filtered := filterEntries(entries, query)

	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if !a.LastInteractionAt.Equal(b.LastInteractionAt) {
			return a.LastInteractionAt.After(b.LastInteractionAt)
		}
		return strings.ToLower(a.Email) < strings.ToLower(b.Email)
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	suggestions := make([]model.RecipientSuggestion, 0, len(filtered))
	for _, e := range filtered {
		suggestions = append(suggestions, model.NewRecipientSuggestion(e.Email, e.Name))
	}

	return suggestions, nil
}

// filterEntries applies the prefix-then-substring matching rule.
func filterEntries(entries []model.ContactEntry, query string) []model.ContactEntry {
	lower := strings.ToLower(strings.TrimSpace(query))
	if lower == "" {
		return append([]model.ContactEntry(nil), entries...)
	}

	var prefix, substr []model.ContactEntry
	for _, e := range entries {
		email := strings.ToLower(e.Email)
		name := ""
		if e.Name != nil {
			name = strings.ToLower(*e.Name)
		}

		switch {
		case strings.HasPrefix(email, lower) || (name != "" && strings.HasPrefix(name, lower)):
			prefix = append(prefix, e)
		case strings.Contains(email, lower) || (name != "" && strings.Contains(name, lower)):
			substr = append(substr, e)
		}
	}

	if len(prefix) > 0 {
		return prefix
	}
	return substr
}

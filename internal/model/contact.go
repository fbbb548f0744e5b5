package model

import (
	"fmt"
	"time"
)

// ContactEntry is one ranked correspondent in an account's contact set.
// Entries are keyed by the lower-cased email; the original casing is kept
// for display.
type ContactEntry struct {
	Email             string    `json:"email"`
	Name              *string   `json:"name"`
	Frequency         int64     `json:"freq"`
	LastInteractionAt time.Time `json:"last"`
}

// ContactObservation is a single weighted sighting of an address extracted
// from one message. Observations are transient; they exist only between
// extraction and the next merge.
type ContactObservation struct {
	Email  string
	Name   *string
	Weight int64
}

// RecipientSuggestion is the derived shape returned to the UI. It is never
// persisted.
type RecipientSuggestion struct {
	Email       string
	Name        *string
	DisplayText string
}

// NewRecipientSuggestion builds a suggestion with its display text.
func NewRecipientSuggestion(email string, name *string) RecipientSuggestion {
	s := RecipientSuggestion{Email: email, Name: name, DisplayText: email}
	if name != nil && *name != "" {
		s.DisplayText = fmt.Sprintf("%s <%s>", *name, email)
	}
	return s
}

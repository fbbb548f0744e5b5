// Package contacts implements the contact suggestion subsystem: extraction
// of weighted correspondent observations from threads, a background
// full-mailbox indexer feeding the persistent contact store, and the
// query-time suggestion resolver.
package contacts

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nhle/webmail/internal/model"
	"github.com/nhle/webmail/internal/provider"
)

// Observation weights per address role. These are fixed constants of the
// ranking model, not runtime tunables.
const (
	// Full-index weights.
	weightSender  = 1
	weightSentTo  = 3
	weightSentCc  = 2
	weightSentBcc = 2

	// Live fallback-scan weights.
	weightIdentity     = 10
	weightPrimaryAlias = 9
	weightAlias        = 8
	weightLiveSentTo   = 2
	weightLiveSentCc   = 1
	weightLiveInbox    = 1
)

// emailPattern is the single fixed validity check used everywhere an
// address enters the subsystem. Local part and domain are runs of
// non-space, non-@ characters and the domain must contain a dot.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the minimal local-part@domain structure
// required for an address to be observed or committed as a recipient.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// accumulator aggregates observations keyed by lower-cased email. Weights
// for repeat sightings add up; the first non-empty name wins.
type accumulator map[string]*model.ContactObservation

func (acc accumulator) add(email, name string, weight int64) {
	if !ValidEmail(email) {
		return
	}

	key := strings.ToLower(email)
	if existing, ok := acc[key]; ok {
		existing.Weight += weight
		if existing.Name == nil && name != "" {
			n := name
			existing.Name = &n
		}
		return
	}

	obs := &model.ContactObservation{Email: email, Weight: weight}
	if name != "" {
		n := name
		obs.Name = &n
	}
	acc[key] = obs
}

// list returns the accumulated observations ordered by lower-cased email
// so that downstream merges see a deterministic sequence.
func (acc accumulator) list() []model.ContactObservation {
	keys := make([]string, 0, len(acc))
	for k := range acc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.ContactObservation, 0, len(keys))
	for _, k := range keys {
		out = append(out, *acc[k])
	}
	return out
}

// ExtractThread produces the weighted observations for one thread read
// from the given folder. Every message's sender counts; to/cc/bcc
// recipients count only when the thread came from the sent folder, since
// only there do they represent the account owner's own choices.
func ExtractThread(t *model.Thread, folder string) []model.ContactObservation {
	acc := make(accumulator)
	extractInto(acc, t, folder)
	return acc.list()
}

// extractInto runs the extraction rules against an existing accumulator.
func extractInto(acc accumulator, t *model.Thread, folder string) {
	if t == nil {
		return
	}

	for _, msg := range t.Messages {
		if folder == provider.FolderSent {
			for _, r := range msg.To {
				acc.add(r.Email, r.Name, weightSentTo)
			}
			for _, r := range msg.Cc {
				acc.add(r.Email, r.Name, weightSentCc)
			}
			for _, r := range msg.Bcc {
				acc.add(r.Email, r.Name, weightSentBcc)
			}
		}
		if msg.Sender.Email != "" {
			acc.add(msg.Sender.Email, msg.Sender.Name, weightSender)
		}
	}
}

// Package dedup removes repeated and too-short titles from a candidate batch.
package dedup

import (
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
)

// DefaultMinTitleLength is the length a normalized title must exceed.
const DefaultMinTitleLength = 10

// Deduplicator keeps the first record seen for each normalized title.
type Deduplicator struct {
	minTitleLength int
}

// New returns a Deduplicator that drops titles whose normalized length is at
// most minTitleLength runes.
func New(minTitleLength int) *Deduplicator {
	return &Deduplicator{minTitleLength: minTitleLength}
}

// Dedup returns the records whose normalized title is long enough and not
// already accepted, preserving input order. The input is not modified.
func (d *Deduplicator) Dedup(records []alerts.CandidateRecord) []alerts.CandidateRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]alerts.CandidateRecord, 0, len(records))
	for _, rec := range records {
		key := alerts.NormalizeTitle(rec.Title)
		if utf8.RuneCountInString(key) <= d.minTitleLength {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

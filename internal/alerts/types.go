// Package alerts defines the scam-alert records that flow from upstream text
// through the pending queue into the public collection.
package alerts

import (
	"strings"
	"time"
)

// Severity is the urgency assigned by the classifier.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// CategoryOther is assigned when no category keyword matches.
const CategoryOther = "Other"

// CandidateRecord is one alert extracted from upstream text. Title is never
// empty.
type CandidateRecord struct {
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	URL         string    `json:"url" yaml:"url"`
	Source      string    `json:"source" yaml:"source"`
	Warning     string    `json:"warning" yaml:"warning"`
	Query       string    `json:"query,omitempty" yaml:"query,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	FetchedAt   time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// ClassifiedRecord is a CandidateRecord with its category and severity.
type ClassifiedRecord struct {
	CandidateRecord `yaml:",inline"`
	Category        string   `json:"category" yaml:"category"`
	Severity        Severity `json:"severity" yaml:"severity"`
}

// QueueItem is a ClassifiedRecord held in the pending collection.
type QueueItem struct {
	ID string `json:"id"`
	ClassifiedRecord
	Pending bool `json:"pending"`
}

// PublicRecord is a published alert. ID is the public collection's id, not
// the queue id.
type PublicRecord struct {
	ID string `json:"id"`
	ClassifiedRecord
}

// NormalizeTitle returns the form titles are compared in for deduplication.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ToPublic derives the public form of a queue item. A missing timestamp is
// backfilled from the fetch time, else from now.
func (q QueueItem) ToPublic(now time.Time) PublicRecord {
	rec := q.ClassifiedRecord
	if rec.Timestamp.IsZero() {
		if !rec.FetchedAt.IsZero() {
			rec.Timestamp = rec.FetchedAt
		} else {
			rec.Timestamp = now.UTC()
		}
	}
	return PublicRecord{ClassifiedRecord: rec}
}

// TimeLayout is the fixed-width UTC layout timestamps are stored in, so that
// lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in TimeLayout; the zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// ParseTime is the inverse of FormatTime.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(TimeLayout, s)
}

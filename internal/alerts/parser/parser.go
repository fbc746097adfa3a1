// Package parser turns the labeled free-text blocks returned by the upstream
// generator into candidate alert records.
//
// A response is split into blocks on "---". Inside a block each line is either
// labeled (TITLE:, SOURCE:, SUMMARY:, HOW IT WORKS:, WARNING:, URL:) or a
// continuation of the most recently opened field. URL never takes
// continuations. Blocks without a title yield nothing.
package parser

import (
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
)

const (
	blockSeparator = "---"

	// DefaultSource is used when a block has no SOURCE line.
	DefaultSource = "News Article via Gemini Search"
	// DefaultWarning is used when a block has no WARNING line.
	DefaultWarning = "Stay vigilant and verify before taking action."

	searchURLPrefix = "https://www.google.com/search?q="
)

// field is the parser state: the field continuation lines append to.
type field int

const (
	fieldNone field = iota
	fieldTitle
	fieldSource
	fieldSummary
	fieldMechanism
	fieldWarning
	fieldURL
)

// accumulates reports whether unlabeled lines extend this field.
func (f field) accumulates() bool {
	return f != fieldNone && f != fieldURL
}

var labels = []struct {
	prefix string
	field  field
}{
	{"TITLE:", fieldTitle},
	{"SOURCE:", fieldSource},
	{"SUMMARY:", fieldSummary},
	{"HOW IT WORKS:", fieldMechanism},
	{"WARNING:", fieldWarning},
	{"URL:", fieldURL},
}

// Parser extracts CandidateRecords from upstream text.
type Parser struct {
	now func() time.Time
}

// New returns a Parser stamping records with the current time.
func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock returns a Parser that reads the time from now.
func NewWithClock(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// Parse splits text into blocks and returns one record per block that carries
// a title, in block order. query is recorded as the records' provenance.
// Malformed blocks are dropped silently.
func (p *Parser) Parse(text string, query string) []alerts.CandidateRecord {
	fetchedAt := p.now().UTC()
	var records []alerts.CandidateRecord
	for _, block := range strings.Split(text, blockSeparator) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		rec, ok := parseBlock(block)
		if !ok {
			continue
		}
		rec.Query = query
		rec.Timestamp = fetchedAt
		rec.FetchedAt = fetchedAt
		records = append(records, rec)
	}
	return records
}

// ParseBlock parses a single block; ok is false when it has no title.
func ParseBlock(block string) (alerts.CandidateRecord, bool) {
	return parseBlock(block)
}

func parseBlock(block string) (alerts.CandidateRecord, bool) {
	var values [fieldURL + 1]string
	current := fieldNone

	for _, raw := range strings.Split(strings.TrimSpace(block), "\n") {
		line := strings.TrimSpace(raw)
		if f, value, ok := matchLabel(line); ok {
			values[f] = value
			current = f
			continue
		}
		if line == "" || !current.accumulates() {
			continue
		}
		if values[current] == "" {
			values[current] = line
		} else {
			values[current] += " " + line
		}
	}

	title := values[fieldTitle]
	if title == "" {
		return alerts.CandidateRecord{}, false
	}

	description := values[fieldSummary]
	if values[fieldMechanism] != "" {
		description += " " + values[fieldMechanism]
	}

	link := values[fieldURL]
	if link == "" || strings.HasPrefix(link, "search") {
		link = SearchURL(title)
	}

	source := values[fieldSource]
	if source == "" {
		source = DefaultSource
	}
	warning := values[fieldWarning]
	if warning == "" {
		warning = DefaultWarning
	}

	return alerts.CandidateRecord{
		Title:       title,
		Description: strings.TrimSpace(description),
		URL:         link,
		Source:      source,
		Warning:     warning,
	}, true
}

func matchLabel(line string) (field, string, bool) {
	for _, l := range labels {
		if strings.HasPrefix(line, l.prefix) {
			return l.field, strings.TrimSpace(line[len(l.prefix):]), true
		}
	}
	return fieldNone, "", false
}

// SearchURL builds the fallback link for a record without a usable URL.
// Only spaces are rewritten; the title is otherwise kept verbatim.
func SearchURL(title string) string {
	return searchURLPrefix + strings.ReplaceAll(title, " ", "+")
}

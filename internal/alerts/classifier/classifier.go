// Package classifier assigns a category and a severity to candidate records
// by case-insensitive keyword matching.
package classifier

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
)

type rule struct {
	name     string
	keywords []string
}

// Classifier holds lowercased keyword tables. It is safe for concurrent use.
type Classifier struct {
	categories []rule
	high       []string
	medium     []string
}

// New builds a Classifier from cfg. Category order is priority order.
func New(cfg config.ClassifierConfig) *Classifier {
	c := &Classifier{
		high:   lowerAll(cfg.HighSeverity),
		medium: lowerAll(cfg.MediumSeverity),
	}
	for _, r := range cfg.Categories {
		c.categories = append(c.categories, rule{name: r.Name, keywords: lowerAll(r.Keywords)})
	}
	return c
}

// Default returns a Classifier over the built-in keyword tables.
func Default() *Classifier {
	return New(config.DefaultClassifierConfig())
}

// Classify returns rec with its category and severity assigned.
func (c *Classifier) Classify(rec alerts.CandidateRecord) alerts.ClassifiedRecord {
	text := strings.ToLower(rec.Title + " " + rec.Description)
	return alerts.ClassifiedRecord{
		CandidateRecord: rec,
		Category:        c.category(text),
		Severity:        c.severity(text),
	}
}

// ClassifyAll classifies every record, preserving order.
func (c *Classifier) ClassifyAll(recs []alerts.CandidateRecord) []alerts.ClassifiedRecord {
	out := make([]alerts.ClassifiedRecord, len(recs))
	for i, rec := range recs {
		out[i] = c.Classify(rec)
	}
	return out
}

func (c *Classifier) category(text string) string {
	for _, r := range c.categories {
		if containsAny(text, r.keywords) {
			return r.name
		}
	}
	return alerts.CategoryOther
}

// severity checks high before medium; a medium keyword only matters when no
// high keyword is present.
func (c *Classifier) severity(text string) alerts.Severity {
	switch {
	case containsAny(text, c.high):
		return alerts.SeverityHigh
	case containsAny(text, c.medium):
		return alerts.SeverityMedium
	default:
		return alerts.SeverityLow
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

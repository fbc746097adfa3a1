// Package pipeline runs one ingestion pass: it asks the upstream generator
// about every configured query, parses and deduplicates the answers, and
// classifies a bounded batch.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/classifier"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/dedup"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/parser"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
)

// Generator produces free text for a prompt. Implementations enable web
// search and use a low temperature.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	generator   Generator
	parser      *parser.Parser
	dedup       *dedup.Deduplicator
	classifier  *classifier.Classifier
	queries     []string
	batchLimit  int
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithMetrics records batch metrics on m. Upstream request metrics belong
// to the Generator.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithParser replaces the default parser, e.g. to fix its clock in tests.
func WithParser(ps *parser.Parser) Option {
	return func(p *Pipeline) { p.parser = ps }
}

// New builds a Pipeline. A nil generator is allowed: Fetch then returns an
// empty batch without issuing any request.
func New(gen Generator, cfg config.PipelineConfig, cls *classifier.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator:   gen,
		parser:      parser.New(),
		dedup:       dedup.New(cfg.MinTitleLength),
		classifier:  cls,
		queries:     append([]string(nil), cfg.Queries...),
		batchLimit:  cfg.BatchLimit,
		concurrency: cfg.Concurrency,
		logger:      slog.Default().With("component", "ingestion-pipeline"),
	}
	if p.concurrency <= 0 {
		p.concurrency = 1
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Queries returns the configured query list.
func (p *Pipeline) Queries() []string {
	return append([]string(nil), p.queries...)
}

// Fetch runs every query and returns at most batchLimit classified records.
// A failing query is logged and skipped; results keep query order whatever
// the concurrency. The only error is ctx being done.
func (p *Pipeline) Fetch(ctx context.Context) ([]alerts.ClassifiedRecord, error) {
	if p.generator == nil {
		p.logger.Error("upstream generator not configured, returning empty batch")
		return nil, nil
	}

	start := time.Now()
	perQuery := make([][]alerts.CandidateRecord, len(p.queries))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, query := range p.queries {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			perQuery[i] = p.runQuery(ctx, query)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []alerts.CandidateRecord
	for _, recs := range perQuery {
		candidates = append(candidates, recs...)
	}
	unique := p.dedup.Dedup(candidates)
	if len(unique) > p.batchLimit {
		unique = unique[:p.batchLimit]
	}
	batch := p.classifier.ClassifyAll(unique)

	if p.metrics != nil {
		p.metrics.CandidatesParsedTotal.Add(float64(len(candidates)))
		p.metrics.BatchSize.Observe(float64(len(batch)))
	}
	p.logger.Info("ingestion run complete",
		"queries", len(p.queries),
		"candidates", len(candidates),
		"unique", len(unique),
		"batch_size", len(batch),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return batch, nil
}

func (p *Pipeline) runQuery(ctx context.Context, query string) []alerts.CandidateRecord {
	text, err := p.generator.Generate(ctx, BuildPrompt(query))
	if err != nil {
		p.logger.Error("upstream query failed", "query", query, "error", err)
		return nil
	}
	recs := p.parser.Parse(text, query)
	p.logger.Debug("query parsed", "query", query, "records", len(recs))
	return recs
}

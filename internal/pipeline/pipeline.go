// Package pipeline bundles the compiled rules, scoring engine and memo
// synthesizer built from one configuration, and wraps each stage with
// logging and metrics.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/extract"
	"github.com/hpungsan/dealflow/internal/logging"
	"github.com/hpungsan/dealflow/internal/memo"
	"github.com/hpungsan/dealflow/internal/metrics"
	"github.com/hpungsan/dealflow/internal/rules"
	"github.com/hpungsan/dealflow/internal/scoring"
)

// Pipeline is immutable after New and safe for concurrent use.
type Pipeline struct {
	ruleset *rules.Ruleset
	engine  *scoring.Engine
	synth   *memo.Synthesizer
	policy  scoring.PriorityPolicy
	thesis  string

	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics records stage runs into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithClock sets the clock used for memo timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New validates cfg and compiles it into a Pipeline.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		policy: cfg.Priority,
		thesis: cfg.Thesis,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	var err error
	if p.ruleset, err = rules.Compile(cfg.Rules); err != nil {
		return nil, err
	}
	if p.engine, err = scoring.NewEngine(cfg.Weights, cfg.Indicators); err != nil {
		return nil, err
	}
	if p.synth, err = memo.New(cfg.Thresholds, memo.WithClock(p.now)); err != nil {
		return nil, err
	}
	return p, nil
}

// Ruleset returns the compiled classification rules.
func (p *Pipeline) Ruleset() *rules.Ruleset { return p.ruleset }

// Engine returns the scoring engine.
func (p *Pipeline) Engine() *scoring.Engine { return p.engine }

// Synthesizer returns the memo synthesizer.
func (p *Pipeline) Synthesizer() *memo.Synthesizer { return p.synth }

// Policy returns the priority policy used by Rank.
func (p *Pipeline) Policy() scoring.PriorityPolicy { return p.policy }

// Thesis returns the configured investment thesis ("" if none).
func (p *Pipeline) Thesis() string { return p.thesis }

// Logger returns the pipeline logger.
func (p *Pipeline) Logger() *zap.Logger { return p.logger }

// Metrics returns the metrics sink, possibly nil.
func (p *Pipeline) Metrics() *metrics.Metrics { return p.metrics }

// Extract runs the signal extractor on doc.
func (p *Pipeline) Extract(doc deal.RawDocument) (*deal.DealCandidate, error) {
	start := time.Now()
	c, err := extract.Extract(doc, p.ruleset)
	if err != nil {
		p.fail(metrics.StageExtract, start, "extraction failed", err, zap.String(logging.FieldSourceID, doc.SourceID))
		return nil, err
	}
	p.metrics.ObserveRun(metrics.StageExtract, "ok", start)

	fields := []zap.Field{
		zap.String(logging.FieldSourceID, doc.SourceID),
		zap.Strings("sectors", c.Sectors),
		zap.String("funding_stage", string(c.FundingStage)),
		zap.Bool("warm_intro", c.WarmIntro),
	}
	if c.CompanyName != nil {
		fields = append(fields, zap.String(logging.FieldCompany, *c.CompanyName))
	}
	if c.Degraded {
		p.logger.Warn("document normalized in degraded mode", zap.String(logging.FieldSourceID, doc.SourceID))
	}
	p.logger.Debug("candidate extracted", fields...)
	return c, nil
}

// Classify tags text with the compiled rules.
func (p *Pipeline) Classify(text string) rules.Classification {
	return rules.Classify(text, p.ruleset)
}

// Score runs the scoring engine on profile.
func (p *Pipeline) Score(profile *deal.CompanyProfile) (*deal.ScoreResult, error) {
	start := time.Now()
	res, err := p.engine.Score(profile)
	if err != nil {
		p.fail(metrics.StageScore, start, "scoring failed", err, zap.String(logging.FieldCompany, profile.DisplayName()))
		return nil, err
	}
	p.metrics.ObserveRun(metrics.StageScore, "ok", start)
	p.metrics.ObserveComposite(res.CompositeScore)
	p.logger.Debug("company scored",
		zap.String(logging.FieldCompany, res.CompanyName),
		zap.Float64(logging.FieldComposite, res.CompositeScore))
	return res, nil
}

// Render builds the investment memo for res.
func (p *Pipeline) Render(res *deal.ScoreResult, profile *deal.CompanyProfile) (*deal.InvestmentMemo, error) {
	start := time.Now()
	m, err := p.synth.Render(res, profile)
	if err != nil {
		p.fail(metrics.StageMemo, start, "memo rendering failed", err)
		return nil, err
	}
	p.metrics.ObserveRun(metrics.StageMemo, "ok", start)
	p.metrics.CountRecommendation(string(m.Recommendation))
	p.logger.Debug("memo rendered",
		zap.String(logging.FieldCompany, m.CompanyName),
		zap.String("recommendation", string(m.Recommendation)))
	return m, nil
}

// Relevance scores profile against thesis, falling back to the configured
// thesis. Returns nil when there is no thesis to compare against.
func (p *Pipeline) Relevance(profile *deal.CompanyProfile, thesis string) *float64 {
	if thesis == "" {
		thesis = p.thesis
	}
	if thesis == "" {
		return nil
	}
	v := scoring.ThesisRelevance(profile, thesis)
	return &v
}

// Rank orders scored companies with the configured priority policy.
func (p *Pipeline) Rank(inputs []scoring.RankInput) []scoring.Ranked {
	return scoring.Rank(inputs, p.policy)
}

func (p *Pipeline) fail(stage string, start time.Time, msg string, err error, fields ...zap.Field) {
	code := logging.ErrorCode(err)
	p.metrics.ObserveRun(stage, code.String, start)
	p.logger.Warn(msg, append(fields, code, zap.Error(err))...)
}

// Package memo renders investment memos from score results.
package memo

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Canonical section titles, in memo order.
const (
	SectionSummary        = "Summary"
	SectionTeam           = "Team"
	SectionBusinessModel  = "Business Model"
	SectionTechnology     = "Technology"
	SectionImpactESG      = "Impact/ESG"
	SectionRisks          = "Risks"
	SectionRecommendation = "Recommendation"
)

// SectionOrder lists the memo sections in their fixed order.
var SectionOrder = []string{
	SectionSummary,
	SectionTeam,
	SectionBusinessModel,
	SectionTechnology,
	SectionImpactESG,
	SectionRisks,
	SectionRecommendation,
}

// Synthesizer renders memos with fixed thresholds. Safe for concurrent use.
type Synthesizer struct {
	thresholds Thresholds
	now        func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock sets the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		s.now = now
	}
}

// New validates the thresholds and returns a Synthesizer.
func New(t Thresholds, opts ...Option) (*Synthesizer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	s := &Synthesizer{thresholds: t, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Thresholds returns the synthesizer's thresholds.
func (s *Synthesizer) Thresholds() Thresholds {
	return s.thresholds
}

// Render builds the memo for res. profile supplies descriptive detail; when
// nil, the profile referenced by res is used.
func (s *Synthesizer) Render(res *deal.ScoreResult, profile *deal.CompanyProfile) (*deal.InvestmentMemo, error) {
	if res == nil {
		return nil, errors.NewInvalidInput("", "score_result", "score result is required")
	}
	if profile == nil {
		profile = res.Profile
	}
	if profile == nil {
		profile = &deal.CompanyProfile{}
	}

	company := res.CompanyName
	if company == "" {
		company = profile.DisplayName()
	}
	rec := s.thresholds.Recommend(res.CompositeScore)

	m := &deal.InvestmentMemo{
		CompanyName:    company,
		GeneratedAt:    s.now().UTC(),
		Recommendation: rec,
		Score:          res,
	}
	m.Sections = []deal.MemoSection{
		{Title: SectionSummary, Body: summary(company, res, profile, rec)},
		{Title: SectionTeam, Body: teamBody(res, profile)},
		{Title: SectionBusinessModel, Body: criterionBody(res, deal.CriterionBusinessModel, profile.BusinessModelNotes)},
		{Title: SectionTechnology, Body: criterionBody(res, deal.CriterionTechnology, profile.TechNotes)},
		{Title: SectionImpactESG, Body: criterionBody(res, deal.CriterionImpactESG, profile.ImpactNotes)},
		{Title: SectionRisks, Body: s.risks(res, profile)},
		{Title: SectionRecommendation, Body: fmt.Sprintf("%s (composite %.2f/10; thresholds: %s)", rec, res.CompositeScore, s.thresholds)},
	}
	return m, nil
}

func summary(company string, res *deal.ScoreResult, p *deal.CompanyProfile, rec deal.Recommendation) string {
	if company == "" {
		company = "Unnamed company"
	}
	lines := []string{fmt.Sprintf("%s scores %.2f/10 overall (%s).", company, res.CompositeScore, rec)}
	if deal.HasText(p.Description) {
		lines = append(lines, strings.TrimSpace(*p.Description))
	}

	var facts []string
	if len(p.Sectors) > 0 {
		facts = append(facts, "Sectors: "+strings.Join(p.Sectors, ", "))
	}
	if p.FundingStage != nil && *p.FundingStage != deal.StageUnknown {
		facts = append(facts, "Stage: "+string(*p.FundingStage))
	}
	if p.WarmIntro != nil {
		if *p.WarmIntro {
			facts = append(facts, "Source: warm introduction")
		} else {
			facts = append(facts, "Source: cold inbound")
		}
	}
	if p.TotalFundingUSD != nil {
		facts = append(facts, fmt.Sprintf("Total funding: $%.0f", *p.TotalFundingUSD))
	}
	if len(facts) > 0 {
		lines = append(lines, strings.Join(facts, ". ")+".")
	}
	if len(p.NewsHeadlines) > 0 {
		lines = append(lines, "Recent news:")
		for _, h := range p.NewsHeadlines {
			lines = append(lines, "- "+h)
		}
	}
	return strings.Join(lines, "\n\n")
}

func teamBody(res *deal.ScoreResult, p *deal.CompanyProfile) string {
	parts := []string{subScoreLine(res, deal.CriterionTeam)}
	if len(p.TeamMembers) > 0 {
		var members []string
		for _, m := range p.TeamMembers {
			line := "- " + m.Name
			if deal.HasText(m.Role) {
				line += ", " + strings.TrimSpace(*m.Role)
			}
			if deal.HasText(m.Background) {
				line += ": " + strings.TrimSpace(*m.Background)
			}
			members = append(members, line)
		}
		parts = append(parts, strings.Join(members, "\n"))
	}
	if sig := signals(res, deal.CriterionTeam); sig != "" {
		parts = append(parts, sig)
	}
	return strings.Join(parts, "\n\n")
}

func criterionBody(res *deal.ScoreResult, c deal.Criterion, notes *string) string {
	parts := []string{subScoreLine(res, c)}
	if deal.HasText(notes) {
		parts = append(parts, strings.TrimSpace(*notes))
	}
	if sig := signals(res, c); sig != "" {
		parts = append(parts, sig)
	}
	return strings.Join(parts, "\n\n")
}

func subScoreLine(res *deal.ScoreResult, c deal.Criterion) string {
	sub, ok := res.SubScores[c]
	if !ok || sub.Confidence == deal.ConfidenceMissing {
		return "No data available; excluded from the composite score."
	}
	return fmt.Sprintf("Sub-score: %.2f/10 (%s confidence).", sub.Value, sub.Confidence)
}

// signals lists the rationale lines belonging to criterion c, without the
// criterion prefix and without the sub-score header.
func signals(res *deal.ScoreResult, c deal.Criterion) string {
	prefix := c.Label() + ": "
	var out []string
	for _, line := range res.Rationale {
		rest, ok := strings.CutPrefix(line, prefix)
		if !ok || headerRegex.MatchString(rest) || strings.HasSuffix(rest, "(missing; excluded from composite)") {
			continue
		}
		out = append(out, "- "+rest)
	}
	return strings.Join(out, "\n")
}

// headerRegex matches the sub-score line that opens a criterion's rationale.
var headerRegex = regexp.MustCompile(`^\d+\.\d{2}/10 `)

func (s *Synthesizer) risks(res *deal.ScoreResult, p *deal.CompanyProfile) string {
	var out []string
	for _, c := range deal.Criteria {
		sub, ok := res.SubScores[c]
		switch {
		case !ok || sub.Confidence == deal.ConfidenceMissing:
			out = append(out, fmt.Sprintf("- %s: no data; excluded from the composite score", c.Label()))
		case sub.Confidence == deal.ConfidencePartial:
			out = append(out, fmt.Sprintf("- %s: scored on partial data (%.2f/10)", c.Label(), sub.Value))
		case sub.Value < s.thresholds.Monitor:
			out = append(out, fmt.Sprintf("- %s: %.2f/10 is below the monitor threshold of %.2f", c.Label(), sub.Value, s.thresholds.Monitor))
		}
	}
	if n := len(p.TeamMembers); s.thresholds.MinTeamSize > 0 && n > 0 && n < s.thresholds.MinTeamSize {
		out = append(out, fmt.Sprintf("- Team: %d named member(s), below the minimum of %d", n, s.thresholds.MinTeamSize))
	}
	if len(out) == 0 {
		return "No material risks identified from the available data."
	}
	return strings.Join(out, "\n")
}

// Package scoring computes multi-criteria investment scores for company profiles.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/rules"
)

// MaxScore is the top of the sub-score and composite scale.
const MaxScore = 10.0

// Engine scores profiles with a fixed, validated configuration.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	weights    CriteriaWeights
	indicators Indicators
}

// NewEngine validates the weights and indicator groups and returns an Engine.
func NewEngine(weights CriteriaWeights, indicators Indicators) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if err := indicators.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: weights, indicators: indicators}, nil
}

// Score validates weights and scores profile with the default indicators.
func Score(profile *deal.CompanyProfile, weights CriteriaWeights) (*deal.ScoreResult, error) {
	e, err := NewEngine(weights, DefaultIndicators())
	if err != nil {
		return nil, err
	}
	return e.Score(profile)
}

// Weights returns the engine's criteria weights.
func (e *Engine) Weights() CriteriaWeights {
	return e.weights
}

// criterionResult is the evaluation of one criterion before aggregation.
type criterionResult struct {
	sub       deal.SubScore
	rationale []string
}

// Score evaluates every criterion and aggregates the composite over the
// criteria that had data, renormalizing their weights.
// Returns INSUFFICIENT_DATA when no criterion can be scored.
func (e *Engine) Score(profile *deal.CompanyProfile) (*deal.ScoreResult, error) {
	if profile == nil {
		return nil, errors.NewInvalidInput("", "profile", "profile is required")
	}

	results := map[deal.Criterion]criterionResult{
		deal.CriterionTeam:          e.scoreTeam(profile),
		deal.CriterionBusinessModel: e.scoreBusiness(profile),
		deal.CriterionTechnology:    e.scoreTechnology(profile),
		deal.CriterionImpactESG:     e.scoreImpact(profile),
	}

	res := &deal.ScoreResult{
		CompanyName: profile.DisplayName(),
		SubScores:   make(map[deal.Criterion]deal.SubScore, len(deal.Criteria)),
		Rationale:   []string{},
		Profile:     profile,
	}

	var present, missing, missingLabels []string
	weighted, total := 0.0, 0.0
	for _, c := range deal.Criteria {
		r := results[c]
		res.SubScores[c] = r.sub
		res.Rationale = append(res.Rationale, r.rationale...)
		if r.sub.Confidence == deal.ConfidenceMissing {
			missing = append(missing, string(c))
			missingLabels = append(missingLabels, strings.ToLower(c.Label()))
			continue
		}
		present = append(present, strings.ToLower(c.Label()))
		weighted += e.weights.For(c) * r.sub.Value
		total += e.weights.For(c)
	}

	if len(present) == 0 || total <= 0 {
		return nil, errors.NewInsufficientData(res.CompanyName, allCriteriaIfEmpty(missing))
	}

	res.CompositeScore = round2(clamp(weighted / total))
	if len(missing) == 0 {
		res.Rationale = append(res.Rationale, fmt.Sprintf("Composite: %.2f/10 weighted over all criteria", res.CompositeScore))
	} else {
		res.Rationale = append(res.Rationale, fmt.Sprintf(
			"Composite: %.2f/10 weighted over %s (missing %s; weights renormalized from %.2f to 1.00)",
			res.CompositeScore, strings.Join(present, ", "), strings.Join(missingLabels, ", "), total))
	}
	return res, nil
}

func allCriteriaIfEmpty(missing []string) []string {
	if len(missing) > 0 {
		return missing
	}
	out := make([]string, 0, len(deal.Criteria))
	for _, c := range deal.Criteria {
		out = append(out, string(c))
	}
	return out
}

func (e *Engine) scoreTeam(p *deal.CompanyProfile) criterionResult {
	label := deal.CriterionTeam.Label()
	if len(p.TeamMembers) == 0 {
		return missingResult(label, "no team members listed")
	}

	complete := true
	described := 0
	texts := make([]string, len(p.TeamMembers))
	for i, m := range p.TeamMembers {
		if !deal.HasText(m.Role) || !deal.HasText(m.Background) {
			complete = false
		}
		if deal.HasText(m.Role) || deal.HasText(m.Background) {
			described++
		}
		texts[i] = joinSet(m.Role, m.Background)
	}
	if described == 0 {
		return missingResult(label, fmt.Sprintf("none of %d named members has a role or background", len(texts)))
	}

	var signals []string
	sum := 0.0
	for _, g := range e.indicators.Team {
		hits := 0
		var fired []string
		for _, text := range texts {
			kws := matches(text, g.Keywords)
			if len(kws) > 0 {
				hits++
				fired = appendUnique(fired, kws...)
			}
		}
		sum += g.Weight * saturate(hits, g.saturation())
		if hits > 0 {
			signals = append(signals, fmt.Sprintf("%s: %s in %d of %d members (%s)",
				label, g.Name, hits, len(texts), strings.Join(fired, ", ")))
		}
	}

	conf := deal.ConfidenceHigh
	note := ""
	if !complete {
		conf = deal.ConfidencePartial
		note = "; some members lack role or background"
	}
	value := round2(clamp(MaxScore * sum))
	head := fmt.Sprintf("%s: %.2f/10 from %d members (%s confidence%s)", label, value, len(texts), conf, note)
	return criterionResult{
		sub:       deal.SubScore{Value: value, Confidence: conf},
		rationale: withSignals(head, label, signals),
	}
}

func (e *Engine) scoreBusiness(p *deal.CompanyProfile) criterionResult {
	label := deal.CriterionBusinessModel.Label()
	fields := []field{{"business_model_notes", p.BusinessModelNotes}, {"description", p.Description}}

	ts := e.scoreText(label, fields, e.indicators.BusinessModel)
	if ts.missing() && p.TotalFundingUSD == nil {
		return missingResult(label, "no "+strings.Join(ts.absent, " or "))
	}
	if ts.missing() {
		ts.conf = deal.ConfidencePartial
	}

	if p.TotalFundingUSD != nil {
		funding := *p.TotalFundingUSD
		if math.IsNaN(funding) || funding < 0 {
			funding = 0
		}
		if funding >= e.indicators.MinFundingUSD && e.indicators.FundingBonus > 0 {
			ts.value = round2(clamp(ts.value + e.indicators.FundingBonus))
			ts.signals = append(ts.signals, fmt.Sprintf("%s: total funding $%.0f meets $%.0f minimum (+%.2f)",
				label, funding, e.indicators.MinFundingUSD, e.indicators.FundingBonus))
		} else {
			ts.signals = append(ts.signals, fmt.Sprintf("%s: total funding $%.0f below $%.0f minimum",
				label, funding, e.indicators.MinFundingUSD))
		}
	}
	return ts.result(label)
}

func (e *Engine) scoreTechnology(p *deal.CompanyProfile) criterionResult {
	label := deal.CriterionTechnology.Label()
	ts := e.scoreText(label, []field{{"tech_notes", p.TechNotes}, {"description", p.Description}}, e.indicators.Technology)
	if ts.missing() {
		return missingResult(label, "no "+strings.Join(ts.absent, " or "))
	}
	return ts.result(label)
}

func (e *Engine) scoreImpact(p *deal.CompanyProfile) criterionResult {
	label := deal.CriterionImpactESG.Label()
	ts := e.scoreText(label, []field{{"impact_notes", p.ImpactNotes}}, e.indicators.ImpactESG)
	if ts.missing() {
		return missingResult(label, "no "+strings.Join(ts.absent, " or "))
	}
	return ts.result(label)
}

type field struct {
	name  string
	value *string
}

// textScore is a criterion evaluated from free-text profile fields.
type textScore struct {
	value   float64
	conf    deal.Confidence
	present int
	absent  []string
	signals []string
}

func (ts textScore) missing() bool {
	return ts.present == 0
}

func (ts textScore) result(label string) criterionResult {
	note := ""
	if len(ts.absent) > 0 {
		note = "; missing " + strings.Join(ts.absent, ", ")
	}
	head := fmt.Sprintf("%s: %.2f/10 (%s confidence%s)", label, ts.value, ts.conf, note)
	return criterionResult{
		sub:       deal.SubScore{Value: ts.value, Confidence: ts.conf},
		rationale: withSignals(head, label, ts.signals),
	}
}

// scoreText matches the indicator groups against the union of the set fields.
func (e *Engine) scoreText(label string, fields []field, groups []IndicatorGroup) textScore {
	var ts textScore
	var texts []string
	for _, f := range fields {
		if deal.HasText(f.value) {
			texts = append(texts, *f.value)
		} else {
			ts.absent = append(ts.absent, f.name)
		}
	}
	ts.present = len(texts)
	text := strings.Join(texts, "\n")

	sum := 0.0
	for _, g := range groups {
		kws := matches(text, g.Keywords)
		sum += g.Weight * saturate(len(kws), g.saturation())
		if len(kws) > 0 {
			ts.signals = append(ts.signals, fmt.Sprintf("%s: %s matched %s", label, g.Name, strings.Join(kws, ", ")))
		}
	}
	ts.value = round2(clamp(MaxScore * sum))

	ts.conf = deal.ConfidenceHigh
	if len(ts.absent) > 0 {
		ts.conf = deal.ConfidencePartial
	}
	return ts
}

func missingResult(label, reason string) criterionResult {
	return criterionResult{
		sub:       deal.SubScore{Value: 0, Confidence: deal.ConfidenceMissing},
		rationale: []string{fmt.Sprintf("%s: %s (missing; excluded from composite)", label, reason)},
	}
}

func withSignals(head, label string, signals []string) []string {
	if len(signals) == 0 {
		return []string{head, label + ": no indicator keywords matched"}
	}
	return append([]string{head}, signals...)
}

// matches returns the keywords found in text, in keyword order.
func matches(text string, keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if rules.MatchKeyword(text, kw) {
			out = appendUnique(out, strings.ToLower(strings.TrimSpace(kw)))
		}
	}
	return out
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

func joinSet(vals ...*string) string {
	var parts []string
	for _, v := range vals {
		if deal.HasText(v) {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, "\n")
}

func saturate(hits, saturation int) float64 {
	return math.Min(float64(hits)/float64(saturation), 1)
}

// clamp bounds v to [0, MaxScore]; NaN becomes 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

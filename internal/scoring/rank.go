package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// PriorityPolicy turns composite scores into a deal-flow priority order.
type PriorityPolicy struct {
	// WarmIntroBonus is added for warm introductions
	WarmIntroBonus float64 `koanf:"warm_intro_bonus" json:"warm_intro_bonus"`

	// PreferredStageBonus is added when the funding stage is preferred
	PreferredStageBonus float64             `koanf:"preferred_stage_bonus" json:"preferred_stage_bonus"`
	PreferredStages     []deal.FundingStage `koanf:"preferred_stages" json:"preferred_stages"`

	// ThesisWeight blends thesis relevance into the base score:
	// base = (1-w)*composite + w*10*relevance, when relevance is known.
	ThesisWeight float64 `koanf:"thesis_weight" json:"thesis_weight"`
}

// DefaultPriorityPolicy returns the product defaults.
func DefaultPriorityPolicy() PriorityPolicy {
	return PriorityPolicy{
		WarmIntroBonus:      2.0,
		PreferredStageBonus: 1.0,
		PreferredStages:     []deal.FundingStage{deal.StageSeed, deal.StageSeriesA},
		ThesisWeight:        0.4,
	}
}

// Validate checks bonuses and weights are in range and stages are known.
func (p PriorityPolicy) Validate() error {
	if math.IsNaN(p.WarmIntroBonus) || p.WarmIntroBonus < 0 || p.WarmIntroBonus > MaxScore {
		return errors.NewInvalidConfiguration("priority.warm_intro_bonus", fmt.Sprintf("must be within [0, %g]", MaxScore))
	}
	if math.IsNaN(p.PreferredStageBonus) || p.PreferredStageBonus < 0 || p.PreferredStageBonus > MaxScore {
		return errors.NewInvalidConfiguration("priority.preferred_stage_bonus", fmt.Sprintf("must be within [0, %g]", MaxScore))
	}
	if math.IsNaN(p.ThesisWeight) || p.ThesisWeight < 0 || p.ThesisWeight > 1 {
		return errors.NewInvalidConfiguration("priority.thesis_weight", "must be within [0, 1]")
	}
	for i, s := range p.PreferredStages {
		if _, ok := deal.ParseFundingStage(string(s)); !ok {
			return errors.NewInvalidConfiguration(fmt.Sprintf("priority.preferred_stages[%d]", i), fmt.Sprintf("unknown funding stage %q", s))
		}
	}
	return nil
}

// RankInput is one scored company to rank.
type RankInput struct {
	Result *deal.ScoreResult

	// ThesisRelevance is optional; nil leaves the composite unblended
	ThesisRelevance *float64
}

// Ranked is one entry of a ranking.
type Ranked struct {
	// Index is the entry's position in the Rank input
	Index    int      `json:"-"`
	Rank     int      `json:"rank"`
	Company  string   `json:"company_name"`
	Score    float64  `json:"composite_score"`
	Priority float64  `json:"priority"`
	Reasons  []string `json:"reasons"`
}

// Rank orders inputs by priority, highest first. Ties fall back to the
// composite score, then company name, then input order. Inputs without a
// result are skipped. Warm-intro and stage bonuses read the result's profile.
func Rank(inputs []RankInput, p PriorityPolicy) []Ranked {
	out := make([]Ranked, 0, len(inputs))
	for i, in := range inputs {
		if in.Result == nil {
			continue
		}
		r := Ranked{Index: i, Company: in.Result.CompanyName, Score: in.Result.CompositeScore, Reasons: []string{}}

		base := in.Result.CompositeScore
		if in.ThesisRelevance != nil && p.ThesisWeight > 0 {
			rel := math.Min(math.Max(*in.ThesisRelevance, 0), 1)
			base = (1-p.ThesisWeight)*base + p.ThesisWeight*MaxScore*rel
			r.Reasons = append(r.Reasons, fmt.Sprintf("thesis relevance %.2f blended at weight %.2f", rel, p.ThesisWeight))
		}

		bonus := 0.0
		if prof := in.Result.Profile; prof != nil {
			if prof.WarmIntro != nil && *prof.WarmIntro && p.WarmIntroBonus > 0 {
				bonus += p.WarmIntroBonus
				r.Reasons = append(r.Reasons, fmt.Sprintf("warm intro +%.2f", p.WarmIntroBonus))
			}
			if prof.FundingStage != nil && p.PreferredStageBonus > 0 && preferred(*prof.FundingStage, p.PreferredStages) {
				bonus += p.PreferredStageBonus
				r.Reasons = append(r.Reasons, fmt.Sprintf("preferred stage %s +%.2f", *prof.FundingStage, p.PreferredStageBonus))
			}
		}
		r.Priority = round2(clamp(base + bonus))
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Company != b.Company {
			return a.Company < b.Company
		}
		return a.Index < b.Index
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func preferred(s deal.FundingStage, stages []deal.FundingStage) bool {
	for _, p := range stages {
		if ps, ok := deal.ParseFundingStage(string(p)); ok && ps == s {
			return true
		}
	}
	return false
}

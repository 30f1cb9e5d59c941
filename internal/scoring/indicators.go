package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// DefaultSaturation is the hit count at which a group reaches full score.
const DefaultSaturation = 2

// IndicatorGroup is a weighted keyword list within one criterion.
type IndicatorGroup struct {
	Name     string   `koanf:"name" json:"name"`
	Weight   float64  `koanf:"weight" json:"weight"`
	Keywords []string `koanf:"keywords" json:"keywords"`

	// Saturation is the number of hits that earns the full group weight.
	// Zero means DefaultSaturation.
	Saturation int `koanf:"saturation" json:"saturation,omitempty"`
}

func (g IndicatorGroup) saturation() int {
	if g.Saturation <= 0 {
		return DefaultSaturation
	}
	return g.Saturation
}

// Indicators holds the indicator groups for every criterion plus the
// funding bonus applied to the business-model score.
type Indicators struct {
	Team          []IndicatorGroup `koanf:"team" json:"team"`
	BusinessModel []IndicatorGroup `koanf:"business_model" json:"business_model"`
	Technology    []IndicatorGroup `koanf:"technology" json:"technology"`
	ImpactESG     []IndicatorGroup `koanf:"impact_esg" json:"impact_esg"`

	// MinFundingUSD is the total funding at which FundingBonus is added
	MinFundingUSD float64 `koanf:"min_funding_usd" json:"min_funding_usd"`
	FundingBonus  float64 `koanf:"funding_bonus" json:"funding_bonus"`
}

// For returns the groups of criterion c.
func (ind Indicators) For(c deal.Criterion) []IndicatorGroup {
	switch c {
	case deal.CriterionTeam:
		return ind.Team
	case deal.CriterionBusinessModel:
		return ind.BusinessModel
	case deal.CriterionTechnology:
		return ind.Technology
	case deal.CriterionImpactESG:
		return ind.ImpactESG
	}
	return nil
}

// DefaultIndicators returns the product keyword lists.
func DefaultIndicators() Indicators {
	return Indicators{
		Team: []IndicatorGroup{
			{Name: "education", Weight: 0.3, Keywords: []string{
				"IIT", "IIM", "Harvard", "Stanford", "MIT", "top university", "prestigious institution",
			}},
			{Name: "experience", Weight: 0.4, Keywords: []string{
				"years experience", "worked at", "former", "led", "founded", "serial entrepreneur", "leadership",
			}},
			{Name: "skills", Weight: 0.3, Keywords: []string{
				"technical expertise", "business acumen", "visionary", "communication skills", "team management",
			}},
		},
		BusinessModel: []IndicatorGroup{
			{Name: "market_size", Weight: 0.4, Keywords: []string{
				"large market", "billion dollar", "massive opportunity", "growing market", "scale", "expansion",
			}},
			{Name: "growth_potential", Weight: 0.3, Keywords: []string{
				"rapid growth", "scalable", "exponential", "traction", "revenue growth",
			}},
			{Name: "innovation", Weight: 0.3, Keywords: []string{
				"unique", "innovative", "disrupting", "revolutionary", "breakthrough",
			}},
		},
		Technology: []IndicatorGroup{
			{Name: "innovation", Weight: 0.4, Keywords: []string{
				"patent", "proprietary", "novel technology", "breakthrough", "cutting edge",
			}},
			{Name: "feasibility", Weight: 0.3, Keywords: []string{
				"proven", "validated", "working product", "prototype", "production ready",
			}},
			{Name: "competitive_advantage", Weight: 0.3, Keywords: []string{
				"barrier to entry", "competitive advantage", "unique technology", "10x better", "superior",
			}},
		},
		ImpactESG: []IndicatorGroup{
			{Name: "social_impact", Weight: 0.5, Keywords: []string{
				"social impact", "sustainability", "environmental", "community", "welfare",
			}},
			{Name: "esg", Weight: 0.5, Keywords: []string{
				"ESG", "governance", "sustainable", "responsible", "ethical",
			}},
		},
		MinFundingUSD: 100000,
		FundingBonus:  1.0,
	}
}

// Validate checks every criterion has groups whose weights sum to 1.0.
func (ind Indicators) Validate() error {
	for _, c := range deal.Criteria {
		groups := ind.For(c)
		field := "indicators." + string(c)
		if len(groups) == 0 {
			return errors.NewInvalidConfiguration(field, "at least one indicator group is required")
		}
		sum := 0.0
		for i, g := range groups {
			gf := fmt.Sprintf("%s[%d]", field, i)
			if strings.TrimSpace(g.Name) == "" {
				return errors.NewInvalidConfiguration(gf+".name", "group name is required")
			}
			if math.IsNaN(g.Weight) || math.IsInf(g.Weight, 0) || g.Weight < 0 {
				return errors.NewInvalidConfiguration(gf+".weight", fmt.Sprintf("must be a finite number >= 0, got %g", g.Weight))
			}
			if len(g.Keywords) == 0 {
				return errors.NewInvalidConfiguration(gf+".keywords", fmt.Sprintf("group %q has no keywords", g.Name))
			}
			for j, kw := range g.Keywords {
				if strings.TrimSpace(kw) == "" {
					return errors.NewInvalidConfiguration(fmt.Sprintf("%s.keywords[%d]", gf, j), "keyword is blank")
				}
			}
			if g.Saturation < 0 {
				return errors.NewInvalidConfiguration(gf+".saturation", "must be >= 0")
			}
			sum += g.Weight
		}
		if math.Abs(sum-1.0) > WeightTolerance {
			return errors.NewInvalidConfiguration(field, fmt.Sprintf("group weights must sum to 1.0, got %g", sum))
		}
	}
	if math.IsNaN(ind.MinFundingUSD) || ind.MinFundingUSD < 0 {
		return errors.NewInvalidConfiguration("indicators.min_funding_usd", "must be >= 0")
	}
	if math.IsNaN(ind.FundingBonus) || ind.FundingBonus < 0 || ind.FundingBonus > MaxScore {
		return errors.NewInvalidConfiguration("indicators.funding_bonus", fmt.Sprintf("must be within [0, %g]", MaxScore))
	}
	return nil
}

package scoring

import (
	"fmt"
	"math"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// WeightTolerance is the allowed deviation of a weight sum from 1.0.
const WeightTolerance = 1e-6

// CriteriaWeights are the relative importance of each criterion.
// All weights are non-negative and sum to 1.0.
type CriteriaWeights struct {
	Team          float64 `koanf:"team" json:"team"`
	BusinessModel float64 `koanf:"business_model" json:"business_model"`
	Technology    float64 `koanf:"technology" json:"technology"`
	ImpactESG     float64 `koanf:"impact_esg" json:"impact_esg"`
}

// DefaultWeights returns the product default weighting.
func DefaultWeights() CriteriaWeights {
	return CriteriaWeights{
		Team:          0.35,
		BusinessModel: 0.30,
		Technology:    0.20,
		ImpactESG:     0.15,
	}
}

// For returns the weight of criterion c.
func (w CriteriaWeights) For(c deal.Criterion) float64 {
	switch c {
	case deal.CriterionTeam:
		return w.Team
	case deal.CriterionBusinessModel:
		return w.BusinessModel
	case deal.CriterionTechnology:
		return w.Technology
	case deal.CriterionImpactESG:
		return w.ImpactESG
	}
	return 0
}

// Validate checks the weight invariant.
// Returns INVALID_CONFIGURATION naming the offending field.
func (w CriteriaWeights) Validate() error {
	sum := 0.0
	for _, c := range deal.Criteria {
		v := w.For(c)
		field := "weights." + string(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewInvalidConfiguration(field, "must be a finite number")
		}
		if v < 0 {
			return errors.NewInvalidConfiguration(field, fmt.Sprintf("must be >= 0, got %g", v))
		}
		sum += v
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return errors.NewInvalidConfiguration("weights", fmt.Sprintf("must sum to 1.0, got %g", sum))
	}
	return nil
}

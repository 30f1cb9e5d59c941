package memo

import (
	"fmt"
	"math"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Thresholds map a composite score to a recommendation:
// composite >= Pursue is pursue, composite >= Monitor is monitor, else pass.
type Thresholds struct {
	Pursue  float64 `koanf:"pursue" json:"pursue"`
	Monitor float64 `koanf:"monitor" json:"monitor"`

	// MinTeamSize flags smaller teams as a risk (0 disables the check)
	MinTeamSize int `koanf:"min_team_size" json:"min_team_size"`
}

// DefaultThresholds returns pursue >= 7.0, monitor >= 4.0, pass < 4.0 and a
// minimum team size of 2.
func DefaultThresholds() Thresholds {
	return Thresholds{Pursue: 7.0, Monitor: 4.0, MinTeamSize: 2}
}

// Validate checks 0 <= Monitor <= Pursue <= 10.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.Monitor) || t.Monitor < 0 || t.Monitor > 10 {
		return errors.NewInvalidConfiguration("thresholds.monitor", fmt.Sprintf("must be within [0, 10], got %g", t.Monitor))
	}
	if math.IsNaN(t.Pursue) || t.Pursue < 0 || t.Pursue > 10 {
		return errors.NewInvalidConfiguration("thresholds.pursue", fmt.Sprintf("must be within [0, 10], got %g", t.Pursue))
	}
	if t.Monitor > t.Pursue {
		return errors.NewInvalidConfiguration("thresholds", fmt.Sprintf("monitor (%g) must not exceed pursue (%g)", t.Monitor, t.Pursue))
	}
	if t.MinTeamSize < 0 {
		return errors.NewInvalidConfiguration("thresholds.min_team_size", "must be >= 0")
	}
	return nil
}

// Recommend returns the recommendation for a composite score.
func (t Thresholds) Recommend(composite float64) deal.Recommendation {
	switch {
	case composite >= t.Pursue:
		return deal.RecommendPursue
	case composite >= t.Monitor:
		return deal.RecommendMonitor
	default:
		return deal.RecommendPass
	}
}

// String states the thresholds, e.g. "pursue >= 7.00, monitor >= 4.00, pass < 4.00".
func (t Thresholds) String() string {
	return fmt.Sprintf("pursue >= %.2f, monitor >= %.2f, pass < %.2f", t.Pursue, t.Monitor, t.Monitor)
}

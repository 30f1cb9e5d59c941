package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

func result(name string, composite float64, warm bool, stage deal.FundingStage) *deal.ScoreResult {
	return &deal.ScoreResult{
		CompanyName:    name,
		CompositeScore: composite,
		Profile:        &deal.CompanyProfile{Name: &name, WarmIntro: &warm, FundingStage: &stage},
	}
}

func TestRank(t *testing.T) {
	inputs := []RankInput{
		{Result: result("Cold Series B", 7.0, false, deal.StageSeriesBPlus)},
		{Result: result("Warm Seed", 5.0, true, deal.StageSeed)},
		{Result: result("Beta", 6.0, false, deal.StageUnknown)},
		{Result: result("Alpha", 6.0, false, deal.StageUnknown)},
		{Result: nil},
	}

	got := Rank(inputs, DefaultPriorityPolicy())
	require.Len(t, got, 4)

	order := make([]string, len(got))
	for i, r := range got {
		order[i] = r.Company
		require.Equal(t, i+1, r.Rank)
	}
	require.Equal(t, []string{"Warm Seed", "Cold Series B", "Alpha", "Beta"}, order)

	require.InDelta(t, 8.0, got[0].Priority, 1e-9)
	require.Equal(t, 1, got[0].Index)
	require.Equal(t, []string{"warm intro +2.00", "preferred stage seed +1.00"}, got[0].Reasons)
}

func TestRank_ThesisBlendAndClamp(t *testing.T) {
	rel := 1.0
	inputs := []RankInput{
		{Result: result("Aligned", 9.0, true, deal.StageSeed), ThesisRelevance: &rel},
	}

	got := Rank(inputs, DefaultPriorityPolicy())
	require.Len(t, got, 1)
	// 0.6*9 + 0.4*10 = 9.4, plus 3.0 of bonuses, clamped
	require.Equal(t, MaxScore, got[0].Priority)
	require.Equal(t, 9.0, got[0].Score)
}

func TestRank_NoProfile(t *testing.T) {
	got := Rank([]RankInput{{Result: &deal.ScoreResult{CompanyName: "Bare", CompositeScore: 4.2}}}, DefaultPriorityPolicy())
	require.Len(t, got, 1)
	require.Equal(t, 4.2, got[0].Priority)
	require.Empty(t, got[0].Reasons)
}

func TestPriorityPolicy_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*PriorityPolicy)
		wantField string
	}{
		{"negative warm bonus", func(p *PriorityPolicy) { p.WarmIntroBonus = -1 }, "priority.warm_intro_bonus"},
		{"stage bonus too large", func(p *PriorityPolicy) { p.PreferredStageBonus = 11 }, "priority.preferred_stage_bonus"},
		{"thesis weight", func(p *PriorityPolicy) { p.ThesisWeight = 1.5 }, "priority.thesis_weight"},
		{"unknown stage", func(p *PriorityPolicy) { p.PreferredStages = []deal.FundingStage{"series a"} }, "priority.preferred_stages[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPriorityPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, errors.ErrInvalidConfiguration) {
				t.Fatalf("Validate() error = %v, want INVALID_CONFIGURATION", err)
			}
			if got := errors.As(err).Details["field"]; got != tt.wantField {
				t.Errorf("Details[field] = %v, want %q", got, tt.wantField)
			}
		})
	}

	if err := DefaultPriorityPolicy().Validate(); err != nil {
		t.Errorf("DefaultPriorityPolicy().Validate() error = %v", err)
	}
}

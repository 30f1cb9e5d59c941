package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/pipeline"
	"github.com/hpungsan/dealflow/internal/scoring"
)

// RankInput contains parameters for the Rank operation.
type RankInput struct {
	// Thesis recomputes relevance against this thesis instead of the
	// relevance stored with each score
	Thesis string
	Limit  int // default: 20, max: 500
}

// RankedScore is one entry of a ranking.
type RankedScore struct {
	scoring.Ranked
	ScoreID string `json:"score_id"`
}

// RankOutput contains the result of the Rank operation.
type RankOutput struct {
	Items []RankedScore `json:"items"`
	Total int           `json:"total"`
}

// Rank orders the latest scoring run of every company by priority.
func Rank(ctx context.Context, database *sql.DB, p *pipeline.Pipeline, input RankInput) (*RankOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("rank")
	}
	limit := clampLimit(input.Limit, DefaultRankLimit, MaxRankLimit)
	thesis := strings.TrimSpace(input.Thesis)

	latest, err := db.LatestScores(ctx, database)
	if err != nil {
		return nil, err
	}

	inputs := make([]scoring.RankInput, len(latest))
	for i := range latest {
		s := &latest[i]
		rel := s.ThesisRelevance
		if thesis != "" {
			rel = p.Relevance(&s.Profile, thesis)
		}
		inputs[i] = scoring.RankInput{Result: &s.Result, ThesisRelevance: rel}
	}

	ranked := p.Rank(inputs)
	out := &RankOutput{Items: make([]RankedScore, 0, min(limit, len(ranked))), Total: len(ranked)}
	for _, r := range ranked {
		if len(out.Items) == limit {
			break
		}
		out.Items = append(out.Items, RankedScore{Ranked: r, ScoreID: latest[r.Index].ID})
	}
	return out, nil
}

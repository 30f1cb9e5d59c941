package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// ScoreInput contains parameters for the Score operation.
// At least one of Profile and CandidateID is required.
type ScoreInput struct {
	// Profile fragments take precedence over the candidate's signals
	Profile *deal.CompanyProfile

	// CandidateID merges a stored candidate into the profile
	CandidateID string

	// Thesis overrides the configured investment thesis
	Thesis string
}

// ScoreOutput contains the result of the Score operation.
type ScoreOutput struct {
	ID              string              `json:"id"`
	CandidateID     *string             `json:"candidate_id,omitempty"`
	Result          deal.ScoreResult    `json:"score_result"`
	Profile         deal.CompanyProfile `json:"profile"`
	ThesisRelevance *float64            `json:"thesis_relevance,omitempty"`
	CreatedAt       int64               `json:"created_at"`
}

// Score scores a company profile and stores the result.
func Score(ctx context.Context, database *sql.DB, p *pipeline.Pipeline, input ScoreInput) (*ScoreOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("score")
	}

	candidateID := strings.TrimSpace(input.CandidateID)
	if input.Profile == nil && candidateID == "" {
		return nil, errors.NewInvalidRequest("profile or candidate_id is required")
	}

	var fragments []deal.CompanyProfile
	if input.Profile != nil {
		fragments = append(fragments, *input.Profile)
	}

	var (
		cand  *deal.DealCandidate
		candP *string
	)
	if candidateID != "" {
		stored, err := db.GetCandidate(database, candidateID)
		if err != nil {
			return nil, err
		}
		cand = &stored.Candidate
		candP = &stored.ID
	}

	profile := deal.MergeProfile(cand, fragments...)
	res, err := p.Score(&profile)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	s := &db.Score{
		ID:              id,
		CandidateID:     candP,
		Result:          *res,
		Profile:         profile,
		ThesisRelevance: p.Relevance(&profile, strings.TrimSpace(input.Thesis)),
		CreatedAt:       time.Now().UnixMilli(),
	}
	if err := db.InsertScore(database, s); err != nil {
		return nil, err
	}
	return scoreOutput(s), nil
}

func scoreOutput(s *db.Score) *ScoreOutput {
	return &ScoreOutput{
		ID:              s.ID,
		CandidateID:     s.CandidateID,
		Result:          s.Result,
		Profile:         s.Profile,
		ThesisRelevance: s.ThesisRelevance,
		CreatedAt:       s.CreatedAt,
	}
}

// FetchScoreInput contains parameters for the FetchScore operation.
type FetchScoreInput struct {
	ID string
}

// FetchScore retrieves a stored scoring run.
func FetchScore(database *sql.DB, input FetchScoreInput) (*ScoreOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	s, err := db.GetScore(database, id)
	if err != nil {
		return nil, err
	}
	return scoreOutput(s), nil
}

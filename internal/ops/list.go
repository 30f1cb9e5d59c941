package ops

import (
	"context"
	"database/sql"
	"math"

	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// ListCandidatesInput contains parameters for the ListCandidates operation.
type ListCandidatesInput struct {
	Sector    string
	Stage     string
	WarmIntro *bool
	Company   string
	Limit     int // default: 20, max: 100
	Offset    int // default: 0
}

// CandidateSummary is the list view of a candidate.
type CandidateSummary struct {
	ID           string            `json:"id"`
	SourceID     string            `json:"source_id"`
	CompanyName  *string           `json:"company_name"`
	Sectors      []string          `json:"sectors"`
	FundingStage deal.FundingStage `json:"funding_stage"`
	WarmIntro    bool              `json:"warm_intro"`
	CreatedAt    int64             `json:"created_at"`
}

// ListCandidatesOutput contains the result of the ListCandidates operation.
type ListCandidatesOutput struct {
	Items      []CandidateSummary `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"`
}

// ListCandidates lists current candidates, newest first.
func ListCandidates(ctx context.Context, database *sql.DB, input ListCandidatesInput) (*ListCandidatesOutput, error) {
	stage, err := parseStage(input.Stage)
	if err != nil {
		return nil, err
	}
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	filter := db.CandidateFilter{
		Sector:    input.Sector,
		Stage:     stage,
		WarmIntro: input.WarmIntro,
		Company:   deal.NormalizeName(input.Company),
	}
	cands, total, err := db.ListCandidates(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]CandidateSummary, 0, len(cands))
	for _, c := range cands {
		sectors := c.Candidate.Sectors
		if sectors == nil {
			sectors = []string{}
		}
		items = append(items, CandidateSummary{
			ID:           c.ID,
			SourceID:     c.Candidate.SourceDocumentID,
			CompanyName:  c.Candidate.CompanyName,
			Sectors:      sectors,
			FundingStage: c.Candidate.FundingStage,
			WarmIntro:    c.Candidate.WarmIntro,
			CreatedAt:    c.CreatedAt,
		})
	}

	return &ListCandidatesOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "created_at_desc",
	}, nil
}

// ListScoresInput contains parameters for the ListScores operation.
type ListScoresInput struct {
	Company      string
	MinComposite *float64
	Limit        int // default: 20, max: 100
	Offset       int // default: 0
}

// ScoreSummary is the list view of a scoring run.
type ScoreSummary struct {
	ID              string   `json:"id"`
	CandidateID     *string  `json:"candidate_id,omitempty"`
	CompanyName     string   `json:"company_name"`
	CompositeScore  float64  `json:"composite_score"`
	ThesisRelevance *float64 `json:"thesis_relevance,omitempty"`
	CreatedAt       int64    `json:"created_at"`
}

// ListScoresOutput contains the result of the ListScores operation.
type ListScoresOutput struct {
	Items      []ScoreSummary `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sort       string         `json:"sort"`
}

// ListScores lists scoring runs, newest first.
func ListScores(ctx context.Context, database *sql.DB, input ListScoresInput) (*ListScoresOutput, error) {
	if mc := input.MinComposite; mc != nil && (math.IsNaN(*mc) || *mc < 0 || *mc > 10) {
		return nil, errors.NewInvalidRequest("min_composite must be within [0, 10]")
	}
	limit := clampLimit(input.Limit, DefaultListLimit, MaxListLimit)
	offset := max(input.Offset, 0)

	filter := db.ScoreFilter{
		Company:      deal.NormalizeName(input.Company),
		MinComposite: input.MinComposite,
	}
	scores, total, err := db.ListScores(ctx, database, filter, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]ScoreSummary, 0, len(scores))
	for _, s := range scores {
		items = append(items, scoreSummary(s))
	}

	return &ListScoresOutput{
		Items:      items,
		Pagination: newPagination(limit, offset, len(items), total),
		Sort:       "created_at_desc",
	}, nil
}

func scoreSummary(s db.Score) ScoreSummary {
	return ScoreSummary{
		ID:              s.ID,
		CandidateID:     s.CandidateID,
		CompanyName:     s.Result.CompanyName,
		CompositeScore:  s.Result.CompositeScore,
		ThesisRelevance: s.ThesisRelevance,
		CreatedAt:       s.CreatedAt,
	}
}

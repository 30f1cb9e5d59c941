package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

func TestScore_Profile(t *testing.T) {
	database, p, _ := setup(t)

	out, err := Score(context.Background(), database, p, ScoreInput{Profile: acmeProfile()})
	require.NoError(t, err)
	require.NotEmpty(t, out.ID)
	require.Nil(t, out.CandidateID)
	require.Nil(t, out.ThesisRelevance, "no thesis configured")
	require.Equal(t, "Acme", out.Result.CompanyName)
	require.Len(t, out.Result.SubScores, 4)

	got, err := FetchScore(database, FetchScoreInput{ID: out.ID})
	require.NoError(t, err)
	require.Equal(t, out.Result.CompositeScore, got.Result.CompositeScore)
	require.Equal(t, out.Profile, got.Profile)
}

func TestScore_MergesCandidate(t *testing.T) {
	database, p, _ := setup(t)
	ctx := context.Background()

	ing, err := Ingest(ctx, database, p, IngestInput{Document: rawDoc("msg-1", warmIntroText)})
	require.NoError(t, err)

	// Fragment without a name: the candidate fills it in
	fragment := acmeProfile()
	fragment.Name = nil
	out, err := Score(ctx, database, p, ScoreInput{
		Profile:     fragment,
		CandidateID: ing.CandidateID,
		Thesis:      "machine learning platforms for climate and carbon reduction",
	})
	require.NoError(t, err)
	require.Equal(t, ing.CandidateID, *out.CandidateID)
	require.Equal(t, "Acme", out.Result.CompanyName)
	require.True(t, *out.Profile.WarmIntro)
	require.Equal(t, deal.StageSeed, *out.Profile.FundingStage)
	require.NotNil(t, out.ThesisRelevance)
	require.Greater(t, *out.ThesisRelevance, 0.0)
}

func TestScore_Errors(t *testing.T) {
	database, p, _ := setup(t)
	ctx := context.Background()

	_, err := Score(ctx, database, p, ScoreInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)

	_, err = Score(ctx, database, p, ScoreInput{CandidateID: "01MISSING"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "err = %v", err)

	_, err = Score(ctx, database, p, ScoreInput{Profile: &deal.CompanyProfile{Name: deal.StringPtr("Ghost")}})
	require.True(t, errors.Is(err, errors.ErrInsufficientData), "err = %v", err)

	_, err = FetchScore(database, FetchScoreInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)
}

func TestRenderMemo(t *testing.T) {
	database, p, m := setup(t)
	ctx := context.Background()

	s, err := Score(ctx, database, p, ScoreInput{Profile: acmeProfile()})
	require.NoError(t, err)

	out, err := RenderMemo(ctx, database, p, RenderMemoInput{ScoreID: s.ID, HTML: true})
	require.NoError(t, err)
	require.Equal(t, s.ID, out.ScoreID)
	require.Equal(t, "Acme", out.Memo.CompanyName)
	require.Len(t, out.Memo.Sections, 7)
	require.Contains(t, out.Markdown, "# Investment Memo: Acme")
	require.Contains(t, out.HTML, "<h1>Investment Memo: Acme</h1>")

	require.Contains(t, metricsText(t, m), "dealflow_memo_recommendations_total{recommendation=\""+string(out.Memo.Recommendation)+"\"} 1")

	byID, err := FetchMemo(database, FetchMemoInput{ID: out.ID})
	require.NoError(t, err)
	require.Equal(t, out.Markdown, byID.Markdown)
	require.Empty(t, byID.HTML)

	latest, err := FetchMemo(database, FetchMemoInput{ScoreID: s.ID, Section: "esg"})
	require.NoError(t, err)
	require.Equal(t, out.ID, latest.ID)
	require.Equal(t, "Impact/ESG", latest.Section.Title)
	require.Equal(t, out.Memo.Section("Impact/ESG").Body, latest.Section.Body)
}

func TestRenderMemo_Errors(t *testing.T) {
	database, p, _ := setup(t)
	ctx := context.Background()

	_, err := RenderMemo(ctx, database, p, RenderMemoInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "err = %v", err)

	_, err = RenderMemo(ctx, database, p, RenderMemoInput{ScoreID: "01MISSING"})
	require.True(t, errors.Is(err, errors.ErrNotFound), "err = %v", err)
}

func TestFetchMemo_Errors(t *testing.T) {
	database, p, _ := setup(t)
	ctx := context.Background()

	s, err := Score(ctx, database, p, ScoreInput{Profile: acmeProfile()})
	require.NoError(t, err)
	_, err = RenderMemo(ctx, database, p, RenderMemoInput{ScoreID: s.ID})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input FetchMemoInput
		code  errors.ErrorCode
	}{
		{"no address", FetchMemoInput{}, errors.ErrInvalidRequest},
		{"both addresses", FetchMemoInput{ID: "a", ScoreID: "b"}, errors.ErrInvalidRequest},
		{"unknown id", FetchMemoInput{ID: "01MISSING"}, errors.ErrNotFound},
		{"unknown section", FetchMemoInput{ScoreID: s.ID, Section: "Appendix"}, errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FetchMemo(database, tt.input)
			require.True(t, errors.Is(err, tt.code), "err = %v, want %s", err, tt.code)
		})
	}
}

func TestFetchCandidate_Errors(t *testing.T) {
	database, _, _ := setup(t)

	_, err := FetchCandidate(database, FetchCandidateInput{})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = FetchCandidate(database, FetchCandidateInput{ID: "a", SourceID: "b"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = FetchCandidate(database, FetchCandidateInput{SourceID: "nope"})
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

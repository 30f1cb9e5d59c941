package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/dealflow/internal/deal"
)

// TestFullWorkflow exercises the deal lifecycle:
// ingest → list → score from candidate → memo → fetch section → rank → export
func TestFullWorkflow(t *testing.T) {
	database, p, m := setup(t)
	ctx := context.Background()

	// 1. Ingest a warm intro and a cold pitch
	batch := IngestBatch(ctx, database, p, 2, []IngestInput{
		{Document: rawDoc("warm", warmIntroText)},
		{Document: rawDoc("cold", coldPitchText)},
	})
	require.Equal(t, 2, batch.Stored)
	warm := batch.Items[0].Output
	cold := batch.Items[1].Output

	// 2. List warm intros
	yes := true
	listOut, err := ListCandidates(ctx, database, ListCandidatesInput{WarmIntro: &yes})
	require.NoError(t, err)
	require.Len(t, listOut.Items, 1)
	require.Equal(t, warm.CandidateID, listOut.Items[0].ID)

	// 3. Score both candidates with the same enrichment
	enrich := acmeProfile()
	enrich.Name = nil
	warmScore, err := Score(ctx, database, p, ScoreInput{CandidateID: warm.CandidateID, Profile: enrich})
	require.NoError(t, err)
	coldScore, err := Score(ctx, database, p, ScoreInput{CandidateID: cold.CandidateID, Profile: enrich})
	require.NoError(t, err)
	require.Equal(t, "Acme", warmScore.Result.CompanyName)
	require.Equal(t, "Acme Corp", coldScore.Result.CompanyName)
	require.Equal(t, warmScore.Result.CompositeScore, coldScore.Result.CompositeScore)

	// 4. Render the memo and read one section back
	memoOut, err := RenderMemo(ctx, database, p, RenderMemoInput{ScoreID: warmScore.ID})
	require.NoError(t, err)
	require.Contains(t, []deal.Recommendation{deal.RecommendPursue, deal.RecommendMonitor, deal.RecommendPass}, memoOut.Memo.Recommendation)

	sec, err := FetchMemo(database, FetchMemoInput{ScoreID: warmScore.ID, Section: "Recommendation"})
	require.NoError(t, err)
	require.Contains(t, sec.Section.Body, string(memoOut.Memo.Recommendation))

	// 5. Rank: equal composites, the warm intro wins
	rankOut, err := Rank(ctx, database, p, RankInput{})
	require.NoError(t, err)
	require.Len(t, rankOut.Items, 2)
	require.Equal(t, warmScore.ID, rankOut.Items[0].ScoreID)
	require.Equal(t, coldScore.ID, rankOut.Items[1].ScoreID)

	// 6. Export
	dir := t.TempDir()
	exportOut, err := Export(ctx, database, exportConfig(dir), ExportInput{Path: filepath.Join(dir, "all.csv"), Format: ExportCSV})
	require.NoError(t, err)
	require.Equal(t, 2, exportOut.Count)

	text := metricsText(t, m)
	require.Contains(t, text, `dealflow_pipeline_runs_total{result="ok",stage="extract"} 2`)
	require.Contains(t, text, `dealflow_pipeline_runs_total{result="ok",stage="score"} 2`)
	require.Contains(t, text, `dealflow_pipeline_runs_total{result="ok",stage="memo"} 1`)
}

// A referrer named in the pitch is not part of the team, so a profile with no
// team data leaves the team criterion out of the composite.
func TestReferredPitch_ReferrerNotScoredAsTeam(t *testing.T) {
	database, p, _ := setup(t)
	ctx := context.Background()

	in, err := Ingest(ctx, database, p, IngestInput{
		Document: rawDoc("referred", "Mark Lee recommended I reach out. We are Nimbus, raising a seed round."),
	})
	require.NoError(t, err)

	cand, err := FetchCandidate(database, FetchCandidateInput{ID: in.CandidateID})
	require.NoError(t, err)
	require.True(t, cand.Candidate.WarmIntro)
	require.Equal(t, []string{"Mark Lee"}, cand.Candidate.Referrers)

	enrich := &deal.CompanyProfile{TechNotes: deal.StringPtr("Proprietary machine learning platform")}
	withCandidate, err := Score(ctx, database, p, ScoreInput{CandidateID: in.CandidateID, Profile: enrich})
	require.NoError(t, err)
	require.Empty(t, withCandidate.Profile.TeamMembers)
	require.Equal(t, deal.ConfidenceMissing, withCandidate.Result.SubScores[deal.CriterionTeam].Confidence)

	alone := &deal.CompanyProfile{Name: deal.StringPtr("Nimbus"), TechNotes: enrich.TechNotes}
	profileOnly, err := Score(ctx, database, p, ScoreInput{Profile: alone})
	require.NoError(t, err)
	require.Equal(t, profileOnly.Result.CompositeScore, withCandidate.Result.CompositeScore)
}

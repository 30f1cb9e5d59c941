package ops

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/metrics"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

const (
	warmIntroText = "I wanted to introduce you to Jane, founder of Acme, who is raising a seed round"
	coldPitchText = "We are Acme Corp, building AI tools, please review our deck"
)

func setup(t *testing.T) (*sql.DB, *pipeline.Pipeline, *metrics.Metrics) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	m := metrics.New()
	p, err := pipeline.New(config.DefaultConfig(), pipeline.WithMetrics(m))
	require.NoError(t, err)
	return database, p, m
}

func rawDoc(sourceID, text string) deal.RawDocument {
	return deal.RawDocument{
		SourceID:   sourceID,
		Origin:     deal.OriginEmail,
		RawText:    text,
		ReceivedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func acmeProfile() *deal.CompanyProfile {
	return &deal.CompanyProfile{
		Name: deal.StringPtr("Acme"),
		TeamMembers: []deal.TeamMember{
			{Name: "Jane", Role: deal.StringPtr("CEO"), Background: deal.StringPtr("PhD, former Google engineer")},
			{Name: "Raj", Role: deal.StringPtr("CTO"), Background: deal.StringPtr("Serial founder, exited startup")},
		},
		BusinessModelNotes: deal.StringPtr("SaaS subscription with recurring revenue"),
		TechNotes:          deal.StringPtr("Proprietary machine learning platform"),
		ImpactNotes:        deal.StringPtr("Reduces carbon emissions"),
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, DefaultListLimit},
		{-5, DefaultListLimit},
		{7, 7},
		{MaxListLimit + 1, MaxListLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.limit, DefaultListLimit, MaxListLimit); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 0, 2, 5)
	if !p.HasMore || p.Total != 5 {
		t.Errorf("pagination = %+v, want has_more with total 5", p)
	}
	p = newPagination(2, 4, 1, 5)
	if p.HasMore {
		t.Errorf("pagination = %+v, want no more", p)
	}
}

func TestParseStage(t *testing.T) {
	stage, err := parseStage("Series-A")
	require.NoError(t, err)
	require.Equal(t, deal.StageSeriesA, stage)

	stage, err = parseStage("")
	require.NoError(t, err)
	require.Equal(t, deal.FundingStage(""), stage)

	_, err = parseStage("series-z")
	require.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestGenerateULID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id, err := generateULID()
		require.NoError(t, err)
		require.Len(t, id, 26)
		require.False(t, seen[id], "duplicate ULID %s", id)
		seen[id] = true
	}
}

func TestCancelledContext(t *testing.T) {
	database, p, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Ingest(ctx, database, p, IngestInput{Document: rawDoc("m1", warmIntroText)})
	require.True(t, errors.Is(err, errors.ErrCancelled), "err = %v", err)

	_, err = Score(ctx, database, p, ScoreInput{Profile: acmeProfile()})
	require.True(t, errors.Is(err, errors.ErrCancelled), "err = %v", err)

	_, err = Rank(ctx, database, p, RankInput{})
	require.True(t, errors.Is(err, errors.ErrCancelled), "err = %v", err)
}

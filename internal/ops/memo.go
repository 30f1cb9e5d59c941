package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/memo"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// RenderMemoInput contains parameters for the RenderMemo operation.
type RenderMemoInput struct {
	ScoreID string // required
	HTML    bool   // also return the memo as HTML
}

// MemoOutput is a stored memo as returned by RenderMemo and FetchMemo.
type MemoOutput struct {
	ID        string              `json:"id"`
	ScoreID   string              `json:"score_id"`
	Memo      deal.InvestmentMemo `json:"memo"`
	Markdown  string              `json:"markdown"`
	HTML      string              `json:"html,omitempty"`
	CreatedAt int64               `json:"created_at"`

	// Section is set when FetchMemo asked for a single section
	Section *MemoSectionOutput `json:"section,omitempty"`
}

// MemoSectionOutput is one section of a stored memo.
type MemoSectionOutput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// RenderMemo renders the memo of a stored scoring run and stores it.
func RenderMemo(ctx context.Context, database *sql.DB, p *pipeline.Pipeline, input RenderMemoInput) (*MemoOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("memo")
	}
	scoreID := strings.TrimSpace(input.ScoreID)
	if scoreID == "" {
		return nil, errors.NewInvalidRequest("score_id is required")
	}

	s, err := db.GetScore(database, scoreID)
	if err != nil {
		return nil, err
	}

	m, err := p.Render(&s.Result, &s.Profile)
	if err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	stored := &db.Memo{
		ID:        id,
		ScoreID:   s.ID,
		Memo:      *m,
		Markdown:  memo.Markdown(m),
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := db.InsertMemo(database, stored); err != nil {
		return nil, err
	}
	return memoOutput(stored, input.HTML)
}

// FetchMemoInput contains parameters for the FetchMemo operation.
// Exactly one of ID and ScoreID is required; ScoreID selects the most
// recent memo of that scoring run.
type FetchMemoInput struct {
	ID      string
	ScoreID string
	Section string // optional section name, synonym-aware
	HTML    bool
}

// FetchMemo retrieves a stored memo, optionally narrowed to one section.
func FetchMemo(database *sql.DB, input FetchMemoInput) (*MemoOutput, error) {
	id := strings.TrimSpace(input.ID)
	scoreID := strings.TrimSpace(input.ScoreID)
	if id != "" && scoreID != "" {
		return nil, errors.NewInvalidRequest("specify either id or score_id, not both")
	}

	var (
		m   *db.Memo
		err error
	)
	switch {
	case id != "":
		m, err = db.GetMemo(database, id)
	case scoreID != "":
		m, err = db.GetLatestMemoForScore(database, scoreID)
	default:
		return nil, errors.NewInvalidRequest("must specify either id or score_id")
	}
	if err != nil {
		return nil, err
	}

	out, err := memoOutput(m, input.HTML)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Section); name != "" {
		sec := memo.FindSection(memo.ParseSections(m.Markdown), name)
		if sec == nil {
			return nil, errors.NewNotFound("memo section", name)
		}
		out.Section = &MemoSectionOutput{Title: sec.HeaderName, Body: sec.Content}
	}
	return out, nil
}

func memoOutput(m *db.Memo, html bool) (*MemoOutput, error) {
	out := &MemoOutput{
		ID:        m.ID,
		ScoreID:   m.ScoreID,
		Memo:      m.Memo,
		Markdown:  m.Markdown,
		CreatedAt: m.CreatedAt,
	}
	if html {
		rendered, err := memo.RenderHTML(&m.Memo)
		if err != nil {
			return nil, err
		}
		out.HTML = rendered
	}
	return out, nil
}

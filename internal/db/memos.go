package db

import (
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Memo is a stored investment memo. Memo.Score is not persisted; the
// scoring run is referenced by ScoreID.
type Memo struct {
	ID        string
	ScoreID   string
	Memo      deal.InvestmentMemo
	Markdown  string
	CreatedAt int64
}

const memoColumns = `id, score_id, memo_json, memo_markdown, created_at`

// InsertMemo stores a rendered memo.
func InsertMemo(q Querier, m *Memo) error {
	stored := m.Memo
	stored.Score = nil
	memoJSON, err := marshalJSON(stored)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO memos (
			id, score_id, company_name, recommendation, memo_markdown, memo_json, generated_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.Exec(query,
		m.ID, m.ScoreID, m.Memo.CompanyName, string(m.Memo.Recommendation),
		m.Markdown, memoJSON, m.Memo.GeneratedAt.UnixMilli(), m.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetMemo retrieves a memo by its ULID.
func GetMemo(q Querier, id string) (*Memo, error) {
	row := q.QueryRow(`SELECT `+memoColumns+` FROM memos WHERE id = ?`, id)
	m, err := scanMemo(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("memo", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

// GetLatestMemoForScore retrieves the most recent memo rendered from a score.
func GetLatestMemoForScore(q Querier, scoreID string) (*Memo, error) {
	row := q.QueryRow(`SELECT `+memoColumns+` FROM memos WHERE score_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, scoreID)
	m, err := scanMemo(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("memo", "score "+scoreID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

func scanMemo(row scanner) (*Memo, error) {
	var (
		m        Memo
		memoJSON string
	)
	if err := row.Scan(&m.ID, &m.ScoreID, &memoJSON, &m.Markdown, &m.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(memoJSON), &m.Memo); err != nil {
		return nil, err
	}
	return &m, nil
}

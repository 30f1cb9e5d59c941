package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Score is a stored scoring run. Result.Profile is restored from Profile.
type Score struct {
	ID              string
	CandidateID     *string
	Result          deal.ScoreResult
	Profile         deal.CompanyProfile
	ThesisRelevance *float64
	CreatedAt       int64
}

// ScoreFilter narrows ListScores. Zero values match everything.
type ScoreFilter struct {
	Company      string   // normalized company name
	MinComposite *float64 // inclusive
}

const scoreColumns = `id, candidate_id, thesis_relevance, result_json, profile_json, created_at`

// InsertScore stores a scoring run.
func InsertScore(q Querier, s *Score) error {
	resultJSON, err := marshalJSON(s.Result)
	if err != nil {
		return err
	}
	profileJSON, err := marshalJSON(s.Profile)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scores (
			id, candidate_id, company_name, company_norm, composite,
			thesis_relevance, result_json, profile_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.Exec(query,
		s.ID, toNullString(s.CandidateID), s.Result.CompanyName, deal.NormalizeName(s.Result.CompanyName),
		s.Result.CompositeScore, toNullFloat(s.ThesisRelevance), resultJSON, profileJSON, s.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetScore retrieves a scoring run by its ULID.
func GetScore(q Querier, id string) (*Score, error) {
	row := q.QueryRow(`SELECT `+scoreColumns+` FROM scores WHERE id = ?`, id)
	s, err := scanScore(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("score", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListScores returns scoring runs matching f, newest first, along with the
// total number of matches.
func ListScores(ctx context.Context, q Querier, f ScoreFilter, limit, offset int) ([]Score, int, error) {
	var where []string
	var args []any
	if f.Company != "" {
		where = append(where, "company_norm = ?")
		args = append(args, f.Company)
	}
	if f.MinComposite != nil {
		where = append(where, "composite >= ?")
		args = append(args, *f.MinComposite)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := count(q, "SELECT COUNT(*) FROM scores"+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + scoreColumns + ` FROM scores` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return collectScores(rows, total)
}

// LatestScores returns the most recent scoring run of every company,
// ordered by company. Runs without a company name are kept apart per
// candidate, or per run when they have no candidate either.
func LatestScores(ctx context.Context, q Querier) ([]Score, error) {
	query := `
		WITH ranked AS (
			SELECT ` + scoreColumns + `, company_norm,
				ROW_NUMBER() OVER (
					PARTITION BY company_norm,
						CASE WHEN company_norm = '' THEN COALESCE(candidate_id, id) END
					ORDER BY created_at DESC, id DESC
				) AS rn
			FROM scores
		)
		SELECT ` + scoreColumns + ` FROM ranked WHERE rn = 1 ORDER BY company_norm, id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	scores, _, err := collectScores(rows, 0)
	return scores, err
}

// StreamScoresForExport returns a cursor over every scoring run, oldest first.
// The caller must close the rows and scan them with ScanScoreFromRows.
func StreamScoresForExport(ctx context.Context, q Querier) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+scoreColumns+` FROM scores ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return rows, nil
}

// ScanScoreFromRows scans the current row of a StreamScoresForExport cursor.
func ScanScoreFromRows(rows *sql.Rows) (*Score, error) {
	return scanScore(rows)
}

func collectScores(rows *sql.Rows, total int) ([]Score, int, error) {
	defer rows.Close()
	var out []Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

func scanScore(row scanner) (*Score, error) {
	var (
		s           Score
		candidateID sql.NullString
		relevance   sql.NullFloat64
		resultJSON  string
		profileJSON string
	)
	if err := row.Scan(&s.ID, &candidateID, &relevance, &resultJSON, &profileJSON, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(resultJSON), &s.Result); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(profileJSON), &s.Profile); err != nil {
		return nil, err
	}
	s.CandidateID = fromNullString(candidateID)
	s.ThesisRelevance = fromNullFloat(relevance)
	s.Result.Profile = &s.Profile
	return &s, nil
}

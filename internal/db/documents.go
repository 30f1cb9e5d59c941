package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Document is a stored raw document.
type Document struct {
	ID        string
	Doc       deal.RawDocument
	CreatedAt int64
	UpdatedAt int64
}

// Candidate is a stored deal candidate. A re-extracted document supersedes
// its previous candidate; superseded rows stay addressable by id.
type Candidate struct {
	ID           string
	DocumentID   string
	Candidate    deal.DealCandidate
	CreatedAt    int64
	SupersededAt *int64
}

// CandidateFilter narrows ListCandidates. Zero values match everything.
type CandidateFilter struct {
	Sector    string
	Stage     deal.FundingStage
	WarmIntro *bool
	Company   string // normalized company name
}

// IngestDocument stores a new document and its candidate atomically.
// Returns ErrUniqueConstraint if the source id was already ingested.
func IngestDocument(database *sql.DB, d *Document, c *Candidate) error {
	return inTx(database, func(tx *sql.Tx) error {
		if err := insertDocument(tx, d); err != nil {
			return err
		}
		c.DocumentID = d.ID
		return insertCandidate(tx, c)
	})
}

// ReplaceDocument overwrites the document with d.Doc.SourceID, supersedes its
// current candidate and stores c as the new current candidate. d.ID and
// d.CreatedAt are set from the existing row.
func ReplaceDocument(database *sql.DB, d *Document, c *Candidate) error {
	return inTx(database, func(tx *sql.Tx) error {
		existing, err := GetDocumentBySourceID(tx, d.Doc.SourceID)
		if err != nil {
			return err
		}
		d.ID = existing.ID
		d.CreatedAt = existing.CreatedAt

		query := `
			UPDATE documents
			SET origin = ?, raw_text = ?, sender_address = ?, received_at = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := tx.Exec(query,
			string(d.Doc.Origin), d.Doc.RawText, toNullString(d.Doc.SenderAddress),
			d.Doc.ReceivedAt.UnixMilli(), d.UpdatedAt, d.ID,
		); err != nil {
			return errors.NewInternal(err)
		}

		if _, err := tx.Exec(
			`UPDATE candidates SET superseded_at = ? WHERE source_id = ? AND superseded_at IS NULL`,
			d.UpdatedAt, d.Doc.SourceID,
		); err != nil {
			return errors.NewInternal(err)
		}

		c.DocumentID = d.ID
		return insertCandidate(tx, c)
	})
}

func insertDocument(q Querier, d *Document) error {
	query := `
		INSERT INTO documents (
			id, source_id, origin, raw_text, sender_address, received_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.Exec(query,
		d.ID, d.Doc.SourceID, string(d.Doc.Origin), d.Doc.RawText,
		toNullString(d.Doc.SenderAddress), d.Doc.ReceivedAt.UnixMilli(),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

func insertCandidate(q Querier, c *Candidate) error {
	sectors := c.Candidate.Sectors
	if sectors == nil {
		sectors = []string{}
	}
	sectorsJSON, err := marshalJSON(sectors)
	if err != nil {
		return err
	}
	candidateJSON, err := marshalJSON(c.Candidate)
	if err != nil {
		return err
	}

	var companyNorm sql.NullString
	if c.Candidate.CompanyName != nil {
		companyNorm = sql.NullString{String: deal.NormalizeName(*c.Candidate.CompanyName), Valid: true}
	}

	query := `
		INSERT INTO candidates (
			id, document_id, source_id, company_name, company_norm, funding_stage,
			warm_intro, degraded, sectors_json, candidate_json, created_at, superseded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`
	_, err = q.Exec(query,
		c.ID, c.DocumentID, c.Candidate.SourceDocumentID,
		toNullString(c.Candidate.CompanyName), companyNorm, string(c.Candidate.FundingStage),
		boolToInt(c.Candidate.WarmIntro), boolToInt(c.Candidate.Degraded),
		sectorsJSON, candidateJSON, c.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetDocumentBySourceID retrieves a document by its source id.
func GetDocumentBySourceID(q Querier, sourceID string) (*Document, error) {
	query := `
		SELECT id, source_id, origin, raw_text, sender_address, received_at, created_at, updated_at
		FROM documents
		WHERE source_id = ?
	`
	var (
		d          Document
		origin     string
		sender     sql.NullString
		receivedAt int64
	)
	err := q.QueryRow(query, sourceID).Scan(
		&d.ID, &d.Doc.SourceID, &origin, &d.Doc.RawText, &sender, &receivedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", sourceID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	d.Doc.Origin = deal.Origin(origin)
	d.Doc.SenderAddress = fromNullString(sender)
	d.Doc.ReceivedAt = time.UnixMilli(receivedAt).UTC()
	return &d, nil
}

const candidateColumns = `id, document_id, candidate_json, created_at, superseded_at`

// GetCandidate retrieves a candidate by its ULID, superseded or not.
func GetCandidate(q Querier, id string) (*Candidate, error) {
	row := q.QueryRow(`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("candidate", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// GetCurrentCandidate retrieves the current candidate of a source document.
func GetCurrentCandidate(q Querier, sourceID string) (*Candidate, error) {
	row := q.QueryRow(`SELECT `+candidateColumns+` FROM candidates WHERE source_id = ? AND superseded_at IS NULL`, sourceID)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("candidate", sourceID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return c, nil
}

// ListCandidates returns current candidates matching f, newest first,
// along with the total number of matches.
func ListCandidates(ctx context.Context, q Querier, f CandidateFilter, limit, offset int) ([]Candidate, int, error) {
	where := []string{"superseded_at IS NULL"}
	var args []any
	if f.Sector != "" {
		where = append(where, "EXISTS (SELECT 1 FROM json_each(candidates.sectors_json) WHERE value = ?)")
		args = append(args, strings.ToLower(strings.TrimSpace(f.Sector)))
	}
	if f.Stage != "" {
		where = append(where, "funding_stage = ?")
		args = append(args, string(f.Stage))
	}
	if f.WarmIntro != nil {
		where = append(where, "warm_intro = ?")
		args = append(args, boolToInt(*f.WarmIntro))
	}
	if f.Company != "" {
		where = append(where, "company_norm = ?")
		args = append(args, f.Company)
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	total, err := count(q, "SELECT COUNT(*) FROM candidates"+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := q.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

func scanCandidate(row scanner) (*Candidate, error) {
	var (
		c             Candidate
		candidateJSON string
		superseded    sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.DocumentID, &candidateJSON, &c.CreatedAt, &superseded); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(candidateJSON), &c.Candidate); err != nil {
		return nil, err
	}
	if superseded.Valid {
		c.SupersededAt = &superseded.Int64
	}
	return &c, nil
}

package ops

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// FetchCandidateInput contains parameters for the FetchCandidate operation.
// Exactly one of ID and SourceID is required; SourceID selects the current
// candidate of that document.
type FetchCandidateInput struct {
	ID              string
	SourceID        string
	IncludeDocument bool
}

// CandidateOutput is a stored candidate.
type CandidateOutput struct {
	ID           string             `json:"id"`
	DocumentID   string             `json:"document_id"`
	Candidate    deal.DealCandidate `json:"candidate"`
	CreatedAt    int64              `json:"created_at"`
	SupersededAt *int64             `json:"superseded_at,omitempty"`

	// Document is set when IncludeDocument was requested
	Document *deal.RawDocument `json:"document,omitempty"`
}

// FetchCandidate retrieves a candidate by id or source id.
func FetchCandidate(database *sql.DB, input FetchCandidateInput) (*CandidateOutput, error) {
	id := strings.TrimSpace(input.ID)
	sourceID := strings.TrimSpace(input.SourceID)
	if id != "" && sourceID != "" {
		return nil, errors.NewInvalidRequest("specify either id or source_id, not both")
	}

	var (
		c   *db.Candidate
		err error
	)
	switch {
	case id != "":
		c, err = db.GetCandidate(database, id)
	case sourceID != "":
		c, err = db.GetCurrentCandidate(database, sourceID)
	default:
		return nil, errors.NewInvalidRequest("must specify either id or source_id")
	}
	if err != nil {
		return nil, err
	}

	out := &CandidateOutput{
		ID:           c.ID,
		DocumentID:   c.DocumentID,
		Candidate:    c.Candidate,
		CreatedAt:    c.CreatedAt,
		SupersededAt: c.SupersededAt,
	}
	if input.IncludeDocument {
		d, err := db.GetDocumentBySourceID(database, c.Candidate.SourceDocumentID)
		if err != nil {
			return nil, err
		}
		out.Document = &d.Doc
	}
	return out, nil
}

package ops

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/logging"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// IngestMode controls what happens when a source id was already ingested.
type IngestMode string

const (
	IngestModeError     IngestMode = "error"     // default: fail with CONFLICT
	IngestModeSkip      IngestMode = "skip"      // keep the stored candidate
	IngestModeReextract IngestMode = "reextract" // replace the document, supersede the candidate
)

// Ingest outcomes, also used as metric labels.
const (
	StatusStored      = "stored"
	StatusSkipped     = "skipped"
	StatusReextracted = "reextracted"
	StatusFailed      = "failed"
)

// IngestInput contains parameters for the Ingest operation.
type IngestInput struct {
	Document deal.RawDocument
	Mode     IngestMode // default: IngestModeError
}

// IngestOutput contains the result of the Ingest operation.
type IngestOutput struct {
	DocumentID  string             `json:"document_id"`
	CandidateID string             `json:"candidate_id"`
	SourceID    string             `json:"source_id"`
	Status      string             `json:"status"`
	Candidate   deal.DealCandidate `json:"candidate"`
}

// Ingest extracts a candidate from a raw document and stores both.
func Ingest(ctx context.Context, database *sql.DB, p *pipeline.Pipeline, input IngestInput) (*IngestOutput, error) {
	out, err := ingest(ctx, database, p, input)
	if err != nil {
		p.Metrics().CountDocument(StatusFailed)
		p.Logger().Warn("ingest failed",
			zap.String(logging.FieldSourceID, input.Document.SourceID),
			logging.ErrorCode(err), zap.Error(err))
		return nil, err
	}
	p.Metrics().CountDocument(out.Status)
	p.Logger().Info("document ingested",
		zap.String(logging.FieldSourceID, out.SourceID),
		zap.String("candidate_id", out.CandidateID),
		zap.String("status", out.Status))
	return out, nil
}

func ingest(ctx context.Context, database *sql.DB, p *pipeline.Pipeline, input IngestInput) (*IngestOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("ingest")
	}

	doc := input.Document
	doc.SourceID = strings.TrimSpace(doc.SourceID)
	if doc.SourceID == "" {
		return nil, errors.NewInvalidInput("", "source_id", "source_id is required")
	}
	if doc.Origin == "" {
		doc.Origin = deal.OriginEmail
	}
	if !doc.Origin.Valid() {
		return nil, errors.NewInvalidInput(doc.SourceID, "origin", "origin must be one of: email, crawl, feed")
	}

	mode := input.Mode
	if mode == "" {
		mode = IngestModeError
	}
	if mode != IngestModeError && mode != IngestModeSkip && mode != IngestModeReextract {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip, reextract")
	}

	// Skip mode never re-extracts an already stored document
	if mode == IngestModeSkip {
		if out, err := skipped(database, doc.SourceID); err == nil {
			return out, nil
		} else if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()
	if doc.ReceivedAt.IsZero() {
		doc.ReceivedAt = now.UTC()
	}

	cand, err := p.Extract(doc)
	if err != nil {
		return nil, err
	}

	docID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	candID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	ms := now.UnixMilli()
	d := &db.Document{ID: docID, Doc: doc, CreatedAt: ms, UpdatedAt: ms}
	c := &db.Candidate{ID: candID, Candidate: *cand, CreatedAt: ms}

	status := StatusStored
	if mode == IngestModeReextract {
		err = db.ReplaceDocument(database, d, c)
		if errors.Is(err, errors.ErrNotFound) {
			err = db.IngestDocument(database, d, c)
		} else {
			status = StatusReextracted
		}
	} else {
		err = db.IngestDocument(database, d, c)
	}

	if err == db.ErrUniqueConstraint {
		switch mode {
		case IngestModeSkip:
			// Lost a race with a concurrent ingest of the same source id
			return skipped(database, doc.SourceID)
		default:
			return nil, errors.NewDuplicateDocument(doc.SourceID)
		}
	}
	if err != nil {
		return nil, err
	}

	return &IngestOutput{
		DocumentID:  d.ID,
		CandidateID: c.ID,
		SourceID:    doc.SourceID,
		Status:      status,
		Candidate:   c.Candidate,
	}, nil
}

func skipped(database *sql.DB, sourceID string) (*IngestOutput, error) {
	c, err := db.GetCurrentCandidate(database, sourceID)
	if err != nil {
		return nil, err
	}
	return &IngestOutput{
		DocumentID:  c.DocumentID,
		CandidateID: c.ID,
		SourceID:    sourceID,
		Status:      StatusSkipped,
		Candidate:   c.Candidate,
	}, nil
}

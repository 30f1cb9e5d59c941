package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/db"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// ExportFormat is the file format of a score export.
type ExportFormat string

const (
	ExportJSONL ExportFormat = "jsonl" // default
	ExportCSV   ExportFormat = "csv"
)

// Ext returns the file extension of the format, including the dot.
func (f ExportFormat) Ext() string {
	return "." + string(f)
}

// ExportSchemaVersion is written to the JSONL header line.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string       // optional, default: ~/.dealflow/exports/scores-<timestamp>.<format>
	Format ExportFormat // default: ExportJSONL
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string       `json:"path"`
	Format     ExportFormat `json:"format"`
	Count      int          `json:"count"`
	ExportedAt int64        `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export.
type ExportHeader struct {
	DealflowExport bool   `json:"_dealflow_export"`
	SchemaVersion  string `json:"schema_version"`
	ExportedAt     int64  `json:"exported_at"`
}

// ScoreRecord is one exported scoring run. Sub-scores of criteria that
// could not be evaluated are nil.
type ScoreRecord struct {
	ID              string   `json:"id"`
	CandidateID     *string  `json:"candidate_id,omitempty"`
	CompanyName     string   `json:"company_name"`
	CompositeScore  float64  `json:"composite_score"`
	Team            *float64 `json:"team"`
	BusinessModel   *float64 `json:"business_model"`
	Technology      *float64 `json:"technology"`
	ImpactESG       *float64 `json:"impact_esg"`
	ThesisRelevance *float64 `json:"thesis_relevance,omitempty"`
	CreatedAt       int64    `json:"created_at"`
}

var csvHeader = []string{
	"id", "candidate_id", "company_name", "composite_score",
	"team", "business_model", "technology", "impact_esg",
	"thesis_relevance", "created_at",
}

// NewScoreRecord flattens a stored scoring run.
func NewScoreRecord(s *db.Score) ScoreRecord {
	sub := func(c deal.Criterion) *float64 {
		v, ok := s.Result.SubScores[c]
		if !ok || v.Confidence == deal.ConfidenceMissing {
			return nil
		}
		return &v.Value
	}
	return ScoreRecord{
		ID:              s.ID,
		CandidateID:     s.CandidateID,
		CompanyName:     s.Result.CompanyName,
		CompositeScore:  s.Result.CompositeScore,
		Team:            sub(deal.CriterionTeam),
		BusinessModel:   sub(deal.CriterionBusinessModel),
		Technology:      sub(deal.CriterionTechnology),
		ImpactESG:       sub(deal.CriterionImpactESG),
		ThesisRelevance: s.ThesisRelevance,
		CreatedAt:       s.CreatedAt,
	}
}

func (r ScoreRecord) csvRow() []string {
	opt := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	cand := ""
	if r.CandidateID != nil {
		cand = *r.CandidateID
	}
	return []string{
		r.ID, cand, r.CompanyName, strconv.FormatFloat(r.CompositeScore, 'f', -1, 64),
		opt(r.Team), opt(r.BusinessModel), opt(r.Technology), opt(r.ImpactESG),
		opt(r.ThesisRelevance), strconv.FormatInt(r.CreatedAt, 10),
	}
}

// recordWriter writes one export format.
type recordWriter interface {
	header(exportedAt int64) error
	write(r ScoreRecord) error
	flush() error
}

type jsonlWriter struct {
	w *bufio.Writer
}

func (j *jsonlWriter) line(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

func (j *jsonlWriter) header(exportedAt int64) error {
	return j.line(ExportHeader{DealflowExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: exportedAt})
}

func (j *jsonlWriter) write(r ScoreRecord) error { return j.line(r) }
func (j *jsonlWriter) flush() error              { return j.w.Flush() }

type csvWriter struct {
	w *csv.Writer
}

func (c *csvWriter) header(int64) error        { return c.w.Write(csvHeader) }
func (c *csvWriter) write(r ScoreRecord) error { return c.w.Write(r.csvRow()) }
func (c *csvWriter) flush() error {
	c.w.Flush()
	return c.w.Error()
}

func newRecordWriter(format ExportFormat, w io.Writer) recordWriter {
	if format == ExportCSV {
		return &csvWriter{w: csv.NewWriter(w)}
	}
	return &jsonlWriter{w: bufio.NewWriter(w)}
}

// Export writes every stored scoring run, oldest first, to a JSONL or CSV
// file. The file is written to a temporary name and renamed into place, so
// an existing file survives a failed export.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	format := input.Format
	if format == "" {
		format = ExportJSONL
	}
	if format != ExportJSONL && format != ExportCSV {
		return nil, errors.NewInvalidRequest("format must be one of: jsonl, csv")
	}

	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(format, now)
		if err != nil {
			return nil, err
		}
	}

	if err := ValidatePath(exportPath, format, cfg); err != nil {
		return nil, err
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := newRecordWriter(format, file)
	if err := w.header(exportedAt); err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.StreamScoresForExport(ctx, database)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		s, err := db.ScanScoreFromRows(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := w.write(NewScoreRecord(s)); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := w.flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Windows cannot rename an open file
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink placed at the destination meanwhile
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInternal(fmt.Errorf("export path is a symlink"))
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath returns ~/.dealflow/exports/scores-<timestamp>.<format>.
func defaultExportPath(format ExportFormat, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := SanitizeForFilename("scores-" + now.Format("2006-01-02T150405"))
	return filepath.Join(dir, name+format.Ext()), nil
}

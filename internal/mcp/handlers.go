package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/ops"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	p   *pipeline.Pipeline
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, p *pipeline.Pipeline) *Handlers {
	return &Handlers{db: db, cfg: cfg, p: p}
}

// Request types for each tool

// DocumentArg is a raw document as passed by MCP clients.
type DocumentArg struct {
	SourceID      string  `json:"source_id"`
	Origin        string  `json:"origin,omitempty"`
	RawText       string  `json:"raw_text"`
	ReceivedAt    string  `json:"received_at,omitempty"`
	SenderAddress *string `json:"sender_address,omitempty"`
}

func (d DocumentArg) document() (deal.RawDocument, error) {
	doc := deal.RawDocument{
		SourceID:      d.SourceID,
		Origin:        deal.Origin(d.Origin),
		RawText:       d.RawText,
		SenderAddress: d.SenderAddress,
	}
	if d.ReceivedAt != "" {
		t, err := time.Parse(time.RFC3339, d.ReceivedAt)
		if err != nil {
			return doc, errors.NewInvalidRequest("received_at must be an RFC 3339 timestamp")
		}
		doc.ReceivedAt = t
	}
	return doc, nil
}

// CandidateExtractRequest represents the arguments for candidate_extract.
type CandidateExtractRequest struct {
	DocumentArg
	Mode string `json:"mode,omitempty"`
}

// CandidateExtractBatchRequest represents the arguments for candidate_extract_batch.
type CandidateExtractBatchRequest struct {
	Documents []DocumentArg `json:"documents"`
	Mode      string        `json:"mode,omitempty"`
}

// CandidateFetchRequest represents the arguments for candidate_fetch.
type CandidateFetchRequest struct {
	ID              string `json:"id,omitempty"`
	SourceID        string `json:"source_id,omitempty"`
	IncludeDocument bool   `json:"include_document,omitempty"`
}

// CandidateListRequest represents the arguments for candidate_list.
type CandidateListRequest struct {
	Sector    string `json:"sector,omitempty"`
	Stage     string `json:"stage,omitempty"`
	WarmIntro *bool  `json:"warm_intro,omitempty"`
	Company   string `json:"company,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ScoreComputeRequest represents the arguments for score_compute.
type ScoreComputeRequest struct {
	CandidateID string               `json:"candidate_id,omitempty"`
	Profile     *deal.CompanyProfile `json:"profile,omitempty"`
	Thesis      string               `json:"thesis,omitempty"`
}

// ScoreFetchRequest represents the arguments for score_fetch.
type ScoreFetchRequest struct {
	ID string `json:"id"`
}

// ScoreListRequest represents the arguments for score_list.
type ScoreListRequest struct {
	Company      string   `json:"company,omitempty"`
	MinComposite *float64 `json:"min_composite,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
}

// ScoreRankRequest represents the arguments for score_rank.
type ScoreRankRequest struct {
	Thesis string `json:"thesis,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ScoreExportRequest represents the arguments for score_export.
type ScoreExportRequest struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

// MemoRenderRequest represents the arguments for memo_render.
type MemoRenderRequest struct {
	ScoreID string `json:"score_id"`
	HTML    bool   `json:"html,omitempty"`
}

// MemoFetchRequest represents the arguments for memo_fetch.
type MemoFetchRequest struct {
	ID      string `json:"id,omitempty"`
	ScoreID string `json:"score_id,omitempty"`
	Section string `json:"section,omitempty"`
	HTML    bool   `json:"html,omitempty"`
}

// HandleCandidateExtract handles the candidate_extract tool call.
func (h *Handlers) HandleCandidateExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CandidateExtractRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	doc, err := input.document()
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Ingest(ctx, h.db, h.p, ops.IngestInput{
		Document: doc,
		Mode:     ops.IngestMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCandidateExtractBatch handles the candidate_extract_batch tool call.
// Per-document failures are reported in the items, not as a tool error.
func (h *Handlers) HandleCandidateExtractBatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CandidateExtractBatchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Documents) == 0 {
		return errorResult(errors.NewInvalidRequest("documents must not be empty")), nil
	}

	inputs := make([]ops.IngestInput, len(input.Documents))
	for i, d := range input.Documents {
		doc, err := d.document()
		if err != nil {
			return errorResult(err), nil
		}
		inputs[i] = ops.IngestInput{Document: doc, Mode: ops.IngestMode(input.Mode)}
	}

	return successResult(ops.IngestBatch(ctx, h.db, h.p, h.cfg.Batch.Workers, inputs))
}

// HandleCandidateFetch handles the candidate_fetch tool call.
func (h *Handlers) HandleCandidateFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CandidateFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchCandidate(h.db, ops.FetchCandidateInput{
		ID:              input.ID,
		SourceID:        input.SourceID,
		IncludeDocument: input.IncludeDocument,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCandidateList handles the candidate_list tool call.
func (h *Handlers) HandleCandidateList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CandidateListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListCandidates(ctx, h.db, ops.ListCandidatesInput{
		Sector:    input.Sector,
		Stage:     input.Stage,
		WarmIntro: input.WarmIntro,
		Company:   input.Company,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScoreCompute handles the score_compute tool call.
func (h *Handlers) HandleScoreCompute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScoreComputeRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Score(ctx, h.db, h.p, ops.ScoreInput{
		Profile:     input.Profile,
		CandidateID: input.CandidateID,
		Thesis:      input.Thesis,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScoreFetch handles the score_fetch tool call.
func (h *Handlers) HandleScoreFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScoreFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchScore(h.db, ops.FetchScoreInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScoreList handles the score_list tool call.
func (h *Handlers) HandleScoreList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScoreListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListScores(ctx, h.db, ops.ListScoresInput{
		Company:      input.Company,
		MinComposite: input.MinComposite,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScoreRank handles the score_rank tool call.
func (h *Handlers) HandleScoreRank(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScoreRankRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Rank(ctx, h.db, h.p, ops.RankInput{
		Thesis: input.Thesis,
		Limit:  input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScoreExport handles the score_export tool call.
func (h *Handlers) HandleScoreExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScoreExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:   input.Path,
		Format: ops.ExportFormat(input.Format),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMemoRender handles the memo_render tool call.
func (h *Handlers) HandleMemoRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MemoRenderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RenderMemo(ctx, h.db, h.p, ops.RenderMemoInput{
		ScoreID: input.ScoreID,
		HTML:    input.HTML,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMemoFetch handles the memo_fetch tool call.
func (h *Handlers) HandleMemoFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MemoFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchMemo(h.db, ops.FetchMemoInput{
		ID:      input.ID,
		ScoreID: input.ScoreID,
		Section: input.Section,
		HTML:    input.HTML,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL errors never expose their message or details.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    string(errors.ErrInternal),
		"message": "an internal error occurred",
		"status":  500,
	}

	var dErr *errors.DealError
	if stderrors.As(err, &dErr) && dErr.Code != errors.ErrInternal {
		errorObj = map[string]any{
			"code":    dErr.Code,
			"message": dErr.Message,
			"status":  dErr.Status,
		}
		if dErr.Details != nil {
			errorObj["details"] = dErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

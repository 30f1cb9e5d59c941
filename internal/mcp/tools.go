package mcp

import "github.com/mark3labs/mcp-go/mcp"

var documentSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"source_id":      map[string]any{"type": "string", "description": "Upstream document identifier"},
		"origin":         map[string]any{"type": "string", "enum": []string{"email", "crawl", "feed"}},
		"raw_text":       map[string]any{"type": "string"},
		"received_at":    map[string]any{"type": "string", "description": "RFC 3339 timestamp"},
		"sender_address": map[string]any{"type": "string"},
	},
	"required": []string{"source_id", "raw_text"},
}

var ingestModeOption = mcp.WithString("mode",
	mcp.Description("What to do when source_id was already ingested: error (default), skip, or reextract"),
	mcp.Enum("error", "skip", "reextract"),
)

var candidateExtractToolDef = mcp.NewTool("candidate_extract",
	mcp.WithDescription("Extract a deal candidate from a raw email, crawled page or feed item and store it"),
	mcp.WithString("source_id", mcp.Required(), mcp.Description("Upstream document identifier, unique per document")),
	mcp.WithString("raw_text", mcp.Required(), mcp.Description("Document text as received")),
	mcp.WithString("origin", mcp.Description("Document origin (default: email)"), mcp.Enum("email", "crawl", "feed")),
	mcp.WithString("received_at", mcp.Description("RFC 3339 receive time (default: now)")),
	mcp.WithString("sender_address", mcp.Description("Sender email address, if any")),
	ingestModeOption,
)

var candidateExtractBatchToolDef = mcp.NewTool("candidate_extract_batch",
	mcp.WithDescription("Extract and store candidates from many documents; failures are reported per item"),
	mcp.WithArray("documents", mcp.Required(), mcp.Items(documentSchema)),
	ingestModeOption,
)

var candidateFetchToolDef = mcp.NewTool("candidate_fetch",
	mcp.WithDescription("Fetch a stored candidate by id, or the current candidate of a source document"),
	mcp.WithString("id", mcp.Description("Candidate id")),
	mcp.WithString("source_id", mcp.Description("Source document id")),
	mcp.WithBoolean("include_document", mcp.Description("Also return the raw document")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var candidateListToolDef = mcp.NewTool("candidate_list",
	mcp.WithDescription("List current candidates, newest first"),
	mcp.WithString("sector", mcp.Description("Only candidates tagged with this sector")),
	mcp.WithString("stage", mcp.Description("Funding stage filter"),
		mcp.Enum("pre-seed", "seed", "series-a", "series-b+", "unknown")),
	mcp.WithBoolean("warm_intro", mcp.Description("Filter on warm introductions")),
	mcp.WithString("company", mcp.Description("Company name, case-insensitive")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var scoreComputeToolDef = mcp.NewTool("score_compute",
	mcp.WithDescription("Score a company profile on team, business model, technology and impact/ESG"),
	mcp.WithString("candidate_id", mcp.Description("Merge this stored candidate into the profile")),
	mcp.WithObject("profile", mcp.Description("Company profile: name, sectors, team_members, business_model_notes, tech_notes, impact_notes")),
	mcp.WithString("thesis", mcp.Description("Investment thesis for relevance (default: configured thesis)")),
)

var scoreFetchToolDef = mcp.NewTool("score_fetch",
	mcp.WithDescription("Fetch a stored scoring run"),
	mcp.WithString("id", mcp.Required(), mcp.Description("Score id")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var scoreListToolDef = mcp.NewTool("score_list",
	mcp.WithDescription("List scoring runs, newest first"),
	mcp.WithString("company", mcp.Description("Company name, case-insensitive")),
	mcp.WithNumber("min_composite", mcp.Description("Minimum composite score, 0 to 10"), mcp.Min(0), mcp.Max(10)),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var scoreRankToolDef = mcp.NewTool("score_rank",
	mcp.WithDescription("Rank the latest score of every company by sourcing priority"),
	mcp.WithString("thesis", mcp.Description("Recompute thesis relevance against this thesis")),
	mcp.WithNumber("limit", mcp.Description("Maximum entries (default 20, max 500)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var scoreExportToolDef = mcp.NewTool("score_export",
	mcp.WithDescription("Export every scoring run to a JSONL or CSV file"),
	mcp.WithString("path", mcp.Description("Destination (default: ~/.dealflow/exports/scores-<timestamp>.<format>)")),
	mcp.WithString("format", mcp.Description("File format (default: jsonl)"), mcp.Enum("jsonl", "csv")),
)

var memoRenderToolDef = mcp.NewTool("memo_render",
	mcp.WithDescription("Synthesize and store an investment memo for a scoring run"),
	mcp.WithString("score_id", mcp.Required(), mcp.Description("Score id")),
	mcp.WithBoolean("html", mcp.Description("Also return the memo as HTML")),
)

var memoFetchToolDef = mcp.NewTool("memo_fetch",
	mcp.WithDescription("Fetch a memo by id, or the latest memo of a scoring run"),
	mcp.WithString("id", mcp.Description("Memo id")),
	mcp.WithString("score_id", mcp.Description("Score id")),
	mcp.WithString("section", mcp.Description("Return only this section, e.g. \"risks\" or \"esg\"")),
	mcp.WithBoolean("html", mcp.Description("Also return the memo as HTML")),
	mcp.WithReadOnlyHintAnnotation(true),
)

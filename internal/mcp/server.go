package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/dealflow/internal/config"
	"github.com/hpungsan/dealflow/internal/pipeline"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"candidate", "score", "memo"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"candidate_extract": {
		def:     candidateExtractToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCandidateExtract },
	},
	"candidate_extract_batch": {
		def:     candidateExtractBatchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCandidateExtractBatch },
	},
	"candidate_fetch": {
		def:     candidateFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCandidateFetch },
	},
	"candidate_list": {
		def:     candidateListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCandidateList },
	},
	"score_compute": {
		def:     scoreComputeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScoreCompute },
	},
	"score_fetch": {
		def:     scoreFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScoreFetch },
	},
	"score_list": {
		def:     scoreListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScoreList },
	},
	"score_rank": {
		def:     scoreRankToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScoreRank },
	},
	"score_export": {
		def:     scoreExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleScoreExport },
	},
	"memo_render": {
		def:     memoRenderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMemoRender },
	},
	"memo_fetch": {
		def:     memoFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMemoFetch },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "score_rank" → "score").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the deal-flow tools registered.
// Tools listed in cfg.MCP.DisabledTools or belonging to cfg.MCP.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, p *pipeline.Pipeline, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"dealflow",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, p)

	// Types first, then individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.MCP.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.MCP.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, p *pipeline.Pipeline, version string) error {
	return server.ServeStdio(NewServer(db, cfg, p, version))
}

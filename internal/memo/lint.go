package memo

import (
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
)

// LintResult contains the results of linting a rendered memo.
type LintResult struct {
	Valid           bool     `json:"valid"`
	MissingSections []string `json:"missing_sections,omitempty"` // canonical titles
	EmptySections   []string `json:"empty_sections,omitempty"`
	OutOfOrder      bool     `json:"out_of_order,omitempty"`

	// Recommendation is the word opening the Recommendation section, if valid
	Recommendation deal.Recommendation `json:"recommendation,omitempty"`
}

// Lint checks that a markdown memo carries every canonical section, in
// order, with content, and that the Recommendation section opens with a
// known recommendation.
func Lint(text string) *LintResult {
	result := &LintResult{Valid: true}
	sections := ParseSections(text)

	last := -1
	for i, canonical := range SectionOrder {
		s := FindSection(sections, canonical)
		if s == nil {
			result.MissingSections = append(result.MissingSections, canonical)
			continue
		}
		if s.Content == "" {
			result.EmptySections = append(result.EmptySections, canonical)
		}
		pos := indexOf(sections, s)
		if pos < last {
			result.OutOfOrder = true
		}
		last = pos
		if i == len(SectionOrder)-1 {
			result.Recommendation = parseRecommendation(s.Content)
		}
	}

	if len(result.MissingSections) > 0 || len(result.EmptySections) > 0 || result.OutOfOrder || result.Recommendation == "" {
		result.Valid = false
	}
	return result
}

func indexOf(sections []Section, s *Section) int {
	for i := range sections {
		if &sections[i] == s {
			return i
		}
	}
	return -1
}

func parseRecommendation(body string) deal.Recommendation {
	fields := strings.Fields(strings.ToLower(body))
	if len(fields) == 0 {
		return ""
	}
	word := strings.Trim(fields[0], "*_.,:;()")
	switch deal.Recommendation(word) {
	case deal.RecommendPursue, deal.RecommendMonitor, deal.RecommendPass:
		return deal.Recommendation(word)
	}
	return ""
}

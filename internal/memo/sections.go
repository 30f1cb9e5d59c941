package memo

import (
	"regexp"
	"slices"
	"strings"
)

// Section represents a parsed section of a markdown memo.
type Section struct {
	Header       string // Full header line "## Business Model"
	HeaderName   string // Just the name part "Business Model"
	Canonical    string // Canonical title if matched, empty for custom
	Level        int    // Number of leading '#'
	ContentStart int    // Byte offset where content starts
	ContentEnd   int    // Byte offset where content ends (before next section or EOF)
	Content      string // Trimmed section body
}

// headerPattern matches markdown headers (h1-h6) at the start of a line.
// Groups: full match, hash symbols, header text
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+([^\n]+?)[ \t]*$`)

// fencePattern matches fenced code block delimiters at the start of a line.
var fencePattern = regexp.MustCompile("(?m)^[ ]{0,3}(`{3,}|~{3,})")

// sectionSynonyms maps canonical section titles to accepted synonyms (lowercase).
var sectionSynonyms = map[string][]string{
	SectionSummary:        {"summary", "overview", "executive summary"},
	SectionTeam:           {"team", "founders", "founding team", "people"},
	SectionBusinessModel:  {"business model", "business", "market", "business & market"},
	SectionTechnology:     {"technology", "tech", "product", "product & technology"},
	SectionImpactESG:      {"impact/esg", "impact / esg", "impact", "esg", "impact & esg"},
	SectionRisks:          {"risks", "risk", "concerns", "red flags"},
	SectionRecommendation: {"recommendation", "decision", "verdict"},
}

// MatchCanonical returns the canonical section title for name, or "".
func MatchCanonical(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, canonical := range SectionOrder {
		if slices.Contains(sectionSynonyms[canonical], lower) {
			return canonical
		}
	}
	return ""
}

// fencedRanges returns byte offset ranges [start, end) for fenced code blocks.
// A closing fence uses the same character and is at least as long as the opener.
func fencedRanges(text string) [][2]int {
	matches := fencePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) < 2 {
		return nil
	}

	var ranges [][2]int
	var openChar byte
	var openLen, openStart int
	inFence := false
	for _, match := range matches {
		fence := text[match[2]:match[3]]
		switch {
		case !inFence:
			openChar, openLen, openStart = fence[0], len(fence), match[0]
			inFence = true
		case fence[0] == openChar && len(fence) >= openLen:
			ranges = append(ranges, [2]int{openStart, match[1]})
			inFence = false
		}
	}
	return ranges
}

func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// ParseSections finds the level-2 and deeper section headers of a memo and
// their boundaries. The level-1 title is skipped. Headers inside fenced code
// blocks are ignored. Returns nil if no sections are found.
func ParseSections(text string) []Section {
	fences := fencedRanges(text)
	var matches [][]int
	for _, m := range headerPattern.FindAllStringSubmatchIndex(text, -1) {
		if insideFence(m[0], fences) {
			continue
		}
		if m[3]-m[2] == 1 {
			continue
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return nil
	}

	sections := make([]Section, len(matches))
	for i, match := range matches {
		contentStart := match[1]
		if contentStart < len(text) && text[contentStart] == '\n' {
			contentStart++
		}
		contentEnd := len(text)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		name := text[match[4]:match[5]]
		sections[i] = Section{
			Header:       text[match[0]:match[1]],
			HeaderName:   name,
			Canonical:    MatchCanonical(name),
			Level:        match[3] - match[2],
			ContentStart: contentStart,
			ContentEnd:   contentEnd,
			Content:      strings.TrimSpace(text[contentStart:contentEnd]),
		}
	}
	return sections
}

// FindSection finds a section by name (synonym-aware, case-insensitive).
// A canonical synonym match wins; otherwise the header name must match exactly.
func FindSection(sections []Section, name string) *Section {
	if canonical := MatchCanonical(name); canonical != "" {
		for i := range sections {
			if sections[i].Canonical == canonical {
				return &sections[i]
			}
		}
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	for i := range sections {
		if strings.ToLower(sections[i].HeaderName) == lower {
			return &sections[i]
		}
	}
	return nil
}

// SectionNames returns the header names of parsed sections.
func SectionNames(sections []Section) []string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.HeaderName
	}
	return names
}

// Package extract turns raw deal-flow documents into DealCandidates.
package extract

import (
	"sort"
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/rules"
)

// Extract builds a DealCandidate from doc using the compiled rules.
//
// Only a blank document fails (INVALID_INPUT). Signals that cannot be found
// leave their fields unset. Extraction is deterministic: the same document
// and ruleset always produce an identical candidate.
func Extract(doc deal.RawDocument, r *rules.Ruleset) (*deal.DealCandidate, error) {
	if strings.TrimSpace(doc.RawText) == "" {
		return nil, errors.NewInvalidInput(doc.SourceID, "raw_text", "raw_text is empty")
	}
	if r == nil {
		return nil, errors.NewInvalidConfiguration("rules", "ruleset is required")
	}

	norm := Normalize(doc.RawText)
	text := norm.Text
	if norm.Subject != nil {
		text = *norm.Subject + "\n" + text
	}

	company := companyName(text, r)
	cls := rules.ClassifyFor(text, r, company)

	c := &deal.DealCandidate{
		Sectors:          cls.Sectors,
		FundingStage:     cls.Stage,
		WarmIntro:        cls.WarmIntro,
		MentionedPeople:  people(text, r, company),
		Referrers:        referrers(cls.Referrers, r),
		SourceDocumentID: doc.SourceID,
		Subject:          norm.Subject,
		Degraded:         norm.Degraded,
	}
	if company != "" {
		c.CompanyName = &company
	}
	if deal.HasText(doc.SenderAddress) {
		s := strings.TrimSpace(*doc.SenderAddress)
		c.Sender = &s
	} else {
		c.Sender = norm.Sender
	}
	return c, nil
}

// companyName returns the first usable capture of the company patterns,
// tried in priority order, or "".
func companyName(text string, r *rules.Ruleset) string {
	for _, re := range r.CompanyPatterns() {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if name := trimName(m[1], r); name != "" {
				return name
			}
		}
	}
	return ""
}

// people returns every person-pattern capture in order of first appearance,
// de-duplicated case-insensitively and excluding the company name.
func people(text string, r *rules.Ruleset, company string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range r.PersonPatterns() {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if m[2] < 0 {
				continue
			}
			if name := trimName(text[m[2]:m[3]], r); name != "" {
				hits = append(hits, hit{pos: m[2], name: name})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := []string{}
	seen := map[string]bool{deal.NormalizeName(company): true}
	for _, h := range hits {
		key := deal.NormalizeName(h.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h.name)
	}
	return out
}

func referrers(names []string, r *rules.Ruleset) []string {
	var out []string
	seen := map[string]bool{}
	for _, n := range names {
		name := trimName(n, r)
		key := deal.NormalizeName(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

// trimName cleans a captured name. The name is cut at a stopword or after a
// word ending a sentence, and rejected if it starts with a stopword.
func trimName(raw string, r *rules.Ruleset) string {
	words := strings.Fields(raw)
	if len(words) == 0 || r.IsStopword(strings.Trim(words[0], ".,;:!?")) {
		return ""
	}
	end := len(words)
	for i := 1; i < len(words); i++ {
		if r.IsStopword(strings.Trim(words[i], ".,;:!?")) {
			end = i
			break
		}
		if strings.HasSuffix(words[i-1], ".") {
			end = i
			break
		}
	}
	return deal.CleanName(strings.Join(words[:end], " "))
}

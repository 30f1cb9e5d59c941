package memo

import (
	"testing"

	"github.com/hpungsan/dealflow/internal/deal"
)

const validMemo = `# Investment Memo: Acme

## Summary
Acme builds batteries.

## Team
Two repeat founders.

## Business Model
Hardware plus subscription.

## Technology
Proprietary chemistry.

## Impact/ESG
Decarbonizes fleets.

## Risks
- Capital intensive

## Recommendation
monitor (composite 5.10/10)
`

func TestMatchCanonical(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Summary", SectionSummary},
		{"  executive SUMMARY ", SectionSummary},
		{"esg", SectionImpactESG},
		{"Impact / ESG", SectionImpactESG},
		{"Founders", SectionTeam},
		{"verdict", SectionRecommendation},
		{"Appendix", ""},
	}

	for _, tt := range tests {
		if got := MatchCanonical(tt.name); got != tt.want {
			t.Errorf("MatchCanonical(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestParseSections(t *testing.T) {
	sections := ParseSections(validMemo)
	if len(sections) != 7 {
		t.Fatalf("got %d sections, want 7", len(sections))
	}
	if sections[0].HeaderName != "Summary" || sections[0].Content != "Acme builds batteries." {
		t.Errorf("sections[0] = %+v", sections[0])
	}
	if sections[4].Canonical != SectionImpactESG {
		t.Errorf("sections[4].Canonical = %q", sections[4].Canonical)
	}
	if sections[6].Level != 2 {
		t.Errorf("Level = %d, want 2", sections[6].Level)
	}
}

func TestParseSections_IgnoresFencedHeaders(t *testing.T) {
	text := "## Summary\n```\n## Not a header\n```\n## Risks\nnone"
	sections := ParseSections(text)
	if len(sections) != 2 {
		t.Fatalf("got %d sections (%v), want 2", len(sections), SectionNames(sections))
	}
}

func TestParseSections_None(t *testing.T) {
	if got := ParseSections("# Title only\nplain text"); got != nil {
		t.Errorf("ParseSections() = %v, want nil", got)
	}
}

func TestFindSection(t *testing.T) {
	sections := ParseSections(validMemo + "\n## Appendix\nextra\n")

	if s := FindSection(sections, "esg"); s == nil || s.HeaderName != "Impact/ESG" {
		t.Errorf("FindSection(esg) = %v", s)
	}
	if s := FindSection(sections, "APPENDIX"); s == nil || s.Content != "extra" {
		t.Errorf("FindSection(APPENDIX) = %v", s)
	}
	if s := FindSection(sections, "Financials"); s != nil {
		t.Errorf("FindSection(Financials) = %v, want nil", s)
	}
}

func TestLint(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		valid       bool
		missing     int
		outOfOrder  bool
		wantRec     deal.Recommendation
		emptyTitles int
	}{
		{name: "valid", text: validMemo, valid: true, wantRec: deal.RecommendMonitor},
		{
			name:    "missing sections",
			text:    "## Summary\nx\n## Recommendation\npass\n",
			valid:   false,
			missing: 5,
			wantRec: deal.RecommendPass,
		},
		{
			name:       "out of order",
			text:       "## Team\nx\n## Summary\nx\n## Business Model\nx\n## Technology\nx\n## Impact\nx\n## Risks\nx\n## Recommendation\npursue\n",
			valid:      false,
			outOfOrder: true,
			wantRec:    deal.RecommendPursue,
		},
		{
			name:    "unknown recommendation",
			text:    "## Summary\nx\n## Team\nx\n## Business\nx\n## Tech\nx\n## ESG\nx\n## Risks\nx\n## Decision\nmaybe later\n",
			valid:   false,
			wantRec: "",
		},
		{
			name:        "empty section",
			text:        "## Summary\n\n## Team\nx\n## Business\nx\n## Tech\nx\n## ESG\nx\n## Risks\nx\n## Decision\n**pass**\n",
			valid:       false,
			emptyTitles: 1,
			wantRec:     deal.RecommendPass,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lint(tt.text)
			if got.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (%+v)", got.Valid, tt.valid, got)
			}
			if len(got.MissingSections) != tt.missing {
				t.Errorf("MissingSections = %v, want %d", got.MissingSections, tt.missing)
			}
			if got.OutOfOrder != tt.outOfOrder {
				t.Errorf("OutOfOrder = %v, want %v", got.OutOfOrder, tt.outOfOrder)
			}
			if len(got.EmptySections) != tt.emptyTitles {
				t.Errorf("EmptySections = %v, want %d", got.EmptySections, tt.emptyTitles)
			}
			if got.Recommendation != tt.wantRec {
				t.Errorf("Recommendation = %q, want %q", got.Recommendation, tt.wantRec)
			}
		})
	}
}

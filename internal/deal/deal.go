package deal

import (
	"strings"
	"time"
)

// Origin identifies the collaborator that captured a raw document.
type Origin string

const (
	OriginEmail Origin = "email"
	OriginCrawl Origin = "crawl"
	OriginFeed  Origin = "feed"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	switch o {
	case OriginEmail, OriginCrawl, OriginFeed:
		return true
	}
	return false
}

// FundingStage is the detected funding round of a deal.
type FundingStage string

const (
	StagePreSeed     FundingStage = "pre-seed"
	StageSeed        FundingStage = "seed"
	StageSeriesA     FundingStage = "series-a"
	StageSeriesBPlus FundingStage = "series-b+"
	StageUnknown     FundingStage = "unknown"
)

// FundingStages lists every stage value, earliest round first.
var FundingStages = []FundingStage{StagePreSeed, StageSeed, StageSeriesA, StageSeriesBPlus, StageUnknown}

// ParseFundingStage converts s into a FundingStage.
// Returns false if s is not a known stage value.
func ParseFundingStage(s string) (FundingStage, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range FundingStages {
		if string(st) == s {
			return st, true
		}
	}
	return StageUnknown, false
}

// RawDocument is a single fetched document handed to the pipeline.
// It is a value type and is never mutated once captured.
type RawDocument struct {
	SourceID      string    `json:"source_id"`
	Origin        Origin    `json:"origin"`
	RawText       string    `json:"raw_text"`
	ReceivedAt    time.Time `json:"received_at"`
	SenderAddress *string   `json:"sender_address,omitempty"`
}

// DealCandidate is the structured record extracted from one RawDocument.
// Re-extraction produces a new candidate; candidates are never mutated.
type DealCandidate struct {
	// CompanyName is nil when no company could be identified
	CompanyName *string `json:"company_name"`

	// Sectors is a sorted, de-duplicated set of sector tags
	Sectors []string `json:"sectors"`

	FundingStage FundingStage `json:"funding_stage"`
	WarmIntro    bool         `json:"warm_intro"`

	// MentionedPeople keeps order of first appearance
	MentionedPeople []string `json:"mentioned_people"`

	// Referrers are mentioned people who made the introduction rather than
	// belong to the company
	Referrers []string `json:"referrers,omitempty"`

	SourceDocumentID string `json:"source_document_id"`

	// Sender and Subject come from the document or its mail headers
	Sender  *string `json:"sender,omitempty"`
	Subject *string `json:"subject,omitempty"`

	// Degraded is true when the normalizer fell back to the raw text
	Degraded bool `json:"degraded,omitempty"`
}

// TeamMember is one person on a company's team.
type TeamMember struct {
	Name       string  `json:"name"`
	Role       *string `json:"role,omitempty"`
	Background *string `json:"background,omitempty"`
}

// CompanyProfile is the scoring input assembled from a candidate and any
// CRM, crawl or market-intelligence fragments. Nil fields are unknown,
// which is distinct from a field evaluated as weak.
type CompanyProfile struct {
	Name               *string      `json:"name,omitempty"`
	Sectors            []string     `json:"sectors,omitempty"`
	Description        *string      `json:"description,omitempty"`
	TeamMembers        []TeamMember `json:"team_members,omitempty"`
	BusinessModelNotes *string      `json:"business_model_notes,omitempty"`
	TechNotes          *string      `json:"tech_notes,omitempty"`
	ImpactNotes        *string      `json:"impact_notes,omitempty"`

	// Enrichment from deal-flow extraction and market-intelligence feeds
	FundingStage    *FundingStage `json:"funding_stage,omitempty"`
	WarmIntro       *bool         `json:"warm_intro,omitempty"`
	TotalFundingUSD *float64      `json:"total_funding_usd,omitempty"`
	NewsHeadlines   []string      `json:"news_headlines,omitempty"`
}

// DisplayName returns the company name, or "" if unknown.
func (p *CompanyProfile) DisplayName() string {
	if p == nil || !HasText(p.Name) {
		return ""
	}
	return strings.TrimSpace(*p.Name)
}

// Criterion names one of the four scoring criteria.
type Criterion string

const (
	CriterionTeam          Criterion = "team"
	CriterionBusinessModel Criterion = "business_model"
	CriterionTechnology    Criterion = "technology"
	CriterionImpactESG     Criterion = "impact_esg"
)

// Criteria lists the criteria in their fixed reporting order.
var Criteria = []Criterion{CriterionTeam, CriterionBusinessModel, CriterionTechnology, CriterionImpactESG}

// Label returns the human-readable criterion name.
func (c Criterion) Label() string {
	switch c {
	case CriterionTeam:
		return "Team"
	case CriterionBusinessModel:
		return "Business Model"
	case CriterionTechnology:
		return "Technology"
	case CriterionImpactESG:
		return "Impact/ESG"
	}
	return string(c)
}

// Confidence tags how complete the data behind a sub-score was.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidencePartial Confidence = "partial"
	ConfidenceMissing Confidence = "missing"
)

// SubScore is one criterion's value in [0,10] and its confidence.
type SubScore struct {
	Value      float64    `json:"value"`
	Confidence Confidence `json:"confidence"`
}

// ScoreResult is the immutable output of one scoring run for one company.
type ScoreResult struct {
	CompanyName    string                 `json:"company_name"`
	SubScores      map[Criterion]SubScore `json:"sub_scores"`
	CompositeScore float64                `json:"composite_score"`
	Rationale      []string               `json:"rationale"`

	// Profile is the input this result was computed from (a reference, for traceability)
	Profile *CompanyProfile `json:"-"`
}

// Recommendation is the memo's final call derived from the composite score.
type Recommendation string

const (
	RecommendPursue  Recommendation = "pursue"
	RecommendMonitor Recommendation = "monitor"
	RecommendPass    Recommendation = "pass"
)

// MemoSection is a titled block of memo text.
type MemoSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// InvestmentMemo is a read-only rendering of a ScoreResult.
type InvestmentMemo struct {
	CompanyName    string         `json:"company_name"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Recommendation Recommendation `json:"recommendation"`
	Sections       []MemoSection  `json:"sections"`
	Score          *ScoreResult   `json:"score_result,omitempty"`
}

// Section returns the section with the given title, or nil.
func (m *InvestmentMemo) Section(title string) *MemoSection {
	for i := range m.Sections {
		if strings.EqualFold(m.Sections[i].Title, title) {
			return &m.Sections[i]
		}
	}
	return nil
}

// HasText reports whether p is set to a non-blank string.
func HasText(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

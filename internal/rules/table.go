package rules

import "github.com/hpungsan/dealflow/internal/deal"

// SectorRule maps a sector tag to the keywords that indicate it.
type SectorRule struct {
	Name     string   `koanf:"name" json:"name"`
	Keywords []string `koanf:"keywords" json:"keywords"`
}

// StageRule maps a funding stage to the patterns that detect it.
// Patterns are RE2 expressions matched case-insensitively.
type StageRule struct {
	Stage    deal.FundingStage `koanf:"stage" json:"stage"`
	Patterns []string          `koanf:"patterns" json:"patterns"`
}

// Table is the rule table: pure configuration data with no behavior.
// It is compiled into a Ruleset before use.
type Table struct {
	// Sectors are tagged independently; a document may match many.
	Sectors []SectorRule `koanf:"sectors" json:"sectors"`

	// Stages are checked in order; the first rule with a matching pattern wins.
	Stages []StageRule `koanf:"stages" json:"stages"`

	// WarmIntroPhrases are matched case-insensitively as substrings.
	WarmIntroPhrases []string `koanf:"warm_intro_phrases" json:"warm_intro_phrases"`

	// ReferrerPatterns must also match for a warm intro. They are
	// case-sensitive so that capitalized names can be required. The
	// optional named groups "referrer" and "introducee" capture the person
	// making the introduction and the party being introduced.
	ReferrerPatterns []string `koanf:"referrer_patterns" json:"referrer_patterns"`

	// CompanyPatterns and PersonPatterns capture a name in group 1.
	// Company patterns are tried in order; the first usable capture wins.
	CompanyPatterns []string `koanf:"company_patterns" json:"company_patterns"`
	PersonPatterns  []string `koanf:"person_patterns" json:"person_patterns"`

	// NameStopwords are capitalized words never accepted as the first word
	// of a company or person name (case-insensitive).
	NameStopwords []string `koanf:"name_stopwords" json:"name_stopwords"`
}

// capitalized phrase of up to four words, e.g. "Acme", "Acme Corp", "Blue Sky Labs"
const companyName = `[A-Z][A-Za-z0-9&'.\-]*(?:[ \t]+[A-Z][A-Za-z0-9&'.\-]*){0,3}`

// one or two capitalized words, e.g. "Jane", "Jane Doe"
const personName = `[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)?`

const introVerbs = `(?i:introduce you to|introducing you to|connect you with|connecting you with|connect you to|connecting you to)`

const founderTitles = `\b(?i:co-?founder|founder|ceo|cto|coo|cfo)`

// DefaultTable returns the built-in rule table.
func DefaultTable() Table {
	return Table{
		Sectors: []SectorRule{
			{Name: "ai", Keywords: []string{
				"artificial intelligence", "machine learning", "deep learning", "neural network",
				"AI", "NLP", "computer vision", "LLM", "generative AI",
			}},
			{Name: "climate_tech", Keywords: []string{
				"climate", "renewable", "sustainability", "clean energy", "carbon",
				"environmental", "green tech", "climate tech",
			}},
			{Name: "edtech", Keywords: []string{
				"education technology", "learning platform", "e-learning", "online education",
				"educational", "edtech",
			}},
			{Name: "fintech", Keywords: []string{
				"financial technology", "payments", "banking", "insurance", "blockchain",
				"cryptocurrency", "defi", "fintech",
			}},
			{Name: "health_tech", Keywords: []string{
				"healthcare", "medical", "biotech", "health", "pharma", "diagnostics",
				"telemedicine", "digital health", "medtech",
			}},
			{Name: "saas", Keywords: []string{
				"software service", "cloud", "platform", "subscription", "enterprise software",
				"B2B software", "SaaS",
			}},
		},
		Stages: []StageRule{
			{Stage: deal.StageSeriesBPlus, Patterns: []string{
				`\bseries[\s-]+[b-h]\b`, `\bgrowth[\s-]+(?:stage|round|equity)\b`, `\blate[\s-]+stage\b`,
			}},
			{Stage: deal.StageSeriesA, Patterns: []string{
				`\bseries[\s-]+a\b`,
			}},
			{Stage: deal.StagePreSeed, Patterns: []string{
				`\bpre[\s-]?seed\b`,
			}},
			{Stage: deal.StageSeed, Patterns: []string{
				`\bseed[\s-]+(?:round|stage|funding|investment|raise)\b`,
				`\braising[\s]+(?:a[\s]+|our[\s]+|their[\s]+)?seed\b`,
				`\bangel[\s-]+round\b`,
			}},
		},
		WarmIntroPhrases: []string{
			"wanted to introduce you",
			"introduce you to",
			"introducing you to",
			"connecting you with",
			"connect you with",
			"wanted to connect you",
			"thought you might be interested in",
			"recommended i reach out",
			"suggested i reach out",
			"mutual connection",
			"mutual friend",
			"happy to introduce",
			"pleased to introduce",
		},
		ReferrerPatterns: []string{
			introVerbs + `[ \t]+(?P<introducee>` + personName + `)`,
			`(?P<referrer>` + personName + `)[ \t]+(?i:suggested|recommended)[ \t]+(?:that[ \t]+)?(?:I|we)[ \t]+(?i:reach out|get in touch|contact you|connect)`,
			`(?P<referrer>` + personName + `)[ \t]+(?i:referred me|pointed me|sent me your way)`,
			`(?i:mutual (?:friend|connection)),?[ \t]+(?P<referrer>` + personName + `)`,
		},
		CompanyPatterns: []string{
			`(?im)^[ \t]*(?:company|startup|company name)[ \t]*:[ \t]*([^\n,;]+)`,
			founderTitles + `(?:[ \t]+(?i:and)[ \t]+` + founderTitles + `)?[ \t]+(?i:of|at)[ \t]+(` + companyName + `)`,
			`\b(?:We are|We're|we are|we're)[ \t]+(` + companyName + `)`,
			`\bIntroducing[ \t]+(` + companyName + `)`,
			`(` + companyName + `)[ \t]+is[ \t]+(?:raising|building|developing)\b`,
		},
		PersonPatterns: []string{
			introVerbs + `[ \t]+(` + personName + `)`,
			`(` + personName + `),?[ \t]+(?:the[ \t]+|our[ \t]+|a[ \t]+)?` + founderTitles + `\b`,
			founderTitles + `(?:[ \t]+(?i:and)[ \t]+` + founderTitles + `)?,?[ \t]+(` + personName + `)`,
			`(?i:my name is|i'm|i am)[ \t]+(` + personName + `)`,
			`(` + personName + `)[ \t]+(?i:suggested|recommended|referred)\b`,
			`(?i:mutual (?:friend|connection)),?[ \t]+(` + personName + `)`,
		},
		NameStopwords: []string{
			"i", "we", "our", "the", "this", "that", "a", "an", "it", "my", "your",
			"he", "she", "they", "hi", "hello", "dear", "thanks", "thank", "please",
			"series", "seed", "founder", "ceo", "cto", "coo", "cfo", "best", "regards",
		},
	}
}

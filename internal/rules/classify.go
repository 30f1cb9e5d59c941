package rules

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hpungsan/dealflow/internal/deal"
)

// Classification is the rule-based tagging of one document.
type Classification struct {
	Sectors   []string          `json:"sectors"`
	Stage     deal.FundingStage `json:"funding_stage"`
	WarmIntro bool              `json:"warm_intro"`

	// MatchedKeywords lists, per sector, the keywords that fired
	MatchedKeywords map[string][]string `json:"matched_keywords,omitempty"`

	WarmIntroPhrase *string `json:"warm_intro_phrase,omitempty"`
	Referrer        *string `json:"referrer,omitempty"`

	// Referrers are the people named as making an introduction, in pattern
	// order. They are collected whether or not a warm-intro phrase matched.
	Referrers []string `json:"referrers,omitempty"`
}

// Classify tags text with sectors, a funding stage and the warm-intro flag.
// It never fails; unmatched signals fall back to no sectors, StageUnknown
// and false. The result depends only on text and r.
func Classify(text string, r *Ruleset) Classification {
	return ClassifyFor(text, r, "")
}

// ClassifyFor is Classify for a document about company. A referrer match
// whose named party is the company itself ("allow me to introduce you to
// Acme" from Acme) is a self-introduction: it neither makes the document a
// warm intro nor names a referrer.
func ClassifyFor(text string, r *Ruleset, company string) Classification {
	c := Classification{Sectors: []string{}, Stage: deal.StageUnknown}
	if r == nil || strings.TrimSpace(text) == "" {
		return c
	}
	company = deal.NormalizeName(company)

	lower := collapse(strings.ToLower(text))

	for _, s := range r.sectors {
		var hits []string
		for _, kw := range s.keywords {
			if containsWord(lower, kw) {
				hits = append(hits, kw)
			}
		}
		if len(hits) > 0 {
			c.Sectors = append(c.Sectors, s.name)
			if c.MatchedKeywords == nil {
				c.MatchedKeywords = make(map[string][]string)
			}
			c.MatchedKeywords[s.name] = hits
		}
	}
	sort.Strings(c.Sectors)

stages:
	for _, s := range r.stages {
		for _, re := range s.patterns {
			if re.MatchString(text) {
				c.Stage = s.stage
				break stages
			}
		}
	}

	var phrase string
	for _, p := range r.warmPhrases {
		if strings.Contains(lower, p) {
			phrase = p
			break
		}
	}
	var match string
	for _, m := range r.referrers {
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			referrer := m.party(text, loc, m.referrer)
			if sameParty(referrer, company) || sameParty(m.party(text, loc, m.introducee), company) {
				continue
			}
			if match == "" {
				match = collapse(text[loc[0]:loc[1]])
			}
			if referrer != "" && !containsName(c.Referrers, referrer) {
				c.Referrers = append(c.Referrers, referrer)
			}
		}
	}
	if phrase != "" && match != "" {
		c.WarmIntro = true
		c.WarmIntroPhrase = deal.StringPtr(phrase)
		c.Referrer = deal.StringPtr(match)
	}

	return c
}

// sameParty reports whether name refers to company (normalized): equal, or
// one a word-prefix of the other as in "Acme" and "Acme Corp".
func sameParty(name, company string) bool {
	name = deal.NormalizeName(name)
	if name == "" || company == "" {
		return false
	}
	return name == company ||
		strings.HasPrefix(company, name+" ") ||
		strings.HasPrefix(name, company+" ")
}

func containsName(names []string, name string) bool {
	key := deal.NormalizeName(name)
	for _, n := range names {
		if deal.NormalizeName(n) == key {
			return true
		}
	}
	return false
}

// MatchKeyword reports whether keyword occurs in text as a whole word or
// phrase, ignoring case and whitespace differences.
func MatchKeyword(text, keyword string) bool {
	keyword = collapse(strings.ToLower(keyword))
	if keyword == "" {
		return false
	}
	return containsWord(collapse(strings.ToLower(text)), keyword)
}

// containsWord reports whether kw occurs in s with no letter or digit
// directly before or after it.
func containsWord(s, kw string) bool {
	for start := 0; start <= len(s)-len(kw); {
		i := strings.Index(s[start:], kw)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(kw)
		if !wordRune(lastRune(s[:i])) && !wordRune(firstRune(s[end:])) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		start = i + size
	}
	return false
}

func firstRune(s string) rune {
	if s == "" {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	if s == "" {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func wordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

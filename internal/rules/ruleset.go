package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

type sectorMatcher struct {
	name     string
	keywords []string // lowercased, whitespace-collapsed
}

// referrerMatcher is a compiled referrer pattern with the submatch indexes
// of its named groups, -1 when absent.
type referrerMatcher struct {
	re         *regexp.Regexp
	referrer   int
	introducee int
}

// party returns the collapsed text of group g in the match loc, or "".
func (m referrerMatcher) party(text string, loc []int, g int) string {
	if g < 0 || loc[2*g] < 0 {
		return ""
	}
	return collapse(text[loc[2*g]:loc[2*g+1]])
}

type stageMatcher struct {
	stage    deal.FundingStage
	patterns []*regexp.Regexp
}

// Ruleset is a compiled rule table. It is immutable after Compile and safe
// for concurrent use.
type Ruleset struct {
	sectors     []sectorMatcher
	stages      []stageMatcher
	warmPhrases []string
	referrers   []referrerMatcher
	companies   []*regexp.Regexp
	people      []*regexp.Regexp
	stopwords   map[string]bool
}

// Compile validates t and builds a Ruleset from it.
// Returns INVALID_CONFIGURATION naming the first offending rule.
func Compile(t Table) (*Ruleset, error) {
	rs := &Ruleset{stopwords: make(map[string]bool, len(t.NameStopwords))}

	seen := make(map[string]bool, len(t.Sectors))
	for i, s := range t.Sectors {
		field := fmt.Sprintf("rules.sectors[%d]", i)
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, errors.NewInvalidConfiguration(field+".name", "sector name is required")
		}
		if seen[name] {
			return nil, errors.NewInvalidConfiguration(field+".name", fmt.Sprintf("duplicate sector %q", name))
		}
		seen[name] = true
		if len(s.Keywords) == 0 {
			return nil, errors.NewInvalidConfiguration(field+".keywords", fmt.Sprintf("sector %q has no keywords", name))
		}
		m := sectorMatcher{name: name}
		for j, kw := range s.Keywords {
			kw = collapse(strings.ToLower(kw))
			if kw == "" {
				return nil, errors.NewInvalidConfiguration(fmt.Sprintf("%s.keywords[%d]", field, j), "keyword is blank")
			}
			m.keywords = append(m.keywords, kw)
		}
		rs.sectors = append(rs.sectors, m)
	}

	for i, s := range t.Stages {
		field := fmt.Sprintf("rules.stages[%d]", i)
		if s.Stage == deal.StageUnknown {
			return nil, errors.NewInvalidConfiguration(field+".stage", "unknown is the fallback and cannot have patterns")
		}
		stage, ok := deal.ParseFundingStage(string(s.Stage))
		if !ok {
			return nil, errors.NewInvalidConfiguration(field+".stage", fmt.Sprintf("unknown funding stage %q", s.Stage))
		}
		if len(s.Patterns) == 0 {
			return nil, errors.NewInvalidConfiguration(field+".patterns", fmt.Sprintf("stage %q has no patterns", stage))
		}
		m := stageMatcher{stage: stage}
		for j, p := range s.Patterns {
			re, err := compilePattern("(?i)"+p, fmt.Sprintf("%s.patterns[%d]", field, j), false)
			if err != nil {
				return nil, err
			}
			m.patterns = append(m.patterns, re)
		}
		rs.stages = append(rs.stages, m)
	}

	for i, p := range t.WarmIntroPhrases {
		p = collapse(strings.ToLower(p))
		if p == "" {
			return nil, errors.NewInvalidConfiguration(fmt.Sprintf("rules.warm_intro_phrases[%d]", i), "phrase is blank")
		}
		rs.warmPhrases = append(rs.warmPhrases, p)
	}

	referrers, err := compileAll(t.ReferrerPatterns, "rules.referrer_patterns", false)
	if err != nil {
		return nil, err
	}
	for _, re := range referrers {
		rs.referrers = append(rs.referrers, referrerMatcher{
			re:         re,
			referrer:   re.SubexpIndex("referrer"),
			introducee: re.SubexpIndex("introducee"),
		})
	}
	if rs.companies, err = compileAll(t.CompanyPatterns, "rules.company_patterns", true); err != nil {
		return nil, err
	}
	if rs.people, err = compileAll(t.PersonPatterns, "rules.person_patterns", true); err != nil {
		return nil, err
	}

	for _, w := range t.NameStopwords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			rs.stopwords[w] = true
		}
	}
	return rs, nil
}

// MustCompile is like Compile but panics on error. Intended for the built-in
// table and tests.
func MustCompile(t Table) *Ruleset {
	rs, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return rs
}

func compileAll(patterns []string, field string, needGroup bool) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for i, p := range patterns {
		re, err := compilePattern(p, fmt.Sprintf("%s[%d]", field, i), needGroup)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func compilePattern(p, field string, needGroup bool) (*regexp.Regexp, error) {
	if strings.TrimSpace(strings.TrimPrefix(p, "(?i)")) == "" {
		return nil, errors.NewInvalidConfiguration(field, "pattern is blank")
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, errors.NewInvalidConfiguration(field, err.Error())
	}
	if needGroup && re.NumSubexp() < 1 {
		return nil, errors.NewInvalidConfiguration(field, "pattern must capture the name in group 1")
	}
	return re, nil
}

// CompanyPatterns returns the compiled company-name patterns in priority order.
func (r *Ruleset) CompanyPatterns() []*regexp.Regexp {
	return append([]*regexp.Regexp(nil), r.companies...)
}

// PersonPatterns returns the compiled person-name patterns.
func (r *Ruleset) PersonPatterns() []*regexp.Regexp {
	return append([]*regexp.Regexp(nil), r.people...)
}

// IsStopword reports whether word may not start a company or person name.
func (r *Ruleset) IsStopword(word string) bool {
	return r.stopwords[strings.ToLower(strings.TrimSpace(word))]
}

// collapse replaces every whitespace run with a single space and trims.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

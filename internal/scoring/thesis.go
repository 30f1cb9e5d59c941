package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/hpungsan/dealflow/internal/deal"
)

// tokens of two or more word characters
var tokenRegex = regexp.MustCompile(`\b\w\w+\b`)

// ThesisRelevance returns the TF-IDF cosine similarity in [0,1] between an
// investment thesis and the profile's descriptive text. It returns 0 when
// either side has no terms.
//
// The corpus is the two documents being compared, with smoothed IDF
// (ln((1+n)/(1+df)) + 1) and L2-normalized term vectors.
func ThesisRelevance(profile *deal.CompanyProfile, thesis string) float64 {
	if profile == nil {
		return 0
	}
	company := tokenize(joinSet(profile.Description, profile.BusinessModelNotes, profile.TechNotes, profile.ImpactNotes))
	query := tokenize(thesis)
	if len(company) == 0 || len(query) == 0 {
		return 0
	}

	df := make(map[string]int)
	for term := range company {
		df[term]++
	}
	for term := range query {
		df[term]++
	}

	const n = 2.0
	vec := func(tf map[string]int) map[string]float64 {
		v := make(map[string]float64, len(tf))
		norm := 0.0
		for term, count := range tf {
			w := float64(count) * (math.Log((1+n)/(1+float64(df[term]))) + 1)
			v[term] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		for term := range v {
			v[term] /= norm
		}
		return v
	}

	a, b := vec(company), vec(query)
	dot := 0.0
	for term, wa := range a {
		dot += wa * b[term]
	}
	return math.Min(math.Max(round4(dot), 0), 1)
}

func tokenize(s string) map[string]int {
	tf := make(map[string]int)
	for _, tok := range tokenRegex.FindAllString(strings.ToLower(s), -1) {
		tf[tok]++
	}
	return tf
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

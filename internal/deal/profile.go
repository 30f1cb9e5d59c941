package deal

import (
	"slices"
	"strings"
)

// MergeProfile assembles a CompanyProfile from external fragments and an
// optional extracted candidate.
//
// Fragments are applied in order and the first fragment that sets a scalar
// field wins. Sectors are unioned, team members are merged by name with
// role/background taken from the first fragment that sets them, and news
// headlines are de-duplicated. The candidate has the lowest precedence: it
// only fills what no fragment provided, and its mentioned people other than
// referrers become team members with unknown role and background. Fields set
// by no source stay nil.
func MergeProfile(candidate *DealCandidate, fragments ...CompanyProfile) CompanyProfile {
	var out CompanyProfile

	for _, f := range fragments {
		fillString(&out.Name, f.Name)
		fillString(&out.Description, f.Description)
		fillString(&out.BusinessModelNotes, f.BusinessModelNotes)
		fillString(&out.TechNotes, f.TechNotes)
		fillString(&out.ImpactNotes, f.ImpactNotes)

		if out.FundingStage == nil && f.FundingStage != nil {
			stage := *f.FundingStage
			out.FundingStage = &stage
		}
		if out.WarmIntro == nil && f.WarmIntro != nil {
			warm := *f.WarmIntro
			out.WarmIntro = &warm
		}
		if out.TotalFundingUSD == nil && f.TotalFundingUSD != nil {
			amount := *f.TotalFundingUSD
			out.TotalFundingUSD = &amount
		}

		out.Sectors = unionSorted(out.Sectors, f.Sectors)
		out.TeamMembers = mergeTeam(out.TeamMembers, f.TeamMembers)
		out.NewsHeadlines = appendUnique(out.NewsHeadlines, f.NewsHeadlines)
	}

	if candidate != nil {
		fillString(&out.Name, candidate.CompanyName)
		out.Sectors = unionSorted(out.Sectors, candidate.Sectors)

		if out.FundingStage == nil && candidate.FundingStage != "" && candidate.FundingStage != StageUnknown {
			stage := candidate.FundingStage
			out.FundingStage = &stage
		}
		if out.WarmIntro == nil {
			warm := candidate.WarmIntro
			out.WarmIntro = &warm
		}

		referrers := make(map[string]bool, len(candidate.Referrers))
		for _, name := range candidate.Referrers {
			referrers[NormalizeName(name)] = true
		}
		people := make([]TeamMember, 0, len(candidate.MentionedPeople))
		for _, name := range candidate.MentionedPeople {
			if !referrers[NormalizeName(name)] {
				people = append(people, TeamMember{Name: name})
			}
		}
		out.TeamMembers = mergeTeam(out.TeamMembers, people)
	}

	return out
}

// fillString sets *dst to a copy of src if dst is unset and src has text.
func fillString(dst **string, src *string) {
	if HasText(*dst) || !HasText(src) {
		return
	}
	v := strings.TrimSpace(*src)
	*dst = &v
}

// unionSorted returns the sorted union of a and b, or nil if both are empty.
func unionSorted(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	result := make([]string, 0, len(a)+len(b))
	for _, s := range slices.Concat(a, b) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	slices.Sort(result)
	if len(result) == 0 {
		return nil
	}
	return result
}

// appendUnique appends the entries of add not already in base.
func appendUnique(base, add []string) []string {
	for _, s := range add {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(base, s) {
			base = append(base, s)
		}
	}
	return base
}

// mergeTeam merges add into team by normalized name, filling unset fields.
func mergeTeam(team, add []TeamMember) []TeamMember {
	for _, m := range add {
		key := NormalizeName(m.Name)
		if key == "" {
			continue
		}
		idx := slices.IndexFunc(team, func(t TeamMember) bool {
			return NormalizeName(t.Name) == key
		})
		if idx < 0 {
			member := TeamMember{Name: strings.TrimSpace(m.Name)}
			fillString(&member.Role, m.Role)
			fillString(&member.Background, m.Background)
			team = append(team, member)
			continue
		}
		fillString(&team[idx].Role, m.Role)
		fillString(&team[idx].Background, m.Background)
	}
	return team
}

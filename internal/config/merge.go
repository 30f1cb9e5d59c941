package config

import (
	"strings"

	"github.com/hpungsan/dealflow/internal/rules"
	"github.com/hpungsan/dealflow/internal/scoring"
)

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
// Exceptions: weights are replaced as a block so they keep summing to 1,
// sector rules are merged by name, and stage rules, indicator groups and
// preferred stages are replaced when the overlay sets them.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero or explicitly set, else base
	result.Log.Level = firstString(overlay.Log.Level, base.Log.Level)
	result.Log.Format = firstString(overlay.Log.Format, base.Log.Format)
	result.Thesis = firstString(overlay.Thesis, base.Thesis)

	result.DB.MaxOpenConns = pick(overlay, "db.max_open_conns", overlay.DB.MaxOpenConns, base.DB.MaxOpenConns)
	result.DB.MaxIdleConns = pick(overlay, "db.max_idle_conns", overlay.DB.MaxIdleConns, base.DB.MaxIdleConns)
	result.Batch.Workers = pick(overlay, "batch.workers", overlay.Batch.Workers, base.Batch.Workers)

	// Booleans: overlay wins if true, else base
	result.Export.AllowUnsafePaths = base.Export.AllowUnsafePaths || overlay.Export.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.Export.AllowedPaths = mergeStringSlice(base.Export.AllowedPaths, overlay.Export.AllowedPaths)
	result.MCP.DisabledTools = mergeStringSlice(base.MCP.DisabledTools, overlay.MCP.DisabledTools)
	result.MCP.DisabledTypes = mergeStringSlice(base.MCP.DisabledTypes, overlay.MCP.DisabledTypes)

	result.Rules = mergeTable(base.Rules, overlay.Rules)

	result.Weights = base.Weights
	if overlay.Weights != (scoring.CriteriaWeights{}) {
		result.Weights = overlay.Weights
	}

	result.Indicators = mergeIndicators(base, overlay)

	result.Thresholds.Pursue = pick(overlay, "thresholds.pursue", overlay.Thresholds.Pursue, base.Thresholds.Pursue)
	result.Thresholds.Monitor = pick(overlay, "thresholds.monitor", overlay.Thresholds.Monitor, base.Thresholds.Monitor)
	result.Thresholds.MinTeamSize = pick(overlay, "thresholds.min_team_size", overlay.Thresholds.MinTeamSize, base.Thresholds.MinTeamSize)

	result.Priority.WarmIntroBonus = pick(overlay, "priority.warm_intro_bonus", overlay.Priority.WarmIntroBonus, base.Priority.WarmIntroBonus)
	result.Priority.PreferredStageBonus = pick(overlay, "priority.preferred_stage_bonus", overlay.Priority.PreferredStageBonus, base.Priority.PreferredStageBonus)
	result.Priority.ThesisWeight = pick(overlay, "priority.thesis_weight", overlay.Priority.ThesisWeight, base.Priority.ThesisWeight)
	result.Priority.PreferredStages = base.Priority.PreferredStages
	if len(overlay.Priority.PreferredStages) > 0 {
		result.Priority.PreferredStages = overlay.Priority.PreferredStages
	}

	return result
}

func mergeTable(base, overlay rules.Table) rules.Table {
	t := rules.Table{
		Sectors:          mergeSectors(base.Sectors, overlay.Sectors),
		Stages:           base.Stages,
		WarmIntroPhrases: mergeStringSlice(base.WarmIntroPhrases, overlay.WarmIntroPhrases),
		ReferrerPatterns: mergeStringSlice(base.ReferrerPatterns, overlay.ReferrerPatterns),
		CompanyPatterns:  mergeStringSlice(base.CompanyPatterns, overlay.CompanyPatterns),
		PersonPatterns:   mergeStringSlice(base.PersonPatterns, overlay.PersonPatterns),
		NameStopwords:    mergeStringSlice(base.NameStopwords, overlay.NameStopwords),
	}
	if len(overlay.Stages) > 0 {
		t.Stages = overlay.Stages
	}
	return t
}

// mergeSectors keeps base order; an overlay sector with a known name
// replaces its keywords, and new sectors are appended.
func mergeSectors(base, overlay []rules.SectorRule) []rules.SectorRule {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make([]rules.SectorRule, 0, len(base)+len(overlay))
	index := make(map[string]int, len(base))
	for _, s := range base {
		index[strings.ToLower(strings.TrimSpace(s.Name))] = len(result)
		result = append(result, s)
	}
	for _, s := range overlay {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if i, ok := index[key]; ok {
			result[i] = s
			continue
		}
		index[key] = len(result)
		result = append(result, s)
	}
	return result
}

func mergeIndicators(base, overlay *Config) scoring.Indicators {
	b, o := base.Indicators, overlay.Indicators
	return scoring.Indicators{
		Team:          firstGroups(o.Team, b.Team),
		BusinessModel: firstGroups(o.BusinessModel, b.BusinessModel),
		Technology:    firstGroups(o.Technology, b.Technology),
		ImpactESG:     firstGroups(o.ImpactESG, b.ImpactESG),
		MinFundingUSD: pick(overlay, "indicators.min_funding_usd", o.MinFundingUSD, b.MinFundingUSD),
		FundingBonus:  pick(overlay, "indicators.funding_bonus", o.FundingBonus, b.FundingBonus),
	}
}

func firstGroups(overlay, base []scoring.IndicatorGroup) []scoring.IndicatorGroup {
	if len(overlay) > 0 {
		return overlay
	}
	return base
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

// pick returns the overlay value when it is non-zero or when the overlay's
// source set key, so "min_team_size: 0" overrides a non-zero default.
func pick[T int | float64](overlay *Config, key string, ov, bv T) T {
	if ov != 0 || overlay.keys[key] {
		return ov
	}
	return bv
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/rules"
	"github.com/hpungsan/dealflow/internal/scoring"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.Weights != def.Weights {
		t.Errorf("Weights = %+v, want %+v", cfg.Weights, def.Weights)
	}
	if cfg.Thresholds != def.Thresholds {
		t.Errorf("Thresholds = %+v, want %+v", cfg.Thresholds, def.Thresholds)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("Batch.Workers = %d, want 4", cfg.Batch.Workers)
	}
	if len(cfg.Rules.Sectors) != len(def.Rules.Sectors) {
		t.Errorf("Rules.Sectors = %d entries, want %d", len(cfg.Rules.Sectors), len(def.Rules.Sectors))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
log:
  level: debug
weights:
  team: 0.4
  business_model: 0.3
  technology: 0.3
  impact_esg: 0
thresholds:
  pursue: 8
thesis: climate software for fleets
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json (default)", cfg.Log.Format)
	}
	want := scoring.CriteriaWeights{Team: 0.4, BusinessModel: 0.3, Technology: 0.3}
	if cfg.Weights != want {
		t.Errorf("Weights = %+v, want %+v", cfg.Weights, want)
	}
	if cfg.Thresholds.Pursue != 8 || cfg.Thresholds.Monitor != 4 {
		t.Errorf("Thresholds = %+v, want pursue 8 monitor 4", cfg.Thresholds)
	}
	if cfg.Thesis != "climate software for fleets" {
		t.Errorf("Thesis = %q", cfg.Thesis)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "weights: [unclosed")

	_, err := Load(dir)
	if !errors.Is(err, errors.ErrInvalidConfiguration) {
		t.Fatalf("Load() error = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestLoad_JSONAccepted(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"mcp": {"disabled_tools": ["score_export", "memo_render"]}}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.MCP.DisabledTools) != 2 || cfg.MCP.DisabledTools[0] != "score_export" {
		t.Errorf("DisabledTools = %v", cfg.MCP.DisabledTools)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log:\n  level: warn\n")

	t.Setenv("DEALFLOW_LOG_LEVEL", "error")
	t.Setenv("DEALFLOW_BATCH_WORKERS", "9")
	t.Setenv("DEALFLOW_THRESHOLDS_MIN_TEAM_SIZE", "3")
	t.Setenv("DEALFLOW_MCP_DISABLED_TOOLS", "score_export,memo_render")
	t.Setenv("DEALFLOW_PRIORITY_PREFERRED_STAGES", "pre-seed, seed")
	t.Setenv("DEALFLOW_THESIS", "developer tools")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want error (env beats file)", cfg.Log.Level)
	}
	if cfg.Batch.Workers != 9 {
		t.Errorf("Batch.Workers = %d, want 9", cfg.Batch.Workers)
	}
	if cfg.Thresholds.MinTeamSize != 3 {
		t.Errorf("Thresholds.MinTeamSize = %d, want 3", cfg.Thresholds.MinTeamSize)
	}
	if len(cfg.MCP.DisabledTools) != 2 || cfg.MCP.DisabledTools[1] != "memo_render" {
		t.Errorf("DisabledTools = %v, want [score_export memo_render]", cfg.MCP.DisabledTools)
	}
	wantStages := []deal.FundingStage{deal.StagePreSeed, deal.StageSeed}
	if len(cfg.Priority.PreferredStages) != 2 || cfg.Priority.PreferredStages[0] != wantStages[0] || cfg.Priority.PreferredStages[1] != wantStages[1] {
		t.Errorf("PreferredStages = %v, want %v", cfg.Priority.PreferredStages, wantStages)
	}
	if cfg.Thesis != "developer tools" {
		t.Errorf("Thesis = %q", cfg.Thesis)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEALFLOW_LOG_LEVEL", "log.level"},
		{"DEALFLOW_DB_MAX_OPEN_CONNS", "db.max_open_conns"},
		{"DEALFLOW_WEIGHTS_IMPACT_ESG", "weights.impact_esg"},
		{"DEALFLOW_THESIS", "thesis"},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	writeConfig(t, globalDir, `
db:
  max_open_conns: 1
mcp:
  disabled_tools: [score_export]
thresholds:
  pursue: 8
  monitor: 5
`)
	writeConfig(t, filepath.Join(repoRoot, RepoDirName), `
mcp:
  disabled_tools: [memo_render]
thresholds:
  monitor: 3
`)

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.DB.MaxOpenConns != 1 {
		t.Errorf("DB.MaxOpenConns = %d, want 1 (global)", cfg.DB.MaxOpenConns)
	}
	if cfg.Thresholds.Pursue != 8 || cfg.Thresholds.Monitor != 3 {
		t.Errorf("Thresholds = %+v, want pursue 8 (global) monitor 3 (repo)", cfg.Thresholds)
	}
	if len(cfg.MCP.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want both entries", cfg.MCP.DisabledTools)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Weights != scoring.DefaultWeights() {
		t.Errorf("Weights = %+v, want defaults", cfg.Weights)
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()
	writeConfig(t, filepath.Join(repoRoot, RepoDirName), "thesis: fintech infrastructure\n")

	subdir := filepath.Join(repoRoot, "deals", "2026")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Thesis != "fintech infrastructure" {
		t.Errorf("Thesis = %q, want repo value", cfg.Thesis)
	}
}

func TestFindRepoConfig(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, filepath.Join(root, RepoDirName), "{}")
	deeper := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deeper, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if got := FindRepoConfig(root); got != configPath {
		t.Errorf("FindRepoConfig(root) = %q, want %q", got, configPath)
	}
	if got := FindRepoConfig(deeper); got != configPath {
		t.Errorf("FindRepoConfig(deeper) = %q, want %q", got, configPath)
	}
	if got := FindRepoConfig(t.TempDir()); got != "" {
		t.Errorf("FindRepoConfig(empty) = %q, want empty string", got)
	}
	if got := FindRepoConfig(""); got != "" {
		t.Errorf("FindRepoConfig(\"\") = %q, want empty string", got)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{Batch: BatchConfig{Workers: 4}, DB: DBConfig{MaxOpenConns: 5}}
	overlay := &Config{Batch: BatchConfig{Workers: 8}}

	result := Merge(base, overlay)

	if result.Batch.Workers != 8 {
		t.Errorf("Batch.Workers = %d, want 8 (overlay)", result.Batch.Workers)
	}
	if result.DB.MaxOpenConns != 5 {
		t.Errorf("DB.MaxOpenConns = %d, want 5 (base, overlay is zero)", result.DB.MaxOpenConns)
	}
}

func TestLoad_ExplicitZeroOverridesDefault(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		get  func(*Config) float64
	}{
		{"min team size", "thresholds:\n  min_team_size: 0\n", func(c *Config) float64 { return float64(c.Thresholds.MinTeamSize) }},
		{"monitor", "thresholds:\n  monitor: 0\n", func(c *Config) float64 { return c.Thresholds.Monitor }},
		{"warm intro bonus", "priority:\n  warm_intro_bonus: 0\n", func(c *Config) float64 { return c.Priority.WarmIntroBonus }},
		{"preferred stage bonus", "priority:\n  preferred_stage_bonus: 0\n", func(c *Config) float64 { return c.Priority.PreferredStageBonus }},
		{"thesis weight", "priority:\n  thesis_weight: 0\n", func(c *Config) float64 { return c.Priority.ThesisWeight }},
		{"funding bonus", "indicators:\n  funding_bonus: 0\n", func(c *Config) float64 { return c.Indicators.FundingBonus }},
		{"min funding", "indicators:\n  min_funding_usd: 0\n", func(c *Config) float64 { return c.Indicators.MinFundingUSD }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(DefaultConfig()); got == 0 {
				t.Fatalf("default value is zero")
			}
			dir := t.TempDir()
			writeConfig(t, dir, tt.yaml)

			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := tt.get(cfg); got != 0 {
				t.Errorf("value = %v, want 0 from file", got)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestLoad_ExplicitZeroFromEnv(t *testing.T) {
	t.Setenv("DEALFLOW_THRESHOLDS_MIN_TEAM_SIZE", "0")
	t.Setenv("DEALFLOW_PRIORITY_WARM_INTRO_BONUS", "0")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Thresholds.MinTeamSize != 0 {
		t.Errorf("Thresholds.MinTeamSize = %d, want 0", cfg.Thresholds.MinTeamSize)
	}
	if cfg.Priority.WarmIntroBonus != 0 {
		t.Errorf("Priority.WarmIntroBonus = %v, want 0", cfg.Priority.WarmIntroBonus)
	}
	if cfg.Thresholds.Pursue != 7 {
		t.Errorf("Thresholds.Pursue = %v, want default 7", cfg.Thresholds.Pursue)
	}
}

func TestMerge_UnsetKeepsBase(t *testing.T) {
	overlay, err := Parse([]byte("log:\n  level: debug\n"), "test")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	result := Merge(DefaultConfig(), overlay)
	if result.Thresholds.MinTeamSize != 2 {
		t.Errorf("Thresholds.MinTeamSize = %d, want 2 (not set by overlay)", result.Thresholds.MinTeamSize)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	base := &Config{Export: ExportConfig{AllowUnsafePaths: true}}
	overlay := &Config{}

	if !Merge(base, overlay).Export.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{MCP: MCPConfig{DisabledTools: []string{"score_export", " memo_render "}}}
	overlay := &Config{MCP: MCPConfig{DisabledTools: []string{"memo_render", "candidate_list"}}}

	got := Merge(base, overlay).MCP.DisabledTools
	want := []string{"score_export", "memo_render", "candidate_list"}
	if len(got) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMerge_WeightsReplacedAsBlock(t *testing.T) {
	base := &Config{Weights: scoring.DefaultWeights()}
	overlay := &Config{Weights: scoring.CriteriaWeights{Team: 0.5, BusinessModel: 0.5}}

	got := Merge(base, overlay).Weights
	if got != overlay.Weights {
		t.Errorf("Weights = %+v, want overlay block %+v", got, overlay.Weights)
	}
	if Merge(base, &Config{}).Weights != base.Weights {
		t.Error("empty overlay should keep base weights")
	}
}

func TestMerge_SectorsByName(t *testing.T) {
	base := &Config{Rules: rules.Table{Sectors: []rules.SectorRule{
		{Name: "ai", Keywords: []string{"machine learning"}},
		{Name: "fintech", Keywords: []string{"payments"}},
	}}}
	overlay := &Config{Rules: rules.Table{Sectors: []rules.SectorRule{
		{Name: "FinTech", Keywords: []string{"banking"}},
		{Name: "robotics", Keywords: []string{"robot"}},
	}}}

	got := Merge(base, overlay).Rules.Sectors
	if len(got) != 3 {
		t.Fatalf("Sectors = %+v, want 3 entries", got)
	}
	if got[1].Keywords[0] != "banking" {
		t.Errorf("fintech keywords = %v, want overlay", got[1].Keywords)
	}
	if got[2].Name != "robotics" {
		t.Errorf("Sectors[2] = %q, want robotics appended", got[2].Name)
	}
}

func TestMerge_StagesReplaced(t *testing.T) {
	base := &Config{Rules: rules.DefaultTable()}
	overlay := &Config{Rules: rules.Table{Stages: []rules.StageRule{
		{Stage: deal.StageSeed, Patterns: []string{`\bseed\b`}},
	}}}

	got := Merge(base, overlay).Rules
	if len(got.Stages) != 1 {
		t.Errorf("Stages = %d entries, want 1 (replaced)", len(got.Stages))
	}
	if len(got.WarmIntroPhrases) != len(base.Rules.WarmIntroPhrases) {
		t.Errorf("WarmIntroPhrases should be kept from base")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative workers", func(c *Config) { c.Batch.Workers = -1 }, "batch.workers"},
		{"negative conns", func(c *Config) { c.DB.MaxOpenConns = -2 }, "db.max_open_conns"},
		{"bad stage pattern", func(c *Config) {
			c.Rules.Stages = []rules.StageRule{{Stage: deal.StageSeed, Patterns: []string{"("}}}
		}, "rules.stages[0].patterns[0]"},
		{"weights sum", func(c *Config) { c.Weights.Team = 0.9 }, "weights"},
		{"thresholds order", func(c *Config) { c.Thresholds.Monitor = 9 }, "thresholds"},
		{"thesis weight", func(c *Config) { c.Priority.ThesisWeight = 2 }, "priority.thesis_weight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, errors.ErrInvalidConfiguration) {
				t.Fatalf("Validate() error = %v, want INVALID_CONFIGURATION", err)
			}
			if got := errors.As(err).Details["field"]; got != tt.wantField {
				t.Errorf("Details[field] = %v, want %q", got, tt.wantField)
			}
		})
	}
}

// Package config loads dealflow configuration from YAML files and the
// environment.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
	"github.com/hpungsan/dealflow/internal/memo"
	"github.com/hpungsan/dealflow/internal/rules"
	"github.com/hpungsan/dealflow/internal/scoring"
)

const (
	// FileName is the config file looked up in the global and repo directories.
	FileName = "config.yaml"

	// RepoDirName is the per-repository config directory.
	RepoDirName = ".dealflow"

	// EnvPrefix marks environment overrides, e.g. DEALFLOW_LOG_LEVEL -> log.level.
	EnvPrefix = "DEALFLOW_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config holds application configuration.
type Config struct {
	Log    LogConfig    `koanf:"log" json:"log"`
	DB     DBConfig     `koanf:"db" json:"db"`
	Batch  BatchConfig  `koanf:"batch" json:"batch"`
	MCP    MCPConfig    `koanf:"mcp" json:"mcp"`
	Export ExportConfig `koanf:"export" json:"export"`

	// Thesis is the investment thesis used for relevance ranking when a
	// request does not supply one.
	Thesis string `koanf:"thesis" json:"thesis,omitempty"`

	Rules      rules.Table             `koanf:"rules" json:"rules"`
	Weights    scoring.CriteriaWeights `koanf:"weights" json:"weights"`
	Indicators scoring.Indicators      `koanf:"indicators" json:"indicators"`
	Thresholds memo.Thresholds         `koanf:"thresholds" json:"thresholds"`
	Priority   scoring.PriorityPolicy  `koanf:"priority" json:"priority"`

	// keys holds the dotted keys a file or the environment set, so that an
	// explicit zero still overrides in Merge. Nil for configs built in code.
	keys map[string]bool
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `koanf:"level" json:"level"`

	// Format is json or console
	Format string `koanf:"format" json:"format"`
}

// DBConfig tunes the SQLite connection pool.
type DBConfig struct {
	// MaxOpenConns limits open connections. If set to 1, all database access
	// is serialized (reduces "database is locked" errors). 0 means the
	// sql.DB default.
	MaxOpenConns int `koanf:"max_open_conns" json:"max_open_conns,omitempty"`

	// MaxIdleConns limits idle connections. 0 means the sql.DB default.
	MaxIdleConns int `koanf:"max_idle_conns" json:"max_idle_conns,omitempty"`
}

// BatchConfig controls batch ingestion.
type BatchConfig struct {
	// Workers is the number of documents extracted concurrently
	Workers int `koanf:"workers" json:"workers"`
}

// MCPConfig controls MCP tool registration.
type MCPConfig struct {
	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `koanf:"disabled_tools" json:"disabled_tools,omitempty"`

	// DisabledTypes disables every tool of a type.
	// Known types: "candidate", "score", "memo".
	DisabledTypes []string `koanf:"disabled_types" json:"disabled_types,omitempty"`
}

// ExportConfig restricts where exports may be written.
type ExportConfig struct {
	// AllowedPaths is an allowlist of directories for export operations.
	// Paths outside ~/.dealflow/exports require either being in this list or
	// AllowUnsafePaths=true. Relative paths are ignored.
	AllowedPaths []string `koanf:"allowed_paths" json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `koanf:"allow_unsafe_paths" json:"allow_unsafe_paths,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log:        LogConfig{Level: "info", Format: "json"},
		Batch:      BatchConfig{Workers: 4},
		Rules:      rules.DefaultTable(),
		Weights:    scoring.DefaultWeights(),
		Indicators: scoring.DefaultIndicators(),
		Thresholds: memo.DefaultThresholds(),
		Priority:   scoring.DefaultPriorityPolicy(),
	}
}

// Load loads configuration from baseDir/config.yaml, then applies
// DEALFLOW_* environment overrides. A missing file yields the defaults.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dealflow.
func Load(baseDir string) (*Config, error) {
	file, err := loadFileRaw(filepath.Join(baseDir, FileName))
	if err != nil {
		return nil, err
	}
	envCfg, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return Merge(Merge(DefaultConfig(), file), envCfg), nil
}

// LoadWithRepo loads configuration from both global (~/.dealflow) and repo
// (.dealflow) directories. Repo config is found by walking upward from
// startDir to find the nearest .dealflow/config.yaml.
// Precedence: defaults < global < repo < environment.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	envCfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	return Merge(Merge(Merge(DefaultConfig(), global), repo), envCfg), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .dealflow/config.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	if len(data) > maxConfigFileSize {
		return nil, errors.NewInvalidConfiguration(configPath, fmt.Sprintf("file exceeds %d bytes", maxConfigFileSize))
	}
	return Parse(data, configPath)
}

// Parse decodes YAML (or JSON) config data without applying defaults.
// source names the data in error messages.
func Parse(data []byte, source string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, errors.NewInvalidConfiguration(source, err.Error())
	}
	cfg := &Config{keys: loadedKeys(k)}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.NewInvalidConfiguration(source, err.Error())
	}
	return cfg, nil
}

func loadedKeys(k *koanf.Koanf) map[string]bool {
	keys := make(map[string]bool)
	for _, key := range k.Keys() {
		keys[key] = true
	}
	return keys
}

// loadEnv reads DEALFLOW_* variables into a zero-valued config.
// The first underscore after the prefix separates section from field:
//
//	DEALFLOW_LOG_LEVEL          -> log.level
//	DEALFLOW_WEIGHTS_IMPACT_ESG -> weights.impact_esg
//	DEALFLOW_THESIS             -> thesis
//
// List fields take comma-separated values.
func loadEnv() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.NewInvalidConfiguration("environment", err.Error())
	}
	cfg := &Config{keys: loadedKeys(k)}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.NewInvalidConfiguration("environment", err.Error())
	}
	cfg.MCP.DisabledTools = splitList(cfg.MCP.DisabledTools)
	cfg.MCP.DisabledTypes = splitList(cfg.MCP.DisabledTypes)
	cfg.Export.AllowedPaths = splitList(cfg.Export.AllowedPaths)
	cfg.Priority.PreferredStages = splitStages(cfg.Priority.PreferredStages)
	return cfg, nil
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		out = append(out, strings.Split(s, ",")...)
	}
	return out
}

func splitStages(in []deal.FundingStage) []deal.FundingStage {
	var out []deal.FundingStage
	for _, s := range in {
		for _, part := range strings.Split(string(s), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, deal.FundingStage(part))
			}
		}
	}
	return out
}

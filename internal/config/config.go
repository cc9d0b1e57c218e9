// Package config loads the search core's configuration: defaults, an
// optional user file, an optional project file, then environment variable
// overrides — a layered precedence chain trimmed to the option set this
// core recognizes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	corerr "github.com/justSteve/coding-agent-session-search/internal/errors"
)

// EmbedderMode selects which Embedder variant the façade boots with.
type EmbedderMode string

const (
	EmbedderAuto EmbedderMode = "auto"
	EmbedderML   EmbedderMode = "ml"
	EmbedderHash EmbedderMode = "hash"
)

// Quantization selects the CVVI vector slab's element width.
type Quantization string

const (
	QuantizationF16 Quantization = "f16"
	QuantizationF32 Quantization = "f32"
)

// Config is the complete set of options recognized by the search core, named
// and defaulted exactly as specified in the configuration options table.
type Config struct {
	// DataDir is the caller-provided data directory (schema_hash, lexical/,
	// vectors/, meta.sqlite live beneath it). Not itself a "named option" in
	// the defaults table, but required to open anything.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	Embedder                 EmbedderMode `yaml:"embedder" json:"embedder"`
	VectorQuantization       Quantization `yaml:"vector_quantization" json:"vector_quantization"`
	VectorPreconvert         bool         `yaml:"vector_preconvert" json:"vector_preconvert"`
	VectorParallelThreshold  int          `yaml:"vector_parallel_threshold" json:"vector_parallel_threshold"`
	WarmDebounceMS           int          `yaml:"warm_debounce_ms" json:"warm_debounce_ms"`
	CacheShardCap            int          `yaml:"cache_shard_cap" json:"cache_shard_cap"`
	CacheTotalCap            int          `yaml:"cache_total_cap" json:"cache_total_cap"`
	CacheByteCap             int64        `yaml:"cache_byte_cap" json:"cache_byte_cap"`
	MergeThreshold           int          `yaml:"merge_threshold" json:"merge_threshold"`
	MergeCooldownMS          int          `yaml:"merge_cooldown_ms" json:"merge_cooldown_ms"`
	MergeForceThreshold      int          `yaml:"merge_force_threshold" json:"merge_force_threshold"`
	RRFConstant              int          `yaml:"rrf_k" json:"rrf_k"`
	RRFCandidateMult         int          `yaml:"rrf_candidate_mult" json:"rrf_candidate_mult"`

	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
}

// Default returns the configuration with every value at its documented
// default.
func Default() *Config {
	return &Config{
		DataDir:                 defaultDataDir(),
		Embedder:                EmbedderAuto,
		VectorQuantization:      QuantizationF16,
		VectorPreconvert:        true,
		VectorParallelThreshold: 10000,
		WarmDebounceMS:          120,
		CacheShardCap:           256,
		CacheTotalCap:           2048,
		CacheByteCap:            0,
		MergeThreshold:          4,
		MergeCooldownMS:         300000,
		MergeForceThreshold:     16,
		RRFConstant:             60,
		RRFCandidateMult:        3,
		OllamaHost:              "http://localhost:11434",
		LogLevel:                "info",
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".searchcore")
	}
	return filepath.Join(home, ".searchcore")
}

// Load builds the final configuration by layering, in increasing precedence:
// built-in defaults, an optional user file (~/.config/searchcore/config.yaml
// or $XDG_CONFIG_HOME), an optional project file (.searchcore.yaml in dir),
// and SEARCHCORE_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := Default()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, corerr.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func userConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "searchcore", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "searchcore", "config.yaml")
}

func loadUserConfig() (*Config, error) {
	path := userConfigPath()
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	var parsed Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse user config %s: %w", path, err)
	}
	return &parsed, nil
}

// loadFromFile merges a project-level .searchcore.yaml/.yml if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".searchcore.yaml", ".searchcore.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return corerr.ConfigError(fmt.Sprintf("read project config %s", path), err)
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return corerr.ConfigError(fmt.Sprintf("parse project config %s", path), err)
		}
		c.mergeWith(&parsed)
		return nil
	}
	return nil
}

// mergeWith overlays non-zero fields of other onto c, the same
// non-zero-field merge rule used by the layered config loader.
func (c *Config) mergeWith(other *Config) {
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.Embedder != "" {
		c.Embedder = other.Embedder
	}
	if other.VectorQuantization != "" {
		c.VectorQuantization = other.VectorQuantization
	}
	c.VectorPreconvert = other.VectorPreconvert || c.VectorPreconvert
	if other.VectorParallelThreshold != 0 {
		c.VectorParallelThreshold = other.VectorParallelThreshold
	}
	if other.WarmDebounceMS != 0 {
		c.WarmDebounceMS = other.WarmDebounceMS
	}
	if other.CacheShardCap != 0 {
		c.CacheShardCap = other.CacheShardCap
	}
	if other.CacheTotalCap != 0 {
		c.CacheTotalCap = other.CacheTotalCap
	}
	if other.CacheByteCap != 0 {
		c.CacheByteCap = other.CacheByteCap
	}
	if other.MergeThreshold != 0 {
		c.MergeThreshold = other.MergeThreshold
	}
	if other.MergeCooldownMS != 0 {
		c.MergeCooldownMS = other.MergeCooldownMS
	}
	if other.MergeForceThreshold != 0 {
		c.MergeForceThreshold = other.MergeForceThreshold
	}
	if other.RRFConstant != 0 {
		c.RRFConstant = other.RRFConstant
	}
	if other.RRFCandidateMult != 0 {
		c.RRFCandidateMult = other.RRFCandidateMult
	}
	if other.OllamaHost != "" {
		c.OllamaHost = other.OllamaHost
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies SEARCHCORE_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SEARCHCORE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SEARCHCORE_EMBEDDER"); v != "" {
		c.Embedder = EmbedderMode(v)
	}
	if v := os.Getenv("SEARCHCORE_VECTOR_QUANTIZATION"); v != "" {
		c.VectorQuantization = Quantization(v)
	}
	if v := os.Getenv("SEARCHCORE_VECTOR_PRECONVERT"); v != "" {
		c.VectorPreconvert = strings.EqualFold(v, "on") || strings.EqualFold(v, "true")
	}
	if v, ok := envInt("SEARCHCORE_VECTOR_PARALLEL_THRESHOLD"); ok {
		c.VectorParallelThreshold = v
	}
	if v, ok := envInt("SEARCHCORE_WARM_DEBOUNCE_MS"); ok {
		c.WarmDebounceMS = v
	}
	if v, ok := envInt("SEARCHCORE_CACHE_SHARD_CAP"); ok {
		c.CacheShardCap = v
	}
	if v, ok := envInt("SEARCHCORE_CACHE_TOTAL_CAP"); ok {
		c.CacheTotalCap = v
	}
	if v, ok := envInt("SEARCHCORE_MERGE_THRESHOLD"); ok {
		c.MergeThreshold = v
	}
	if v, ok := envInt("SEARCHCORE_MERGE_COOLDOWN_MS"); ok {
		c.MergeCooldownMS = v
	}
	if v, ok := envInt("SEARCHCORE_RRF_K"); ok {
		c.RRFConstant = v
	}
	if v, ok := envInt("SEARCHCORE_RRF_CANDIDATE_MULT"); ok {
		c.RRFCandidateMult = v
	}
	if v := os.Getenv("SEARCHCORE_OLLAMA_HOST"); v != "" {
		c.OllamaHost = v
	}
	if v := os.Getenv("SEARCHCORE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks that every option holds a legal value, per §7 class 4
// (user/config input errors never panic; they're reported structurally).
func (c *Config) Validate() error {
	switch c.Embedder {
	case EmbedderAuto, EmbedderML, EmbedderHash:
	default:
		return corerr.ConfigError(fmt.Sprintf("embedder: unknown mode %q", c.Embedder), nil)
	}
	switch c.VectorQuantization {
	case QuantizationF16, QuantizationF32:
	default:
		return corerr.ConfigError(fmt.Sprintf("vector_quantization: unknown value %q", c.VectorQuantization), nil)
	}
	if c.VectorParallelThreshold < 0 {
		return corerr.ConfigError("vector_parallel_threshold must be >= 0", nil)
	}
	if c.WarmDebounceMS < 0 {
		return corerr.ConfigError("warm_debounce_ms must be >= 0", nil)
	}
	if c.CacheShardCap <= 0 {
		return corerr.ConfigError("cache_shard_cap must be > 0", nil)
	}
	if c.CacheTotalCap <= 0 {
		return corerr.ConfigError("cache_total_cap must be > 0", nil)
	}
	if c.CacheByteCap < 0 {
		return corerr.ConfigError("cache_byte_cap must be >= 0", nil)
	}
	if c.MergeThreshold <= 0 {
		return corerr.ConfigError("merge_threshold must be > 0", nil)
	}
	if c.MergeForceThreshold < c.MergeThreshold {
		return corerr.ConfigError("merge_force_threshold must be >= merge_threshold", nil)
	}
	if c.MergeCooldownMS < 0 {
		return corerr.ConfigError("merge_cooldown_ms must be >= 0", nil)
	}
	if c.RRFConstant <= 0 {
		return corerr.ConfigError("rrf_k must be > 0", nil)
	}
	if c.RRFCandidateMult <= 0 {
		return corerr.ConfigError("rrf_candidate_mult must be > 0", nil)
	}
	if c.DataDir == "" {
		return corerr.ConfigError("data_dir must not be empty", nil)
	}
	return nil
}

// WriteYAML persists the configuration to path, e.g. for `searchcore init`
// style bootstrapping by a caller outside this core's scope.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// MergeNewDefaults additively fills zero-valued fields of an older,
// on-disk configuration with the current defaults' values, so upgrading the
// core never requires a destructive config migration: new fields get
// their defaults, existing fields are left untouched.
func (c *Config) MergeNewDefaults() []string {
	def := Default()
	var added []string
	if c.Embedder == "" {
		c.Embedder = def.Embedder
		added = append(added, "embedder")
	}
	if c.VectorQuantization == "" {
		c.VectorQuantization = def.VectorQuantization
		added = append(added, "vector_quantization")
	}
	if c.VectorParallelThreshold == 0 {
		c.VectorParallelThreshold = def.VectorParallelThreshold
		added = append(added, "vector_parallel_threshold")
	}
	if c.WarmDebounceMS == 0 {
		c.WarmDebounceMS = def.WarmDebounceMS
		added = append(added, "warm_debounce_ms")
	}
	if c.CacheShardCap == 0 {
		c.CacheShardCap = def.CacheShardCap
		added = append(added, "cache_shard_cap")
	}
	if c.CacheTotalCap == 0 {
		c.CacheTotalCap = def.CacheTotalCap
		added = append(added, "cache_total_cap")
	}
	if c.MergeThreshold == 0 {
		c.MergeThreshold = def.MergeThreshold
		added = append(added, "merge_threshold")
	}
	if c.MergeForceThreshold == 0 {
		c.MergeForceThreshold = def.MergeForceThreshold
		added = append(added, "merge_force_threshold")
	}
	if c.MergeCooldownMS == 0 {
		c.MergeCooldownMS = def.MergeCooldownMS
		added = append(added, "merge_cooldown_ms")
	}
	if c.RRFConstant == 0 {
		c.RRFConstant = def.RRFConstant
		added = append(added, "rrf_k")
	}
	if c.RRFCandidateMult == 0 {
		c.RRFCandidateMult = def.RRFCandidateMult
		added = append(added, "rrf_candidate_mult")
	}
	if c.OllamaHost == "" {
		c.OllamaHost = def.OllamaHost
		added = append(added, "ollama_host")
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
		added = append(added, "log_level")
	}
	return added
}

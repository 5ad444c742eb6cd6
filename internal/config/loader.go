package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source loads a SelectionConfig fragment; higher Priority() wins when
// merging layered sources (default < environment < file < explicit
// overrides).
type Source interface {
	Load() (*SelectionConfig, error)
	Priority() int
	Name() string
}

// FileSource loads YAML configuration from a file.
type FileSource struct {
	Path     string
	priority int
}

func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{Path: path, priority: priority}
}

func (f *FileSource) Priority() int { return f.priority }
func (f *FileSource) Name() string  { return "file:" + f.Path }

func (f *FileSource) Load() (*SelectionConfig, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", f.Path, err)
	}
	cfg := &SelectionConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", f.Path, err)
	}
	return cfg, nil
}

// EnvSource loads overrides from prefix-scoped environment variables, e.g.
// with prefix "SNBGRID" it reads SNBGRID_PRIOR_WEIGHT, SNBGRID_ALGORITHM,
// SNBGRID_TRACE_LEVEL. Fields left unset in the environment are zero and
// dropped during merge.
type EnvSource struct {
	Prefix   string
	priority int
}

func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{Prefix: prefix, priority: priority}
}

func (e *EnvSource) Priority() int { return e.priority }
func (e *EnvSource) Name() string  { return "env:" + e.Prefix }

func (e *EnvSource) Load() (*SelectionConfig, error) {
	cfg := &SelectionConfig{}
	if v := os.Getenv(e.key("ALGORITHM")); v != "" {
		cfg.OptimizationAlgorithm = Algorithm(v)
	}
	if v := os.Getenv(e.key("CRITERION")); v != "" {
		cfg.SelectionCriterion = Criterion(v)
	}
	cfg.PriorWeight = e.getFloat("PRIOR_WEIGHT", 0)
	cfg.ConstructionCost = e.getBool("CONSTRUCTION_COST", false)
	cfg.PreparationCost = e.getBool("PREPARATION_COST", false)
	cfg.OptimizationLevel = e.getInt("OPTIMIZATION_LEVEL", 0)
	cfg.MaxSelectedAttributeNumber = e.getInt("MAX_SELECTED_ATTRIBUTES", 0)
	cfg.MaxEvaluatedAttributeNumber = e.getInt("MAX_EVALUATED_ATTRIBUTES", 0)
	cfg.TraceLevel = e.getInt("TRACE_LEVEL", 0)
	cfg.TraceSelectedAttributes = e.getBool("TRACE_SELECTED_ATTRIBUTES", false)
	cfg.MaxTaskTime = e.getDuration("MAX_TASK_TIME", 0)
	return cfg, nil
}

func (e *EnvSource) key(suffix string) string {
	return strings.ToUpper(e.Prefix) + "_" + suffix
}

func (e *EnvSource) getInt(suffix string, def int) int {
	if v := os.Getenv(e.key(suffix)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (e *EnvSource) getFloat(suffix string, def float64) float64 {
	if v := os.Getenv(e.key(suffix)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (e *EnvSource) getBool(suffix string, def bool) bool {
	if v := os.Getenv(e.key(suffix)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func (e *EnvSource) getDuration(suffix string, def time.Duration) time.Duration {
	if v := os.Getenv(e.key(suffix)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// DefaultSource supplies DefaultSelectionConfig() as the lowest-priority
// layer.
type DefaultSource struct{ priority int }

func NewDefaultSource(priority int) *DefaultSource { return &DefaultSource{priority: priority} }
func (d *DefaultSource) Priority() int             { return d.priority }
func (d *DefaultSource) Name() string              { return "default" }
func (d *DefaultSource) Load() (*SelectionConfig, error) {
	return DefaultSelectionConfig(), nil
}

// Loader merges Sources by ascending priority (lowest first, so the
// highest-priority source's non-zero fields win last).
type Loader struct {
	sources []Source
}

func NewLoader() *Loader { return &Loader{} }

func (l *Loader) AddSource(s Source) { l.sources = append(l.sources, s) }

// Load merges all sources, lowest priority first.
func (l *Loader) Load() (*SelectionConfig, error) {
	sorted := make([]Source, len(l.sources))
	copy(sorted, l.sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	merged := &SelectionConfig{}
	for _, s := range sorted {
		cfg, err := s.Load()
		if err != nil {
			return nil, fmt.Errorf("load config source %s: %w", s.Name(), err)
		}
		mergeInto(merged, cfg)
	}
	return merged, nil
}

// mergeInto overlays override's non-zero-valued fields onto base.
func mergeInto(base, override *SelectionConfig) {
	if override.OptimizationAlgorithm != "" {
		base.OptimizationAlgorithm = override.OptimizationAlgorithm
	}
	if override.SelectionCriterion != "" {
		base.SelectionCriterion = override.SelectionCriterion
	}
	if override.PriorWeight != 0 {
		base.PriorWeight = override.PriorWeight
	}
	if override.ConstructionCost {
		base.ConstructionCost = override.ConstructionCost
	}
	if override.PreparationCost {
		base.PreparationCost = override.PreparationCost
	}
	if override.OptimizationLevel != 0 {
		base.OptimizationLevel = override.OptimizationLevel
	}
	if override.MaxSelectedAttributeNumber != 0 {
		base.MaxSelectedAttributeNumber = override.MaxSelectedAttributeNumber
	}
	if override.MaxEvaluatedAttributeNumber != 0 {
		base.MaxEvaluatedAttributeNumber = override.MaxEvaluatedAttributeNumber
	}
	if override.TraceLevel != 0 {
		base.TraceLevel = override.TraceLevel
	}
	if override.TraceSelectedAttributes {
		base.TraceSelectedAttributes = override.TraceSelectedAttributes
	}
	if override.MaxTaskTime != 0 {
		base.MaxTaskTime = override.MaxTaskTime
	}
}

// Package config manages SNB engine configuration: the attribute-selection
// parameters plus the column-store resource budget, loaded from layered
// sources (defaults, environment, file) merged by priority.
package config

import "time"

// Algorithm selects the optimization strategy.
type Algorithm string

const (
	AlgoFW      Algorithm = "FW"
	AlgoFWBW    Algorithm = "FWBW"
	AlgoFFW     Algorithm = "FFW"
	AlgoFBW     Algorithm = "FBW"
	AlgoFFWBW   Algorithm = "FFWBW"
	AlgoMSFFWBW Algorithm = "MS_FFWBW"
	AlgoOPT     Algorithm = "OPT"
)

// Criterion selects the model-averaging strategy.
type Criterion string

const (
	CriterionMAP Criterion = "MAP"
	CriterionMA  Criterion = "MA"
	CriterionCMA Criterion = "CMA"
)

// SelectionConfig holds the attribute-selection optimizer's parameters.
type SelectionConfig struct {
	OptimizationAlgorithm       Algorithm     `json:"optimization_algorithm" yaml:"optimization_algorithm"`
	SelectionCriterion          Criterion     `json:"selection_criterion" yaml:"selection_criterion"`
	PriorWeight                 float64       `json:"prior_weight" yaml:"prior_weight"`
	ConstructionCost            bool          `json:"construction_cost" yaml:"construction_cost"`
	PreparationCost             bool          `json:"preparation_cost" yaml:"preparation_cost"`
	OptimizationLevel           int           `json:"optimization_level" yaml:"optimization_level"`
	MaxSelectedAttributeNumber  int           `json:"max_selected_attribute_number" yaml:"max_selected_attribute_number"`
	MaxEvaluatedAttributeNumber int           `json:"max_evaluated_attribute_number" yaml:"max_evaluated_attribute_number"`
	TraceLevel                  int           `json:"trace_level" yaml:"trace_level"`
	TraceSelectedAttributes     bool          `json:"trace_selected_attributes" yaml:"trace_selected_attributes"`
	MaxTaskTime                 time.Duration `json:"max_task_time" yaml:"max_task_time"`
}

// DefaultSelectionConfig returns the engine's documented defaults:
// priorWeight 0.25, MS_FFWBW as the default algorithm, MAP as the default
// criterion, and optimizationLevel 0 (auto).
func DefaultSelectionConfig() *SelectionConfig {
	return &SelectionConfig{
		OptimizationAlgorithm: AlgoMSFFWBW,
		SelectionCriterion:    CriterionMAP,
		PriorWeight:           0.25,
		ConstructionCost:      true,
		PreparationCost:       true,
		OptimizationLevel:     0,
		TraceLevel:            0,
	}
}

// Validate checks the configuration and downgrades invalid combinations
// (e.g. OPT requested with more than 25 attributes falls back to
// MS_FFWBW), returning whether a correction was applied.
func (c *SelectionConfig) Validate(usedAttributeCount int) (corrected bool) {
	if c.PriorWeight < 0 {
		c.PriorWeight = 0.25
		corrected = true
	}
	if c.OptimizationAlgorithm == AlgoOPT && usedAttributeCount > 25 {
		c.OptimizationAlgorithm = AlgoMSFFWBW
		corrected = true
	}
	switch c.OptimizationAlgorithm {
	case AlgoFW, AlgoFWBW, AlgoFFW, AlgoFBW, AlgoFFWBW, AlgoMSFFWBW, AlgoOPT:
	default:
		c.OptimizationAlgorithm = AlgoMSFFWBW
		corrected = true
	}
	switch c.SelectionCriterion {
	case CriterionMAP, CriterionMA, CriterionCMA:
	default:
		c.SelectionCriterion = CriterionMAP
		corrected = true
	}
	return corrected
}

// StoreConfig controls the PreparedColumnStore resource budget.
type StoreConfig struct {
	TempDir          string `json:"temp_dir" yaml:"temp_dir"`
	MaxMemoryBytes   int64  `json:"max_memory_bytes" yaml:"max_memory_bytes"`
	ChunkBufferBytes int64  `json:"chunk_buffer_bytes" yaml:"chunk_buffer_bytes"`
}

// DefaultStoreConfig returns conservative defaults: a 256MB in-memory
// column budget and a 64KB per-chunk I/O buffer.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		TempDir:          "",
		MaxMemoryBytes:   256 * 1024 * 1024,
		ChunkBufferBytes: 64 * 1024,
	}
}

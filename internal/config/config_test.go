package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSelectionConfig(t *testing.T) {
	cfg := DefaultSelectionConfig()
	assert.Equal(t, AlgoMSFFWBW, cfg.OptimizationAlgorithm)
	assert.Equal(t, CriterionMAP, cfg.SelectionCriterion)
	assert.Equal(t, 0.25, cfg.PriorWeight)
}

func TestValidateFallsBackFromOPTAboveK25(t *testing.T) {
	cfg := &SelectionConfig{OptimizationAlgorithm: AlgoOPT, SelectionCriterion: CriterionMAP}
	corrected := cfg.Validate(30)
	assert.True(t, corrected)
	assert.Equal(t, AlgoMSFFWBW, cfg.OptimizationAlgorithm)
}

func TestValidateAcceptsOPTAtOrBelowK25(t *testing.T) {
	cfg := &SelectionConfig{OptimizationAlgorithm: AlgoOPT, SelectionCriterion: CriterionMAP}
	corrected := cfg.Validate(25)
	assert.False(t, corrected)
	assert.Equal(t, AlgoOPT, cfg.OptimizationAlgorithm)
}

func TestValidateRejectsUnknownAlgorithm(t *testing.T) {
	cfg := &SelectionConfig{OptimizationAlgorithm: "bogus", SelectionCriterion: CriterionMAP}
	corrected := cfg.Validate(5)
	assert.True(t, corrected)
	assert.Equal(t, AlgoMSFFWBW, cfg.OptimizationAlgorithm)
}

func TestLoaderMergesByPriority(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prior_weight: 0.5\ntrace_level: 2\n"), 0o644))

	t.Setenv("SNBGRID_TRACE_LEVEL", "3")

	loader := NewLoader()
	loader.AddSource(NewDefaultSource(0))
	loader.AddSource(NewFileSource(path, 10))
	loader.AddSource(NewEnvSource("SNBGRID", 20))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.PriorWeight)                   // from file, default had none
	assert.Equal(t, 3, cfg.TraceLevel)                      // env overrides file
	assert.Equal(t, AlgoMSFFWBW, cfg.OptimizationAlgorithm) // from default, untouched
}

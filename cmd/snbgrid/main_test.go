package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/arxos/snbgrid/internal/datagrid"
)

// threeContinuousGridFile mirrors datagrid's own scenario 2 fixture: 3
// Continuous attributes partitioned into {2,3,2} intervals, target of 2
// Symbol values via the implicit target-value vector. Written to a
// temporary YAML file in the shape checkCmd/statsCmd/trainCmd expect.
func threeContinuousGridFile(t *testing.T) string {
	t.Helper()
	cells := make([]int64, 2*3*2*2)
	set := func(a0, a1, a2, tj int, freq int64) {
		idx := ((a0*3+a1)*2+a2)*2 + tj
		cells[idx] = freq
	}
	set(0, 0, 0, 0, 3)
	set(0, 1, 1, 1, 2)
	set(1, 2, 0, 0, 4)
	set(1, 0, 1, 1, 1)

	stats := &datagrid.DataGridStats{
		Attributes: []datagrid.AttributeStats{
			{Name: "A1", Type: datagrid.Continuous, Discretization: &datagrid.DiscretizationStats{InteriorBounds: []float64{0}}},
			{Name: "A2", Type: datagrid.Continuous, Discretization: &datagrid.DiscretizationStats{InteriorBounds: []float64{-1, 1}}},
			{Name: "A3", Type: datagrid.Continuous, Discretization: &datagrid.DiscretizationStats{InteriorBounds: []float64{5}}},
		},
		SourceAttributeCount: 3,
		TargetAttributeCount: 0,
		TargetValues:         []string{"T1", "T2"},
		CellFrequencies:      cells,
	}

	data, err := yaml.Marshal(stats)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	return cmd.RunE(cmd, args)
}

func TestCheckCommandAcceptsWellFormedGrid(t *testing.T) {
	path := threeContinuousGridFile(t)
	assert.NoError(t, runCommand(t, checkCmd, path))
}

func TestStatsCommandRunsWithoutError(t *testing.T) {
	path := threeContinuousGridFile(t)
	assert.NoError(t, runCommand(t, statsCmd, path))
}

func TestTrainCommandRunsWithoutError(t *testing.T) {
	path := threeContinuousGridFile(t)
	assert.NoError(t, runCommand(t, trainCmd, path))
}

func TestCheckCommandRejectsMissingFile(t *testing.T) {
	err := runCommand(t, checkCmd, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

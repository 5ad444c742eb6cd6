// Command snbgrid is the CLI front end for the SNB data-preparation and
// attribute-selection engine: importing/checking frozen data grids and
// running the selection optimizer against them.
//
// Follows a package-level rootCmd with one var-declared *cobra.Command
// per subcommand, persistent + per-command flags wired in init(), and a
// main() that sets the log level from an environment variable before
// adding commands and executing.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/arxos/snbgrid/internal/cancel"
	"github.com/arxos/snbgrid/internal/colstore"
	"github.com/arxos/snbgrid/internal/config"
	"github.com/arxos/snbgrid/internal/datagrid"
	"github.com/arxos/snbgrid/internal/logger"
	"github.com/arxos/snbgrid/internal/metrics"
	"github.com/arxos/snbgrid/internal/prepare"
	"github.com/arxos/snbgrid/internal/selection"
)

var (
	// Version is set via -ldflags at build time; dev by default.
	Version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "snbgrid",
	Short: "Selective Naive Bayes data-preparation and attribute-selection engine",
	Long: `snbgrid prepares frozen data grids for supervised learning and selects
the MAP-optimal subset of attributes for a Selective Naive Bayes model.

Core features:
  • check   - validate a frozen DataGridStats file against the grid invariants
  • stats   - print empirical entropy/mutual-information statistics
  • train   - run the attribute-selection optimizer and report the chosen model

For detailed help on any command, use: snbgrid <command> --help`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func loadGridStats(path string) (*datagrid.DataGridStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid file %s: %w", path, err)
	}
	stats := &datagrid.DataGridStats{}
	if err := yaml.Unmarshal(data, stats); err != nil {
		return nil, fmt.Errorf("parse grid file %s: %w", path, err)
	}
	return stats, nil
}

var checkCmd = &cobra.Command{
	Use:   "check <grid-file>",
	Short: "Import a frozen grid and validate its invariants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := loadGridStats(args[0])
		if err != nil {
			return err
		}
		g, err := datagrid.ImportDataGridStats(stats)
		if err != nil {
			return fmt.Errorf("import grid: %w", err)
		}
		if err := g.Check(); err != nil {
			return fmt.Errorf("grid failed validation: %w", err)
		}
		fmt.Printf("OK: %d attributes, %d cells, total frequency %d\n", g.K(), g.CellCount(), g.Frequency())
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <grid-file>",
	Short: "Print empirical entropy and mutual-information statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := loadGridStats(args[0])
		if err != nil {
			return err
		}
		g, err := datagrid.ImportDataGridStats(stats)
		if err != nil {
			return fmt.Errorf("import grid: %w", err)
		}
		fmt.Printf("source entropy:   %.6f bits\n", g.SourceEntropy())
		fmt.Printf("target entropy:   %.6f bits\n", g.TargetEntropy())
		fmt.Printf("mutual entropy:   %.6f bits\n", g.MutualEntropy())
		fmt.Printf("informative attrs: %d / %d\n", g.InformativeAttributeNumber(), g.K())
		return nil
	},
}

var trainCmd = &cobra.Command{
	Use:   "train <grid-file>",
	Short: "Run the attribute-selection optimizer and report the selected model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		maxTaskTime, _ := cmd.Flags().GetDuration("max-task-time")
		withMetrics, _ := cmd.Flags().GetBool("metrics")

		selCfg, err := loadSelectionConfig(configPath)
		if err != nil {
			return err
		}
		if maxTaskTime > 0 {
			selCfg.MaxTaskTime = maxTaskTime
		}

		stats, err := loadGridStats(args[0])
		if err != nil {
			return err
		}
		g, err := datagrid.ImportDataGridStats(stats)
		if err != nil {
			return fmt.Errorf("import grid: %w", err)
		}
		if err := g.Check(); err != nil {
			return fmt.Errorf("grid failed validation: %w", err)
		}

		if selCfg.Validate(g.K()) {
			logger.Warn("selection config had an invalid combination, corrected to %s/%s", selCfg.OptimizationAlgorithm, selCfg.SelectionCriterion)
		}

		attrs, err := prepare.BuildPreparedAttributes(g)
		if err != nil {
			return fmt.Errorf("prepare attributes: %w", err)
		}
		it, err := prepare.NewGridRowIterator(g)
		if err != nil {
			return fmt.Errorf("build row iterator: %w", err)
		}

		var storeMetrics *metrics.Store
		var optMetrics *metrics.Optimizer
		if withMetrics {
			reg := prometheus.NewRegistry()
			storeMetrics = metrics.NewStore(reg)
			optMetrics = metrics.NewOptimizer(reg)
		}

		tok := cancel.New(selCfg.MaxTaskTime)
		store := colstore.New(config.DefaultStoreConfig(), tok, storeMetrics)
		defer store.Close()

		if err := store.SetUsedAttributes(attrs); err != nil {
			return fmt.Errorf("set used attributes: %w", err)
		}
		instanceCount := it.InstanceCount()
		if err := store.ComputePreparedData(it, instanceCount); err != nil {
			return fmt.Errorf("materialize prepared data: %w", err)
		}

		universe := make([]int, len(attrs))
		for i := range universe {
			universe[i] = i
		}
		partition := selection.NewFixedClassifier(store, g.TargetValueCount(), instanceCount)

		logger.Info("running %s over %d attributes, %d instances", selCfg.OptimizationAlgorithm, len(attrs), instanceCount)
		weightMethod := selection.WeightMethodFor(selCfg.SelectionCriterion)
		opt := selection.New(selCfg, partition, universe, instanceCount, weightMethod, optMetrics, tok, nil)
		opt.SetAttributeOrderer(store)
		result, err := opt.Optimize()
		if err != nil {
			return fmt.Errorf("optimize: %w", err)
		}

		fmt.Printf("selected %d/%d attributes (cost %.6f):\n", len(result.Selected), len(attrs), result.Cost)
		for _, a := range result.Selected {
			if result.Weights != nil {
				fmt.Printf("  %-20s weight=%.4f\n", attrs[a].Name, result.Weights[a])
			} else {
				fmt.Printf("  %s\n", attrs[a].Name)
			}
		}
		return nil
	},
}

func loadSelectionConfig(path string) (*config.SelectionConfig, error) {
	loader := config.NewLoader()
	loader.AddSource(config.NewDefaultSource(0))
	loader.AddSource(config.NewEnvSource("SNBGRID", 10))
	if path != "" {
		loader.AddSource(config.NewFileSource(path, 20))
	}
	return loader.Load()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("snbgrid %s\n", Version)
	},
}

func main() {
	logLevel := os.Getenv("SNBGRID_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn", "warning":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}

	rootCmd.AddCommand(
		checkCmd,
		statsCmd,
		trainCmd,
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	trainCmd.Flags().String("config", "", "selection config YAML file path")
	trainCmd.Flags().Duration("max-task-time", 0, "wall-clock cutoff for the search (0 = unlimited)")
	trainCmd.Flags().Bool("metrics", false, "register a private Prometheus registry and report counters")
}

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jupierce/coverage-report/pkg/config"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
	"github.com/jupierce/coverage-report/pkg/export"
	"github.com/jupierce/coverage-report/pkg/input"
	"github.com/jupierce/coverage-report/pkg/log"
	"github.com/jupierce/coverage-report/pkg/metrics"
	"github.com/jupierce/coverage-report/pkg/render"
	"github.com/jupierce/coverage-report/pkg/tree"
)

var (
	// Report flags, shared by report, to-file and compile
	inputSpecs     []string
	reportName     string
	outputDir      string
	reporterName   string
	sourceRoot     string
	maxConcurrency int
	metricsFile    string

	// to-file flags
	forceOverwrite bool

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Build a coverage report from tracefiles",
		Long: `Build a coverage report from one or more tracefiles.

Each --input is either a bare path or comma-separated key=value pairs with
the keys name, prefix, path and format. Without a prefix the longest common
directory of the input's records is stripped. With several inputs every one
becomes a root of a merged report under its own directory.`,
		Example: `  # One LCOV tracefile, multi-page HTML
  coverage-report report --input lcov.info --output coverage-html

  # Two inputs merged into one report
  coverage-report report --name Nightly --output site \
    --input 'name=Core,prefix=/home/ci/src/core,path=core.info' \
    --input 'path=lib.out,format=go'

  # Plain-text summary
  coverage-report report --input lcov.info --output out --reporter text`,
		Args: cobra.NoArgs,
		RunE: runReportCmd,
	}

	toFileCmd = &cobra.Command{
		Use:   "to-file <path>",
		Short: "Save the report flags as a configuration file",
		Long: `Save the report flags as a configuration file. The extension selects the
format: .toml, .yaml or .yml. An existing file is kept unless --force is set.`,
		Example: `  coverage-report to-file report.toml --input lcov.info --output coverage-html`,
		Args:    cobra.ExactArgs(1),
		RunE:    runToFile,
	}

	fromFileCmd = &cobra.Command{
		Use:     "from-file <path>",
		Short:   "Build a coverage report from a configuration file",
		Example: `  coverage-report from-file report.toml`,
		Args:    cobra.ExactArgs(1),
		RunE:    runFromFile,
	}
)

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&inputSpecs, "input", "i", nil, "Coverage input: path or name=..,prefix=..,path=..,format=.. (repeatable)")
	cmd.Flags().StringVar(&reportName, "name", "", "Report name (default: derived from the inputs)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (required)")
	cmd.Flags().StringVar(&reporterName, "reporter", string(config.ReporterHTML), "Reporter: html or text")
	cmd.Flags().StringVar(&sourceRoot, "source-root", "", "Directory relative source paths are read from (default: working directory)")
}

func init() {
	addReportFlags(reportCmd)
	reportCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 8, "Maximum concurrent input reads and page renders")
	reportCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Also write Prometheus textfile gauges to this path")

	addReportFlags(toFileCmd)
	toFileCmd.Flags().BoolVar(&forceOverwrite, "force", false, "Overwrite an existing configuration file")

	fromFileCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 8, "Maximum concurrent input reads and page renders")
	fromFileCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Also write Prometheus textfile gauges to this path")

	rootCmd.AddCommand(reportCmd, toFileCmd, fromFileCmd)
}

// configFromFlags builds and validates a configuration from the report flags
func configFromFlags() (config.Config, error) {
	reporter, err := config.ParseReporter(reporterName)
	if err != nil {
		return config.Config{}, err
	}
	cfg := config.Config{
		Name:       reportName,
		Output:     outputDir,
		Reporter:   reporter,
		SourceRoot: sourceRoot,
	}
	for _, spec := range inputSpecs {
		in, err := config.ParseInputSpec(spec)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Inputs = append(cfg.Inputs, in)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags()
	if err != nil {
		return err
	}
	return withLogger(func(logger *log.Logger) error {
		return generate(cmd.Context(), cfg, logger)
	})
}

func runToFile(cmd *cobra.Command, args []string) error {
	cfg, err := configFromFlags()
	if err != nil {
		return err
	}
	if err := config.Save(args[0], cfg, forceOverwrite); err != nil {
		return err
	}
	fmt.Printf("💾 Configuration saved to %s\n", args[0])
	return nil
}

func runFromFile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	// Relative paths in a configuration file are relative to the file.
	cfg = relativeTo(filepath.Dir(args[0]), cfg)
	return withLogger(func(logger *log.Logger) error {
		return generate(cmd.Context(), cfg, logger)
	})
}

func relativeTo(dir string, cfg config.Config) config.Config {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	cfg.Output = join(cfg.Output)
	cfg.SourceRoot = join(cfg.SourceRoot)
	inputs := make([]config.Input, len(cfg.Inputs))
	for i, in := range cfg.Inputs {
		in.Path = join(in.Path)
		inputs[i] = in
	}
	cfg.Inputs = inputs
	return cfg
}

func withLogger(fn func(*log.Logger) error) error {
	logger, err := createLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := fn(logger); err != nil {
		logger.Debug("command failed: %v", err)
		return err
	}
	return nil
}

// readSources parses every configured tracefile, at most maxConcurrency at a
// time, keeping the configured order.
func readSources(ctx context.Context, cfg config.Config, logger *log.Logger) ([]input.Source, error) {
	sources := make([]input.Source, len(cfg.Inputs))

	g, _ := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}
	for i, in := range cfg.Inputs {
		g.Go(func() error {
			records, err := input.ReadFile(in.Path, in.Format)
			if err != nil {
				return err
			}
			logger.Debug("[%d/%d] Read %d records from %s", i+1, len(cfg.Inputs), len(records), in.Path)
			sources[i] = input.Source{Name: in.Name, Prefix: in.Prefix, Records: records}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// buildReport builds a single root for one input and a multi-report for
// several.
func buildReport(ctx context.Context, cfg config.Config, sources []input.Source, logger *log.Logger) (tree.Container, error) {
	builder := tree.NewBuilder(logger)

	if len(sources) == 1 {
		resolved, err := input.ResolveSingle(sources[0], cfg.Name)
		if err != nil {
			return nil, err
		}
		return builder.Build(resolved)
	}

	resolved, err := input.Resolve(sources)
	if err != nil {
		return nil, err
	}
	for _, r := range resolved {
		logger.Debug("Root %q: prefix %q, %d records", r.Spec.Key, r.Spec.Prefix, len(r.Records))
	}
	return builder.BuildAll(ctx, cfg.Name, resolved, maxConcurrency)
}

// loadReport reads the inputs of cfg and builds the aggregated tree.
func loadReport(ctx context.Context, cfg config.Config, logger *log.Logger) (tree.Container, error) {
	sources, err := readSources(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	root, err := buildReport(ctx, cfg, sources, logger)
	if err != nil {
		return nil, err
	}
	if bad, ok := tree.CheckTotals(root); !ok {
		return nil, reporterrors.Invariant("totals of %q do not match the sum of its children", bad.Path().String())
	}
	return root, nil
}

func exporterFor(cfg config.Config) (export.Exporter, error) {
	fs := export.LocalFileSystem{}
	switch cfg.Reporter {
	case config.ReporterText:
		return export.NewSinglePage(render.Text{}, fs, cfg.Output), nil
	default:
		html, err := render.NewHTML()
		if err != nil {
			return nil, reporterrors.Wrap(err, reporterrors.CategoryInternal, "load HTML templates")
		}
		e := export.NewMultiPage(html, fs, nil, cfg.Output)
		e.Lines = render.LocalSource(cfg.SourceRoot)
		e.Concurrency = maxConcurrency
		return e, nil
	}
}

// generate runs the whole pipeline for cfg
func generate(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	cfg = cfg.WithDefaults()
	logger.Introduction(cfg)

	root, err := loadReport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	files := tree.EnumerateFiles(root)
	logger.Info("📊 Aggregated %d files: lines %s, functions %s, branches %s",
		len(files),
		render.FormatPercentage(root.Coverage().Lines),
		render.FormatPercentage(root.Coverage().Functions),
		render.FormatPercentage(root.Coverage().Branches))

	exporter, err := exporterFor(cfg)
	if err != nil {
		return err
	}
	stats, err := exporter.Export(ctx, root)
	if err != nil {
		return err
	}
	logger.Debug("Wrote %d pages and %d resources", stats.Pages, stats.Resources)

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile, root); err != nil {
			return reporterrors.FileSystem(err, "write %s", metricsFile)
		}
		logger.Info("📈 Metrics written to %s", metricsFile)
	}

	logger.Conclusion(cfg.Output)
	return nil
}

// Command bikereport builds the bike service report once from two source
// files and writes every table as CSV, optionally also as one workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"bikereport/internal/config"
	"bikereport/internal/dataprocessing"
	"bikereport/internal/exporter"
	"bikereport/internal/infrastructure"
	"bikereport/internal/services"
	handlers "bikereport/internal/transport/http"
	"bikereport/internal/validation"
)

const workbookName = "BikeReport.xlsx"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("Report failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type options struct {
	registry string
	dispatch string
	start    string
	end      string
	include  string
	exclude  string
	bikeType string
	policy   string
	out      string
	xlsx     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("bikereport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.registry, "registry", "", "registry table (.csv or .xlsx); defaults to the configured source")
	fs.StringVar(&opts.dispatch, "dispatch", "", "dispatch table (.csv or .xlsx); defaults to the configured source")
	fs.StringVar(&opts.start, "start", "", "first dispatch date, YYYY-MM-DD")
	fs.StringVar(&opts.end, "end", "", "last dispatch date, YYYY-MM-DD")
	fs.StringVar(&opts.include, "include", "", "comma separated keywords a record must mention")
	fs.StringVar(&opts.exclude, "exclude", "", "comma separated keywords a record must not mention")
	fs.StringVar(&opts.bikeType, "type", "", "bike type for the dispatch listing")
	fs.StringVar(&opts.policy, "policy", "", "efficiency policy: fixed or configurable")
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to the reports directory)")
	fs.BoolVar(&opts.xlsx, "xlsx", false, "also write all tables to "+workbookName)
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if (opts.registry == "") != (opts.dispatch == "") {
		return opts, errors.New("-registry and -dispatch must be given together")
	}
	return opts, nil
}

func (o options) query() handlers.ReportQuery {
	return handlers.QueryFromValues(url.Values{
		"start":   {o.start},
		"end":     {o.end},
		"include": {o.include},
		"exclude": {o.exclude},
		"type":    {o.bikeType},
		"policy":  {o.policy},
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}
	logger := infrastructure.NewLogger(cfg.Logging, stderr).With(slog.String("component", "bikereport"))
	if err != nil {
		logger.Warn("Failed to load config, using defaults", slog.String("error", err.Error()))
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	paths, err := cfg.ResolvePaths(cwd)
	if err != nil {
		return err
	}
	if opts.out != "" {
		out, err := filepath.Abs(opts.out)
		if err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
		paths.ReportsDir = out
	}

	sources := cfg.Sources
	if opts.registry != "" {
		sources = sourcesFor(cfg.Sources, opts.registry, opts.dispatch)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateSources(sources, paths); err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(paths.ReportsDir); err != nil {
		return err
	}

	defaults, err := dataprocessing.ParamsFromConfig(cfg.Report)
	if err != nil {
		return err
	}
	params, err := handlers.NewParamParser().Parse(opts.query(), defaults)
	if err != nil {
		return err
	}

	source, err := dataprocessing.NewSource(ctx, sources, paths)
	if err != nil {
		return err
	}

	service := services.NewReportService(source, params, nil, nil, logger)
	if _, err := service.Reload(ctx); err != nil {
		return err
	}
	report, err := service.Build(ctx, params)
	if err != nil {
		return err
	}

	tables := exporter.ReportTables(report)
	written, err := exporter.NewCSVWriter(paths).WriteTables(tables)
	if err != nil {
		return err
	}
	if opts.xlsx {
		workbook := paths.GetReportPath(workbookName)
		if err := exporter.NewWorkbookExporter().SaveAs(workbook, tables); err != nil {
			return err
		}
		written = append(written, workbook)
	}

	logger.Info("Report written",
		slog.String("reports_dir", paths.ReportsDir),
		slog.Int("files", len(written)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Int("section_errors", len(report.SectionErrors)))

	return printSummary(stdout, report, written)
}

// sourcesFor points the configured sources at explicit files. The kind
// follows the registry file extension.
func sourcesFor(base config.SourcesConfig, registry, dispatch string) config.SourcesConfig {
	sources := base
	sources.RegistryFile = registry
	sources.DispatchFile = dispatch
	sources.Kind = config.SourceCSV
	if ext := strings.ToLower(filepath.Ext(registry)); ext == ".xlsx" || ext == ".xlsm" {
		sources.Kind = config.SourceXLSX
	}
	if abs, err := filepath.Abs(registry); err == nil {
		sources.RegistryFile = abs
	}
	if abs, err := filepath.Abs(dispatch); err == nil {
		sources.DispatchFile = abs
	}
	return sources
}

func printSummary(w io.Writer, report *dataprocessing.Report, written []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Report %s to %s\n\n", report.Start, report.End)

	fmt.Fprintln(tw, "Type\tServices\tWith keywords\tTouches")
	for i, total := range report.TypeTotals.ServiceByType {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", total.BikeType,
			totalAt(report.TypeTotals.ServiceByType, i),
			totalAt(report.TypeTotals.WithKeywords, i),
			totalAt(report.TypeTotals.Touches, i))
	}

	fmt.Fprintln(tw, "\nType\tNumerator\tDenominator\tEfficiency")
	for _, e := range report.Efficiency {
		display := e.String()
		if e.Defined {
			display += "%"
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\n", e.BikeType, e.Numerator, e.Denominator, display)
	}

	if report.DispatchType != "" {
		fmt.Fprintf(tw, "\nDispatches for %s: %d\n", report.DispatchType, len(report.Dispatches))
	}
	for _, se := range report.SectionErrors {
		fmt.Fprintf(tw, "Section %s failed: %s\n", se.Section, se.Message)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(tw, "%d warnings, see log\n", len(report.Warnings))
	}

	fmt.Fprintln(tw)
	for _, path := range written {
		fmt.Fprintf(tw, "wrote %s\n", path)
	}
	return tw.Flush()
}

func totalAt(totals []dataprocessing.TypeTotal, i int) string {
	if i >= len(totals) {
		return "-"
	}
	return fmt.Sprintf("%g", totals[i].Total)
}

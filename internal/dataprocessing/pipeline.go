package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"bikereport/internal/config"
	apperrors "bikereport/internal/errors"
	"bikereport/internal/infrastructure"
	"bikereport/pkg/contracts/domain"
)

// Report sections, also used as table names by the presenters
const (
	SectionServiceByType         = "service-by-type"
	SectionServiceByTypeKeywords = "service-by-type-keywords"
	SectionTouches               = "touches"
	SectionDispatches            = "dispatches"
	SectionEfficiency            = "efficiency"
)

// Sections lists every report section in display order
var Sections = []string{
	SectionServiceByType,
	SectionServiceByTypeKeywords,
	SectionTouches,
	SectionDispatches,
	SectionEfficiency,
}

// ReportParams are the per-request report inputs
type ReportParams struct {
	Start time.Time
	End   time.Time

	IncludeEnabled  bool
	IncludeKeywords []string
	ExcludeEnabled  bool
	ExcludeKeywords []string

	// BikeType scopes the dispatch listing; empty selects the first type seen
	BikeType string

	Policy      string
	Numerator   []string
	Denominator []string
	// FixedDenominator is the configured label list of the fixed policy. It
	// applies only when Denominator is empty.
	FixedDenominator []string

	Order           OrderPolicy
	TypesOfInterest []string
	Join            JoinOptions
}

// EfficiencyPolicy builds the partition strategy selected by p. An explicit
// denominator list wins over the configured fixed list; the configurable
// policy never sees the fixed list.
func (p ReportParams) EfficiencyPolicy() (EfficiencyPolicy, error) {
	denominator := p.Denominator
	if len(denominator) == 0 && (p.Policy == config.PolicyFixed || p.Policy == "") {
		denominator = p.FixedDenominator
	}
	return NewEfficiencyPolicy(p.Policy, p.Numerator, denominator)
}

// ParamsFromConfig returns the default parameters described by cfg
func ParamsFromConfig(cfg config.ReportConfig) (ReportParams, error) {
	start, err := time.Parse(domain.DateLayout, cfg.StartDate)
	if err != nil {
		return ReportParams{}, apperrors.NewConfigError("invalid report start date", err)
	}
	end, err := time.Parse(domain.DateLayout, cfg.EndDate)
	if err != nil {
		return ReportParams{}, apperrors.NewConfigError("invalid report end date", err)
	}

	keywords := cfg.Keywords
	if len(keywords) == 0 {
		keywords = config.DefaultKeywords
	}
	types := cfg.TypesOfInterest
	if len(types) == 0 {
		types = config.DefaultTypesOfInterest
	}
	excluded := cfg.ExcludedServices
	if excluded == nil {
		excluded = config.DefaultExcludedServices
	}

	return ReportParams{
		Start:           start,
		End:             end,
		IncludeKeywords: append([]string(nil), keywords...),
		Policy:           cfg.EfficiencyPolicy,
		FixedDenominator: append([]string(nil), cfg.DenominatorServices...),
		Order:           OrderPolicy(cfg.OrderPolicy),
		TypesOfInterest: append([]string(nil), types...),
		Join: JoinOptions{
			Mode:             JoinMode(cfg.JoinMode),
			ExcludedServices: append([]string(nil), excluded...),
			RequireRegistry:  cfg.RequireRegistry,
			StrictJoinKeys:   cfg.StrictJoinKeys,
		},
	}, nil
}

// TypeTotals holds the type-of-interest totals of each pivot
type TypeTotals struct {
	ServiceByType []TypeTotal `json:"service_by_type"`
	WithKeywords  []TypeTotal `json:"service_by_type_keywords"`
	Touches       []TypeTotal `json:"touches"`
}

// ReportStats counts records at each pipeline stage
type ReportStats struct {
	Join          JoinStats `json:"join"`
	InRange       int       `json:"in_range"`
	Working       int       `json:"after_keyword_filter"`
	WithKeywords  int       `json:"with_keywords"`
	TouchExcluded int       `json:"touch_excluded"`
}

// Report is the full set of tables derived from one snapshot
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Fingerprint string    `json:"fingerprint"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Policy      string    `json:"policy"`

	ServiceByType             *Pivot                `json:"service_by_type"`
	ServiceByTypeWithKeywords *Pivot                `json:"service_by_type_keywords"`
	Touches                   *Pivot                `json:"touches"`
	DispatchType              string                `json:"dispatch_type"`
	Dispatches                []domain.DispatchView `json:"dispatches"`
	Efficiency                []EfficiencyResult    `json:"efficiency"`
	TypeTotals                TypeTotals            `json:"type_totals"`

	Stats         ReportStats    `json:"stats"`
	Warnings      []Warning      `json:"warnings"`
	SectionErrors []SectionError `json:"section_errors"`
}

// SectionFailed reports whether a section is listed in SectionErrors
func (r *Report) SectionFailed(section string) bool {
	for _, e := range r.SectionErrors {
		if e.Section == section {
			return true
		}
	}
	return false
}

// ReportBuilder runs the pipeline against a snapshot
type ReportBuilder struct {
	logger  *slog.Logger
	metrics *infrastructure.ReportMetrics
}

// NewReportBuilder creates a builder. metrics may be nil.
func NewReportBuilder(logger *slog.Logger, metrics *infrastructure.ReportMetrics) *ReportBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportBuilder{
		logger:  logger.With(slog.String("component", "report_builder")),
		metrics: metrics,
	}
}

// Build computes every report section. Errors in the inputs (no snapshot, a
// bad date range, strict duplicate keys) fail the build; a failing section
// only adds to Report.SectionErrors.
func (b *ReportBuilder) Build(ctx context.Context, snap *Snapshot, params ReportParams) (*Report, error) {
	started := time.Now()
	ctx, span := infrastructure.StartSpan(ctx, "report.build",
		attribute.String("policy", params.Policy),
		attribute.String("join_mode", string(params.Join.Mode)))
	defer span.End()

	if snap == nil {
		return nil, apperrors.NewUnavailableError("no data snapshot loaded")
	}

	rng, err := NewDateRange(params.Start, params.End)
	if err != nil {
		return nil, err
	}

	joined, err := NewJoiner(params.Join, b.logger).Join(ctx, snap.Registry, snap.Dispatches)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	b.metrics.RecordRowsDropped(ctx, "excluded_service", joined.Stats.Excluded)
	b.metrics.RecordRowsDropped(ctx, "incomplete", joined.Stats.Incomplete)
	if params.Join.Mode == JoinInner || (params.Join.Mode != JoinLeft && params.Join.RequireRegistry) {
		b.metrics.RecordRowsDropped(ctx, "unmatched", joined.Stats.Unmatched)
	}
	b.metrics.RecordRowsDropped(ctx, "bad_date", joined.Stats.BadDate)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inRange := FilterByDate(joined.Records, rng)
	filter := NewKeywordFilter(params.IncludeEnabled, params.IncludeKeywords, params.ExcludeEnabled, params.ExcludeKeywords)
	working := filter.Apply(inRange)
	withKeywords := Select(working, NewKeywordPredicate(params.IncludeKeywords))

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Fingerprint: snap.Fingerprint,
		Start:       rng.Start.Format(domain.DateLayout),
		End:         rng.End.Format(domain.DateLayout),
		Policy:      params.Policy,
		Warnings:    append([]Warning{}, joined.Warnings...),
		Stats: ReportStats{
			Join:         joined.Stats,
			InRange:      len(inRange),
			Working:      len(working),
			WithKeywords: len(withKeywords),
		},
		SectionErrors: []SectionError{},
	}

	b.section(ctx, report, SectionServiceByType, func() error {
		report.ServiceByType = BuildPivot(working, FieldPartner, AggCount, params.Order)
		report.TypeTotals.ServiceByType = report.ServiceByType.TypeTotals(params.TypesOfInterest)
		return nil
	})

	b.section(ctx, report, SectionServiceByTypeKeywords, func() error {
		report.ServiceByTypeWithKeywords = BuildPivot(withKeywords, FieldPartner, AggCount, params.Order)
		report.TypeTotals.WithKeywords = report.ServiceByTypeWithKeywords.TypeTotals(params.TypesOfInterest)
		return nil
	})

	b.section(ctx, report, SectionTouches, func() error {
		touched, warnings := ApplyTouches(ctx, b.logger, working)
		report.Warnings = append(report.Warnings, warnings...)
		report.Stats.TouchExcluded = len(warnings)
		b.metrics.RecordRowsDropped(ctx, "non_numeric_bike_count", len(warnings))
		report.Touches = BuildPivot(touched, FieldTouched, AggSum, params.Order)
		report.TypeTotals.Touches = report.Touches.TypeTotals(params.TypesOfInterest)
		return nil
	})

	b.section(ctx, report, SectionDispatches, func() error {
		report.DispatchType = params.BikeType
		if report.DispatchType == "" {
			report.DispatchType = DefaultBikeType(withKeywords)
		}
		report.Dispatches = DispatchesFor(withKeywords, report.DispatchType)
		return nil
	})

	b.section(ctx, report, SectionEfficiency, func() error {
		if report.ServiceByType == nil {
			return fmt.Errorf("service by type table is unavailable")
		}
		policy, err := params.EfficiencyPolicy()
		if err != nil {
			return err
		}
		report.Policy = policy.Name()
		report.Efficiency, err = EfficiencyTable(report.ServiceByType, params.TypesOfInterest, policy)
		return err
	})

	duration := time.Since(started)
	b.metrics.RecordReportBuild(ctx, duration, len(report.SectionErrors))

	b.logger.InfoContext(ctx, "report built",
		slog.String("fingerprint", snap.Fingerprint),
		slog.String("start", report.Start),
		slog.String("end", report.End),
		slog.Int("records", len(working)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Int("section_errors", len(report.SectionErrors)),
		slog.Duration("duration", duration))

	return report, nil
}

// section runs one section builder, turning an error or panic into a
// SectionError so the remaining sections still render.
func (b *ReportBuilder) section(ctx context.Context, r *Report, name string, build func() error) {
	var err error
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		err = build()
	}()
	if err == nil {
		return
	}

	r.SectionErrors = append(r.SectionErrors, SectionError{Section: name, Message: err.Error()})
	infrastructure.RecordError(ctx, err)
	b.logger.ErrorContext(ctx, "report section failed",
		slog.String("section", name),
		slog.String("error", err.Error()))
}

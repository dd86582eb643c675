// Package dataprocessing turns the bike-program registry and the dispatch
// activity feed into report tables.
//
// # Architecture
//
// The pipeline is a linear sequence of table operations:
//
//  1. Loader: a Source reads the two raw tables (CSV, XLSX or Google Sheets)
//     and ParseRegistry / ParseDispatches validate their headers.
//  2. Joiner: merges dispatches with registry rows on the order ID, drops
//     excluded services, normalizes notes and dates, drops incomplete rows.
//  3. Filters: an inclusive DateRange and a two-axis KeywordFilter.
//  4. Aggregation: count and touch pivots, per-type efficiency.
//
// ReportBuilder runs every stage against an immutable Snapshot and collects
// the tables into a Report.
//
// # Usage
//
//	src := dataprocessing.NewCSVSource("data/registry.csv", "data/dispatch.csv")
//	registry, err := dataprocessing.LoadRegistry(ctx, src)
//	...
//	snap := dataprocessing.NewSnapshot(src.Name(), registry, dispatches)
//	report, err := dataprocessing.NewReportBuilder(logger, nil).Build(ctx, snap, params)
//
// # Error Handling
//
// Header problems surface as SCHEMA errors and abort the load. Duplicate
// registry order IDs become warnings, or a JOIN_KEY error in strict mode.
// A record whose bike count cannot be read is dropped from the touch table
// with a warning. A report section that fails is listed in
// Report.SectionErrors while the other sections still render.
package dataprocessing

// Package services implements the business logic layer between the HTTP
// handlers and the report pipeline.
//
// ReportService owns the current data snapshot. Reload reads both source
// tables in parallel, swaps the snapshot atomically and notifies websocket
// clients; Build runs the pipeline against whatever snapshot is current, so
// a reload never changes a report that is already being computed.
//
// HealthService reports liveness, readiness (a snapshot is loaded) and
// version information.
//
// Services take their dependencies through constructors and log through an
// injected *slog.Logger tagged with a "component" attribute.
package services

// Package http implements the HTTP handlers of the bike report service.
// Handlers stay thin: they parse and validate the query string, call the
// report service and render the result.
//
// # Endpoints
//
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//	GET  /api/report                 full report as JSON, ?format=xlsx for a workbook
//	GET  /api/report/{table}         one table as JSON, ?format=csv for a download
//	GET  /api/options                selector values for the current snapshot
//	POST /api/snapshot/refresh       reload the source tables
//
// # Report parameters
//
// All report endpoints accept the same query parameters, each optional and
// falling back to the configured defaults:
//
//	start, end                 inclusive dates, YYYY-MM-DD
//	include, exclude           comma separated keywords; setting one enables it
//	include_enabled            true|false toggles
//	exclude_enabled
//	type                       bike type of the dispatch listing
//	policy                     fixed | configurable
//	numerator, denominator     comma separated service labels
//	order                      lexicographic | first_seen
//	join                       right | left | inner
//
// # Errors
//
// Errors are rendered as RFC 7807 problem details by errors.ErrorHandler.
// Validation failures list the offending query keys under "details".
//
// # Caching
//
// Report responses carry a weak ETag derived from the snapshot fingerprint
// and the effective parameters; If-None-Match yields 304.
package http

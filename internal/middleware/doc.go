// Package middleware provides the HTTP middleware chain of the report API:
// request IDs, structured request logging, panic recovery, security
// headers, CORS, rate limiting, request timeouts and OpenTelemetry
// instrumentation. Error responses use RFC 7807 problem details.
package middleware
